package endpoints

import (
	"github.com/whitewolf2000ani/sdx/internal/api"
	"github.com/whitewolf2000ani/sdx/internal/postgres"
)

// Config holds dependencies needed by some endpoints.
type Config struct {
	PostgresManager *postgres.DockerManager
	SwaggerSpecPath string
}

// All returns all endpoint instances.
func All(cfg Config) []api.Endpoint {
	return []api.Endpoint{
		// Health endpoints
		&HealthEndpoint{},
		&ReadyEndpoint{},
		&StatusEndpoint{PostgresManager: cfg.PostgresManager},

		// Artifact endpoints
		&UploadArtifactEndpoint{},
		&ListArtifactsEndpoint{},
		&GetArtifactEndpoint{},

		// Pipeline endpoint
		&RunPipelineEndpoint{},

		// Record endpoints
		&ListRecordSessionsEndpoint{},
		&GetRecordEndpoint{},

		// Reply endpoints
		&ListRepliesEndpoint{},
		&GetReplyEndpoint{},

		// Schema endpoints
		&ListSchemasEndpoint{},
		&GetSchemaEndpoint{},

		// Swagger/OpenAPI endpoints
		&SwaggerEndpoint{SpecPath: cfg.SwaggerSpecPath},
		&SwaggerUIEndpoint{},
	}
}

// ArtifactCommands groups artifact operations under one CLI subcommand.
func ArtifactCommands() []api.Endpoint {
	return []api.Endpoint{
		&UploadArtifactEndpoint{},
		&ListArtifactsEndpoint{},
		&GetArtifactEndpoint{},
	}
}

// RecordCommands groups record operations under one CLI subcommand.
func RecordCommands() []api.Endpoint {
	return []api.Endpoint{
		&ListRecordSessionsEndpoint{},
		&GetRecordEndpoint{},
	}
}

// ReplyCommands groups reply operations under one CLI subcommand.
func ReplyCommands() []api.Endpoint {
	return []api.Endpoint{
		&ListRepliesEndpoint{},
		&GetReplyEndpoint{},
	}
}

// SchemaCommands groups schema operations under one CLI subcommand.
func SchemaCommands() []api.Endpoint {
	return []api.Endpoint{
		&ListSchemasEndpoint{},
		&GetSchemaEndpoint{},
	}
}
