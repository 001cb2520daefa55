package endpoints

import (
	"encoding/json"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/whitewolf2000ani/sdx/internal/api"
	"github.com/whitewolf2000ani/sdx/internal/schema"
)

// SchemaInfo describes one registered extraction schema.
type SchemaInfo struct {
	ID     string          `json:"id"`
	Kind   string          `json:"kind"`
	Schema json.RawMessage `json:"schema,omitempty"`
}

// ListSchemasEndpoint handles GET /api/schemas.
type ListSchemasEndpoint struct{}

func (e *ListSchemasEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/schemas", e.handler
}

func (e *ListSchemasEndpoint) RequiresInit() bool { return false }

// handler godoc
//
//	@Summary		List registered extraction schemas
//	@Tags			schemas
//	@Produce		json
//	@Success		200	{array}		SchemaInfo
//	@Router			/api/schemas [get]
func (e *ListSchemasEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	all, err := schema.All()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	out := make([]SchemaInfo, 0, len(all))
	for _, s := range all {
		out = append(out, SchemaInfo{ID: string(s.ID), Kind: string(s.Kind)})
	}
	writeJSON(w, http.StatusOK, out)
}

func (e *ListSchemasEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered extraction schemas",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp []SchemaInfo
			if err := client.Get(cmd.Context(), "/api/schemas", &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// GetSchemaEndpoint handles GET /api/schemas/{id}.
type GetSchemaEndpoint struct{}

func (e *GetSchemaEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/schemas/{id}", e.handler
}

func (e *GetSchemaEndpoint) RequiresInit() bool { return false }

// handler godoc
//
//	@Summary		Get an extraction schema by ID
//	@Tags			schemas
//	@Produce		json
//	@Param			id	path		string	true	"Schema ID"
//	@Success		200	{object}	SchemaInfo
//	@Failure		404	{object}	ErrorResponse
//	@Router			/api/schemas/{id} [get]
func (e *GetSchemaEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	id, err := schema.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	s, err := schema.Get(id)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, SchemaInfo{
		ID:     string(s.ID),
		Kind:   string(s.Kind),
		Schema: s.Raw,
	})
}

func (e *GetSchemaEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Get an extraction schema by ID",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp SchemaInfo
			if err := client.Get(cmd.Context(), "/api/schemas/"+args[0], &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}
