package api

import (
	"net/http"

	"github.com/spf13/cobra"
)

// Endpoint is a single API operation exposed two ways: as an HTTP route
// on the server and as a CLI command that calls that route. Defining
// both in one place keeps the command surface and the HTTP surface from
// drifting apart.
type Endpoint interface {
	// Route returns the HTTP method, path, and handler for this endpoint.
	Route() (method, path string, handler http.HandlerFunc)

	// RequiresInit reports whether the endpoint needs the store and
	// pipeline wired before it can serve. Health and readiness probes
	// return false so they work during startup.
	RequiresInit() bool

	// Command returns a Cobra command that calls this endpoint over HTTP.
	// getServerURL is evaluated at run time, after flag parsing.
	Command(getServerURL func() string) *cobra.Command
}
