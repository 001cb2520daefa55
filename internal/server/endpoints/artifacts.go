package endpoints

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/whitewolf2000ani/sdx/internal/api"
	"github.com/whitewolf2000ani/sdx/internal/artifact"
	"github.com/whitewolf2000ani/sdx/internal/store"
	"github.com/whitewolf2000ani/sdx/internal/svcctx"
)

// maxUploadBytes caps artifact uploads at 50 MiB.
const maxUploadBytes = 50 << 20

// Artifact is the API representation of a stored artifact. Payload
// bytes stay server-side; only metadata crosses the wire.
type Artifact struct {
	ID         string    `json:"id"`
	Kind       string    `json:"kind"`
	SourceName string    `json:"source_name,omitempty"`
	SizeBytes  int       `json:"size_bytes"`
	CreatedAt  time.Time `json:"created_at"`
}

// UploadArtifactEndpoint handles POST /api/artifacts/upload.
type UploadArtifactEndpoint struct{}

func (e *UploadArtifactEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/artifacts/upload", e.handler
}

func (e *UploadArtifactEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Upload a source artifact
//	@Description	Accepts a text, image, or PDF file and stores it immutably
//	@Tags			artifacts
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			file	formData	file	true	"Artifact file"
//	@Success		201	{object}	Artifact
//	@Failure		400	{object}	ErrorResponse
//	@Failure		415	{object}	ErrorResponse
//	@Failure		500	{object}	ErrorResponse
//	@Router			/api/artifacts/upload [post]
func (e *UploadArtifactEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form: "+err.Error())
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file field is required")
		return
	}
	defer file.Close()

	payload, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read upload: "+err.Error())
		return
	}
	if len(payload) == 0 {
		writeError(w, http.StatusBadRequest, "uploaded file is empty")
		return
	}

	kind, err := artifact.DetectKind(header.Filename, payload)
	if err != nil {
		var unsupported *artifact.UnsupportedMediaError
		if errors.As(err, &unsupported) {
			writeError(w, http.StatusUnsupportedMediaType, err.Error())
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	raw := artifact.New(kind, payload, header.Filename)

	st := svcctx.StoreFrom(r.Context())
	if st == nil {
		writeError(w, http.StatusServiceUnavailable, "store not initialized")
		return
	}
	if err := st.SaveArtifact(r.Context(), &raw); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	// Keep a write-once copy under ~/.sdx/artifacts for offline inspection.
	if home := svcctx.HomeFrom(r.Context()); home != nil {
		if err := home.WriteArtifact(raw.ID, payload); err != nil {
			svcctx.LoggerFrom(r.Context()).Warn("failed to mirror artifact to disk",
				"artifact", raw.ID, "error", err)
		}
	}

	writeJSON(w, http.StatusCreated, toAPIArtifact(&raw))
}

func (e *UploadArtifactEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "upload <file>",
		Short: "Upload a source artifact (text, image, or PDF)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("failed to open file: %w", err)
			}
			defer f.Close()

			client := api.NewClient(getServerURL())
			var resp Artifact
			if err := client.PostFile(cmd.Context(), "/api/artifacts/upload", "file", filepath.Base(args[0]), f, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// ListArtifactsEndpoint handles GET /api/artifacts.
type ListArtifactsEndpoint struct{}

func (e *ListArtifactsEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/artifacts", e.handler
}

func (e *ListArtifactsEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		List stored artifacts
//	@Tags			artifacts
//	@Produce		json
//	@Success		200	{array}		Artifact
//	@Failure		500	{object}	ErrorResponse
//	@Router			/api/artifacts [get]
func (e *ListArtifactsEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	st := svcctx.StoreFrom(r.Context())
	if st == nil {
		writeError(w, http.StatusServiceUnavailable, "store not initialized")
		return
	}

	artifacts, err := st.ListArtifacts(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	out := make([]Artifact, 0, len(artifacts))
	for _, raw := range artifacts {
		out = append(out, toAPIArtifact(raw))
	}
	writeJSON(w, http.StatusOK, out)
}

func (e *ListArtifactsEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored artifacts",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp []Artifact
			if err := client.Get(cmd.Context(), "/api/artifacts", &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// GetArtifactEndpoint handles GET /api/artifacts/{id}.
type GetArtifactEndpoint struct{}

func (e *GetArtifactEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/artifacts/{id}", e.handler
}

func (e *GetArtifactEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Get artifact metadata by ID
//	@Tags			artifacts
//	@Produce		json
//	@Param			id	path		string	true	"Artifact ID"
//	@Success		200	{object}	Artifact
//	@Failure		404	{object}	ErrorResponse
//	@Router			/api/artifacts/{id} [get]
func (e *GetArtifactEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "artifact id is required")
		return
	}

	st := svcctx.StoreFrom(r.Context())
	if st == nil {
		writeError(w, http.StatusServiceUnavailable, "store not initialized")
		return
	}

	raw, err := st.GetArtifact(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "artifact not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, toAPIArtifact(raw))
}

func (e *GetArtifactEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Get artifact metadata by ID",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp Artifact
			if err := client.Get(cmd.Context(), "/api/artifacts/"+args[0], &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

func toAPIArtifact(raw *artifact.Raw) Artifact {
	return Artifact{
		ID:         raw.ID,
		Kind:       string(raw.Kind),
		SourceName: raw.SourceName,
		SizeBytes:  len(raw.Payload),
		CreatedAt:  raw.CreatedAt,
	}
}
