package endpoints

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/whitewolf2000ani/sdx/internal/api"
	"github.com/whitewolf2000ani/sdx/internal/artifact"
	"github.com/whitewolf2000ani/sdx/internal/pipeline"
	"github.com/whitewolf2000ani/sdx/internal/record"
	"github.com/whitewolf2000ani/sdx/internal/schema"
	"github.com/whitewolf2000ani/sdx/internal/svcctx"
)

// RunPipelineRequest is the request body for a pipeline run.
type RunPipelineRequest struct {
	Session     string            `json:"session"`
	ArtifactIDs []string          `json:"artifact_ids"`
	Schemas     []string          `json:"schemas,omitempty"`
	Locale      string            `json:"locale,omitempty"`
	Options     map[string]string `json:"options,omitempty"`
	Deidentify  string            `json:"deidentify,omitempty"`
}

// FragmentSummary reports the outcome of one (artifact, schema) pair.
type FragmentSummary struct {
	ArtifactID string   `json:"artifact_id"`
	SchemaID   string   `json:"schema_id"`
	Status     string   `json:"status"`
	ReplyIDs   []string `json:"reply_ids,omitempty"`
	Failure    string   `json:"failure,omitempty"`
}

// RunPipelineResponse is the response for a pipeline run.
type RunPipelineResponse struct {
	Record    *record.ClinicalRecord `json:"record"`
	Fragments []FragmentSummary      `json:"fragments"`
}

// RunPipelineEndpoint handles POST /api/pipeline/run.
type RunPipelineEndpoint struct{}

func (e *RunPipelineEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/pipeline/run", e.handler
}

func (e *RunPipelineEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Run the extraction pipeline
//	@Description	Normalizes the given artifacts, extracts structured fragments through the model, and assembles a new record version for the session
//	@Tags			pipeline
//	@Accept			json
//	@Produce		json
//	@Param			request	body		RunPipelineRequest	true	"Run parameters"
//	@Success		200	{object}	RunPipelineResponse
//	@Failure		400	{object}	ErrorResponse
//	@Failure		422	{object}	ErrorResponse
//	@Failure		500	{object}	ErrorResponse
//	@Router			/api/pipeline/run [post]
func (e *RunPipelineEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	var req RunPipelineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Session == "" {
		writeError(w, http.StatusBadRequest, "session is required")
		return
	}
	if len(req.ArtifactIDs) == 0 {
		writeError(w, http.StatusBadRequest, "artifact_ids is required")
		return
	}

	var schemas []schema.ID
	for _, s := range req.Schemas {
		id, err := schema.Parse(s)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		schemas = append(schemas, id)
	}

	runner := svcctx.RunnerFrom(r.Context())
	if runner == nil {
		writeError(w, http.StatusServiceUnavailable, "pipeline not initialized")
		return
	}

	result, err := runner.Run(r.Context(), pipeline.RunRequest{
		Session:     req.Session,
		ArtifactIDs: req.ArtifactIDs,
		Schemas:     schemas,
		Locale:      req.Locale,
		Options:     req.Options,
		Deidentify:  req.Deidentify,
	})
	if err != nil {
		var incomplete *record.IncompleteRecordError
		var extraction *artifact.ExtractionError
		switch {
		case errors.As(err, &incomplete), errors.As(err, &extraction):
			writeError(w, http.StatusUnprocessableEntity, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	resp := RunPipelineResponse{Record: result.Record}
	for _, frag := range result.Fragments {
		resp.Fragments = append(resp.Fragments, FragmentSummary{
			ArtifactID: frag.ArtifactID,
			SchemaID:   string(frag.SchemaID),
			Status:     string(frag.Status),
			ReplyIDs:   frag.ReplyIDs,
			Failure:    frag.Failure,
		})
	}

	writeJSON(w, http.StatusOK, resp)
}

func (e *RunPipelineEndpoint) Command(getServerURL func() string) *cobra.Command {
	var (
		session    string
		schemas    []string
		locale     string
		deidentify string
	)
	cmd := &cobra.Command{
		Use:   "run <artifact-id> [artifact-id...]",
		Short: "Run the extraction pipeline over uploaded artifacts",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			req := RunPipelineRequest{
				Session:     session,
				ArtifactIDs: args,
				Schemas:     schemas,
				Locale:      locale,
				Deidentify:  deidentify,
			}
			var resp RunPipelineResponse
			if err := client.Post(cmd.Context(), "/api/pipeline/run", req, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	cmd.Flags().StringVar(&session, "session", "", "Consultation session identifier (required)")
	cmd.Flags().StringSliceVar(&schemas, "schema", nil, "Schema IDs to extract (default: all)")
	cmd.Flags().StringVar(&locale, "locale", "", "Locale for prompt instructions (default: en)")
	cmd.Flags().StringVar(&deidentify, "deidentify", "", "PII strategy before model calls: mask or hash")
	_ = cmd.MarkFlagRequired("session")
	return cmd
}
