package endpoints

import (
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/whitewolf2000ani/sdx/internal/api"
	"github.com/whitewolf2000ani/sdx/internal/store"
	"github.com/whitewolf2000ani/sdx/internal/svcctx"
)

// Reply is the API representation of a persisted model reply.
type Reply struct {
	ID               string    `json:"id"`
	RequestID        string    `json:"request_id"`
	ParentReplyID    string    `json:"parent_reply_id,omitempty"`
	ArtifactID       string    `json:"artifact_id"`
	SchemaID         string    `json:"schema_id"`
	Tag              string    `json:"tag"`
	Attempt          int       `json:"attempt"`
	Provider         string    `json:"provider,omitempty"`
	Model            string    `json:"model,omitempty"`
	Content          string    `json:"content"`
	PromptTokens     int       `json:"prompt_tokens,omitempty"`
	CompletionTokens int       `json:"completion_tokens,omitempty"`
	LatencyMS        int64     `json:"latency_ms,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

// GetReplyEndpoint handles GET /api/replies/{id}.
type GetReplyEndpoint struct{}

func (e *GetReplyEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/replies/{id}", e.handler
}

func (e *GetReplyEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Get a raw model reply by ID
//	@Description	Returns the reply verbatim as received from the provider
//	@Tags			replies
//	@Produce		json
//	@Param			id	path		string	true	"Reply ID"
//	@Success		200	{object}	Reply
//	@Failure		404	{object}	ErrorResponse
//	@Router			/api/replies/{id} [get]
func (e *GetReplyEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "reply id is required")
		return
	}

	st := svcctx.StoreFrom(r.Context())
	if st == nil {
		writeError(w, http.StatusServiceUnavailable, "store not initialized")
		return
	}

	reply, err := st.GetReply(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "reply not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, toAPIReply(reply))
}

func (e *GetReplyEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Get a raw model reply by ID",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp Reply
			if err := client.Get(cmd.Context(), "/api/replies/"+args[0], &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// ListRepliesEndpoint handles GET /api/replies?request=<id>.
type ListRepliesEndpoint struct{}

func (e *ListRepliesEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/replies", e.handler
}

func (e *ListRepliesEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		List replies for a prompt request
//	@Description	Returns the full reply chain for one request fingerprint, initial reply first
//	@Tags			replies
//	@Produce		json
//	@Param			request	query		string	true	"Request fingerprint"
//	@Success		200	{array}		Reply
//	@Failure		400	{object}	ErrorResponse
//	@Router			/api/replies [get]
func (e *ListRepliesEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	requestID := r.URL.Query().Get("request")
	if requestID == "" {
		writeError(w, http.StatusBadRequest, "request query parameter is required")
		return
	}

	st := svcctx.StoreFrom(r.Context())
	if st == nil {
		writeError(w, http.StatusServiceUnavailable, "store not initialized")
		return
	}

	replies, err := st.RepliesByRequest(r.Context(), requestID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	out := make([]Reply, 0, len(replies))
	for _, reply := range replies {
		out = append(out, toAPIReply(reply))
	}
	writeJSON(w, http.StatusOK, out)
}

func (e *ListRepliesEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "list <request-fingerprint>",
		Short: "List the reply chain for a prompt request",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp []Reply
			if err := client.Get(cmd.Context(), "/api/replies?request="+args[0], &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

func toAPIReply(reply *store.Reply) Reply {
	return Reply{
		ID:               reply.ID,
		RequestID:        reply.RequestID,
		ParentReplyID:    reply.ParentReplyID,
		ArtifactID:       reply.ArtifactID,
		SchemaID:         reply.SchemaID,
		Tag:              reply.Tag,
		Attempt:          reply.Attempt,
		Provider:         reply.Provider,
		Model:            reply.Model,
		Content:          reply.Content,
		PromptTokens:     reply.PromptTokens,
		CompletionTokens: reply.CompletionTokens,
		LatencyMS:        reply.LatencyMS,
		CreatedAt:        reply.CreatedAt,
	}
}
