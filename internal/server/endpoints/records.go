package endpoints

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/whitewolf2000ani/sdx/internal/api"
	"github.com/whitewolf2000ani/sdx/internal/store"
	"github.com/whitewolf2000ani/sdx/internal/svcctx"
)

// RecordResponse is the API representation of an assembled record.
type RecordResponse struct {
	ID        string          `json:"id"`
	Session   string          `json:"session"`
	Version   int             `json:"version"`
	Status    string          `json:"status"`
	CreatedAt time.Time       `json:"created_at"`
	Payload   json.RawMessage `json:"payload"`
}

// SessionsResponse lists sessions that have at least one record.
type SessionsResponse struct {
	Sessions []string `json:"sessions"`
}

// ListRecordSessionsEndpoint handles GET /api/records.
type ListRecordSessionsEndpoint struct{}

func (e *ListRecordSessionsEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/records", e.handler
}

func (e *ListRecordSessionsEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		List sessions with assembled records
//	@Tags			records
//	@Produce		json
//	@Success		200	{object}	SessionsResponse
//	@Failure		500	{object}	ErrorResponse
//	@Router			/api/records [get]
func (e *ListRecordSessionsEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	st := svcctx.StoreFrom(r.Context())
	if st == nil {
		writeError(w, http.StatusServiceUnavailable, "store not initialized")
		return
	}

	sessions, err := st.ListSessions(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, SessionsResponse{Sessions: sessions})
}

func (e *ListRecordSessionsEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List sessions with assembled records",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp SessionsResponse
			if err := client.Get(cmd.Context(), "/api/records", &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// GetRecordEndpoint handles GET /api/records/{session}.
type GetRecordEndpoint struct{}

func (e *GetRecordEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/records/{session}", e.handler
}

func (e *GetRecordEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Get a session's record
//	@Description	Returns the latest record version, or a specific one via the version query parameter
//	@Tags			records
//	@Produce		json
//	@Param			session	path		string	true	"Session identifier"
//	@Param			version	query		int		false	"Record version (default: latest)"
//	@Success		200	{object}	RecordResponse
//	@Failure		400	{object}	ErrorResponse
//	@Failure		404	{object}	ErrorResponse
//	@Router			/api/records/{session} [get]
func (e *GetRecordEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	session := r.PathValue("session")
	if session == "" {
		writeError(w, http.StatusBadRequest, "session is required")
		return
	}

	st := svcctx.StoreFrom(r.Context())
	if st == nil {
		writeError(w, http.StatusServiceUnavailable, "store not initialized")
		return
	}

	var (
		rec *store.Record
		err error
	)
	if versionStr := r.URL.Query().Get("version"); versionStr != "" {
		version, convErr := strconv.Atoi(versionStr)
		if convErr != nil || version < 1 {
			writeError(w, http.StatusBadRequest, "version must be a positive integer")
			return
		}
		rec, err = st.GetRecord(r.Context(), session, version)
	} else {
		rec, err = st.LatestRecord(r.Context(), session)
	}
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "record not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, RecordResponse{
		ID:        rec.ID,
		Session:   rec.Session,
		Version:   rec.Version,
		Status:    rec.Status,
		CreatedAt: rec.CreatedAt,
		Payload:   rec.Payload,
	})
}

func (e *GetRecordEndpoint) Command(getServerURL func() string) *cobra.Command {
	var version int
	cmd := &cobra.Command{
		Use:   "get <session>",
		Short: "Get a session's latest record (or a specific version)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/api/records/" + args[0]
			if version > 0 {
				path += fmt.Sprintf("?version=%d", version)
			}
			client := api.NewClient(getServerURL())
			var resp RecordResponse
			if err := client.Get(cmd.Context(), path, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	cmd.Flags().IntVar(&version, "version", 0, "Record version (default: latest)")
	return cmd
}
