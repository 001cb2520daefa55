// Package record assembles validated extraction fragments into
// versioned clinical records. Assembly never mutates prior versions:
// each run writes a fresh version for its session.
package record

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/whitewolf2000ani/sdx/internal/schema"
	"github.com/whitewolf2000ani/sdx/internal/store"
	"github.com/whitewolf2000ani/sdx/internal/validate"
)

// Record completeness.
const (
	StatusComplete = "complete"
	StatusPartial  = "partial"
)

// Fragment is one validated (or failed) extraction outcome feeding an
// assembly.
type Fragment struct {
	ArtifactID string
	SchemaID   schema.ID
	Status     validate.Status
	Document   json.RawMessage
	ReplyIDs   []string
	Failure    string
}

// Provenance records where one section of an assembled record came
// from, including failed fragments so the audit trail stays whole.
type Provenance struct {
	ArtifactID string   `json:"artifact_id"`
	SchemaID   string   `json:"schema_id"`
	Status     string   `json:"status"`
	ReplyIDs   []string `json:"reply_ids,omitempty"`
	Failure    string   `json:"failure,omitempty"`
}

// ClinicalRecord is one assembled, versioned record for a session.
type ClinicalRecord struct {
	ID             string          `json:"id"`
	Session        string          `json:"session"`
	Version        int             `json:"version"`
	Status         string          `json:"status"`
	GeneratedAt    time.Time       `json:"generated_at"`
	Diagnosis      json.RawMessage `json:"diagnosis,omitempty"`
	Treatment      json.RawMessage `json:"treatment,omitempty"`
	Investigations json.RawMessage `json:"investigations,omitempty"`
	Sources        []Provenance    `json:"sources"`
}

// IncompleteRecordError is returned when no fragment produced a
// conformant document, so there is nothing to assemble.
type IncompleteRecordError struct {
	Session  string
	Failures []string
}

func (e *IncompleteRecordError) Error() string {
	return fmt.Sprintf("no valid fragments for session %s: %s", e.Session, strings.Join(e.Failures, "; "))
}

// Assembler merges fragments into records and persists each version.
type Assembler struct {
	store  store.Store
	logger *slog.Logger
}

// New creates an assembler backed by the given store.
func New(st store.Store, logger *slog.Logger) *Assembler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Assembler{store: st, logger: logger}
}

// Assemble merges fragments into the next record version for a session
// and persists it. At least one fragment must have validated; otherwise
// an IncompleteRecordError is returned and nothing is written. When two
// successful fragments target the same schema kind, the later one wins
// and both remain visible in Sources.
func (a *Assembler) Assemble(ctx context.Context, session string, fragments []Fragment) (*ClinicalRecord, error) {
	if session == "" {
		return nil, fmt.Errorf("session must not be empty")
	}
	if len(fragments) == 0 {
		return nil, &IncompleteRecordError{Session: session, Failures: []string{"no fragments supplied"}}
	}

	rec := &ClinicalRecord{
		ID:          uuid.New().String(),
		Session:     session,
		GeneratedAt: time.Now().UTC(),
	}

	succeeded := 0
	kinds := make(map[schema.Kind]bool)
	var failures []string

	for _, frag := range fragments {
		prov := Provenance{
			ArtifactID: frag.ArtifactID,
			SchemaID:   string(frag.SchemaID),
			Status:     string(frag.Status),
			ReplyIDs:   frag.ReplyIDs,
			Failure:    frag.Failure,
		}
		rec.Sources = append(rec.Sources, prov)

		if frag.Status != validate.StatusValid && frag.Status != validate.StatusRepaired {
			failures = append(failures, fmt.Sprintf("%s: %s", frag.SchemaID, frag.Failure))
			continue
		}

		s, err := schema.Get(frag.SchemaID)
		if err != nil {
			return nil, err
		}

		switch s.Kind {
		case schema.KindDiagnosis:
			rec.Diagnosis = frag.Document
		case schema.KindTreatment:
			rec.Treatment = frag.Document
		case schema.KindInvestigations:
			rec.Investigations = frag.Document
		default:
			return nil, fmt.Errorf("schema %s has no record section", frag.SchemaID)
		}
		kinds[s.Kind] = true
		succeeded++
	}

	if succeeded == 0 {
		return nil, &IncompleteRecordError{Session: session, Failures: failures}
	}

	if len(kinds) == 3 {
		rec.Status = StatusComplete
	} else {
		rec.Status = StatusPartial
	}

	version, err := a.store.NextVersion(ctx, session)
	if err != nil {
		return nil, fmt.Errorf("failed to reserve record version: %w", err)
	}

	// A concurrent assembly for the same session can claim the version
	// between NextVersion and SaveRecord. The unique index keeps prior
	// versions intact, so on a clash take the next slot once more.
	for attempt := 0; ; attempt++ {
		rec.Version = version

		payload, err := json.Marshal(rec)
		if err != nil {
			return nil, fmt.Errorf("failed to serialize record: %w", err)
		}

		err = a.store.SaveRecord(ctx, &store.Record{
			ID:        rec.ID,
			Session:   session,
			Version:   version,
			Status:    rec.Status,
			Payload:   payload,
			CreatedAt: rec.GeneratedAt,
		})
		if err == nil {
			break
		}
		if !errors.Is(err, store.ErrDuplicate) || attempt > 0 {
			return nil, fmt.Errorf("failed to persist record: %w", err)
		}

		version, err = a.store.NextVersion(ctx, session)
		if err != nil {
			return nil, fmt.Errorf("failed to reserve record version: %w", err)
		}
		a.logger.Warn("record version clash, retrying", "session", session, "version", version)
	}

	a.logger.Info("record assembled",
		"session", session,
		"version", version,
		"status", rec.Status,
		"fragments", len(fragments),
		"succeeded", succeeded)

	return rec, nil
}
