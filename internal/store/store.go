// Package store persists the pipeline's append-only artifact and reply
// log plus assembled clinical records. Saved rows are never updated or
// deleted: reprocessing an artifact writes new rows under a new version.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/whitewolf2000ani/sdx/internal/artifact"
)

var (
	ErrNotFound  = errors.New("store: not found")
	ErrDuplicate = errors.New("store: duplicate key")
)

// Reply tags classify why a raw model reply was persisted.
const (
	ReplyTagInitial   = "initial"
	ReplyTagRepair    = "repair"
	ReplyTagCancelled = "cancelled"
)

// Reply is one raw model reply, stored verbatim before any parsing or
// validation touches it.
type Reply struct {
	ID               string
	RequestID        string
	ParentReplyID    string // Set on repair replies; links back to the reply being repaired
	ArtifactID       string
	SchemaID         string
	Tag              string
	Attempt          int
	Provider         string
	Model            string
	Content          string
	PromptTokens     int
	CompletionTokens int
	LatencyMS        int64
	CreatedAt        time.Time
}

// Record is one assembled clinical record version for a session.
type Record struct {
	ID        string
	Session   string
	Version   int
	Status    string // "complete" or "partial"
	Payload   json.RawMessage
	CreatedAt time.Time
}

// Store is the append-only persistence boundary for the pipeline.
type Store interface {
	// SaveArtifact persists a raw artifact. Saving the same ID twice
	// returns ErrDuplicate.
	SaveArtifact(ctx context.Context, raw *artifact.Raw) error
	GetArtifact(ctx context.Context, id string) (*artifact.Raw, error)
	ListArtifacts(ctx context.Context) ([]*artifact.Raw, error)

	// SaveReply persists a raw model reply. Replies are write-once.
	SaveReply(ctx context.Context, reply *Reply) error
	GetReply(ctx context.Context, id string) (*Reply, error)
	// RepliesByRequest returns all replies for a prompt request in
	// creation order, initial reply first.
	RepliesByRequest(ctx context.Context, requestID string) ([]*Reply, error)

	// SaveRecord persists an assembled record version. The (session,
	// version) pair is unique; a clash returns ErrDuplicate.
	SaveRecord(ctx context.Context, rec *Record) error
	GetRecord(ctx context.Context, session string, version int) (*Record, error)
	// LatestRecord returns the highest-version record for a session.
	LatestRecord(ctx context.Context, session string) (*Record, error)
	// NextVersion returns the next unused version number for a session,
	// starting at 1.
	NextVersion(ctx context.Context, session string) (int, error)
	ListSessions(ctx context.Context) ([]string, error)

	Ping(ctx context.Context) error
}
