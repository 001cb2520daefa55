package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/whitewolf2000ani/sdx/internal/artifact"
)

// DB is the gorm-backed Store implementation.
type DB struct {
	db *gorm.DB
}

// NewDB wraps an open gorm connection.
func NewDB(db *gorm.DB) *DB {
	return &DB{db: db}
}

// AutoMigrate creates or updates the schema for all tables.
func (s *DB) AutoMigrate() error {
	return s.db.AutoMigrate(&artifactRow{}, &replyRow{}, &recordRow{})
}

func (s *DB) SaveArtifact(ctx context.Context, raw *artifact.Raw) error {
	row := &artifactRow{
		ID:         raw.ID,
		Kind:       string(raw.Kind),
		Payload:    raw.Payload,
		SourceName: raw.SourceName,
		CreatedAt:  raw.CreatedAt.UTC(),
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	return translateErr(s.db.WithContext(ctx).Create(row).Error)
}

func (s *DB) GetArtifact(ctx context.Context, id string) (*artifact.Raw, error) {
	var row artifactRow
	result := s.db.WithContext(ctx).First(&row, "id = ?", id)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if result.Error != nil {
		return nil, result.Error
	}
	return artifactFromRow(&row), nil
}

func (s *DB) ListArtifacts(ctx context.Context) ([]*artifact.Raw, error) {
	var rows []artifactRow
	if err := s.db.WithContext(ctx).Order("created_at").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*artifact.Raw, len(rows))
	for i := range rows {
		out[i] = artifactFromRow(&rows[i])
	}
	return out, nil
}

func (s *DB) SaveReply(ctx context.Context, reply *Reply) error {
	if reply.ID == "" {
		reply.ID = uuid.New().String()
	}
	if reply.CreatedAt.IsZero() {
		reply.CreatedAt = time.Now().UTC()
	}
	row := &replyRow{
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
		CreatedAt:        reply.CreatedAt.UTC(),
	}
	return translateErr(s.db.WithContext(ctx).Create(row).Error)
}

func (s *DB) GetReply(ctx context.Context, id string) (*Reply, error) {
	var row replyRow
	result := s.db.WithContext(ctx).First(&row, "id = ?", id)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if result.Error != nil {
		return nil, result.Error
	}
	return replyFromRow(&row), nil
}

func (s *DB) RepliesByRequest(ctx context.Context, requestID string) ([]*Reply, error) {
	var rows []replyRow
	err := s.db.WithContext(ctx).
		Where("request_id = ?", requestID).
		Order("created_at, attempt").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]*Reply, len(rows))
	for i := range rows {
		out[i] = replyFromRow(&rows[i])
	}
	return out, nil
}

func (s *DB) SaveRecord(ctx context.Context, rec *Record) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	row := &recordRow{
		ID:        rec.ID,
		Session:   rec.Session,
		Version:   rec.Version,
		Status:    rec.Status,
		Payload:   datatypes.JSON(rec.Payload),
		CreatedAt: rec.CreatedAt.UTC(),
	}
	return translateErr(s.db.WithContext(ctx).Create(row).Error)
}

func (s *DB) GetRecord(ctx context.Context, session string, version int) (*Record, error) {
	var row recordRow
	result := s.db.WithContext(ctx).First(&row, "session = ? AND version = ?", session, version)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if result.Error != nil {
		return nil, result.Error
	}
	return recordFromRow(&row), nil
}

func (s *DB) LatestRecord(ctx context.Context, session string) (*Record, error) {
	var row recordRow
	result := s.db.WithContext(ctx).
		Where("session = ?", session).
		Order("version DESC").
		First(&row)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if result.Error != nil {
		return nil, result.Error
	}
	return recordFromRow(&row), nil
}

func (s *DB) NextVersion(ctx context.Context, session string) (int, error) {
	var max int
	err := s.db.WithContext(ctx).
		Model(&recordRow{}).
		Where("session = ?", session).
		Select("COALESCE(MAX(version), 0)").
		Scan(&max).Error
	if err != nil {
		return 0, err
	}
	return max + 1, nil
}

func (s *DB) ListSessions(ctx context.Context) ([]string, error) {
	var sessions []string
	err := s.db.WithContext(ctx).
		Model(&recordRow{}).
		Distinct("session").
		Order("session").
		Pluck("session", &sessions).Error
	return sessions, err
}

func (s *DB) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to access sql.DB: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

func artifactFromRow(row *artifactRow) *artifact.Raw {
	return &artifact.Raw{
		ID:         row.ID,
		Kind:       artifact.Kind(row.Kind),
		Payload:    row.Payload,
		SourceName: row.SourceName,
		CreatedAt:  row.CreatedAt,
	}
}

func replyFromRow(row *replyRow) *Reply {
	return &Reply{
		ID:               row.ID,
		RequestID:        row.RequestID,
		ParentReplyID:    row.ParentReplyID,
		ArtifactID:       row.ArtifactID,
		SchemaID:         row.SchemaID,
		Tag:              row.Tag,
		Attempt:          row.Attempt,
		Provider:         row.Provider,
		Model:            row.Model,
		Content:          row.Content,
		PromptTokens:     row.PromptTokens,
		CompletionTokens: row.CompletionTokens,
		LatencyMS:        row.LatencyMS,
		CreatedAt:        row.CreatedAt,
	}
}

func recordFromRow(row *recordRow) *Record {
	return &Record{
		ID:        row.ID,
		Session:   row.Session,
		Version:   row.Version,
		Status:    row.Status,
		Payload:   []byte(row.Payload),
		CreatedAt: row.CreatedAt,
	}
}

// translateErr maps driver duplicate-key failures onto ErrDuplicate so
// callers can treat append-only violations uniformly.
func translateErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicate
	}
	msg := err.Error()
	if strings.Contains(msg, "duplicate key") || strings.Contains(msg, "UNIQUE constraint") {
		return ErrDuplicate
	}
	return err
}

var _ Store = (*DB)(nil)
