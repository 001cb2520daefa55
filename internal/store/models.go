package store

import (
	"time"

	"gorm.io/datatypes"
)

// artifactRow mirrors artifact.Raw for relational storage.
type artifactRow struct {
	ID         string    `gorm:"primaryKey;column:id"`
	Kind       string    `gorm:"column:kind;not null"`
	Payload    []byte    `gorm:"column:payload;not null"`
	SourceName string    `gorm:"column:source_name"`
	CreatedAt  time.Time `gorm:"column:created_at;not null"`
}

func (artifactRow) TableName() string {
	return "artifacts"
}

type replyRow struct {
	ID               string    `gorm:"primaryKey;column:id"`
	RequestID        string    `gorm:"column:request_id;index:idx_replies_request;not null"`
	ParentReplyID    string    `gorm:"column:parent_reply_id"`
	ArtifactID       string    `gorm:"column:artifact_id;index;not null"`
	SchemaID         string    `gorm:"column:schema_id;not null"`
	Tag              string    `gorm:"column:tag;not null"`
	Attempt          int       `gorm:"column:attempt;not null"`
	Provider         string    `gorm:"column:provider"`
	Model            string    `gorm:"column:model"`
	Content          string    `gorm:"column:content"`
	PromptTokens     int       `gorm:"column:prompt_tokens"`
	CompletionTokens int       `gorm:"column:completion_tokens"`
	LatencyMS        int64     `gorm:"column:latency_ms"`
	CreatedAt        time.Time `gorm:"column:created_at;not null"`
}

func (replyRow) TableName() string {
	return "model_replies"
}

type recordRow struct {
	ID        string         `gorm:"primaryKey;column:id"`
	Session   string         `gorm:"column:session;uniqueIndex:idx_records_session_version;not null"`
	Version   int            `gorm:"column:version;uniqueIndex:idx_records_session_version;not null"`
	Status    string         `gorm:"column:status;not null"`
	Payload   datatypes.JSON `gorm:"column:payload;not null"`
	CreatedAt time.Time      `gorm:"column:created_at;not null"`
}

func (recordRow) TableName() string {
	return "clinical_records"
}
