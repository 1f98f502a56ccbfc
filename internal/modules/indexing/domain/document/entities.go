package document

import (
	"time"
)

// Status 文档索引状态
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusReady      Status = "ready"
	StatusFailed     Status = "failed"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusReady, StatusFailed:
		return true
	default:
		return false
	}
}

// Document 持久化文档，按 unique_identifier_hash 唯一，
// 同一 search space 内 content_hash 唯一
type Document struct {
	ID                   int64          `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	Title                string         `gorm:"column:title;type:varchar(512);not null" json:"title"`
	DocumentType         DocumentType   `gorm:"column:document_type;type:varchar(40);not null;index:idx_documents_type" json:"document_type"`
	Content              string         `gorm:"column:content;type:mediumtext" json:"content"`
	ContentHash          string         `gorm:"column:content_hash;type:char(64);not null;uniqueIndex:uniq_documents_space_content,priority:2" json:"content_hash"`
	UniqueIdentifierHash string         `gorm:"column:unique_identifier_hash;type:char(64);not null;uniqueIndex:uniq_documents_identity" json:"unique_identifier_hash"`
	SourceMarkdown       string         `gorm:"column:source_markdown;type:mediumtext;not null" json:"source_markdown"`
	Metadata             map[string]any `gorm:"column:metadata;type:json;serializer:json" json:"metadata"`
	Embedding            []float32      `gorm:"column:embedding;type:json;serializer:json" json:"-"`
	SearchSpaceID        int64          `gorm:"column:search_space_id;not null;uniqueIndex:uniq_documents_space_content,priority:1" json:"search_space_id"`
	ConnectorID          *int64         `gorm:"column:connector_id;index:idx_documents_connector" json:"connector_id,omitempty"`
	CreatedByID          string         `gorm:"column:created_by_id;type:varchar(64);not null" json:"created_by_id"`
	Status               Status         `gorm:"column:status;type:varchar(20);not null;index:idx_documents_status" json:"status"`
	Error                string         `gorm:"column:error;type:varchar(255)" json:"error,omitempty"`
	CreatedAt            time.Time      `gorm:"column:created_at;type:datetime;not null" json:"created_at"`
	UpdatedAt            time.Time      `gorm:"column:updated_at;type:datetime;not null;index:idx_documents_updated" json:"updated_at"`

	Chunks []Chunk `gorm:"foreignKey:DocumentID;constraint:OnDelete:CASCADE" json:"-"`
}

func (Document) TableName() string { return "documents" }

// Chunk 文档派生切片，随文档整体替换
type Chunk struct {
	ID         int64     `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	DocumentID int64     `gorm:"column:document_id;not null;index:idx_chunks_document" json:"document_id"`
	Position   int       `gorm:"column:position;type:int;not null" json:"position"`
	Content    string    `gorm:"column:content;type:mediumtext;not null" json:"content"`
	Embedding  []float32 `gorm:"column:embedding;type:json;serializer:json" json:"-"`
	CreatedAt  time.Time `gorm:"column:created_at;type:datetime;not null" json:"created_at"`
}

func (Chunk) TableName() string { return "chunks" }

// LoadedDocument 文档及其已加载的切片集合。
// 只有通过它才能替换切片，保证替换前切片已随文档一起读出
type LoadedDocument struct {
	Document *Document
	Chunks   []Chunk
}

// ContentChange 内容变更时需要落库的字段
type ContentChange struct {
	Title          string
	ContentHash    string
	SourceMarkdown string
	Metadata       map[string]any
}

// IndexOutput 处理阶段的最终产物
type IndexOutput struct {
	Content   string
	Embedding []float32
	Chunks    []Chunk
}
