package repository

import (
	"context"
	"errors"
	"time"

	"SurfSense/internal/modules/indexing/domain/document"
)

var (
	ErrNotFound = errors.New("document not found")
	// ErrConflict 唯一约束冲突（并发批次先提交了同一身份或同一内容）
	ErrConflict = errors.New("document unique constraint conflict")
)

// DocumentRepository 文档与切片的持久化。
// 查询不到时返回 (nil, nil)，与写操作目标不存在时返回 ErrNotFound
type DocumentRepository interface {
	// Transaction 在同一事务内执行 fn，fn 返回错误则整体回滚
	Transaction(ctx context.Context, fn func(repo DocumentRepository) error) error

	// FindByIdentityHash 按身份哈希查找，切片随文档一起加载
	FindByIdentityHash(ctx context.Context, hash string) (*document.LoadedDocument, error)
	FindByContentHash(ctx context.Context, searchSpaceID int64, hash string) (*document.Document, error)

	Create(ctx context.Context, doc *document.Document) error
	UpdateTitle(ctx context.Context, id int64, title string, at time.Time) error
	RequeueForContentChange(ctx context.Context, id int64, change document.ContentChange, at time.Time) error
	Requeue(ctx context.Context, id int64, at time.Time) error
	UpdateStatus(ctx context.Context, id int64, status document.Status, reason string, at time.Time) error

	// ReplaceChunks 删除旧切片、写入新切片并将文档置为 ready
	ReplaceChunks(ctx context.Context, loaded *document.LoadedDocument, out *document.IndexOutput, at time.Time) error
	Reload(ctx context.Context, id int64) (*document.LoadedDocument, error)

	GetByID(ctx context.Context, id int64) (*document.Document, error)
	CountChunks(ctx context.Context, documentID int64) (int64, error)
	ListByIDs(ctx context.Context, ids []int64) ([]document.Document, error)
	ListChunksByIDs(ctx context.Context, ids []int64) ([]document.Chunk, error)
	ListStuckProcessing(ctx context.Context, before time.Time, limit int) ([]document.Document, error)
}

// ChunkIndex 切片向量的外部索引（如 Milvus），提交成功后同步
type ChunkIndex interface {
	SyncDocument(ctx context.Context, doc *document.Document, chunks []document.Chunk) error
}
