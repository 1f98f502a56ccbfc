package vectordb

import (
	"context"
	"fmt"

	"SurfSense/internal/modules/indexing/domain/document"
	"SurfSense/internal/modules/indexing/domain/repository"
)

// chunkVectorWriter MilvusStore 的写入子集
type chunkVectorWriter interface {
	Upsert(ctx context.Context, items []UpsertItem) error
	DeleteByDocumentID(ctx context.Context, documentID int64) error
}

// ChunkVectorMirror 把已提交的切片向量镜像到 Milvus，先删后写
type ChunkVectorMirror struct {
	w chunkVectorWriter
}

func NewChunkVectorMirror(w chunkVectorWriter) *ChunkVectorMirror {
	return &ChunkVectorMirror{w: w}
}

func (m *ChunkVectorMirror) SyncDocument(ctx context.Context, doc *document.Document, chunks []document.Chunk) error {
	if doc == nil || doc.ID <= 0 {
		return fmt.Errorf("document is nil")
	}
	if err := m.w.DeleteByDocumentID(ctx, doc.ID); err != nil {
		return err
	}
	items := make([]UpsertItem, 0, len(chunks))
	for _, c := range chunks {
		if len(c.Embedding) == 0 {
			continue
		}
		items = append(items, UpsertItem{
			ID:            VectorID(c.ID),
			Vector:        c.Embedding,
			SearchSpaceID: doc.SearchSpaceID,
			DocumentID:    doc.ID,
			ChunkID:       c.ID,
			Content:       c.Content,
		})
	}
	return m.w.Upsert(ctx, items)
}

func VectorID(chunkID int64) string {
	return fmt.Sprintf("c_%d", chunkID)
}

var _ repository.ChunkIndex = (*ChunkVectorMirror)(nil)
