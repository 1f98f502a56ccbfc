package persistence

import (
	"context"
	"errors"
	"time"

	"SurfSense/internal/modules/indexing/domain/document"
	"SurfSense/internal/modules/indexing/domain/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type documentRepositoryImpl struct {
	db *gorm.DB
}

func NewDocumentRepository(db *gorm.DB) repository.DocumentRepository {
	return &documentRepositoryImpl{db: db}
}

func (r *documentRepositoryImpl) Transaction(ctx context.Context, fn func(repo repository.DocumentRepository) error) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&documentRepositoryImpl{db: tx})
	})
	return translate(err)
}

func (r *documentRepositoryImpl) FindByIdentityHash(ctx context.Context, hash string) (*document.LoadedDocument, error) {
	var d document.Document
	err := r.db.WithContext(ctx).
		Preload("Chunks", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Where("unique_identifier_hash = ?", hash).
		Take(&d).Error
	if err == nil {
		return loaded(&d), nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return nil, translate(err)
}

func (r *documentRepositoryImpl) FindByContentHash(ctx context.Context, searchSpaceID int64, hash string) (*document.Document, error) {
	var d document.Document
	err := r.db.WithContext(ctx).
		Where("search_space_id = ? AND content_hash = ?", searchSpaceID, hash).
		Take(&d).Error
	if err == nil {
		return &d, nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return nil, translate(err)
}

func (r *documentRepositoryImpl) Create(ctx context.Context, doc *document.Document) error {
	return translate(r.db.WithContext(ctx).Omit(clause.Associations).Create(doc).Error)
}

func (r *documentRepositoryImpl) UpdateTitle(ctx context.Context, id int64, title string, at time.Time) error {
	return r.update(ctx, id, map[string]any{
		"title":      title,
		"updated_at": at,
	})
}

func (r *documentRepositoryImpl) RequeueForContentChange(ctx context.Context, id int64, change document.ContentChange, at time.Time) error {
	md := change.Metadata
	if md == nil {
		md = map[string]any{}
	}
	// map 更新不会经过 serializer，这里用 Select + 结构体更新
	res := r.db.WithContext(ctx).
		Model(&document.Document{ID: id}).
		Select("title", "content_hash", "source_markdown", "metadata", "status", "error", "updated_at").
		Updates(&document.Document{
			Title:          change.Title,
			ContentHash:    change.ContentHash,
			SourceMarkdown: change.SourceMarkdown,
			Metadata:       md,
			Status:         document.StatusPending,
			Error:          "",
			UpdatedAt:      at,
		})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *documentRepositoryImpl) Requeue(ctx context.Context, id int64, at time.Time) error {
	return r.UpdateStatus(ctx, id, document.StatusPending, "", at)
}

func (r *documentRepositoryImpl) UpdateStatus(ctx context.Context, id int64, status document.Status, reason string, at time.Time) error {
	return r.update(ctx, id, map[string]any{
		"status":     status,
		"error":      reason,
		"updated_at": at,
	})
}

func (r *documentRepositoryImpl) ReplaceChunks(ctx context.Context, ld *document.LoadedDocument, out *document.IndexOutput, at time.Time) error {
	if ld == nil || ld.Document == nil || out == nil {
		return errors.New("nil document or index output")
	}
	id := ld.Document.ID
	return r.Transaction(ctx, func(repo repository.DocumentRepository) error {
		tx := repo.(*documentRepositoryImpl).db.WithContext(ctx)

		// 1) 整体删除旧切片
		if err := tx.Where("document_id = ?", id).Delete(&document.Chunk{}).Error; err != nil {
			return err
		}

		// 2) 按顺序写入新切片
		for i := range out.Chunks {
			out.Chunks[i].ID = 0
			out.Chunks[i].DocumentID = id
			out.Chunks[i].Position = i
			out.Chunks[i].CreatedAt = at
		}
		if len(out.Chunks) > 0 {
			if err := tx.Create(&out.Chunks).Error; err != nil {
				return err
			}
		}

		// 3) 更新文档内容与状态
		res := tx.Model(&document.Document{ID: id}).
			Select("content", "embedding", "status", "error", "updated_at").
			Updates(&document.Document{
				Content:   out.Content,
				Embedding: out.Embedding,
				Status:    document.StatusReady,
				Error:     "",
				UpdatedAt: at,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return repository.ErrNotFound
		}
		return nil
	})
}

func (r *documentRepositoryImpl) Reload(ctx context.Context, id int64) (*document.LoadedDocument, error) {
	var d document.Document
	err := r.db.WithContext(ctx).
		Preload("Chunks", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Where("id = ?", id).
		Take(&d).Error
	if err == nil {
		return loaded(&d), nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, repository.ErrNotFound
	}
	return nil, translate(err)
}

func (r *documentRepositoryImpl) GetByID(ctx context.Context, id int64) (*document.Document, error) {
	var d document.Document
	err := r.db.WithContext(ctx).Where("id = ?", id).Take(&d).Error
	if err == nil {
		return &d, nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return nil, translate(err)
}

func (r *documentRepositoryImpl) CountChunks(ctx context.Context, documentID int64) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&document.Chunk{}).Where("document_id = ?", documentID).Count(&n).Error
	return n, translate(err)
}

func (r *documentRepositoryImpl) ListByIDs(ctx context.Context, ids []int64) ([]document.Document, error) {
	if len(ids) == 0 {
		return []document.Document{}, nil
	}
	var out []document.Document
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&out).Error; err != nil {
		return nil, translate(err)
	}
	return out, nil
}

func (r *documentRepositoryImpl) ListChunksByIDs(ctx context.Context, ids []int64) ([]document.Chunk, error) {
	if len(ids) == 0 {
		return []document.Chunk{}, nil
	}
	var out []document.Chunk
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&out).Error; err != nil {
		return nil, translate(err)
	}
	return out, nil
}

// ListStuckProcessing 列出 updated_at 早于 before 仍处于 processing 的文档，供运维排查
func (r *documentRepositoryImpl) ListStuckProcessing(ctx context.Context, before time.Time, limit int) ([]document.Document, error) {
	if limit <= 0 {
		limit = 100
	}
	var out []document.Document
	err := r.db.WithContext(ctx).
		Where("status = ? AND updated_at < ?", document.StatusProcessing, before).
		Order("updated_at ASC").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, translate(err)
	}
	return out, nil
}

func (r *documentRepositoryImpl) update(ctx context.Context, id int64, values map[string]any) error {
	res := r.db.WithContext(ctx).Model(&document.Document{}).Where("id = ?", id).Updates(values)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func loaded(d *document.Document) *document.LoadedDocument {
	chunks := d.Chunks
	if chunks == nil {
		chunks = []document.Chunk{}
	}
	d.Chunks = nil
	return &document.LoadedDocument{Document: d, Chunks: chunks}
}

// translate 将驱动层唯一约束错误统一为 repository.ErrConflict
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return errors.Join(repository.ErrConflict, err)
	}
	return err
}
