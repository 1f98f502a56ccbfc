package pipeline

import (
	"context"
	"errors"

	"SurfSense/internal/modules/indexing/domain/document"
	"SurfSense/internal/modules/indexing/domain/repository"

	"go.uber.org/zap"
)

// PrepareForIndexing 对一个批次做去重与变更检测，返回需要完整处理的文档。
// 整个批次在一个事务内提交；唯一约束冲突时整体回滚并返回空结果
func (p *IndexingPipelineService) PrepareForIndexing(ctx context.Context, docs []*document.ConnectorDocument) ([]PreparedDocument, error) {
	if len(docs) == 0 {
		return []PreparedDocument{}, nil
	}

	var out []PreparedDocument
	err := p.repo.Transaction(ctx, func(tx repository.DocumentRepository) error {
		out = make([]PreparedDocument, 0, len(docs))
		seen := make(map[string]struct{}, len(docs))
		for _, src := range docs {
			if src == nil {
				continue
			}
			pd, err := p.prepareOne(ctx, tx, src, seen)
			if err != nil {
				return err
			}
			if pd != nil {
				out = append(out, *pd)
			}
		}
		return nil
	})
	if err != nil {
		lc := newLogContext(firstSource(docs))
		if errors.Is(err, repository.ErrConflict) {
			logWarn(logRaceCondition, lc, zap.Int("batch_size", len(docs)), zap.Error(err))
			return []PreparedDocument{}, nil
		}
		logError(logBatchAborted, lc, zap.Int("batch_size", len(docs)), zap.Error(err))
		return nil, err
	}
	return out, nil
}

func (p *IndexingPipelineService) prepareOne(ctx context.Context, tx repository.DocumentRepository, src *document.ConnectorDocument, seen map[string]struct{}) (*PreparedDocument, error) {
	idHash := document.UniqueIdentifierHash(src)
	contentHash := document.ContentHash(src)
	lc := newLogContext(src)

	// 同批次内重复身份只处理第一次出现
	if _, ok := seen[idHash]; ok {
		return nil, nil
	}
	seen[idHash] = struct{}{}

	existing, err := tx.FindByIdentityHash(ctx, idHash)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return p.prepareExisting(ctx, tx, src, existing, contentHash, lc.withDoc(existing.Document.ID))
	}

	dup, err := tx.FindByContentHash(ctx, src.SearchSpaceID, contentHash)
	if err != nil {
		return nil, err
	}
	if dup != nil {
		logInfo(logDuplicateSkipped, lc, zap.Int64("duplicate_of", dup.ID))
		return nil, nil
	}

	now := p.now()
	doc := &document.Document{
		Title:                src.Title,
		DocumentType:         src.DocumentType,
		ContentHash:          contentHash,
		UniqueIdentifierHash: idHash,
		SourceMarkdown:       src.SourceMarkdown,
		Metadata:             src.Metadata,
		SearchSpaceID:        src.SearchSpaceID,
		ConnectorID:          src.ConnectorID,
		CreatedByID:          src.CreatedByID,
		Status:               document.StatusPending,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	if err := tx.Create(ctx, doc); err != nil {
		return nil, err
	}
	logInfo(logDocumentQueued, lc.withDoc(doc.ID))
	return &PreparedDocument{
		Record: &document.LoadedDocument{Document: doc, Chunks: []document.Chunk{}},
		Source: src,
	}, nil
}

func (p *IndexingPipelineService) prepareExisting(ctx context.Context, tx repository.DocumentRepository, src *document.ConnectorDocument, existing *document.LoadedDocument, contentHash string, lc logContext) (*PreparedDocument, error) {
	doc := existing.Document

	if doc.ContentHash == contentHash {
		// 1) 内容未变，仅同步标题
		if doc.Title != src.Title {
			now := p.now()
			if err := tx.UpdateTitle(ctx, doc.ID, src.Title, now); err != nil {
				return nil, err
			}
			doc.Title = src.Title
			doc.UpdatedAt = now
			logInfo(logTitleUpdated, lc)
		}
		// 2) 上次处理失败的文档重新排队
		if doc.Status == document.StatusFailed {
			now := p.now()
			if err := tx.Requeue(ctx, doc.ID, now); err != nil {
				return nil, err
			}
			doc.Status = document.StatusPending
			doc.Error = ""
			doc.UpdatedAt = now
			logInfo(logDocumentRequeued, lc)
			return &PreparedDocument{Record: existing, Source: src}, nil
		}
		return nil, nil
	}

	// 内容变化后与同空间其它文档重复
	dup, err := tx.FindByContentHash(ctx, src.SearchSpaceID, contentHash)
	if err != nil {
		return nil, err
	}
	if dup != nil && dup.ID != doc.ID {
		logInfo(logDuplicateSkipped, lc, zap.Int64("duplicate_of", dup.ID))
		return nil, nil
	}

	now := p.now()
	change := document.ContentChange{
		Title:          src.Title,
		ContentHash:    contentHash,
		SourceMarkdown: src.SourceMarkdown,
		Metadata:       src.Metadata,
	}
	if err := tx.RequeueForContentChange(ctx, doc.ID, change, now); err != nil {
		return nil, err
	}
	doc.Title = change.Title
	doc.ContentHash = change.ContentHash
	doc.SourceMarkdown = change.SourceMarkdown
	doc.Metadata = change.Metadata
	doc.Status = document.StatusPending
	doc.Error = ""
	doc.UpdatedAt = now
	logInfo(logDocumentUpdated, lc)
	return &PreparedDocument{Record: existing, Source: src}, nil
}

func firstSource(docs []*document.ConnectorDocument) *document.ConnectorDocument {
	for _, d := range docs {
		if d != nil {
			return d
		}
	}
	return nil
}
