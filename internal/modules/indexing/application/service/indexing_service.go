package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"SurfSense/internal/modules/indexing/application/adapter"
	"SurfSense/internal/modules/indexing/application/dto/request"
	"SurfSense/internal/modules/indexing/application/dto/respond"
	"SurfSense/internal/modules/indexing/domain/document"
	"SurfSense/internal/modules/indexing/domain/repository"
	"SurfSense/internal/modules/indexing/infrastructure/mq"
	"SurfSense/internal/modules/indexing/infrastructure/pipeline"
	"SurfSense/pkg/util"
	"SurfSense/pkg/xerr"
	"SurfSense/pkg/zlog"

	"go.uber.org/zap"
)

// IndexingService 索引用例：同步上传、批量索引、入队与状态查询
type IndexingService interface {
	// IndexBatch 一次准备整个批次，再逐个文档执行流水线
	IndexBatch(ctx context.Context, docs []*document.ConnectorDocument) (*respond.IndexBatchRespond, error)
	// IndexUpload 同步索引单个上传文件，返回文档当前状态
	IndexUpload(ctx context.Context, req request.UploadDocumentRequest, userID string) (*respond.DocumentStatusRespond, error)
	// Enqueue 把连接器批次投递到索引队列，由 worker 异步处理
	Enqueue(ctx context.Context, req request.IndexBatchRequest, userID string) (*respond.EnqueueRespond, error)
	GetDocument(ctx context.Context, id int64) (*respond.DocumentStatusRespond, error)
}

type indexingServiceImpl struct {
	pipeline  *pipeline.IndexingPipelineService
	repo      repository.DocumentRepository
	publisher mq.Publisher
	topic     string
}

// NewIndexingService publisher 为 nil 时 Enqueue 返回 ErrQueueDisabled
func NewIndexingService(p *pipeline.IndexingPipelineService, repo repository.DocumentRepository, publisher mq.Publisher, topic string) IndexingService {
	return &indexingServiceImpl{pipeline: p, repo: repo, publisher: publisher, topic: strings.TrimSpace(topic)}
}

func (s *indexingServiceImpl) IndexBatch(ctx context.Context, docs []*document.ConnectorDocument) (*respond.IndexBatchRespond, error) {
	if s.pipeline == nil {
		return nil, fmt.Errorf("indexing pipeline is nil")
	}
	res := &respond.IndexBatchRespond{Received: len(docs), Documents: []respond.DocumentStatusRespond{}}

	// 1. 准备阶段（去重、变更检测、占位记录）
	prepared, err := s.pipeline.PrepareForIndexing(ctx, docs)
	if err != nil {
		return nil, err
	}
	res.Prepared = len(prepared)
	res.Skipped = len(docs) - len(prepared)

	// 2. 逐个文档执行流水线，单个失败不影响其他文档
	for i := range prepared {
		s.pipeline.Index(ctx, &prepared[i])
		doc := prepared[i].Record.Document
		switch doc.Status {
		case document.StatusReady:
			res.Ready++
		case document.StatusFailed:
			res.Failed++
		}
		res.Documents = append(res.Documents, statusView(doc, int64(len(prepared[i].Record.Chunks))))
	}
	return res, nil
}

func (s *indexingServiceImpl) IndexUpload(ctx context.Context, req request.UploadDocumentRequest, userID string) (*respond.DocumentStatusRespond, error) {
	// 1. 构造规范化文档
	doc, err := adapter.FromFileUpload(adapter.FileUpload{
		Filename:        strings.TrimSpace(req.Filename),
		Markdown:        req.Markdown,
		ETLService:      req.ETLService,
		SearchSpaceID:   req.SearchSpaceID,
		UserID:          userID,
		ShouldSummarize: req.ShouldSummarize,
	})
	if err != nil {
		return nil, paramError(err)
	}

	// 2. 同步索引
	res, err := s.IndexBatch(ctx, []*document.ConnectorDocument{doc})
	if err != nil {
		return nil, err
	}
	if len(res.Documents) > 0 {
		out := res.Documents[0]
		return &out, nil
	}

	// 3. 内容未变化被跳过时，返回已有文档的状态
	existing, err := s.repo.FindByIdentityHash(ctx, document.UniqueIdentifierHash(doc))
	if err != nil {
		return nil, err
	}
	if existing == nil {
		// 同内容已存在于其他文档
		return nil, xerr.New(xerr.Conflict, "相同内容的文档已存在")
	}
	view := statusView(existing.Document, int64(len(existing.Chunks)))
	return &view, nil
}

func (s *indexingServiceImpl) Enqueue(ctx context.Context, req request.IndexBatchRequest, userID string) (*respond.EnqueueRespond, error) {
	if s.publisher == nil || s.topic == "" {
		return nil, xerr.ErrQueueDisabled
	}
	if len(req.Documents) == 0 {
		return nil, xerr.New(xerr.BadRequest, "documents 不能为空")
	}

	// 1. 入队前校验，避免无效消息进入队列
	msg := request.IndexBatchMessage{
		TraceID:   util.NewTraceID(),
		Documents: make([]document.ConnectorDocumentParams, 0, len(req.Documents)),
	}
	for i, item := range req.Documents {
		p := document.ConnectorDocumentParams{
			Title:           item.Title,
			SourceMarkdown:  item.SourceMarkdown,
			UniqueID:        item.UniqueID,
			DocumentType:    item.DocumentType,
			DisableSummary:  item.DisableSummary,
			ContentKind:     item.ContentKind,
			Metadata:        item.Metadata,
			FallbackSummary: item.FallbackSummary,
			ConnectorID:     req.ConnectorID,
			SearchSpaceID:   req.SearchSpaceID,
			CreatedByID:     userID,
		}
		if _, err := document.NewConnectorDocument(p); err != nil {
			return nil, xerr.Wrap(xerr.BadRequest, fmt.Sprintf("documents[%d]: %v", i, err), err)
		}
		msg.Documents = append(msg.Documents, p)
	}

	// 2. 同一连接器 + search space 使用相同 key，落在同一分区串行处理
	value, err := json.Marshal(msg)
	if err != nil {
		return nil, err
	}
	r, err := s.publisher.Publish(ctx, mq.Message{
		Topic:   s.topic,
		Key:     []byte(PartitionKey(req.ConnectorID, req.SearchSpaceID)),
		Value:   value,
		Headers: map[string]string{"trace_id": msg.TraceID},
	})
	if err != nil {
		zlog.Error("enqueue index batch failed", zap.String("trace_id", msg.TraceID), zap.Error(err))
		return nil, err
	}
	zlog.Info("index batch enqueued",
		zap.String("trace_id", msg.TraceID),
		zap.Int("documents", len(msg.Documents)),
		zap.Int32("partition", r.Partition),
		zap.Int64("offset", r.Offset),
	)
	return &respond.EnqueueRespond{TraceID: msg.TraceID, Documents: len(msg.Documents), Partition: r.Partition, Offset: r.Offset}, nil
}

func (s *indexingServiceImpl) GetDocument(ctx context.Context, id int64) (*respond.DocumentStatusRespond, error) {
	if id <= 0 {
		return nil, xerr.ErrParam
	}
	doc, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, xerr.ErrDocumentNotFound
	}
	n, err := s.repo.CountChunks(ctx, id)
	if err != nil {
		return nil, err
	}
	view := statusView(doc, n)
	return &view, nil
}

// PartitionKey 无连接器（如文件上传）时 connector 部分为 0
func PartitionKey(connectorID *int64, searchSpaceID int64) string {
	var cid int64
	if connectorID != nil {
		cid = *connectorID
	}
	return fmt.Sprintf("%d:%d", cid, searchSpaceID)
}

func statusView(doc *document.Document, chunks int64) respond.DocumentStatusRespond {
	return respond.DocumentStatusRespond{
		ID:            doc.ID,
		Title:         doc.Title,
		DocumentType:  string(doc.DocumentType),
		SearchSpaceID: doc.SearchSpaceID,
		Status:        string(doc.Status),
		Error:         doc.Error,
		ChunkCount:    chunks,
		UpdatedAt:     doc.UpdatedAt,
	}
}

func paramError(err error) error {
	if errors.Is(err, document.ErrValidation) {
		return xerr.Wrap(xerr.BadRequest, err.Error(), err)
	}
	return err
}
