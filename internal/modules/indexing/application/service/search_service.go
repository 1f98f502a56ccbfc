package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"SurfSense/internal/modules/indexing/application/dto/request"
	"SurfSense/internal/modules/indexing/application/dto/respond"
	"SurfSense/internal/modules/indexing/domain/capability"
	"SurfSense/internal/modules/indexing/domain/document"
	"SurfSense/internal/modules/indexing/domain/repository"
	"SurfSense/internal/modules/indexing/infrastructure/vectordb"
	"SurfSense/pkg/xerr"
	"SurfSense/pkg/zlog"

	"go.uber.org/zap"
)

const (
	defaultTopK = 5
	maxTopK     = 50
)

// VectorSearcher 向量检索（Milvus）
type VectorSearcher interface {
	Search(ctx context.Context, vector []float32, topK int, searchSpaceID int64) ([]vectordb.SearchHit, error)
}

// SearchService 知识库检索：查询向量化、向量召回、回表补齐引用
type SearchService interface {
	Search(ctx context.Context, req request.SearchRequest) (*respond.SearchRespond, error)
}

type searchServiceImpl struct {
	embedder capability.Embedder
	searcher VectorSearcher
	repo     repository.DocumentRepository
}

// NewSearchService searcher 为 nil 时 Search 返回 ErrSearchDisabled
func NewSearchService(embedder capability.Embedder, searcher VectorSearcher, repo repository.DocumentRepository) SearchService {
	return &searchServiceImpl{embedder: embedder, searcher: searcher, repo: repo}
}

func (s *searchServiceImpl) Search(ctx context.Context, req request.SearchRequest) (*respond.SearchRespond, error) {
	if s.searcher == nil || s.embedder == nil {
		return nil, xerr.ErrSearchDisabled
	}
	start := time.Now()

	// 1. 参数校验与规范化
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, xerr.New(xerr.BadRequest, "query 不能为空")
	}
	if req.SearchSpaceID <= 0 {
		return nil, xerr.New(xerr.BadRequest, "search_space_id 必须为正数")
	}
	topK := req.TopK
	if topK <= 0 {
		topK = defaultTopK
	}
	if topK > maxTopK {
		topK = maxTopK
	}

	// 2. 查询向量化 + 向量召回
	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	hits, err := s.searcher.Search(ctx, vec, topK, req.SearchSpaceID)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}

	resp := &respond.SearchRespond{Query: query, Hits: []respond.SearchHit{}, TotalHits: len(hits)}
	if len(hits) == 0 {
		resp.DurationMs = time.Since(start).Milliseconds()
		return resp, nil
	}

	// 3. 回表：以 MySQL 中的切片与文档为准，过滤已删除或未就绪的记录
	chunkIDs := make([]int64, 0, len(hits))
	for _, h := range hits {
		chunkIDs = append(chunkIDs, h.ChunkID)
	}
	chunks, err := s.repo.ListChunksByIDs(ctx, chunkIDs)
	if err != nil {
		return nil, err
	}
	chunkByID := make(map[int64]document.Chunk, len(chunks))
	docIDs := make([]int64, 0, len(chunks))
	seenDoc := make(map[int64]struct{}, len(chunks))
	for _, c := range chunks {
		chunkByID[c.ID] = c
		if _, ok := seenDoc[c.DocumentID]; !ok {
			seenDoc[c.DocumentID] = struct{}{}
			docIDs = append(docIDs, c.DocumentID)
		}
	}
	docs, err := s.repo.ListByIDs(ctx, docIDs)
	if err != nil {
		return nil, err
	}
	docByID := make(map[int64]document.Document, len(docs))
	for _, d := range docs {
		docByID[d.ID] = d
	}

	// 4. 按向量得分顺序组装结果
	stale := 0
	for _, h := range hits {
		c, ok := chunkByID[h.ChunkID]
		if !ok {
			stale++
			continue
		}
		d, ok := docByID[c.DocumentID]
		if !ok || d.Status != document.StatusReady || d.SearchSpaceID != req.SearchSpaceID {
			stale++
			continue
		}
		resp.Hits = append(resp.Hits, respond.SearchHit{
			DocumentID:    d.ID,
			DocumentTitle: d.Title,
			DocumentType:  string(d.DocumentType),
			ChunkID:       c.ID,
			Position:      c.Position,
			Score:         h.Score,
			Content:       c.Content,
		})
	}
	if stale > 0 {
		zlog.Warn("search dropped stale vector hits", zap.Int64("search_space_id", req.SearchSpaceID), zap.Int("stale", stale))
	}
	resp.DurationMs = time.Since(start).Milliseconds()
	return resp, nil
}
