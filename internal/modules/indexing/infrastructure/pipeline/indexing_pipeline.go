package pipeline

import (
	"context"
	"fmt"
	"time"

	"SurfSense/internal/modules/indexing/domain/capability"
	"SurfSense/internal/modules/indexing/domain/document"
	"SurfSense/internal/modules/indexing/domain/repository"

	"github.com/cloudwego/eino/compose"
)

// PreparedDocument 准备阶段的输出：需要（重新）处理的持久化文档及其来源
type PreparedDocument struct {
	Record *document.LoadedDocument
	Source *document.ConnectorDocument
}

// ChunkerSelector 按 content kind 选择切片器
type ChunkerSelector interface {
	For(kind document.ContentKind) capability.Chunker
}

// IndexingPipelineService 所有连接器共用的索引流水线。
// PrepareForIndexing 一个批次一次提交；Index 逐文档处理，失败不向外传播
type IndexingPipelineService struct {
	repo       repository.DocumentRepository
	embedder   capability.Embedder
	chunkers   ChunkerSelector
	summarizer capability.Summarizer
	chunkIndex repository.ChunkIndex
	embedBatch int
	now        func() time.Time

	r compose.Runnable[*indexState, *indexState]
}

type Option func(*IndexingPipelineService)

// WithSummarizer 未设置时按 fallback summary / 原文处理
func WithSummarizer(s capability.Summarizer) Option {
	return func(p *IndexingPipelineService) { p.summarizer = s }
}

// WithChunkIndex 提交成功后把切片向量同步到外部索引
func WithChunkIndex(idx repository.ChunkIndex) Option {
	return func(p *IndexingPipelineService) { p.chunkIndex = idx }
}

// DefaultEmbedBatchSize 单次 EmbedMany 的输入条数上限
const DefaultEmbedBatchSize = 64

// WithEmbedBatchSize 按服务商单请求条数上限分批向量化，n <= 0 时使用默认值
func WithEmbedBatchSize(n int) Option {
	return func(p *IndexingPipelineService) {
		if n > 0 {
			p.embedBatch = n
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(p *IndexingPipelineService) {
		if now != nil {
			p.now = now
		}
	}
}

func NewIndexingPipelineService(repo repository.DocumentRepository, embedder capability.Embedder, chunkers ChunkerSelector, opts ...Option) (*IndexingPipelineService, error) {
	if repo == nil {
		return nil, fmt.Errorf("document repository is nil")
	}
	if embedder == nil {
		return nil, fmt.Errorf("embedder is nil")
	}
	if chunkers == nil {
		return nil, fmt.Errorf("chunker selector is nil")
	}
	p := &IndexingPipelineService{repo: repo, embedder: embedder, chunkers: chunkers, embedBatch: DefaultEmbedBatchSize, now: time.Now}
	for _, opt := range opts {
		opt(p)
	}
	r, err := p.buildGraph(context.Background())
	if err != nil {
		return nil, err
	}
	p.r = r
	return p, nil
}
