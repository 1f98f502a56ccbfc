package capability

import (
	"context"
	"errors"
)

var (
	// ErrInvalidResponse 模型返回空或无法解析的结果
	ErrInvalidResponse = errors.New("invalid model response")
	// ErrEmbeddingModel 向量维度或数量与模型配置不符
	ErrEmbeddingModel = errors.New("embedding model misconfigured")
	// ErrChunkingOverflow 文档结构无法切分
	ErrChunkingOverflow = errors.New("chunking overflow")
)

// Summarizer 生成文档摘要
type Summarizer interface {
	Summarize(ctx context.Context, sourceMarkdown string, metadata map[string]any) (string, error)
}

// Embedder 文本向量化，EmbedMany 的输出与输入一一对应
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedMany(ctx context.Context, texts []string) ([][]float32, error)
}

// Chunker 将文本切分为有序片段
type Chunker interface {
	Chunk(ctx context.Context, text string) ([]string, error)
}
