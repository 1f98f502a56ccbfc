package embedding

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"SurfSense/internal/config"

	arkEmbed "github.com/cloudwego/eino-ext/components/embedding/ark"
	dashscopeEmbed "github.com/cloudwego/eino-ext/components/embedding/dashscope"
	openaiEmbed "github.com/cloudwego/eino-ext/components/embedding/openai"
	"github.com/cloudwego/eino/components/embedding"
)

// EmbedderMeta 记录实际使用的向量模型
type EmbedderMeta struct {
	Provider string
	Model    string
	Dim      int
}

// NewEmbedderFromConfig 按 aiConfig.embedding.provider 创建 eino Embedder，未配置时使用 mock
func NewEmbedderFromConfig(ctx context.Context, conf *config.Config) (embedding.Embedder, EmbedderMeta, error) {
	if conf == nil {
		return nil, EmbedderMeta{}, fmt.Errorf("nil config")
	}
	ec := conf.AIConfig.Embedding
	meta := EmbedderMeta{
		Provider: strings.ToLower(strings.TrimSpace(ec.Provider)),
		Model:    strings.TrimSpace(ec.Model),
		Dim:      conf.MilvusConfig.VectorDim,
	}
	if ec.Dimensions > 0 {
		meta.Dim = ec.Dimensions
	}

	switch meta.Provider {
	case "", "mock":
		meta.Provider = "mock"
		if meta.Model == "" {
			meta.Model = "mock"
		}
		return NewMockEmbedder(meta.Dim), meta, nil
	case "openai":
		em, err := newOpenAI(ctx, ec, &meta)
		return em, meta, err
	case "ark":
		em, err := newArk(ctx, ec, &meta)
		return em, meta, err
	case "dashscope":
		em, err := newDashscope(ctx, ec, &meta)
		return em, meta, err
	default:
		return nil, EmbedderMeta{}, fmt.Errorf("unknown embedding provider: %s", meta.Provider)
	}
}

func newOpenAI(ctx context.Context, ec config.AIEmbeddingConfig, meta *EmbedderMeta) (embedding.Embedder, error) {
	apiKey := orEnv(ec.APIKey, "OPENAI_API_KEY")
	meta.Model = orEnv(meta.Model, "OPENAI_EMBED_MODEL")
	if apiKey == "" || meta.Model == "" {
		return nil, fmt.Errorf("openai embedding missing apiKey/model")
	}
	timeout := 30 * time.Second
	if ec.TimeoutSeconds > 0 {
		timeout = time.Duration(ec.TimeoutSeconds) * time.Second
	}
	dim := meta.Dim
	return openaiEmbed.NewEmbedder(ctx, &openaiEmbed.EmbeddingConfig{
		APIKey:     apiKey,
		Model:      meta.Model,
		BaseURL:    orEnv(ec.BaseURL, "OPENAI_BASE_URL"),
		Timeout:    timeout,
		Dimensions: &dim,
	})
}

func newArk(ctx context.Context, ec config.AIEmbeddingConfig, meta *EmbedderMeta) (embedding.Embedder, error) {
	apiKey := orEnv(ec.APIKey, "ARK_API_KEY")
	meta.Model = orEnv(meta.Model, "ARK_EMBED_MODEL")
	if apiKey == "" || meta.Model == "" {
		return nil, fmt.Errorf("ark embedding missing apiKey/model")
	}
	return arkEmbed.NewEmbedder(ctx, &arkEmbed.EmbeddingConfig{
		APIKey:  apiKey,
		Model:   meta.Model,
		BaseURL: orEnv(ec.BaseURL, "ARK_BASE_URL"),
	})
}

func newDashscope(ctx context.Context, ec config.AIEmbeddingConfig, meta *EmbedderMeta) (embedding.Embedder, error) {
	apiKey := orEnv(ec.APIKey, "DASHSCOPE_API_KEY")
	meta.Model = orEnv(meta.Model, "DASHSCOPE_EMBED_MODEL")
	if apiKey == "" || meta.Model == "" {
		return nil, fmt.Errorf("dashscope embedding missing apiKey/model")
	}
	dim := meta.Dim
	return dashscopeEmbed.NewEmbedder(ctx, &dashscopeEmbed.EmbeddingConfig{
		Model:      meta.Model,
		APIKey:     apiKey,
		Dimensions: &dim,
	})
}

// orEnv 配置为空时回退到环境变量
func orEnv(v, env string) string {
	v = strings.TrimSpace(v)
	if v != "" {
		return v
	}
	return strings.TrimSpace(os.Getenv(env))
}
