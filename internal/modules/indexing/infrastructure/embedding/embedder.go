package embedding

import (
	"context"
	"fmt"

	"SurfSense/internal/modules/indexing/domain/capability"

	"github.com/cloudwego/eino/components/embedding"
)

// Embedder 把 eino Embedder 适配为流水线的向量能力，并校验数量与维度
type Embedder struct {
	inner embedding.Embedder
	dim   int
}

// NewEmbedder dim<=0 时不校验维度
func NewEmbedder(inner embedding.Embedder, dim int) *Embedder {
	return &Embedder{inner: inner, dim: dim}
}

func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedMany(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (e *Embedder) EmbedMany(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	if e == nil || e.inner == nil {
		return nil, fmt.Errorf("%w: embedder is nil", capability.ErrEmbeddingModel)
	}
	raw, err := e.inner.EmbedStrings(ctx, texts)
	if err != nil {
		return nil, err
	}
	if len(raw) != len(texts) {
		return nil, fmt.Errorf("%w: got %d vectors for %d texts", capability.ErrEmbeddingModel, len(raw), len(texts))
	}
	out := make([][]float32, len(raw))
	for i, v := range raw {
		if e.dim > 0 && len(v) != e.dim {
			return nil, fmt.Errorf("%w: vector dim mismatch got=%d want=%d", capability.ErrEmbeddingModel, len(v), e.dim)
		}
		f := make([]float32, len(v))
		for j, x := range v {
			f[j] = float32(x)
		}
		out[i] = f
	}
	return out, nil
}

var _ capability.Embedder = (*Embedder)(nil)
