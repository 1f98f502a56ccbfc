package chunking

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"SurfSense/internal/config"
	"SurfSense/internal/modules/indexing/domain/capability"
	"SurfSense/internal/modules/indexing/domain/document"

	"github.com/cloudwego/eino-ext/components/document/transformer/splitter/recursive"
	einoDoc "github.com/cloudwego/eino/components/document"
	"github.com/cloudwego/eino/schema"
)

var (
	textSeparators = []string{"\n\n", "\n", "。", "！", "？", "；", ". ", "! ", "? ", "，", ", ", " "}
	codeSeparators = []string{
		"\nfunc ", "\ntype ", "\nclass ", "\ndef ", "\nasync def ", "\nfunction ", "\nconst ", "\nexport ",
		"\n\n", "\n", " ",
	}
)

// RecursiveChunker 基于 eino recursive splitter 按分隔符优先级切分，长度按 rune 计
type RecursiveChunker struct {
	ChunkSize    int
	ChunkOverlap int
	separators   []string

	initOnce sync.Once
	initErr  error
	impl     einoDoc.Transformer
}

func newRecursiveChunker(size, overlap int, separators []string) *RecursiveChunker {
	if size <= 0 {
		size = 1000
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= size {
		overlap = size / 2
	}
	return &RecursiveChunker{ChunkSize: size, ChunkOverlap: overlap, separators: separators}
}

// NewTextChunker 面向自然语言文本
func NewTextChunker(size, overlap int) *RecursiveChunker {
	return newRecursiveChunker(size, overlap, textSeparators)
}

// NewCodeChunker 优先在函数/类定义边界处切分
func NewCodeChunker(size, overlap int) *RecursiveChunker {
	return newRecursiveChunker(size, overlap, codeSeparators)
}

func (c *RecursiveChunker) Chunk(ctx context.Context, text string) ([]string, error) {
	if strings.TrimSpace(text) == "" {
		return []string{}, nil
	}

	c.initOnce.Do(func() {
		impl, err := recursive.NewSplitter(ctx, &recursive.Config{
			ChunkSize:   c.ChunkSize,
			OverlapSize: c.ChunkOverlap,
			Separators:  c.separators,
			LenFunc: func(s string) int {
				return len([]rune(s))
			},
			KeepType: recursive.KeepTypeEnd,
		})
		if err != nil {
			c.initErr = err
			return
		}
		c.impl = impl
	})
	if c.initErr != nil {
		return nil, c.initErr
	}
	if c.impl == nil {
		return nil, fmt.Errorf("recursive splitter not initialized")
	}

	frags, err := c.impl.Transform(ctx, []*schema.Document{{Content: text}})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", capability.ErrChunkingOverflow, err)
	}
	out := make([]string, 0, len(frags))
	for _, f := range frags {
		if f == nil || strings.TrimSpace(f.Content) == "" {
			continue
		}
		out = append(out, f.Content)
	}
	return out, nil
}

// Set 按 content kind 选择切片器
type Set struct {
	Text capability.Chunker
	Code capability.Chunker
}

func NewSetFromConfig(conf *config.Config) *Set {
	ic := conf.IndexingConfig
	codeOverlap := ic.CodeChunkOverlap
	if codeOverlap <= 0 {
		codeOverlap = ic.ChunkOverlap
	}
	return &Set{
		Text: NewTextChunker(ic.ChunkSize, ic.ChunkOverlap),
		Code: NewCodeChunker(ic.CodeChunkSize, codeOverlap),
	}
}

func (s *Set) For(kind document.ContentKind) capability.Chunker {
	if kind == document.ContentKindCode && s.Code != nil {
		return s.Code
	}
	return s.Text
}

var _ capability.Chunker = (*RecursiveChunker)(nil)
