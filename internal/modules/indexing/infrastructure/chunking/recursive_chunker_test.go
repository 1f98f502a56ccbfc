package chunking

import (
	"context"
	"strings"
	"testing"

	"SurfSense/internal/config"
	"SurfSense/internal/modules/indexing/domain/document"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTextChunkerShortTextSingleChunk(t *testing.T) {
	c := NewTextChunker(100, 10)
	out, err := c.Chunk(context.Background(), "hello world")
	require.NoError(t, err)
	assert.Equal(t, []string{"hello world"}, out)
}

func TestTextChunkerBlankText(t *testing.T) {
	out, err := NewTextChunker(100, 10).Chunk(context.Background(), "  \n ")
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestTextChunkerRespectsSize(t *testing.T) {
	paras := make([]string, 0, 20)
	for i := 0; i < 20; i++ {
		paras = append(paras, strings.Repeat("字", 30))
	}
	text := strings.Join(paras, "\n\n")

	out, err := NewTextChunker(80, 0).Chunk(context.Background(), text)
	require.NoError(t, err)
	require.Greater(t, len(out), 1)
	for _, s := range out {
		assert.LessOrEqual(t, len([]rune(s)), 80)
	}
}

func TestNewRecursiveChunkerClampsOverlap(t *testing.T) {
	c := NewTextChunker(10, 50)
	assert.Equal(t, 5, c.ChunkOverlap)
	c = NewCodeChunker(0, -1)
	assert.Equal(t, 1000, c.ChunkSize)
	assert.Equal(t, 0, c.ChunkOverlap)
}

func TestSetSelectsByKind(t *testing.T) {
	conf, err := config.Decode("")
	require.NoError(t, err)
	s := NewSetFromConfig(conf)

	assert.Same(t, s.Code, s.For(document.ContentKindCode))
	assert.Same(t, s.Text, s.For(document.ContentKindText))
	assert.Equal(t, 1500, s.Code.(*RecursiveChunker).ChunkSize)
}
