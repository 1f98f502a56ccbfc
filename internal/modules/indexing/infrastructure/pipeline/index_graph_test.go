package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"

	"SurfSense/internal/modules/indexing/domain/capability"
	"SurfSense/internal/modules/indexing/domain/document"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func prepareOne(t *testing.T, h *harness, src *document.ConnectorDocument) *PreparedDocument {
	t.Helper()
	out, err := h.svc.PrepareForIndexing(context.Background(), []*document.ConnectorDocument{src})
	require.NoError(t, err)
	require.Len(t, out, 1)
	return &out[0]
}

func TestIndexSummarizesAndPersistsChunks(t *testing.T) {
	h := newHarness(t, true)
	pd := prepareOne(t, h, connectorDoc(t, nil))

	h.svc.Index(context.Background(), pd)

	doc := pd.Record.Document
	assert.Equal(t, document.StatusReady, doc.Status)
	assert.Equal(t, "summary", doc.Content)
	assert.Equal(t, 1, h.summarizer.calls)
	require.Len(t, pd.Record.Chunks, 2)
	assert.Equal(t, "first paragraph", pd.Record.Chunks[0].Content)

	stored, err := h.repo.Reload(context.Background(), doc.ID)
	require.NoError(t, err)
	assert.Equal(t, document.StatusReady, stored.Document.Status)
	assert.Equal(t, "summary", stored.Document.Content)
	assert.Equal(t, []float32{7, 1, 0}, stored.Document.Embedding)
	assert.Equal(t, "first paragraph\n\nsecond paragraph", stored.Document.SourceMarkdown)
	require.Len(t, stored.Chunks, 2)
	assert.Equal(t, "second paragraph", stored.Chunks[1].Content)
	assert.Equal(t, []float32{16, 1, 0}, stored.Chunks[1].Embedding)

	assert.Equal(t, []int64{doc.ID}, h.index.synced)
}

func TestIndexSummarizerFailureMarksFailed(t *testing.T) {
	h := newHarness(t, true)
	h.summarizer.err = errors.New("error, status code: 429, message: rate limited")
	pd := prepareOne(t, h, connectorDoc(t, nil))

	h.svc.Index(context.Background(), pd)

	stored, err := h.repo.Reload(context.Background(), pd.Record.Document.ID)
	require.NoError(t, err)
	assert.Equal(t, document.StatusFailed, stored.Document.Status)
	assert.Equal(t, MsgRateLimit, stored.Document.Error)
	assert.Empty(t, stored.Chunks)
	assert.Equal(t, int64(0), h.count(t, &document.Chunk{}))

	assert.Equal(t, document.StatusFailed, pd.Record.Document.Status)
	assert.Empty(t, h.index.synced)
}

func TestIndexWithoutSummaryUsesSource(t *testing.T) {
	h := newHarness(t, true)
	src := connectorDoc(t, func(p *document.ConnectorDocumentParams) { p.DisableSummary = true })
	pd := prepareOne(t, h, src)

	h.svc.Index(context.Background(), pd)

	stored := h.get(t, pd.Record.Document.ID)
	assert.Equal(t, document.StatusReady, stored.Status)
	assert.Equal(t, src.SourceMarkdown, stored.Content)
	assert.Equal(t, src.SourceMarkdown, stored.SourceMarkdown)
	assert.Zero(t, h.summarizer.calls)
}

func TestIndexFallbackSummaryWithoutSummarizer(t *testing.T) {
	h := newHarness(t, false)
	pd := prepareOne(t, h, connectorDoc(t, func(p *document.ConnectorDocumentParams) { p.FallbackSummary = "short" }))

	h.svc.Index(context.Background(), pd)
	assert.Equal(t, "short", h.get(t, pd.Record.Document.ID).Content)

	h2 := newHarness(t, false)
	src := connectorDoc(t, nil)
	pd2 := prepareOne(t, h2, src)
	h2.svc.Index(context.Background(), pd2)
	assert.Equal(t, src.SourceMarkdown, h2.get(t, pd2.Record.Document.ID).Content)
}

func TestReindexReplacesChunks(t *testing.T) {
	h := newHarness(t, true)
	ctx := context.Background()

	pd := prepareOne(t, h, connectorDoc(t, nil))
	h.svc.Index(ctx, pd)
	require.Equal(t, int64(2), h.count(t, &document.Chunk{}))

	pd2 := prepareOne(t, h, connectorDoc(t, func(p *document.ConnectorDocumentParams) { p.SourceMarkdown = "single paragraph" }))
	h.svc.Index(ctx, pd2)

	assert.Equal(t, document.StatusReady, pd2.Record.Document.Status)
	assert.Equal(t, int64(1), h.count(t, &document.Chunk{}))
	stored, err := h.repo.Reload(ctx, pd.Record.Document.ID)
	require.NoError(t, err)
	require.Len(t, stored.Chunks, 1)
	assert.Equal(t, "single paragraph", stored.Chunks[0].Content)
}

func TestIndexUpdatedAtAdvances(t *testing.T) {
	h := newHarness(t, true)
	pd := prepareOne(t, h, connectorDoc(t, nil))
	created := h.get(t, pd.Record.Document.ID).UpdatedAt

	h.svc.Index(context.Background(), pd)
	assert.True(t, h.get(t, pd.Record.Document.ID).UpdatedAt.After(created))
}

func TestIndexEmbeddingFailure(t *testing.T) {
	h := newHarness(t, true)
	h.embedder.err = errors.New("backend exploded")
	pd := prepareOne(t, h, connectorDoc(t, nil))

	h.svc.Index(context.Background(), pd)

	stored := h.get(t, pd.Record.Document.ID)
	assert.Equal(t, document.StatusFailed, stored.Status)
	assert.Equal(t, MsgEmbeddingFailed, stored.Error)
}

func TestIndexUsesCodeChunkerForCode(t *testing.T) {
	h := newHarness(t, true)
	pd := prepareOne(t, h, connectorDoc(t, func(p *document.ConnectorDocumentParams) { p.ContentKind = document.ContentKindCode }))

	h.svc.Index(context.Background(), pd)
	assert.Equal(t, 1, h.chunkers.code.calls)
	assert.Zero(t, h.chunkers.text.calls)
}

func TestIndexCancelledContextNeverLeavesProcessing(t *testing.T) {
	h := newHarness(t, true)
	pd := prepareOne(t, h, connectorDoc(t, nil))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	h.svc.Index(ctx, pd)

	stored := h.get(t, pd.Record.Document.ID)
	assert.Equal(t, document.StatusFailed, stored.Status)
	assert.NotEmpty(t, stored.Error)
}

func TestIndexMirrorFailureKeepsReady(t *testing.T) {
	h := newHarness(t, true)
	h.index.err = errors.New("milvus down")
	pd := prepareOne(t, h, connectorDoc(t, nil))

	h.svc.Index(context.Background(), pd)
	assert.Equal(t, document.StatusReady, h.get(t, pd.Record.Document.ID).Status)
}

type panickingSummarizer struct{}

func (panickingSummarizer) Summarize(ctx context.Context, sourceMarkdown string, metadata map[string]any) (string, error) {
	panic("boom")
}

var _ capability.Summarizer = panickingSummarizer{}

func TestIndexPanicMarksFailed(t *testing.T) {
	h := newHarness(t, true)
	svc, err := NewIndexingPipelineService(h.repo, h.embedder, h.chunkers, WithSummarizer(panickingSummarizer{}))
	require.NoError(t, err)
	pd := prepareOne(t, h, connectorDoc(t, nil))

	svc.Index(context.Background(), pd)
	assert.Equal(t, document.StatusFailed, h.get(t, pd.Record.Document.ID).Status)
}

func TestIndexEmbedsInBatches(t *testing.T) {
	h := newHarness(t, true)
	h.embedder.maxBatch = 2
	svc, err := NewIndexingPipelineService(h.repo, h.embedder, h.chunkers, WithEmbedBatchSize(2))
	require.NoError(t, err)

	paras := []string{"a", "bb", "ccc", "dddd", "eeeee"}
	pd := prepareOne(t, h, connectorDoc(t, func(p *document.ConnectorDocumentParams) {
		p.SourceMarkdown = strings.Join(paras, "\n\n")
		p.DisableSummary = true
	}))

	svc.Index(context.Background(), pd)

	assert.Equal(t, []int{2, 2, 2}, h.embedder.batches)
	stored, err := h.repo.Reload(context.Background(), pd.Record.Document.ID)
	require.NoError(t, err)
	assert.Equal(t, document.StatusReady, stored.Document.Status)
	require.Len(t, stored.Chunks, len(paras))
	for i, para := range paras {
		assert.Equal(t, i, stored.Chunks[i].Position)
		assert.Equal(t, para, stored.Chunks[i].Content)
		assert.Equal(t, []float32{float32(len(para)), 1, 0}, stored.Chunks[i].Embedding)
	}
}

func TestIndexOversizeEmbedBatchFails(t *testing.T) {
	h := newHarness(t, true)
	h.embedder.maxBatch = 2
	pd := prepareOne(t, h, connectorDoc(t, nil))

	h.svc.Index(context.Background(), pd)

	stored := h.get(t, pd.Record.Document.ID)
	assert.Equal(t, document.StatusFailed, stored.Status)
	assert.Equal(t, MsgEmbeddingFailed, stored.Error)
}

// indexReady 首次索引成功，返回文档 id 与旧切片
func indexReady(t *testing.T, h *harness) (int64, []document.Chunk) {
	t.Helper()
	pd := prepareOne(t, h, connectorDoc(t, nil))
	h.svc.Index(context.Background(), pd)
	stored, err := h.repo.Reload(context.Background(), pd.Record.Document.ID)
	require.NoError(t, err)
	require.Equal(t, document.StatusReady, stored.Document.Status)
	require.Len(t, stored.Chunks, 2)
	return pd.Record.Document.ID, stored.Chunks
}

func assertPriorChunksKept(t *testing.T, h *harness, id int64, prior []document.Chunk) {
	t.Helper()
	stored, err := h.repo.Reload(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, document.StatusFailed, stored.Document.Status)
	assert.NotEmpty(t, stored.Document.Error)
	require.Len(t, stored.Chunks, len(prior))
	for i := range prior {
		assert.Equal(t, prior[i].ID, stored.Chunks[i].ID)
		assert.Equal(t, prior[i].Content, stored.Chunks[i].Content)
	}
	assert.Equal(t, int64(len(prior)), h.count(t, &document.Chunk{}))
}

func TestReindexFailureKeepsPriorChunks(t *testing.T) {
	cases := map[string]func(h *harness){
		"summarizer": func(h *harness) { h.summarizer.err = errors.New("error, status code: 503, message: overloaded") },
		"embedder":   func(h *harness) { h.embedder.err = errors.New("backend exploded") },
	}
	for name, breakIt := range cases {
		t.Run(name, func(t *testing.T) {
			h := newHarness(t, true)
			id, prior := indexReady(t, h)

			breakIt(h)
			pd := prepareOne(t, h, connectorDoc(t, func(p *document.ConnectorDocumentParams) {
				p.SourceMarkdown = "rewritten one\n\nrewritten two\n\nrewritten three"
			}))
			require.Equal(t, id, pd.Record.Document.ID)
			h.svc.Index(context.Background(), pd)

			assertPriorChunksKept(t, h, id, prior)
		})
	}
}

func TestReindexChunkInsertFailureRollsBackDelete(t *testing.T) {
	h := newHarness(t, true)
	id, prior := indexReady(t, h)

	// 之后的切片写入全部失败，此时旧切片已在同一事务中删除
	require.NoError(t, h.db.Callback().Create().Before("gorm:create").Register("test:reject_chunks", func(tx *gorm.DB) {
		if tx.Statement.Table == "chunks" {
			_ = tx.AddError(errors.New("chunk insert rejected"))
		}
	}))

	pd := prepareOne(t, h, connectorDoc(t, func(p *document.ConnectorDocumentParams) {
		p.SourceMarkdown = "rewritten one\n\nrewritten two"
	}))
	h.svc.Index(context.Background(), pd)

	assertPriorChunksKept(t, h, id, prior)
}
