package pipeline

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"SurfSense/internal/modules/indexing/domain/capability"
	"SurfSense/internal/modules/indexing/domain/document"
	"SurfSense/internal/modules/indexing/domain/repository"
	"SurfSense/internal/modules/indexing/infrastructure/persistence"
	"SurfSense/internal/modules/indexing/infrastructure/persistence/sqlitetest"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeSummarizer struct {
	mu    sync.Mutex
	calls int
	out   string
	err   error
}

func (f *fakeSummarizer) Summarize(ctx context.Context, sourceMarkdown string, metadata map[string]any) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.out, nil
}

type fakeEmbedder struct {
	err      error
	maxBatch int
	batches  []int
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := f.EmbedMany(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (f *fakeEmbedder) EmbedMany(ctx context.Context, texts []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.batches = append(f.batches, len(texts))
	if f.maxBatch > 0 && len(texts) > f.maxBatch {
		return nil, fmt.Errorf("error, status code: 400, message: batch size %d exceeds %d", len(texts), f.maxBatch)
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = []float32{float32(len(t)), 1, 0}
	}
	return out, nil
}

// paragraphChunker 按空行切分
type paragraphChunker struct {
	calls int
}

func (c *paragraphChunker) Chunk(ctx context.Context, text string) ([]string, error) {
	c.calls++
	out := []string{}
	for _, p := range strings.Split(text, "\n\n") {
		if strings.TrimSpace(p) != "" {
			out = append(out, p)
		}
	}
	return out, nil
}

type chunkerSet struct {
	text *paragraphChunker
	code *paragraphChunker
}

func (s chunkerSet) For(kind document.ContentKind) capability.Chunker {
	if kind == document.ContentKindCode {
		return s.code
	}
	return s.text
}

type recordingIndex struct {
	synced []int64
	err    error
}

func (r *recordingIndex) SyncDocument(ctx context.Context, doc *document.Document, chunks []document.Chunk) error {
	r.synced = append(r.synced, doc.ID)
	return r.err
}

// tickingClock 每次调用前进一秒，保证 updated_at 可比较
type tickingClock struct {
	mu  sync.Mutex
	cur time.Time
}

func (c *tickingClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cur = c.cur.Add(time.Second)
	return c.cur
}

type harness struct {
	db         *gorm.DB
	repo       repository.DocumentRepository
	summarizer *fakeSummarizer
	embedder   *fakeEmbedder
	chunkers   chunkerSet
	index      *recordingIndex
	svc        *IndexingPipelineService
}

func newHarness(t *testing.T, withSummarizer bool) *harness {
	t.Helper()
	db := sqlitetest.Open(t)
	h := &harness{
		db:         db,
		repo:       persistence.NewDocumentRepository(db),
		summarizer: &fakeSummarizer{out: "summary"},
		embedder:   &fakeEmbedder{},
		chunkers:   chunkerSet{text: &paragraphChunker{}, code: &paragraphChunker{}},
		index:      &recordingIndex{},
	}
	clock := &tickingClock{cur: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	opts := []Option{WithClock(clock.Now), WithChunkIndex(h.index)}
	if withSummarizer {
		opts = append(opts, WithSummarizer(h.summarizer))
	}
	svc, err := NewIndexingPipelineService(h.repo, h.embedder, h.chunkers, opts...)
	require.NoError(t, err)
	h.svc = svc
	return h
}

func (h *harness) count(t *testing.T, model any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, h.db.Model(model).Count(&n).Error)
	return n
}

func (h *harness) get(t *testing.T, id int64) *document.Document {
	t.Helper()
	d, err := h.repo.GetByID(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, d)
	return d
}

func connectorDoc(t *testing.T, mutate func(p *document.ConnectorDocumentParams)) *document.ConnectorDocument {
	t.Helper()
	connectorID := int64(5)
	p := document.ConnectorDocumentParams{
		Title:          "Doc",
		SourceMarkdown: "first paragraph\n\nsecond paragraph",
		UniqueID:       "item-1",
		DocumentType:   document.TypeNotionConnector,
		ConnectorID:    &connectorID,
		SearchSpaceID:  1,
		CreatedByID:    "user-1",
		Metadata:       map[string]any{"page": "p1"},
	}
	if mutate != nil {
		mutate(&p)
	}
	d, err := document.NewConnectorDocument(p)
	require.NoError(t, err)
	return d
}
