package service

import (
	"context"
	"strings"
	"sync"
	"testing"

	"SurfSense/internal/modules/indexing/domain/capability"
	"SurfSense/internal/modules/indexing/domain/document"
	"SurfSense/internal/modules/indexing/domain/repository"
	"SurfSense/internal/modules/indexing/infrastructure/mq"
	"SurfSense/internal/modules/indexing/infrastructure/persistence"
	"SurfSense/internal/modules/indexing/infrastructure/persistence/sqlitetest"
	"SurfSense/internal/modules/indexing/infrastructure/pipeline"
	"SurfSense/internal/modules/indexing/infrastructure/vectordb"

	"github.com/stretchr/testify/require"
)

type stubEmbedder struct{}

func (stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return []float32{float32(len(text)), 1}, nil
}

func (e stubEmbedder) EmbedMany(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i], _ = e.Embed(ctx, t)
	}
	return out, nil
}

type lineChunker struct{}

func (lineChunker) Chunk(ctx context.Context, text string) ([]string, error) {
	var out []string
	for _, l := range strings.Split(text, "\n") {
		if strings.TrimSpace(l) != "" {
			out = append(out, l)
		}
	}
	return out, nil
}

type sameChunker struct{ c capability.Chunker }

func (s sameChunker) For(document.ContentKind) capability.Chunker { return s.c }

type capturePublisher struct {
	mu   sync.Mutex
	msgs []mq.Message
	err  error
}

func (p *capturePublisher) Publish(ctx context.Context, msg mq.Message) (mq.PublishResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return mq.PublishResult{}, p.err
	}
	p.msgs = append(p.msgs, msg)
	return mq.PublishResult{Partition: 2, Offset: int64(len(p.msgs))}, nil
}

func (p *capturePublisher) Close() error { return nil }

type stubSearcher struct {
	hits   []vectordb.SearchHit
	gotK   int
	gotSID int64
}

func (s *stubSearcher) Search(ctx context.Context, vector []float32, topK int, searchSpaceID int64) ([]vectordb.SearchHit, error) {
	s.gotK, s.gotSID = topK, searchSpaceID
	return s.hits, nil
}

type fixture struct {
	repo      repository.DocumentRepository
	publisher *capturePublisher
	svc       IndexingService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repo := persistence.NewDocumentRepository(sqlitetest.Open(t))
	p, err := pipeline.NewIndexingPipelineService(repo, stubEmbedder{}, sameChunker{c: lineChunker{}})
	require.NoError(t, err)
	pub := &capturePublisher{}
	return &fixture{repo: repo, publisher: pub, svc: NewIndexingService(p, repo, pub, "surfsense.index.batch")}
}

func notionDoc(t *testing.T, uid, md string) *document.ConnectorDocument {
	t.Helper()
	cid := int64(3)
	d, err := document.NewConnectorDocument(document.ConnectorDocumentParams{
		Title:          "Page " + uid,
		SourceMarkdown: md,
		UniqueID:       uid,
		DocumentType:   document.TypeNotionConnector,
		DisableSummary: true,
		ConnectorID:    &cid,
		SearchSpaceID:  1,
		CreatedByID:    "user-1",
	})
	require.NoError(t, err)
	return d
}
