package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"SurfSense/internal/modules/indexing/application/dto/request"
	"SurfSense/internal/modules/indexing/application/dto/respond"
	"SurfSense/internal/modules/indexing/domain/document"
	"SurfSense/pkg/back"
	"SurfSense/pkg/xerr"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubIndexing struct {
	uploadUser string
	uploadReq  request.UploadDocumentRequest
}

func (s *stubIndexing) IndexBatch(ctx context.Context, docs []*document.ConnectorDocument) (*respond.IndexBatchRespond, error) {
	return &respond.IndexBatchRespond{}, nil
}

func (s *stubIndexing) IndexUpload(ctx context.Context, req request.UploadDocumentRequest, userID string) (*respond.DocumentStatusRespond, error) {
	s.uploadReq, s.uploadUser = req, userID
	return &respond.DocumentStatusRespond{ID: 1, Title: req.Filename, Status: "ready", ChunkCount: 2}, nil
}

func (s *stubIndexing) Enqueue(ctx context.Context, req request.IndexBatchRequest, userID string) (*respond.EnqueueRespond, error) {
	return nil, xerr.ErrQueueDisabled
}

func (s *stubIndexing) GetDocument(ctx context.Context, id int64) (*respond.DocumentStatusRespond, error) {
	if id != 1 {
		return nil, xerr.ErrDocumentNotFound
	}
	return &respond.DocumentStatusRespond{ID: 1, Status: "failed", Error: "Rate limit exceeded"}, nil
}

type stubSearch struct{}

func (stubSearch) Search(ctx context.Context, req request.SearchRequest) (*respond.SearchRespond, error) {
	return &respond.SearchRespond{Query: req.Query, Hits: []respond.SearchHit{{DocumentID: 1, ChunkID: 2, Score: 0.8}}}, nil
}

func newRouter(idx *stubIndexing, user string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	g := r.Group("/")
	g.Use(func(c *gin.Context) {
		if user != "" {
			c.Set("uuid", user)
		}
		c.Next()
	})
	NewDocumentHandler(idx, stubSearch{}).RegisterRoutes(g)
	return r
}

func do(t *testing.T, r *gin.Engine, method, path string, body any) back.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp back.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestUploadPassesCurrentUser(t *testing.T) {
	idx := &stubIndexing{}
	resp := do(t, newRouter(idx, "user-1"), http.MethodPost, "/documents/upload", map[string]any{
		"filename": "a.md", "markdown": "# A", "search_space_id": 3,
	})
	assert.Equal(t, xerr.OK, resp.Code)
	assert.Equal(t, "user-1", idx.uploadUser)
	assert.EqualValues(t, 3, idx.uploadReq.SearchSpaceID)
}

func TestUploadRequiresUser(t *testing.T) {
	resp := do(t, newRouter(&stubIndexing{}, ""), http.MethodPost, "/documents/upload", map[string]any{
		"filename": "a.md", "markdown": "# A", "search_space_id": 3,
	})
	assert.Equal(t, xerr.Unauthorized, resp.Code)
}

func TestUploadRejectsMissingFields(t *testing.T) {
	resp := do(t, newRouter(&stubIndexing{}, "u"), http.MethodPost, "/documents/upload", map[string]any{"filename": "a.md"})
	assert.Equal(t, xerr.BadRequest, resp.Code)
}

func TestEnqueueMapsCodeError(t *testing.T) {
	resp := do(t, newRouter(&stubIndexing{}, "u"), http.MethodPost, "/documents/batch", map[string]any{
		"search_space_id": 1, "documents": []map[string]any{{"title": "t"}},
	})
	assert.Equal(t, xerr.ServiceUnavailable, resp.Code)
}

func TestGetDocument(t *testing.T) {
	r := newRouter(&stubIndexing{}, "u")

	resp := do(t, r, http.MethodGet, "/documents/1", nil)
	assert.Equal(t, xerr.OK, resp.Code)
	data := resp.Data.(map[string]any)
	assert.Equal(t, "failed", data["status"])
	assert.Equal(t, "Rate limit exceeded", data["error"])

	assert.Equal(t, xerr.NotFound, do(t, r, http.MethodGet, "/documents/2", nil).Code)
	assert.Equal(t, xerr.BadRequest, do(t, r, http.MethodGet, "/documents/abc", nil).Code)
}

func TestSearch(t *testing.T) {
	resp := do(t, newRouter(&stubIndexing{}, "u"), http.MethodPost, "/search", map[string]any{"search_space_id": 1, "query": "q"})
	assert.Equal(t, xerr.OK, resp.Code)
	hits := resp.Data.(map[string]any)["hits"].([]any)
	assert.Len(t, hits, 1)
}
