package mcp

import (
	"context"
	"encoding/json"
	"testing"

	"SurfSense/internal/modules/indexing/application/dto/request"
	"SurfSense/internal/modules/indexing/application/dto/respond"
	"SurfSense/pkg/xerr"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSearcher struct{ got request.SearchRequest }

func (s *stubSearcher) Search(ctx context.Context, req request.SearchRequest) (*respond.SearchRespond, error) {
	s.got = req
	return &respond.SearchRespond{Query: req.Query, Hits: []respond.SearchHit{{DocumentID: 4, ChunkID: 9, Content: "hit"}}}, nil
}

type stubStatus struct{}

func (stubStatus) GetDocument(ctx context.Context, id int64) (*respond.DocumentStatusRespond, error) {
	if id != 4 {
		return nil, xerr.ErrDocumentNotFound
	}
	return &respond.DocumentStatusRespond{ID: 4, Status: "ready", ChunkCount: 3}, nil
}

func call(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, r *mcp.CallToolResult) string {
	t.Helper()
	require.Len(t, r.Content, 1)
	tc, ok := r.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return tc.Text
}

func TestHandleSearch(t *testing.T) {
	s := &stubSearcher{}
	h := &knowledgeToolHandler{search: s, status: stubStatus{}}

	r, err := h.handleSearch(context.Background(), call(map[string]any{"search_space_id": float64(2), "query": "roadmap", "top_k": float64(3)}))
	require.NoError(t, err)
	assert.False(t, r.IsError)
	assert.Equal(t, request.SearchRequest{SearchSpaceID: 2, Query: "roadmap", TopK: 3}, s.got)

	var out respond.SearchRespond
	require.NoError(t, json.Unmarshal([]byte(resultText(t, r)), &out))
	require.Len(t, out.Hits, 1)
	assert.EqualValues(t, 9, out.Hits[0].ChunkID)
}

func TestHandleSearchValidatesArguments(t *testing.T) {
	h := &knowledgeToolHandler{search: &stubSearcher{}}

	r, err := h.handleSearch(context.Background(), call(map[string]any{"query": "q"}))
	require.NoError(t, err)
	assert.True(t, r.IsError)

	r, err = h.handleSearch(context.Background(), call(map[string]any{"search_space_id": float64(1), "query": "  "}))
	require.NoError(t, err)
	assert.True(t, r.IsError)
}

func TestHandleStatus(t *testing.T) {
	h := &knowledgeToolHandler{status: stubStatus{}}

	r, err := h.handleStatus(context.Background(), call(map[string]any{"document_id": "4"}))
	require.NoError(t, err)
	assert.False(t, r.IsError)
	assert.Contains(t, resultText(t, r), `"status":"ready"`)

	r, err = h.handleStatus(context.Background(), call(map[string]any{"document_id": float64(5)}))
	require.NoError(t, err)
	assert.True(t, r.IsError)
	assert.Equal(t, xerr.ErrDocumentNotFound.Message, resultText(t, r))
}
