package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"SurfSense/internal/modules/indexing/application/dto/request"
	"SurfSense/internal/modules/indexing/domain/document"
	"SurfSense/pkg/xerr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndexBatchCountsOutcomes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	docs := []*document.ConnectorDocument{
		notionDoc(t, "a", "alpha\nbeta"),
		notionDoc(t, "b", "gamma"),
	}

	res, err := f.svc.IndexBatch(ctx, docs)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Received)
	assert.Equal(t, 2, res.Prepared)
	assert.Equal(t, 2, res.Ready)
	assert.Equal(t, 0, res.Skipped)
	require.Len(t, res.Documents, 2)
	assert.EqualValues(t, 2, res.Documents[0].ChunkCount)
	assert.Equal(t, "ready", res.Documents[0].Status)

	again, err := f.svc.IndexBatch(ctx, docs)
	require.NoError(t, err)
	assert.Equal(t, 0, again.Prepared)
	assert.Equal(t, 2, again.Skipped)
	assert.Empty(t, again.Documents)
}

func TestIndexUploadReturnsStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req := request.UploadDocumentRequest{Filename: "notes.md", Markdown: "one\ntwo\nthree", ETLService: "MARKDOWN", SearchSpaceID: 1}

	got, err := f.svc.IndexUpload(ctx, req, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "ready", got.Status)
	assert.Equal(t, "notes.md", got.Title)
	assert.EqualValues(t, 3, got.ChunkCount)

	// 内容未变化时返回已有文档
	same, err := f.svc.IndexUpload(ctx, req, "user-1")
	require.NoError(t, err)
	assert.Equal(t, got.ID, same.ID)
	assert.EqualValues(t, 3, same.ChunkCount)
}

func TestIndexUploadRejectsInvalidInput(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.IndexUpload(context.Background(), request.UploadDocumentRequest{Filename: "x.md", Markdown: "  ", SearchSpaceID: 1}, "user-1")

	var ce *xerr.CodeError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, xerr.BadRequest, ce.Code)
}

func TestEnqueuePublishesKeyedMessage(t *testing.T) {
	f := newFixture(t)
	cid := int64(8)
	res, err := f.svc.Enqueue(context.Background(), request.IndexBatchRequest{
		ConnectorID:   &cid,
		SearchSpaceID: 4,
		Documents: []request.IndexBatchItem{
			{Title: "T", SourceMarkdown: "body", UniqueID: "u1", DocumentType: document.TypeSlackConnector},
		},
	}, "user-9")
	require.NoError(t, err)
	assert.NotEmpty(t, res.TraceID)
	assert.Equal(t, 1, res.Documents)

	require.Len(t, f.publisher.msgs, 1)
	m := f.publisher.msgs[0]
	assert.Equal(t, "surfsense.index.batch", m.Topic)
	assert.Equal(t, "8:4", string(m.Key))
	assert.Equal(t, res.TraceID, m.Headers["trace_id"])

	var body request.IndexBatchMessage
	require.NoError(t, json.Unmarshal(m.Value, &body))
	require.Len(t, body.Documents, 1)
	assert.Equal(t, "user-9", body.Documents[0].CreatedByID)
	assert.EqualValues(t, 4, body.Documents[0].SearchSpaceID)
}

func TestEnqueueValidatesBeforePublishing(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Enqueue(context.Background(), request.IndexBatchRequest{
		SearchSpaceID: 4,
		Documents:     []request.IndexBatchItem{{Title: "T", SourceMarkdown: "body", UniqueID: "u1", DocumentType: "BOGUS"}},
	}, "user-9")

	var ce *xerr.CodeError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, xerr.BadRequest, ce.Code)
	assert.ErrorIs(t, err, document.ErrValidation)
	assert.Empty(t, f.publisher.msgs)
}

func TestEnqueueWithoutPublisher(t *testing.T) {
	f := newFixture(t)
	svc := NewIndexingService(nil, f.repo, nil, "")
	_, err := svc.Enqueue(context.Background(), request.IndexBatchRequest{SearchSpaceID: 1}, "u")
	assert.ErrorIs(t, err, xerr.ErrQueueDisabled)
}

func TestGetDocument(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	res, err := f.svc.IndexBatch(ctx, []*document.ConnectorDocument{notionDoc(t, "a", "x\ny")})
	require.NoError(t, err)

	got, err := f.svc.GetDocument(ctx, res.Documents[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "ready", got.Status)
	assert.EqualValues(t, 2, got.ChunkCount)

	_, err = f.svc.GetDocument(ctx, 999)
	assert.ErrorIs(t, err, xerr.ErrDocumentNotFound)
}

func TestPartitionKey(t *testing.T) {
	cid := int64(12)
	assert.Equal(t, "12:3", PartitionKey(&cid, 3))
	assert.Equal(t, "0:3", PartitionKey(nil, 3))
}

