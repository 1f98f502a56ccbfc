package pipeline

import (
	"SurfSense/internal/modules/indexing/domain/document"
	"SurfSense/pkg/zlog"

	"go.uber.org/zap"
)

const (
	logDocumentQueued   = "new document queued for indexing"
	logDocumentUpdated  = "document content changed, re-queued for indexing"
	logDocumentRequeued = "failed document re-queued for indexing"
	logTitleUpdated     = "document title updated"
	logDuplicateSkipped = "duplicate content in search space, document skipped"
	logBatchAborted     = "fatal store error, aborting prepare batch"
	logRaceCondition    = "concurrent batch committed first, rolling back batch"

	logIndexStarted  = "document indexing started"
	logIndexSuccess  = "document indexed successfully"
	logMirrorFailed  = "chunk vector mirror failed"
	logPersistFailed = "persist failed status failed"
)

// logContext 每条流水线日志都携带的定位字段
type logContext struct {
	ConnectorID   *int64
	SearchSpaceID int64
	UniqueID      string
	DocID         int64
}

func newLogContext(src *document.ConnectorDocument) logContext {
	if src == nil {
		return logContext{}
	}
	return logContext{ConnectorID: src.ConnectorID, SearchSpaceID: src.SearchSpaceID, UniqueID: src.UniqueID}
}

func (c logContext) withDoc(id int64) logContext {
	c.DocID = id
	return c
}

func (c logContext) fields(extra ...zap.Field) []zap.Field {
	fs := make([]zap.Field, 0, 4+len(extra))
	if c.ConnectorID != nil {
		fs = append(fs, zap.Int64("connector_id", *c.ConnectorID))
	} else {
		fs = append(fs, zap.Skip())
	}
	fs = append(fs, zap.Int64("search_space_id", c.SearchSpaceID), zap.String("unique_id", c.UniqueID))
	if c.DocID > 0 {
		fs = append(fs, zap.Int64("doc_id", c.DocID))
	}
	return append(fs, extra...)
}

func logInfo(msg string, c logContext, extra ...zap.Field) {
	zlog.Info(msg, c.fields(extra...)...)
}

func logWarn(msg string, c logContext, extra ...zap.Field) {
	zlog.Warn(msg, c.fields(extra...)...)
}

func logError(msg string, c logContext, extra ...zap.Field) {
	zlog.Error(msg, c.fields(extra...)...)
}

// logIndexFailure 可重试的模型错误记 warn，其余记 error
func logIndexFailure(c logContext, se *StageError) {
	fields := []zap.Field{
		zap.String("stage", string(se.Stage)),
		zap.String("kind", string(se.Kind)),
		zap.String("error", scrubErrMsg(se.Err.Error())),
	}
	msg := "document indexing failed"
	if se.Kind == KindLLMRetryable {
		logWarn(msg+", will retry on next sync", c, fields...)
		return
	}
	logError(msg, c, fields...)
}
