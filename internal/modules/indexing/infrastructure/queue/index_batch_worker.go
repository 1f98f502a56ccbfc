package queue

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"net"

	"SurfSense/internal/modules/indexing/application/dto/request"
	"SurfSense/internal/modules/indexing/application/dto/respond"
	"SurfSense/internal/modules/indexing/domain/document"
	"SurfSense/internal/modules/indexing/infrastructure/mq"
	"SurfSense/pkg/zlog"

	"github.com/go-sql-driver/mysql"
	"go.uber.org/zap"
)

// MySQL 锁等待超时与死锁，重试可恢复
const (
	mysqlLockWaitTimeout = 1205
	mysqlDeadlock        = 1213
)

// BatchIndexer 由 application 层 IndexingService 实现
type BatchIndexer interface {
	IndexBatch(ctx context.Context, docs []*document.ConnectorDocument) (*respond.IndexBatchRespond, error)
}

// IndexBatchWorker 消费索引队列。
// 无法解析的消息直接提交；连接类/超时类存储错误返回给消费组等待重新投递，
// 其余存储错误记录后提交，避免一条坏消息卡住整个分区
type IndexBatchWorker struct {
	indexer BatchIndexer
}

func NewIndexBatchWorker(indexer BatchIndexer) *IndexBatchWorker {
	return &IndexBatchWorker{indexer: indexer}
}

func (w *IndexBatchWorker) Handle(ctx context.Context, msg mq.Message) error {
	if w.indexer == nil {
		return errors.New("batch indexer is nil")
	}

	// 1. 解码
	var body request.IndexBatchMessage
	if err := json.Unmarshal(msg.Value, &body); err != nil {
		zlog.Warn("drop undecodable index batch message",
			zap.String("topic", msg.Topic),
			zap.ByteString("key", msg.Key),
			zap.Error(err),
		)
		return nil
	}
	traceID := body.TraceID
	if traceID == "" {
		traceID = msg.Headers["trace_id"]
	}

	// 2. 构造规范化文档，无效条目跳过
	docs := make([]*document.ConnectorDocument, 0, len(body.Documents))
	for i, p := range body.Documents {
		d, err := document.NewConnectorDocument(p)
		if err != nil {
			zlog.Warn("skip invalid connector document", zap.String("trace_id", traceID), zap.Int("index", i), zap.Error(err))
			continue
		}
		docs = append(docs, d)
	}
	if len(docs) == 0 {
		return nil
	}

	// 3. 执行索引
	res, err := w.indexer.IndexBatch(ctx, docs)
	if err != nil {
		if ctx.Err() != nil || isTransient(err) {
			zlog.Error("index batch failed, will redeliver", zap.String("trace_id", traceID), zap.Int("documents", len(docs)), zap.Error(err))
			return err
		}
		zlog.Error("drop index batch on permanent store error",
			zap.String("trace_id", traceID),
			zap.String("topic", msg.Topic),
			zap.ByteString("key", msg.Key),
			zap.Int("documents", len(docs)),
			zap.Error(err),
		)
		return nil
	}
	zlog.Info("index batch done",
		zap.String("trace_id", traceID),
		zap.Int("received", res.Received),
		zap.Int("prepared", res.Prepared),
		zap.Int("ready", res.Ready),
		zap.Int("failed", res.Failed),
		zap.Int("skipped", res.Skipped),
	)
	return nil
}

// isTransient 连接断开、超时、锁冲突视为可重试
func isTransient(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) || errors.Is(err, mysql.ErrInvalidConn) {
		return true
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return true
	}
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == mysqlLockWaitTimeout || me.Number == mysqlDeadlock
	}
	return false
}
