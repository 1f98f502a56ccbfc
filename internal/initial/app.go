package initial

import (
	"context"
	"errors"
	"fmt"

	"SurfSense/internal/config"
	"SurfSense/internal/modules/indexing/application/service"
	"SurfSense/internal/modules/indexing/infrastructure/chunking"
	"SurfSense/internal/modules/indexing/infrastructure/embedding"
	"SurfSense/internal/modules/indexing/infrastructure/llm"
	"SurfSense/internal/modules/indexing/infrastructure/mq"
	"SurfSense/internal/modules/indexing/infrastructure/mq/kafka"
	"SurfSense/internal/modules/indexing/infrastructure/persistence"
	"SurfSense/internal/modules/indexing/infrastructure/pipeline"
	"SurfSense/internal/modules/indexing/infrastructure/queue"
	"SurfSense/internal/modules/indexing/infrastructure/vectordb"
	"SurfSense/pkg/zlog"

	mclient "github.com/milvus-io/milvus-sdk-go/v2/client"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// App 进程内共享的依赖
type App struct {
	Conf   *config.Config
	DB     *gorm.DB
	Milvus mclient.Client

	Publisher   mq.Publisher
	IndexingSvc service.IndexingService
	SearchSvc   service.SearchService
	Worker      *queue.IndexBatchWorker
}

// NewApp 按配置组装：MySQL 必需；Milvus / Kafka / 摘要模型可选
func NewApp(ctx context.Context, conf *config.Config) (*App, error) {
	a := &App{Conf: conf}
	ok := false
	defer func() {
		if !ok {
			a.Close()
		}
	}()

	// 1) 存储
	db, err := OpenGorm(conf.MysqlConfig)
	if err != nil {
		return nil, fmt.Errorf("open mysql: %w", err)
	}
	a.DB = db
	if err := Migrate(db); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	repo := persistence.NewDocumentRepository(db)

	// 2) 向量模型
	inner, meta, err := embedding.NewEmbedderFromConfig(ctx, conf)
	if err != nil {
		return nil, fmt.Errorf("embedder: %w", err)
	}
	embedder := embedding.NewEmbedder(inner, meta.Dim)
	zlog.Info("embedder ready", zap.String("provider", meta.Provider), zap.String("model", meta.Model), zap.Int("dim", meta.Dim))

	opts := []pipeline.Option{pipeline.WithEmbedBatchSize(conf.IndexingConfig.EmbedBatchSize)}

	// 3) 摘要模型（可选）
	cm, cmMeta, err := llm.NewChatModelFromConfig(ctx, conf)
	switch {
	case errors.Is(err, llm.ErrNotConfigured):
		zlog.Warn("chat model not configured, summaries fall back to source text")
	case err != nil:
		return nil, fmt.Errorf("chat model: %w", err)
	default:
		opts = append(opts, pipeline.WithSummarizer(llm.NewSummarizer(cm, conf.IndexingConfig.SummaryMaxRunes)))
		zlog.Info("summarizer ready", zap.String("provider", cmMeta.Provider), zap.String("model", cmMeta.Model))
	}

	// 4) Milvus（可选）：镜像切片向量 + 检索
	var searcher service.VectorSearcher
	cli, target, err := OpenMilvus(ctx, conf.MilvusConfig)
	if err != nil {
		return nil, fmt.Errorf("milvus: %w", err)
	}
	if cli != nil {
		a.Milvus = cli
		if target.VectorDim != meta.Dim {
			return nil, fmt.Errorf("milvus vectorDim %d does not match embedding dim %d", target.VectorDim, meta.Dim)
		}
		store, err := vectordb.NewMilvusStore(cli, target.Collection, target.VectorDim, target.Metric)
		if err != nil {
			return nil, err
		}
		opts = append(opts, pipeline.WithChunkIndex(vectordb.NewChunkVectorMirror(store)))
		searcher = store
	} else {
		zlog.Warn("milvus address empty, vector search disabled")
	}

	// 5) 流水线与应用服务
	p, err := pipeline.NewIndexingPipelineService(repo, embedder, chunking.NewSetFromConfig(conf), opts...)
	if err != nil {
		return nil, err
	}

	// 6) Kafka（可选）
	kc := kafka.FromConfig(conf.KafkaConfig)
	if len(kc.Brokers) > 0 {
		if err := kafka.EnsureTopic(kc, conf.KafkaConfig.IndexTopic, conf.KafkaConfig.Partitions, conf.KafkaConfig.Replication); err != nil {
			return nil, fmt.Errorf("kafka topic: %w", err)
		}
		pub, err := kafka.NewPublisher(kc)
		if err != nil {
			return nil, fmt.Errorf("kafka publisher: %w", err)
		}
		a.Publisher = pub
	} else {
		zlog.Warn("kafka brokers empty, batch enqueue disabled")
	}

	a.IndexingSvc = service.NewIndexingService(p, repo, a.Publisher, conf.KafkaConfig.IndexTopic)
	a.SearchSvc = service.NewSearchService(embedder, searcher, repo)
	a.Worker = queue.NewIndexBatchWorker(a.IndexingSvc)
	ok = true
	return a, nil
}

// NewIndexConsumer 未配置 Kafka 时返回 (nil, nil)
func (a *App) NewIndexConsumer() (mq.Consumer, error) {
	kc := kafka.FromConfig(a.Conf.KafkaConfig)
	if len(kc.Brokers) == 0 {
		return nil, nil
	}
	return kafka.NewConsumer(kc, a.Conf.KafkaConfig.ConsumerGroupID, a.Conf.KafkaConfig.IndexTopic)
}

func (a *App) Close() {
	if a.Publisher != nil {
		if err := a.Publisher.Close(); err != nil {
			zlog.Warn("close kafka publisher failed", zap.Error(err))
		}
	}
	if a.Milvus != nil {
		if err := a.Milvus.Close(); err != nil {
			zlog.Warn("close milvus failed", zap.Error(err))
		}
	}
	if a.DB != nil {
		if sqlDB, err := a.DB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
}
