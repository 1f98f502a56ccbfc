package initial

import (
	"context"
	"fmt"
	"strings"

	"SurfSense/internal/config"
	"SurfSense/internal/modules/indexing/infrastructure/vectordb"

	mclient "github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
)

const (
	defaultMilvusDB         = "surfsense"
	defaultMilvusCollection = "surfsense_chunks"
)

// MilvusTarget 规范化后的库名、集合名与度量方式
type MilvusTarget struct {
	DBName     string
	Collection string
	VectorDim  int
	Metric     entity.MetricType
}

func ResolveMilvusTarget(conf config.MilvusConfig) MilvusTarget {
	t := MilvusTarget{
		DBName:     strings.TrimSpace(conf.DBName),
		Collection: strings.TrimSpace(conf.CollectionName),
		VectorDim:  conf.VectorDim,
	}
	if t.DBName == "" {
		t.DBName = defaultMilvusDB
	}
	if t.Collection == "" {
		t.Collection = defaultMilvusCollection
	}
	if t.VectorDim <= 0 {
		t.VectorDim = 1024
	}
	switch strings.ToUpper(strings.TrimSpace(conf.MetricType)) {
	case "IP":
		t.Metric = entity.IP
	case "L2":
		t.Metric = entity.L2
	default:
		t.Metric = entity.COSINE
	}
	return t
}

// OpenMilvus 地址为空时返回 (nil, nil)，向量检索与镜像同步随之关闭
func OpenMilvus(ctx context.Context, conf config.MilvusConfig) (mclient.Client, MilvusTarget, error) {
	target := ResolveMilvusTarget(conf)
	addr := strings.TrimSpace(conf.Address)
	if addr == "" {
		return nil, target, nil
	}

	// 1) 通过 default 库确保目标库存在
	if err := ensureMilvusDatabase(ctx, conf, target.DBName); err != nil {
		return nil, target, err
	}

	// 2) 连接目标库并确保集合存在
	cli, err := mclient.NewClient(ctx, milvusClientConfig(conf, target.DBName))
	if err != nil {
		return nil, target, err
	}
	if err := ensureChunkCollection(ctx, cli, target); err != nil {
		_ = cli.Close()
		return nil, target, err
	}

	// 3) 加载到内存，失败时首次检索会再次触发
	_ = cli.LoadCollection(ctx, target.Collection, false)
	return cli, target, nil
}

func milvusClientConfig(conf config.MilvusConfig, dbName string) mclient.Config {
	return mclient.Config{
		Address:  strings.TrimSpace(conf.Address),
		Username: strings.TrimSpace(conf.Username),
		Password: strings.TrimSpace(conf.Password),
		DBName:   dbName,
	}
}

func ensureMilvusDatabase(ctx context.Context, conf config.MilvusConfig, dbName string) error {
	cli, err := mclient.NewClient(ctx, milvusClientConfig(conf, "default"))
	if err != nil {
		return err
	}
	defer cli.Close()

	dbs, err := cli.ListDatabases(ctx)
	if err != nil {
		return err
	}
	for _, db := range dbs {
		if db.Name == dbName {
			return nil
		}
	}
	return cli.CreateDatabase(ctx, dbName)
}

func ensureChunkCollection(ctx context.Context, cli mclient.Client, t MilvusTarget) error {
	ok, err := cli.HasCollection(ctx, t.Collection)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}

	if err := cli.CreateCollection(ctx, ChunkCollectionSchema(t), entity.DefaultShardNumber); err != nil {
		return err
	}
	idx, err := entity.NewIndexAUTOINDEX(t.Metric)
	if err != nil {
		return err
	}
	return cli.CreateIndex(ctx, t.Collection, vectordb.FieldVector, idx, false)
}

// ChunkCollectionSchema 切片向量集合：主键为 "c_<chunk_id>"，按 search space 过滤
func ChunkCollectionSchema(t MilvusTarget) *entity.Schema {
	return &entity.Schema{
		CollectionName: t.Collection,
		Description:    "SurfSense document chunk vectors",
		Fields: []*entity.Field{
			{
				Name:       vectordb.FieldID,
				DataType:   entity.FieldTypeVarChar,
				PrimaryKey: true,
				TypeParams: map[string]string{entity.TypeParamMaxLength: "128"},
			},
			{
				Name:       vectordb.FieldVector,
				DataType:   entity.FieldTypeFloatVector,
				TypeParams: map[string]string{entity.TypeParamDim: fmt.Sprintf("%d", t.VectorDim)},
			},
			{Name: vectordb.FieldSearchSpaceID, DataType: entity.FieldTypeInt64},
			{Name: vectordb.FieldDocumentID, DataType: entity.FieldTypeInt64},
			{Name: vectordb.FieldChunkID, DataType: entity.FieldTypeInt64},
			{
				Name:       vectordb.FieldContent,
				DataType:   entity.FieldTypeVarChar,
				TypeParams: map[string]string{entity.TypeParamMaxLength: "4096"},
			},
		},
	}
}
