package config

import (
	"log"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

type MainConfig struct {
	AppName   string `toml:"appName"`
	Host      string `toml:"host"`
	Port      int    `toml:"port"`
	EnableTLS bool   `toml:"enableTLS"`
}

type MysqlConfig struct {
	Host         string `toml:"host"`
	Port         int    `toml:"port"`
	User         string `toml:"user"`
	Password     string `toml:"password"`
	DatabaseName string `toml:"databaseName"`
}

type LogConfig struct {
	LogPath    string `toml:"logPath"`
	Level      string `toml:"level"`
	MaxSizeMB  int    `toml:"maxSizeMB"`
	MaxBackups int    `toml:"maxBackups"`
	MaxAgeDays int    `toml:"maxAgeDays"`
}

type JwtConfig struct {
	Key         string `toml:"key"`
	ExpireHours int    `toml:"expireHours"`
	Issuer      string `toml:"issuer"`
}

type MilvusConfig struct {
	Address        string `toml:"address"`
	Username       string `toml:"username"`
	Password       string `toml:"password"`
	DBName         string `toml:"dbName"`
	CollectionName string `toml:"collectionName"`
	VectorDim      int    `toml:"vectorDim"`
	MetricType     string `toml:"metricType"`
}

type KafkaConfig struct {
	Brokers         []string `toml:"brokers"`
	ClientID        string   `toml:"clientID"`
	IndexTopic      string   `toml:"indexTopic"`
	ConsumerGroupID string   `toml:"consumerGroupID"`
	Partitions      int32    `toml:"partitions"`
	Replication     int16    `toml:"replication"`
}

type AIEmbeddingConfig struct {
	Provider        string `toml:"provider"`
	APIKey          string `toml:"apiKey"`
	AccessKey       string `toml:"accessKey"`
	SecretKey       string `toml:"secretKey"`
	BaseURL         string `toml:"baseURL"`
	Region          string `toml:"region"`
	Model           string `toml:"model"`
	Dimensions      int    `toml:"dimensions"`
	TimeoutSeconds  int    `toml:"timeoutSeconds"`
	RetryTimes      int    `toml:"retryTimes"`
	User            string `toml:"user"`
	ByAzure         bool   `toml:"byAzure"`
	AzureAPIVersion string `toml:"azureApiVersion"`
}

type AIChatModelConfig struct {
	Provider        string `toml:"provider"`
	APIKey          string `toml:"apiKey"`
	AccessKey       string `toml:"accessKey"`
	SecretKey       string `toml:"secretKey"`
	BaseURL         string `toml:"baseURL"`
	Region          string `toml:"region"`
	Model           string `toml:"model"`
	TimeoutSeconds  int    `toml:"timeoutSeconds"`
	RetryTimes      int    `toml:"retryTimes"`
	ByAzure         bool   `toml:"byAzure"`
	AzureAPIVersion string `toml:"azureApiVersion"`
}

type AIConfig struct {
	Embedding AIEmbeddingConfig `toml:"embedding"`
	ChatModel AIChatModelConfig `toml:"chatModel"`
}

// IndexingConfig 索引流水线参数（切片大小、摘要输入上限）
type IndexingConfig struct {
	ChunkSize        int `toml:"chunkSize"`
	ChunkOverlap     int `toml:"chunkOverlap"`
	CodeChunkSize    int `toml:"codeChunkSize"`
	CodeChunkOverlap int `toml:"codeChunkOverlap"`
	SummaryMaxRunes  int `toml:"summaryMaxRunes"`
	EmbedBatchSize   int `toml:"embedBatchSize"`
}

// MCPConfig 知识库 MCP Server 配置
type MCPConfig struct {
	Enabled bool   `toml:"enabled"`
	Name    string `toml:"name"`
	Version string `toml:"version"`
	Addr    string `toml:"addr"`
}

type Config struct {
	MainConfig     `toml:"mainConfig"`
	MysqlConfig    `toml:"mysqlConfig"`
	JwtConfig      `toml:"jwtConfig"`
	MilvusConfig   `toml:"milvusConfig"`
	KafkaConfig    `toml:"kafkaConfig"`
	AIConfig       `toml:"aiConfig"`
	LogConfig      `toml:"logConfig"`
	IndexingConfig `toml:"indexingConfig"`
	MCPConfig      `toml:"mcpConfig"`
}

const defaultConfigPath = "configs/config_local.toml"

var config *Config

func LoadConfig() error {
	configPath := strings.TrimSpace(os.Getenv("SURFSENSE_CONFIG"))
	if configPath == "" {
		configPath = defaultConfigPath
	}
	if _, err := toml.DecodeFile(configPath, config); err != nil {
		log.Printf("加载配置文件失败: %v, 尝试使用默认设置", err)
		return err
	}
	return nil
}

// Decode 从 TOML 文本解析配置，并补齐默认值（测试与工具使用）
func Decode(data string) (*Config, error) {
	c := new(Config)
	if _, err := toml.Decode(data, c); err != nil {
		return nil, err
	}
	c.applyDefaults()
	return c, nil
}

func GetConfig() *Config {
	if config == nil {
		config = new(Config)
		_ = LoadConfig()
		config.applyDefaults()
	}
	return config
}

func (c *Config) applyDefaults() {
	if c.AppName == "" {
		c.AppName = "surfsense"
	}
	if c.IndexingConfig.ChunkSize <= 0 {
		c.IndexingConfig.ChunkSize = 1000
	}
	if c.IndexingConfig.ChunkOverlap < 0 {
		c.IndexingConfig.ChunkOverlap = 0
	}
	if c.IndexingConfig.CodeChunkSize <= 0 {
		c.IndexingConfig.CodeChunkSize = 1500
	}
	if c.IndexingConfig.SummaryMaxRunes <= 0 {
		c.IndexingConfig.SummaryMaxRunes = 24000
	}
	if c.IndexingConfig.EmbedBatchSize <= 0 {
		c.IndexingConfig.EmbedBatchSize = 64
	}
	if c.MilvusConfig.VectorDim <= 0 {
		c.MilvusConfig.VectorDim = 1024
	}
	if c.KafkaConfig.IndexTopic == "" {
		c.KafkaConfig.IndexTopic = "surfsense.index.batch"
	}
	if c.KafkaConfig.ConsumerGroupID == "" {
		c.KafkaConfig.ConsumerGroupID = "surfsense-indexer"
	}
	if c.MCPConfig.Name == "" {
		c.MCPConfig.Name = "surfsense-knowledge"
	}
	if c.MCPConfig.Version == "" {
		c.MCPConfig.Version = "1.0.0"
	}
}
