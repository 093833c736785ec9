package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	apperrors "github.com/aihub/loganomaly/internal/errors"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix 环境变量前缀，例如 LOGANOMALY_ANOMALY_THRESHOLD
const EnvPrefix = "LOGANOMALY"

// Config 服务配置
type Config struct {
	CollectionName   string            `mapstructure:"collection_name" validate:"required"`
	VectorSize       uint64            `mapstructure:"vector_size" validate:"gt=0"`
	Distance         string            `mapstructure:"distance" validate:"required,oneof=cosine"`
	AnomalyThreshold float32           `mapstructure:"anomaly_threshold" validate:"gte=-1,lte=1"`
	SearchLimit      uint64            `mapstructure:"search_limit" validate:"gte=1"`
	Embedding        EmbeddingConfig   `mapstructure:"embedding"`
	VectorStore      VectorStoreConfig `mapstructure:"vector_store"`
	Baseline         BaselineConfig    `mapstructure:"baseline"`
	Server           ServerConfig      `mapstructure:"server"`
}

// EmbeddingConfig 嵌入服务配置
type EmbeddingConfig struct {
	Provider string        `mapstructure:"provider" validate:"required,oneof=ollama openai"`
	Model    string        `mapstructure:"model" validate:"required"`
	Endpoint string        `mapstructure:"endpoint" validate:"required,url"`
	APIKey   string        `mapstructure:"api_key"`
	Timeout  time.Duration `mapstructure:"timeout" validate:"gte=0"`
}

// VectorStoreConfig 向量库配置
type VectorStoreConfig struct {
	Provider string        `mapstructure:"provider" validate:"required,oneof=qdrant qdrant_rest milvus memory"`
	Endpoint string        `mapstructure:"endpoint" validate:"required"`
	APIKey   string        `mapstructure:"api_key"`
	Username string        `mapstructure:"username"`
	Password string        `mapstructure:"password"`
	Database string        `mapstructure:"database"`
	Timeout  time.Duration `mapstructure:"timeout" validate:"gte=0"`
}

// BaselineConfig 基线初始化配置
type BaselineConfig struct {
	Concurrency int `mapstructure:"concurrency" validate:"gte=1"`
}

// ServerConfig HTTP服务配置
type ServerConfig struct {
	BindAddress     string        `mapstructure:"bind_address" validate:"required,hostname_port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gte=0"`
}

// ConfigLoader 配置加载器
type ConfigLoader struct {
	viper      *viper.Viper
	validator  *validator.Validate
	configFile string
}

// NewConfigLoader 创建配置加载器
func NewConfigLoader() *ConfigLoader {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return &ConfigLoader{
		viper:     v,
		validator: validator.New(),
	}
}

// WithConfigFile 指定配置文件路径，优先于 CONFIG_FILE 环境变量
func (cl *ConfigLoader) WithConfigFile(path string) *ConfigLoader {
	cl.configFile = path
	return cl
}

// Load 从默认值、配置文件和环境变量加载配置
func (cl *ConfigLoader) Load() (*Config, error) {
	cl.setDefaults()
	cl.loadFromEnv()

	configFile := cl.configFile
	if configFile == "" {
		configFile = os.Getenv("CONFIG_FILE")
	}
	if configFile != "" {
		cl.viper.SetConfigFile(configFile)
		if err := cl.viper.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
	}

	var cfg Config
	if err := cl.viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cl.Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate 验证配置
func (cl *ConfigLoader) Validate(cfg *Config) error {
	if err := cl.validator.Struct(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", apperrors.TranslateValidation(err))
	}
	return nil
}

// setDefaults 设置默认值
func (cl *ConfigLoader) setDefaults() {
	for key, value := range Defaults() {
		cl.viper.SetDefault(key, value)
	}
}

// Defaults 返回全部配置项的默认值
func Defaults() map[string]interface{} {
	return map[string]interface{}{
		"collection_name":   "normal_server_logs_axum",
		"vector_size":       1024,
		"distance":          "cosine",
		"anomaly_threshold": 0.70,
		"search_limit":      1,

		"embedding.provider": "ollama",
		"embedding.model":    "bge-m3",
		"embedding.endpoint": "http://localhost:11434/api/embeddings",
		"embedding.api_key":  "",
		"embedding.timeout":  "30s",

		"vector_store.provider": "qdrant",
		"vector_store.endpoint": "http://localhost:6334",
		"vector_store.api_key":  "",
		"vector_store.username": "",
		"vector_store.password": "",
		"vector_store.database": "default",
		"vector_store.timeout":  "10s",

		"baseline.concurrency": 1,

		"server.bind_address":     "127.0.0.1:8080",
		"server.shutdown_timeout": "10s",
	}
}

// loadFromEnv 兼容常见的非前缀环境变量
func (cl *ConfigLoader) loadFromEnv() {
	cl.setFromEnv("server.bind_address", "BIND_ADDRESS")
	cl.setFromEnv("embedding.endpoint", "EMBEDDING_ENDPOINT")
	cl.setFromEnv("embedding.model", "EMBEDDING_MODEL")
	cl.setFromEnv("embedding.api_key", "OPENAI_API_KEY")
	cl.setFromEnv("vector_store.endpoint", "QDRANT_URL")
	cl.setFromEnv("vector_store.api_key", "QDRANT_API_KEY")
}

// setFromEnv 辅助函数：从环境变量设置配置
func (cl *ConfigLoader) setFromEnv(configKey, envKey string) {
	if value := os.Getenv(envKey); value != "" {
		cl.viper.Set(configKey, value)
	}
}
