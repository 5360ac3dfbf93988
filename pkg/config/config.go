package config

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
)

// Config 应用配置
type Config struct {
	OpenAI   OpenAIConfig   `yaml:"openai"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Store    StoreConfig    `yaml:"store"`
	Queue    QueueConfig    `yaml:"queue"`
	Server   ServerConfig   `yaml:"server"`
	Client   ClientConfig   `yaml:"client"`
}

// OpenAIConfig OpenAI 配置
type OpenAIConfig struct {
	APIKey string `yaml:"api_key"`
}

// PipelineConfig 处理管线配置
type PipelineConfig struct {
	WorkerPoolSize      int     `yaml:"worker_pool_size"`      // Worker 实例数量
	QuestionConcurrency int     `yaml:"question_concurrency"`  // 每个视频并发出题的片段数
	QuestionsPerSegment int     `yaml:"questions_per_segment"` // 每个片段生成几道题
	SegmentWindow       float64 `yaml:"segment_window"`        // 转录片段合并窗口（秒）
	MaxRetries          int     `yaml:"max_retries"`
}

// StoreConfig 存储配置
type StoreConfig struct {
	Type     string         `yaml:"type"` // memory / redis / postgres / hybrid
	Redis    RedisConfig    `yaml:"redis"`
	Postgres PostgresConfig `yaml:"postgres"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	TTLHours int    `yaml:"ttl_hours"`
}

// PostgresConfig PostgreSQL 配置
type PostgresConfig struct {
	URL string `yaml:"url"`
}

// QueueConfig 队列配置
type QueueConfig struct {
	Type       string         `yaml:"type"` // memory / rabbitmq
	BufferSize int            `yaml:"buffer_size"`
	RabbitMQ   RabbitMQConfig `yaml:"rabbitmq"`
}

// RabbitMQConfig RabbitMQ 配置
type RabbitMQConfig struct {
	URL       string `yaml:"url"`
	QueueName string `yaml:"queue_name"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Port          int   `yaml:"port"`
	MaxUploadSize int64 `yaml:"max_upload_size"`
}

// ClientConfig 同步客户端配置
type ClientConfig struct {
	PollIntervalSeconds int `yaml:"poll_interval_seconds"` // 状态轮询间隔
}

// LoadConfig 加载配置文件
func LoadConfig(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %v", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %v", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("配置验证失败: %v", err)
	}

	return &config, nil
}

// Validate 验证配置并填充默认值
func (c *Config) Validate() error {
	if c.OpenAI.APIKey == "" || c.OpenAI.APIKey == "your-openai-api-key-here" {
		return fmt.Errorf("请在配置文件中设置有效的 OpenAI API Key")
	}

	if c.Pipeline.WorkerPoolSize <= 0 {
		c.Pipeline.WorkerPoolSize = 2
	}

	if c.Pipeline.QuestionConcurrency <= 0 {
		c.Pipeline.QuestionConcurrency = 3
	}

	if c.Pipeline.QuestionsPerSegment <= 0 {
		c.Pipeline.QuestionsPerSegment = 3
	}

	if c.Pipeline.SegmentWindow <= 0 {
		c.Pipeline.SegmentWindow = 60
	}

	if c.Pipeline.MaxRetries <= 0 {
		c.Pipeline.MaxRetries = 3
	}

	if c.Store.Type == "" {
		c.Store.Type = "memory"
	}

	if c.Store.Redis.TTLHours <= 0 {
		c.Store.Redis.TTLHours = 24
	}

	if c.Queue.Type == "" {
		c.Queue.Type = "memory"
	}

	if c.Queue.BufferSize <= 0 {
		c.Queue.BufferSize = 100
	}

	if c.Server.Port <= 0 {
		c.Server.Port = 8080
	}

	if c.Server.MaxUploadSize <= 0 {
		c.Server.MaxUploadSize = 500 * 1024 * 1024 // 500 MB
	}

	if c.Client.PollIntervalSeconds <= 0 {
		c.Client.PollIntervalSeconds = 5
	}

	return nil
}
