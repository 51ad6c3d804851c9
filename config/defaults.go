package config

import "time"

// DefaultConfig 返回全部配置项的默认值。
// 默认即可运行：SQLite 持久化、进程内会话存储、不依赖 Redis 与外部采集器。
func DefaultConfig() *Config {
	return &Config{
		Server:    DefaultServerConfig(),
		LLM:       DefaultLLMConfig(),
		Chat:      DefaultChatConfig(),
		Workflow:  DefaultWorkflowConfig(),
		Search:    DefaultSearchConfig(),
		Scraper:   DefaultScraperConfig(),
		Redis:     DefaultRedisConfig(),
		Database:  DefaultDatabaseConfig(),
		Log:       DefaultLogConfig(),
		Telemetry: DefaultTelemetryConfig(),
	}
}

// DefaultServerConfig 返回默认服务器配置。
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:            "",
		HTTPPort:        8105,
		MetricsPort:     9105,
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    30 * time.Second,
		ShutdownTimeout: 15 * time.Second,
		RateLimitRPS:    20,
		RateLimitBurst:  40,
	}
}

// DefaultLLMConfig 返回默认提供商配置。
func DefaultLLMConfig() LLMConfig {
	return LLMConfig{
		Provider:   "openai",
		Model:      "gpt-4o",
		Timeout:    2 * time.Minute,
		MaxRetries: 3,
	}
}

// DefaultChatConfig 返回默认对话配置。
func DefaultChatConfig() ChatConfig {
	return ChatConfig{
		Temperature:   0.7,
		ContextBudget: 16000,
		SessionTTL:    2 * time.Hour,
	}
}

// DefaultWorkflowConfig 返回默认工作流配置。
func DefaultWorkflowConfig() WorkflowConfig {
	return WorkflowConfig{
		MaxNodes:    50,
		Temperature: 0.2,
		MaxTokens:   4096,
	}
}

// DefaultSearchConfig 返回默认检索配置。
func DefaultSearchConfig() SearchConfig {
	return SearchConfig{
		MaxResults: 10,
		CacheTTL:   time.Hour,
	}
}

// DefaultScraperConfig 返回默认抓取配置。
func DefaultScraperConfig() ScraperConfig {
	return ScraperConfig{
		Timeout:      20 * time.Second,
		MaxBodyBytes: 2 << 20,
	}
}

// DefaultRedisConfig 返回默认 Redis 配置。Addr 为空表示不启用。
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Addr:         "",
		PoolSize:     10,
		MinIdleConns: 2,
	}
}

// DefaultDatabaseConfig 返回默认数据库配置。
func DefaultDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		Driver:          "sqlite",
		Name:            "metaexpert.db",
		SSLMode:         "disable",
		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,
	}
}

// DefaultLogConfig 返回默认日志配置。
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:        "info",
		Format:       "json",
		OutputPaths:  []string{"stdout"},
		EnableCaller: true,
	}
}

// DefaultTelemetryConfig 返回默认遥测配置。
func DefaultTelemetryConfig() TelemetryConfig {
	return TelemetryConfig{
		Enabled:      false,
		OTLPEndpoint: "localhost:4317",
		ServiceName:  "metaexpert",
		SampleRate:   0.1,
	}
}
