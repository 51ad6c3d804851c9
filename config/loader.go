package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config 是 MetaExpert 的完整配置。
type Config struct {
	// Server HTTP 服务配置。
	Server ServerConfig `yaml:"server" env:"SERVER"`

	// LLM 聊天模型提供商配置。
	LLM LLMConfig `yaml:"llm" env:"LLM"`

	// Chat 需求收集对话配置。
	Chat ChatConfig `yaml:"chat" env:"CHAT"`

	// Workflow 研究工作流配置。
	Workflow WorkflowConfig `yaml:"workflow" env:"WORKFLOW"`

	// Search 网页/购物检索配置。
	Search SearchConfig `yaml:"search" env:"SEARCH"`

	// Scraper 网页抓取配置。
	Scraper ScraperConfig `yaml:"scraper" env:"SCRAPER"`

	// Redis 缓存与会话存储配置。
	Redis RedisConfig `yaml:"redis" env:"REDIS"`

	// Database 运行历史持久化配置。
	Database DatabaseConfig `yaml:"database" env:"DATABASE"`

	// Log 日志配置。
	Log LogConfig `yaml:"log" env:"LOG"`

	// Telemetry 遥测配置。
	Telemetry TelemetryConfig `yaml:"telemetry" env:"TELEMETRY"`
}

// ServerConfig HTTP 服务配置。
type ServerConfig struct {
	// 监听地址，空值表示所有接口。
	Host string `yaml:"host" env:"HOST"`
	// 聊天服务端口。
	HTTPPort int `yaml:"http_port" env:"HTTP_PORT"`
	// 指标端口，0 表示不单独暴露。
	MetricsPort int `yaml:"metrics_port" env:"METRICS_PORT"`
	// 读取超时。
	ReadTimeout time.Duration `yaml:"read_timeout" env:"READ_TIMEOUT"`
	// 写入超时。WebSocket 连接在握手后被接管，不受此限制。
	WriteTimeout time.Duration `yaml:"write_timeout" env:"WRITE_TIMEOUT"`
	// 优雅关闭超时。
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
	// 每客户端限流速率（请求/秒）。
	RateLimitRPS float64 `yaml:"rate_limit_rps" env:"RATE_LIMIT_RPS"`
	// 限流突发额度。
	RateLimitBurst int `yaml:"rate_limit_burst" env:"RATE_LIMIT_BURST"`
	// CORS 允许的来源，空值不下发 CORS 头。
	AllowedOrigin string `yaml:"allowed_origin" env:"ALLOWED_ORIGIN"`
	// API Key 认证，空值关闭认证。
	APIKey string `yaml:"api_key" env:"API_KEY"`
	// JWT 签名密钥，空值关闭 JWT 认证。
	JWTSecret string `yaml:"jwt_secret" env:"JWT_SECRET"`
}

// LLMConfig 聊天模型提供商配置。
type LLMConfig struct {
	// 提供商名：openai、anthropic、mistral、groq、gemini、ollama、vllm，
	// 或任意配了 base_url 的 OpenAI 兼容服务名。
	Provider string `yaml:"provider" env:"PROVIDER"`
	// 模型名。
	Model string `yaml:"model" env:"MODEL"`
	// API Key，空值时回退到提供商的通用环境变量（如 OPENAI_API_KEY）。
	APIKey string `yaml:"api_key" env:"API_KEY"`
	// 基础 URL，内置提供商可留空。
	BaseURL string `yaml:"base_url" env:"BASE_URL"`
	// 单次请求超时。
	Timeout time.Duration `yaml:"timeout" env:"TIMEOUT"`
	// 最大重试次数。
	MaxRetries int `yaml:"max_retries" env:"MAX_RETRIES"`
}

// ChatConfig 需求收集对话配置。
type ChatConfig struct {
	// 采样温度。
	Temperature float64 `yaml:"temperature" env:"TEMPERATURE"`
	// 提示词 token 预算，超出时丢弃最旧的历史。
	ContextBudget int `yaml:"context_budget" env:"CONTEXT_BUDGET"`
	// 会话过期时间。
	SessionTTL time.Duration `yaml:"session_ttl" env:"SESSION_TTL"`
}

// WorkflowConfig 研究工作流配置。
type WorkflowConfig struct {
	// 单次运行的节点数上限。
	MaxNodes int `yaml:"max_nodes" env:"MAX_NODES"`
	// 工作流 Agent 的采样温度。
	Temperature float64 `yaml:"temperature" env:"TEMPERATURE"`
	// 工作流 Agent 的最大输出 token 数。
	MaxTokens int `yaml:"max_tokens" env:"MAX_TOKENS"`
}

// SearchConfig 检索配置。
type SearchConfig struct {
	// Serper API Key，空值时回退到 SERPER_API_KEY。
	SerperAPIKey string `yaml:"serper_api_key" env:"SERPER_API_KEY"`
	// Tavily API Key，空值时回退到 TAVILY_API_KEY。
	TavilyAPIKey string `yaml:"tavily_api_key" env:"TAVILY_API_KEY"`
	// 每次检索返回的结果数。
	MaxResults int `yaml:"max_results" env:"MAX_RESULTS"`
	// 检索结果缓存时长。
	CacheTTL time.Duration `yaml:"cache_ttl" env:"CACHE_TTL"`
}

// ScraperConfig 网页抓取配置。
type ScraperConfig struct {
	// 单页抓取超时。
	Timeout time.Duration `yaml:"timeout" env:"TIMEOUT"`
	// User-Agent，空值使用内置默认值。
	UserAgent string `yaml:"user_agent" env:"USER_AGENT"`
	// 响应体大小上限（字节）。
	MaxBodyBytes int64 `yaml:"max_body_bytes" env:"MAX_BODY_BYTES"`
}

// RedisConfig Redis 配置。Addr 为空时不使用 Redis，会话退化为进程内存储。
type RedisConfig struct {
	// 地址，如 localhost:6379。
	Addr string `yaml:"addr" env:"ADDR"`
	// 密码。
	Password string `yaml:"password" env:"PASSWORD"`
	// 数据库编号。
	DB int `yaml:"db" env:"DB"`
	// 连接池大小。
	PoolSize int `yaml:"pool_size" env:"POOL_SIZE"`
	// 最小空闲连接数。
	MinIdleConns int `yaml:"min_idle_conns" env:"MIN_IDLE_CONNS"`
}

// DatabaseConfig 数据库配置。Driver 为空时不持久化运行历史。
type DatabaseConfig struct {
	// 驱动：sqlite、postgres、mysql，空值关闭持久化。
	Driver string `yaml:"driver" env:"DRIVER"`
	// 主机。
	Host string `yaml:"host" env:"HOST"`
	// 端口。
	Port int `yaml:"port" env:"PORT"`
	// 用户名。
	User string `yaml:"user" env:"USER"`
	// 密码。
	Password string `yaml:"password" env:"PASSWORD"`
	// 数据库名，sqlite 时为文件路径。
	Name string `yaml:"name" env:"NAME"`
	// SSL 模式（postgres）。
	SSLMode string `yaml:"ssl_mode" env:"SSL_MODE"`
	// 最大打开连接数。
	MaxOpenConns int `yaml:"max_open_conns" env:"MAX_OPEN_CONNS"`
	// 最大空闲连接数。
	MaxIdleConns int `yaml:"max_idle_conns" env:"MAX_IDLE_CONNS"`
	// 连接最大生命周期。
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" env:"CONN_MAX_LIFETIME"`
}

// LogConfig 日志配置。
type LogConfig struct {
	// 级别：debug、info、warn、error。
	Level string `yaml:"level" env:"LEVEL"`
	// 格式：json、console。
	Format string `yaml:"format" env:"FORMAT"`
	// 输出路径。
	OutputPaths []string `yaml:"output_paths" env:"OUTPUT_PATHS"`
	// 是否记录调用位置。
	EnableCaller bool `yaml:"enable_caller" env:"ENABLE_CALLER"`
	// 是否记录堆栈。
	EnableStacktrace bool `yaml:"enable_stacktrace" env:"ENABLE_STACKTRACE"`
}

// TelemetryConfig 遥测配置。
type TelemetryConfig struct {
	// 是否启用。
	Enabled bool `yaml:"enabled" env:"ENABLED"`
	// OTLP gRPC 端点。
	OTLPEndpoint string `yaml:"otlp_endpoint" env:"OTLP_ENDPOINT"`
	// 服务名。
	ServiceName string `yaml:"service_name" env:"SERVICE_NAME"`
	// 采样率。
	SampleRate float64 `yaml:"sample_rate" env:"SAMPLE_RATE"`
}

// Loader 按 默认值 → YAML → .env → 环境变量 的优先级加载配置。
type Loader struct {
	configPath string
	dotenvPath string
	envPrefix  string
	validators []func(*Config) error
}

// NewLoader 创建配置加载器。
func NewLoader() *Loader {
	return &Loader{
		dotenvPath: ".env",
		envPrefix:  "METAEXPERT",
	}
}

// WithConfigPath 设置 YAML 配置文件路径，空值跳过文件加载。
func (l *Loader) WithConfigPath(path string) *Loader {
	l.configPath = path
	return l
}

// WithDotEnv 设置 .env 文件路径，空值跳过。
func (l *Loader) WithDotEnv(path string) *Loader {
	l.dotenvPath = path
	return l
}

// WithEnvPrefix 设置环境变量前缀。
func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// WithValidator 追加自定义校验器。
func (l *Loader) WithValidator(v func(*Config) error) *Loader {
	l.validators = append(l.validators, v)
	return l
}

// Load 加载并校验配置。
func (l *Loader) Load() (*Config, error) {
	cfg := DefaultConfig()

	if l.configPath != "" {
		if err := l.loadFromFile(cfg); err != nil {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	// .env 只补充缺失的环境变量，真实环境变量优先。
	if l.dotenvPath != "" {
		if err := godotenv.Load(l.dotenvPath); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("load dotenv: %w", err)
		}
	}

	if err := l.loadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	applyWellKnownKeys(cfg)

	for _, v := range l.validators {
		if err := v(cfg); err != nil {
			return nil, fmt.Errorf("config validation: %w", err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Load 按默认路径加载配置：可选的 YAML 文件 + 工作目录下的 .env。
func Load(configPath string) (*Config, error) {
	return NewLoader().WithConfigPath(configPath).Load()
}

func (l *Loader) loadFromFile(cfg *Config) error {
	data, err := os.ReadFile(l.configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

func (l *Loader) loadFromEnv(cfg *Config) error {
	return setFieldsFromEnv(reflect.ValueOf(cfg).Elem(), l.envPrefix)
}

// setFieldsFromEnv 按 env tag 递归覆盖结构体字段。
func setFieldsFromEnv(v reflect.Value, prefix string) error {
	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		envTag := t.Field(i).Tag.Get("env")
		if envTag == "" || envTag == "-" {
			continue
		}
		envKey := prefix + "_" + envTag

		if field.Kind() == reflect.Struct {
			if err := setFieldsFromEnv(field, envKey); err != nil {
				return err
			}
			continue
		}

		envValue := os.Getenv(envKey)
		if envValue == "" {
			continue
		}
		if err := setFieldValue(field, envValue); err != nil {
			return fmt.Errorf("set %s: %w", envKey, err)
		}
	}
	return nil
}

func setFieldValue(field reflect.Value, value string) error {
	if !field.CanSet() {
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(value)
			if err != nil {
				return err
			}
			field.SetInt(int64(d))
			return nil
		}
		i, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return err
		}
		field.SetInt(i)

	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		field.SetFloat(f)

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(b)

	case reflect.Slice:
		if field.Type().Elem().Kind() == reflect.String {
			parts := strings.Split(value, ",")
			for i := range parts {
				parts[i] = strings.TrimSpace(parts[i])
			}
			field.Set(reflect.ValueOf(parts))
		}
	}

	return nil
}

// providerKeyEnv 是各内置提供商约定俗成的 API Key 环境变量。
var providerKeyEnv = map[string]string{
	"openai":    "OPENAI_API_KEY",
	"anthropic": "ANTHROPIC_API_KEY",
	"claude":    "ANTHROPIC_API_KEY",
	"mistral":   "MISTRAL_API_KEY",
	"groq":      "GROQ_API_KEY",
	"gemini":    "GEMINI_API_KEY",
	"deepseek":  "DEEPSEEK_API_KEY",
	"qwen":      "DASHSCOPE_API_KEY",
	"kimi":      "MOONSHOT_API_KEY",
	"moonshot":  "MOONSHOT_API_KEY",
}

// applyWellKnownKeys 用无前缀的通用环境变量补齐缺失的 API Key。
func applyWellKnownKeys(cfg *Config) {
	if cfg.LLM.APIKey == "" {
		if envKey, ok := providerKeyEnv[cfg.LLM.Provider]; ok {
			cfg.LLM.APIKey = os.Getenv(envKey)
		}
	}
	if cfg.Search.SerperAPIKey == "" {
		cfg.Search.SerperAPIKey = os.Getenv("SERPER_API_KEY")
	}
	if cfg.Search.TavilyAPIKey == "" {
		cfg.Search.TavilyAPIKey = os.Getenv("TAVILY_API_KEY")
	}
}

// Validate 校验配置，返回聚合后的错误。
func (c *Config) Validate() error {
	var errs []string

	if c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535 {
		errs = append(errs, "invalid HTTP port")
	}
	if c.Server.MetricsPort < 0 || c.Server.MetricsPort > 65535 {
		errs = append(errs, "invalid metrics port")
	}
	if c.LLM.Provider == "" {
		errs = append(errs, "llm provider is required")
	}
	if c.LLM.Model == "" {
		errs = append(errs, "llm model is required")
	}
	if c.Chat.Temperature < 0 || c.Chat.Temperature > 2 {
		errs = append(errs, "chat temperature must be between 0 and 2")
	}
	if c.Chat.ContextBudget <= 0 {
		errs = append(errs, "chat context budget must be positive")
	}
	if c.Workflow.MaxNodes <= 0 {
		errs = append(errs, "workflow max nodes must be positive")
	}
	switch c.Database.Driver {
	case "", "sqlite", "postgres", "mysql":
	default:
		errs = append(errs, fmt.Sprintf("unsupported database driver %q", c.Database.Driver))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors: %s", strings.Join(errs, "; "))
	}
	return nil
}

// DSN 返回数据库连接串，GORM 与迁移工具共用。
func (d *DatabaseConfig) DSN() string {
	switch d.Driver {
	case "postgres":
		return fmt.Sprintf(
			"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
		)
	case "mysql":
		return fmt.Sprintf(
			"%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=true",
			d.User, d.Password, d.Host, d.Port, d.Name,
		)
	case "sqlite":
		return d.Name
	default:
		return ""
	}
}
