package main

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/BaSui01/metaexpert/agents"
	"github.com/BaSui01/metaexpert/api/handlers"
	"github.com/BaSui01/metaexpert/config"
	"github.com/BaSui01/metaexpert/intake"
	"github.com/BaSui01/metaexpert/internal/cache"
	"github.com/BaSui01/metaexpert/internal/database"
	"github.com/BaSui01/metaexpert/internal/metrics"
	"github.com/BaSui01/metaexpert/internal/server"
	"github.com/BaSui01/metaexpert/internal/telemetry"
	"github.com/BaSui01/metaexpert/llm"
	llmfactory "github.com/BaSui01/metaexpert/llm/factory"
	"github.com/BaSui01/metaexpert/storage"
	"github.com/BaSui01/metaexpert/tools/scraper"
	"github.com/BaSui01/metaexpert/tools/serper"
	"github.com/BaSui01/metaexpert/tools/tavily"
	"github.com/BaSui01/metaexpert/web"
	"github.com/BaSui01/metaexpert/workflow"
)

// =============================================================================
// Server 结构
// =============================================================================

// Server 是 MetaExpert 的主服务器
type Server struct {
	cfg    *config.Config
	logger *zap.Logger
	otel   *telemetry.Providers

	// 服务器管理器
	httpManager    *server.Manager
	metricsManager *server.Manager

	// 指标收集器
	collector *metrics.Collector

	// 可选外部依赖
	redis    *cache.Manager
	dbPool   *database.PoolManager
	memStore *intake.MemoryStore
	sessions intake.SessionStore
	runStore storage.RunStore

	// 模型与会话服务
	provider llm.Provider
	svc      *intake.Service

	// Handlers
	healthHandler *handlers.HealthHandler
	chatHandler   *handlers.ChatHandler
	runsHandler   *handlers.RunsHandler

	// Rate limiter 生命周期管理
	rateLimiterCancel context.CancelFunc
}

// NewServer 创建新的服务器实例
func NewServer(cfg *config.Config, logger *zap.Logger, otel *telemetry.Providers) *Server {
	return &Server{
		cfg:    cfg,
		logger: logger,
		otel:   otel,
	}
}

// =============================================================================
// 启动流程
// =============================================================================

// Start 启动所有服务
func (s *Server) Start() error {
	// 1. 初始化指标收集器
	s.collector = metrics.NewCollector(metrics.DefaultNamespace)

	// 2. 连接可选的 Redis 与数据库
	if err := s.initInfra(); err != nil {
		return fmt.Errorf("failed to init infrastructure: %w", err)
	}

	// 3. 组装模型、工具、代理团队与会话服务
	if err := s.initService(); err != nil {
		return fmt.Errorf("failed to init service: %w", err)
	}

	// 4. 初始化 Handlers
	s.initHandlers()

	// 5. 启动 HTTP 服务器
	if err := s.startHTTPServer(); err != nil {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	// 6. 启动 Metrics 服务器
	if err := s.startMetricsServer(); err != nil {
		return fmt.Errorf("failed to start metrics server: %w", err)
	}

	s.logger.Info("All servers started",
		zap.Int("http_port", s.cfg.Server.HTTPPort),
		zap.Int("metrics_port", s.cfg.Server.MetricsPort),
		zap.String("llm_provider", s.cfg.LLM.Provider),
		zap.String("llm_model", s.cfg.LLM.Model),
	)
	return nil
}

// =============================================================================
// 初始化方法
// =============================================================================

// initInfra 连接可选外部依赖。Redis 缺席时会话存内存，
// 数据库缺席时不持久化运行历史。
func (s *Server) initInfra() error {
	if s.cfg.Redis.Addr != "" {
		manager, err := cache.NewManager(cache.Config{
			Addr:         s.cfg.Redis.Addr,
			Password:     s.cfg.Redis.Password,
			DB:           s.cfg.Redis.DB,
			DefaultTTL:   s.cfg.Search.CacheTTL,
			PoolSize:     s.cfg.Redis.PoolSize,
			MinIdleConns: s.cfg.Redis.MinIdleConns,
		}, s.logger)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		s.redis = manager
		s.sessions = intake.NewRedisStore(manager, s.cfg.Chat.SessionTTL)
		s.logger.Info("Redis session store enabled", zap.String("addr", s.cfg.Redis.Addr))
	} else {
		s.memStore = intake.NewMemoryStore(s.cfg.Chat.SessionTTL)
		s.sessions = s.memStore
		s.logger.Info("In-memory session store enabled")
	}

	if s.cfg.Database.Driver != "" {
		db, err := storage.Open(s.cfg.Database.Driver, s.cfg.Database.DSN())
		if err != nil {
			return fmt.Errorf("connect database: %w", err)
		}
		pool, err := database.NewPoolManager(db, database.PoolConfig{
			MaxIdleConns:    s.cfg.Database.MaxIdleConns,
			MaxOpenConns:    s.cfg.Database.MaxOpenConns,
			ConnMaxLifetime: s.cfg.Database.ConnMaxLifetime,
		}, s.logger)
		if err != nil {
			return fmt.Errorf("configure database pool: %w", err)
		}
		store := storage.NewGormRunStore(pool.DB(), s.logger)
		if err := store.AutoMigrate(); err != nil {
			return fmt.Errorf("migrate runs table: %w", err)
		}
		s.dbPool = pool
		s.runStore = store
		s.logger.Info("Run history persistence enabled",
			zap.String("driver", s.cfg.Database.Driver))
	} else {
		s.logger.Info("Database not configured, run history disabled")
	}
	return nil
}

// initService 组装 LLM Provider、检索工具、代理团队、研究工作流
// 与需求收集会话服务。
func (s *Server) initService() error {
	base, err := llmfactory.NewProviderFromConfig(s.cfg.LLM.Provider, llmfactory.ProviderConfig{
		APIKey:  s.cfg.LLM.APIKey,
		BaseURL: s.cfg.LLM.BaseURL,
		Model:   s.cfg.LLM.Model,
		Timeout: s.cfg.LLM.Timeout,
	}, s.logger)
	if err != nil {
		return fmt.Errorf("create llm provider: %w", err)
	}

	// 重试与熔断在内层，指标观测在外层：每个逻辑请求记一次
	resilient := llm.NewResilientProvider(base, nil, s.logger)
	observer := llm.Observer(s.collector)
	if s.cfg.Telemetry.Enabled {
		llmMetrics, err := telemetry.NewLLMMetrics()
		if err != nil {
			return fmt.Errorf("register llm otel metrics: %w", err)
		}
		observer = llm.MultiObserver(s.collector, llmMetrics)
	}
	s.provider = llm.NewObservedProvider(resilient, observer, s.logger)

	// 检索缓存：Redis 可用时共享缓存，否则进程内缓存
	var searchCache serper.Cache
	if s.redis != nil {
		searchCache = s.collector.WrapSearchCache("redis", s.redis)
	} else {
		searchCache = s.collector.WrapSearchCache("memory", serper.NewMemoryCache())
	}

	serperClient := serper.NewClient(serper.Config{
		APIKey:   s.cfg.Search.SerperAPIKey,
		Cache:    searchCache,
		CacheTTL: s.cfg.Search.CacheTTL,
	}, s.logger)
	tavilyClient := tavily.NewClient(tavily.Config{
		APIKey:     s.cfg.Search.TavilyAPIKey,
		MaxResults: s.cfg.Search.MaxResults,
	}, s.logger)
	webScraper := scraper.New(scraper.Config{
		Timeout:      s.cfg.Scraper.Timeout,
		MaxBodyBytes: s.cfg.Scraper.MaxBodyBytes,
		UserAgent:    s.cfg.Scraper.UserAgent,
	}, s.logger)

	agentCfg := agents.Config{
		Model:       s.cfg.LLM.Model,
		Temperature: float32(s.cfg.Workflow.Temperature),
		MaxTokens:   s.cfg.Workflow.MaxTokens,
	}
	team := []agents.Agent{
		agents.NewSerperSearch(agentCfg, s.provider, serperClient, s.logger),
		agents.NewSerperShopping(agentCfg, s.provider, serperClient, s.logger),
		agents.NewTavily(agentCfg, s.provider, tavilyClient, s.logger),
		agents.NewWebScraper(agentCfg, s.provider, webScraper, s.logger),
		agents.NewReporter(agents.Config{}, s.logger),
	}
	meta := agents.NewMeta(agentCfg, s.provider, agents.BuildRegistry(team...), s.logger)

	engine, err := workflow.NewEngine(workflow.Config{
		Meta:     meta,
		Team:     team,
		MaxNodes: s.cfg.Workflow.MaxNodes,
		Logger:   s.logger,
	})
	if err != nil {
		return fmt.Errorf("build workflow engine: %w", err)
	}

	svc, err := intake.NewService(intake.Config{
		Provider:      s.provider,
		Model:         s.cfg.LLM.Model,
		Temperature:   float32(s.cfg.Chat.Temperature),
		ContextBudget: s.cfg.Chat.ContextBudget,
		Engine:        engine,
		Store:         s.sessions,
		Runs:          s.runStore,
		Logger:        s.logger,
		ObserveRun:    s.collector.RecordRun,
	})
	if err != nil {
		return fmt.Errorf("build intake service: %w", err)
	}
	s.svc = svc
	return nil
}

// initHandlers 初始化所有 handlers 并注册就绪检查
func (s *Server) initHandlers() {
	s.healthHandler = handlers.NewHealthHandler(Version, s.logger)
	s.healthHandler.RegisterCheck(handlers.NewProviderCheck("llm_provider", s.provider))
	if s.redis != nil {
		s.healthHandler.RegisterCheck(handlers.NewPingCheck("redis", s.redis.Ping))
	}
	if s.dbPool != nil {
		s.healthHandler.RegisterCheck(handlers.NewPingCheck("database", s.dbPool.Ping))
	}

	s.chatHandler = handlers.NewChatHandler(handlers.ChatConfig{
		Service:        s.svc,
		Collector:      s.collector,
		Logger:         s.logger,
		OriginPatterns: s.allowedOrigins(),
	})
	s.runsHandler = handlers.NewRunsHandler(s.runStore, s.logger)

	s.logger.Info("Handlers initialized")
}

func (s *Server) allowedOrigins() []string {
	if s.cfg.Server.AllowedOrigin == "" {
		return nil
	}
	return []string{s.cfg.Server.AllowedOrigin}
}

// =============================================================================
// HTTP 服务器
// =============================================================================

// startHTTPServer 启动 HTTP 服务器
func (s *Server) startHTTPServer() error {
	mux := http.NewServeMux()

	// ========================================
	// 路由
	// ========================================
	mux.Handle("/", web.Handler())
	mux.Handle("/ws", s.chatHandler)
	mux.HandleFunc("/healthz", s.healthHandler.HandleHealthz)
	mux.HandleFunc("/api/health", s.healthHandler.HandleHealth)
	mux.HandleFunc("/api/runs", s.runsHandler.HandleList)

	// ========================================
	// 构建中间件链
	// ========================================
	// 页面、探针与浏览器发起的 WebSocket 免认证
	skipAuthPaths := []string{"/", "/healthz", "/api/health", "/ws"}
	rateLimiterCtx, rateLimiterCancel := context.WithCancel(context.Background())
	s.rateLimiterCancel = rateLimiterCancel

	middlewares := []Middleware{
		Recovery(s.logger),
		RequestID(),
		SecurityHeaders(),
		RequestLogger(s.logger),
		MetricsMiddleware(s.collector),
		OTelTracing(),
		CORS(s.allowedOrigins()),
		RateLimiter(rateLimiterCtx, s.cfg.Server.RateLimitRPS, s.cfg.Server.RateLimitBurst, s.logger),
	}
	if s.cfg.Server.APIKey != "" {
		middlewares = append(middlewares, APIKeyAuth([]string{s.cfg.Server.APIKey}, skipAuthPaths, s.logger))
	}
	if s.cfg.Server.JWTSecret != "" {
		middlewares = append(middlewares, JWTAuth(s.cfg.Server.JWTSecret, skipAuthPaths, s.logger))
	}
	handler := Chain(mux, middlewares...)

	// ========================================
	// 使用 internal/server.Manager
	// ========================================
	serverConfig := server.Config{
		Addr:            fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.HTTPPort),
		ReadTimeout:     s.cfg.Server.ReadTimeout,
		WriteTimeout:    s.cfg.Server.WriteTimeout,
		IdleTimeout:     2 * s.cfg.Server.ReadTimeout,
		MaxHeaderBytes:  1 << 20, // 1 MB
		ShutdownTimeout: s.cfg.Server.ShutdownTimeout,
	}

	s.httpManager = server.NewManager(handler, serverConfig, s.logger)
	if err := s.httpManager.Start(); err != nil {
		return err
	}

	s.logger.Info("HTTP server started", zap.Int("port", s.cfg.Server.HTTPPort))
	return nil
}

// =============================================================================
// Metrics 服务器
// =============================================================================

// startMetricsServer 启动 Metrics 服务器。端口为 0 时不启动。
func (s *Server) startMetricsServer() error {
	if s.cfg.Server.MetricsPort <= 0 {
		s.logger.Info("Metrics server disabled")
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", s.collector.Handler())

	serverConfig := server.Config{
		Addr:            fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.MetricsPort),
		ReadTimeout:     s.cfg.Server.ReadTimeout,
		WriteTimeout:    s.cfg.Server.WriteTimeout,
		ShutdownTimeout: s.cfg.Server.ShutdownTimeout,
	}

	s.metricsManager = server.NewManager(mux, serverConfig, s.logger)
	if err := s.metricsManager.Start(); err != nil {
		return err
	}

	s.logger.Info("Metrics server started", zap.Int("port", s.cfg.Server.MetricsPort))
	return nil
}

// =============================================================================
// 关闭流程
// =============================================================================

// WaitForShutdown 等待关闭信号并优雅关闭
func (s *Server) WaitForShutdown() {
	if s.httpManager != nil {
		s.httpManager.WaitForShutdown()
	}
	s.Shutdown()
}

// Shutdown 优雅关闭所有服务
func (s *Server) Shutdown() {
	s.logger.Info("Starting graceful shutdown...")

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
	defer cancel()

	// 1. 停止 rate limiter 清理 goroutine
	if s.rateLimiterCancel != nil {
		s.rateLimiterCancel()
	}

	// 2. 关闭 HTTP 服务器
	if s.httpManager != nil {
		if err := s.httpManager.Shutdown(ctx); err != nil {
			s.logger.Error("HTTP server shutdown error", zap.Error(err))
		}
	}

	// 3. 关闭 Metrics 服务器
	if s.metricsManager != nil {
		if err := s.metricsManager.Shutdown(ctx); err != nil {
			s.logger.Error("Metrics server shutdown error", zap.Error(err))
		}
	}

	// 4. 释放外部连接
	if s.memStore != nil {
		s.memStore.Close()
	}
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			s.logger.Error("Redis shutdown error", zap.Error(err))
		}
	}
	if s.dbPool != nil {
		if err := s.dbPool.Close(); err != nil {
			s.logger.Error("Database shutdown error", zap.Error(err))
		}
	}

	// 5. 停止遥测
	if err := s.otel.Shutdown(ctx); err != nil {
		s.logger.Error("Telemetry shutdown error", zap.Error(err))
	}

	s.logger.Info("Graceful shutdown completed")
}
