package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Open 按驱动名打开数据库连接。
// sqlite 的 dsn 是文件路径（`:memory:` 表示内存库），其余为各驱动的标准 DSN。
func Open(driver, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case "sqlite", "sqlite3":
		dialector = sqlite.Open(dsn)
	case "postgres", "postgresql":
		dialector = postgres.Open(dsn)
	case "mysql", "mariadb":
		dialector = mysql.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s (supported: sqlite, postgres, mysql)", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}
	return db, nil
}

// GormRunStore 是 RunStore 的 GORM 实现。
type GormRunStore struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewGormRunStore 创建运行历史存储。
func NewGormRunStore(db *gorm.DB, logger *zap.Logger) *GormRunStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GormRunStore{
		db:     db,
		logger: logger.With(zap.String("component", "run_store")),
	}
}

// AutoMigrate 同步 runs 表结构。
func (s *GormRunStore) AutoMigrate() error {
	if err := s.db.AutoMigrate(&Run{}); err != nil {
		return fmt.Errorf("failed to auto migrate runs table: %w", err)
	}
	return nil
}

// Create 写入一条新运行记录。
func (s *GormRunStore) Create(ctx context.Context, run *Run) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.Status == "" {
		run.Status = RunStatusRunning
	}
	if err := s.db.WithContext(ctx).Create(run).Error; err != nil {
		return fmt.Errorf("create run: %w", err)
	}
	s.logger.Debug("run created",
		zap.String("run_id", run.ID),
		zap.String("session_id", run.SessionID))
	return nil
}

// Finish 以结束状态更新运行记录。
func (s *GormRunStore) Finish(ctx context.Context, id string, update RunUpdate) error {
	result := s.db.WithContext(ctx).Model(&Run{}).Where("id = ?", id).Updates(map[string]any{
		"status":            update.Status,
		"report":            update.Report,
		"node_count":        update.NodeCount,
		"prompt_tokens":     update.PromptTokens,
		"completion_tokens": update.CompletionTokens,
	})
	if result.Error != nil {
		return fmt.Errorf("finish run %s: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrRunNotFound
	}
	s.logger.Debug("run finished",
		zap.String("run_id", id),
		zap.String("status", string(update.Status)),
		zap.Int("node_count", update.NodeCount))
	return nil
}

// LatestBySession 返回会话最近一次运行。
func (s *GormRunStore) LatestBySession(ctx context.Context, sessionID string) (*Run, error) {
	var run Run
	err := s.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at DESC").
		First(&run).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("latest run for session %s: %w", sessionID, err)
	}
	return &run, nil
}

// ListBySession 按时间倒序返回会话的运行历史。limit 不大于 0 时取 20。
func (s *GormRunStore) ListBySession(ctx context.Context, sessionID string, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	var runs []Run
	err := s.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at DESC").
		Limit(limit).
		Find(&runs).Error
	if err != nil {
		return nil, fmt.Errorf("list runs for session %s: %w", sessionID, err)
	}
	return runs, nil
}
