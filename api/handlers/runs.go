package handlers

import (
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/BaSui01/metaexpert/storage"
)

// =============================================================================
// 运行历史 Handler
// =============================================================================

// maxRunListLimit 单次查询允许返回的最大条数。
const maxRunListLimit = 100

// RunsHandler 运行历史查询处理器。store 为 nil 时表示未启用持久化。
type RunsHandler struct {
	store  storage.RunStore
	logger *zap.Logger
}

// NewRunsHandler 创建运行历史处理器
func NewRunsHandler(store storage.RunStore, logger *zap.Logger) *RunsHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RunsHandler{store: store, logger: logger}
}

// RunList 运行历史响应体
type RunList struct {
	SessionID string        `json:"session_id"`
	Runs      []storage.Run `json:"runs"`
	Count     int           `json:"count"`
}

// HandleList 处理 GET /api/runs?session_id=<id>&limit=<n>
func (h *RunsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		WriteErrorMessage(w, http.StatusMethodNotAllowed, ErrCodeMethodNotAllowed, "only GET is supported", h.logger)
		return
	}

	if h.store == nil {
		WriteErrorMessage(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "run history is not enabled", h.logger)
		return
	}

	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		WriteErrorMessage(w, http.StatusBadRequest, ErrCodeInvalidRequest, "session_id is required", h.logger)
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			WriteErrorMessage(w, http.StatusBadRequest, ErrCodeInvalidRequest, "limit must be a positive integer", h.logger)
			return
		}
		limit = n
	}
	if limit > maxRunListLimit {
		limit = maxRunListLimit
	}

	runs, err := h.store.ListBySession(r.Context(), sessionID, limit)
	if err != nil {
		h.logger.Error("list runs failed",
			zap.String("session_id", sessionID),
			zap.Error(err),
		)
		WriteErrorMessage(w, http.StatusInternalServerError, ErrCodeInternal, "failed to list runs", h.logger)
		return
	}

	WriteSuccess(w, RunList{
		SessionID: sessionID,
		Runs:      runs,
		Count:     len(runs),
	})
}
