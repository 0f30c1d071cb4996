package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/tenki/internal/model"
)

// HistoryServiceInterface は検索履歴ハンドラーが必要とするサービスインターフェース。
type HistoryServiceInterface interface {
	List(ctx context.Context, userID string, page, perPage int) (*model.Page[*model.SearchHistoryEntry], error)
}

// HistoryHandler は検索履歴のHTTPハンドラー。
type HistoryHandler struct {
	service HistoryServiceInterface
}

// NewHistoryHandler はHistoryHandlerを生成する。
func NewHistoryHandler(service HistoryServiceInterface) *HistoryHandler {
	return &HistoryHandler{service: service}
}

// List はログインユーザーの検索履歴を新しい順で返す。
// GET /api/history?page=&per_page=
func (h *HistoryHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	page, perPage := pagingParams(r)
	result, err := h.service.List(r.Context(), userID, page, perPage)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, newPaginatedResponse(result, toHistoryResource))
}
