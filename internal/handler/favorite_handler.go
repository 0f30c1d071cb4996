package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/tenki/internal/model"
)

// FavoriteServiceInterface はお気に入りハンドラーが必要とするサービスインターフェース。
type FavoriteServiceInterface interface {
	List(ctx context.Context, userID string, page, perPage int) (*model.Page[*model.FavoriteCity], error)
	// Add は登録済みの場合(nil, nil)を返す。
	Add(ctx context.Context, userID, cityName string) (*model.FavoriteCity, error)
	// Remove は削除した場合のみtrueを返す。
	Remove(ctx context.Context, userID, cityName string) (bool, error)
}

type favoriteStoreRequest struct {
	CityName string `json:"city_name" validate:"required,max=255"`
}

// FavoriteHandler はお気に入り都市のHTTPハンドラー。
type FavoriteHandler struct {
	service FavoriteServiceInterface
}

// NewFavoriteHandler はFavoriteHandlerを生成する。
func NewFavoriteHandler(service FavoriteServiceInterface) *FavoriteHandler {
	return &FavoriteHandler{service: service}
}

// List はお気に入りを登録順で返す。
// GET /api/favorites?page=&per_page=
func (h *FavoriteHandler) List(w http.ResponseWriter, r *http.Request) {
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

	writeJSON(w, http.StatusOK, newPaginatedResponse(result, toFavoriteResource))
}

// Store はお気に入りを追加する。
// POST /api/favorites
func (h *FavoriteHandler) Store(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req favoriteStoreRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	if apiErr := validateRequest(req); apiErr != nil {
		writeAPIErrorResponse(w, http.StatusUnprocessableEntity, apiErr)
		return
	}

	fav, err := h.service.Add(r.Context(), userID, req.CityName)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if fav == nil {
		writeAPIErrorResponse(w, http.StatusConflict, model.NewFavoriteExistsError(req.CityName))
		return
	}

	writeJSON(w, http.StatusCreated, dataResponse{Data: toFavoriteResource(fav)})
}

// Destroy はお気に入りを削除する。
// DELETE /api/favorites/{city_name}
func (h *FavoriteHandler) Destroy(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	cityName := pathParam(r, "city_name")
	removed, err := h.service.Remove(r.Context(), userID, cityName)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if !removed {
		writeAPIErrorResponse(w, http.StatusNotFound, model.NewFavoriteNotFoundError(cityName))
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Message: "City removed from favorites."})
}
