package handler

import (
	"context"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/tenki/internal/middleware"
	"github.com/hitoshi/tenki/internal/model"
	"github.com/hitoshi/tenki/internal/weather"
)

// ActivityServiceInterface は天気検索と履歴記録をまとめて行うサービスインターフェース。
type ActivityServiceInterface interface {
	// LookupAndRecord は天気を取得できた場合のみ履歴を記録して返す。取得できない場合は(nil, nil)。
	LookupAndRecord(ctx context.Context, userID, city, locale string) (*weather.NormalizedWeather, error)
}

// LocationSearcher は地名候補検索のインターフェース。失敗時はnilを返す。
type LocationSearcher interface {
	SearchLocations(ctx context.Context, query string) []weather.LocationCandidate
}

type weatherShowRequest struct {
	City string `json:"city" validate:"required,max=100"`
}

type weatherSearchRequest struct {
	Query string `json:"q" validate:"required,min=2,max=100"`
}

// WeatherHandler は天気検索のHTTPハンドラー。
type WeatherHandler struct {
	activity ActivityServiceInterface
	searcher LocationSearcher
}

// NewWeatherHandler はWeatherHandlerを生成する。
func NewWeatherHandler(activity ActivityServiceInterface, searcher LocationSearcher) *WeatherHandler {
	return &WeatherHandler{
		activity: activity,
		searcher: searcher,
	}
}

// Show は都市の現在の天気を返し、検索履歴に記録する。
// GET /api/weather/{city}
func (h *WeatherHandler) Show(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	req := weatherShowRequest{City: pathParam(r, "city")}
	if apiErr := validateRequest(req); apiErr != nil {
		writeAPIErrorResponse(w, http.StatusUnprocessableEntity, apiErr)
		return
	}

	locale := middleware.LocaleFromContext(r.Context())
	current, err := h.activity.LookupAndRecord(r.Context(), userID, req.City, locale)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if current == nil {
		writeAPIErrorResponse(w, http.StatusNotFound, model.NewWeatherNotFoundError(req.City))
		return
	}

	writeJSON(w, http.StatusOK, dataResponse{Data: toWeatherResource(current)})
}

// Search は地名候補を返す。
// GET /api/weather/search?q=
func (h *WeatherHandler) Search(w http.ResponseWriter, r *http.Request) {
	req := weatherSearchRequest{Query: r.URL.Query().Get("q")}
	if apiErr := validateRequest(req); apiErr != nil {
		writeAPIErrorResponse(w, http.StatusUnprocessableEntity, apiErr)
		return
	}

	candidates := h.searcher.SearchLocations(r.Context(), req.Query)
	if len(candidates) == 0 {
		writeAPIErrorResponse(w, http.StatusNotFound, model.NewLocationsNotFoundError(req.Query))
		return
	}

	data := make([]locationResource, len(candidates))
	for i, c := range candidates {
		data[i] = toLocationResource(c)
	}
	writeJSON(w, http.StatusOK, dataResponse{Data: data})
}

// pathParam はchiのURLパラメータを返す。
// chiはRawPathが設定されている場合にエスケープされたままの値を渡すため、その場合のみデコードする。
// デコードできない場合は受け取った値をそのまま使う。
func pathParam(r *http.Request, key string) string {
	raw := chi.URLParam(r, key)
	if r.URL.RawPath == "" {
		return raw
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}
