package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/hitoshi/tenki/internal/metrics"
)

const (
	// DefaultBaseURL はweatherapi.comのAPIベースURL。
	DefaultBaseURL = "https://api.weatherapi.com/v1"
	// maxLoggedBodyBytes はエラーログに含めるレスポンスボディの最大バイト数。
	maxLoggedBodyBytes = 512
	// breakerFailureThreshold はサーキットブレーカーを開く連続失敗回数。
	breakerFailureThreshold = 5
	// breakerOpenTimeout はサーキットブレーカーが開いている時間。
	breakerOpenTimeout = 30 * time.Second
)

// ClientConfig は天気APIクライアントの設定。
type ClientConfig struct {
	// APIKey はweatherapi.comのAPIキー。空の場合は全リクエストが設定エラーになる。
	APIKey string
	// BaseURL はAPIのベースURL（デフォルト: DefaultBaseURL）。
	BaseURL string
}

// Client はweatherapi.comのクライアント。
// 呼び出しごとに1回だけHTTPリクエストを送信し、リトライは行わない。
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	metrics    metrics.MetricsCollector
	apiKey     string
	baseURL    string
	breaker    *gobreaker.CircuitBreaker
	now        func() time.Time // テスト用に差し替え可能
}

// NewClient はClientの新しいインスタンスを生成する。
func NewClient(httpClient *http.Client, logger *slog.Logger, collector metrics.MetricsCollector, cfg ClientConfig) *Client {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if collector == nil {
		collector = metrics.Nop{}
	}

	c := &Client{
		httpClient: httpClient,
		logger:     logger,
		metrics:    collector,
		apiKey:     cfg.APIKey,
		baseURL:    baseURL,
		now:        time.Now,
	}
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "weatherapi",
		Timeout: breakerOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerFailureThreshold
		},
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			if errors.Is(err, context.Canceled) {
				return true
			}
			var upstreamErr *UpstreamError
			return errors.As(err, &upstreamErr) && upstreamErr.notProviderFault()
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("サーキットブレーカーの状態が変化しました",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
		},
	})
	return c
}

// currentResponse はcurrent.jsonのレスポンスのうち使用する部分。
// 欠落したフィールドをnullとして扱うため、すべてポインタで受ける。
type currentResponse struct {
	Location *struct {
		Name      *string `json:"name"`
		LocalTime *string `json:"localtime"`
	} `json:"location"`
	Current *struct {
		TempC     *float64 `json:"temp_c"`
		WindKph   *float64 `json:"wind_kph"`
		Humidity  *float64 `json:"humidity"`
		Condition *struct {
			Text *string `json:"text"`
		} `json:"condition"`
	} `json:"current"`
}

// searchResponseItem はsearch.jsonのレスポンス要素。
type searchResponseItem struct {
	ID      *int64   `json:"id"`
	Name    *string  `json:"name"`
	Region  *string  `json:"region"`
	Country *string  `json:"country"`
	Lat     *float64 `json:"lat"`
	Lon     *float64 `json:"lon"`
}

// FetchCurrent は指定都市の現在の天気を取得し、正規化して返す。
// localeはプロバイダーの言語パラメータとして渡される。
// APIキー未設定時はHTTPリクエストを送らずにErrConfigurationを返す。
func (c *Client) FetchCurrent(ctx context.Context, city, locale string) (*NormalizedWeather, error) {
	if c.apiKey == "" {
		c.logConfigurationError(metrics.EndpointCurrent, slog.String("city", city))
		return nil, ErrConfiguration
	}

	params := url.Values{}
	params.Set("key", c.apiKey)
	params.Set("q", city)
	params.Set("aqi", "no")
	params.Set("lang", locale)

	body, err := c.get(ctx, metrics.EndpointCurrent, "/current.json", params, slog.String("city", city))
	if err != nil {
		return nil, err
	}

	var payload currentResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		c.logDataError(metrics.EndpointCurrent, body, slog.String("city", city), slog.String("error", err.Error()))
		return nil, fmt.Errorf("%w: %v", ErrUpstreamData, err)
	}
	if payload.Location == nil || payload.Current == nil {
		c.logDataError(metrics.EndpointCurrent, body, slog.String("city", city))
		return nil, ErrUpstreamData
	}

	c.metrics.RecordUpstreamRequest(metrics.EndpointCurrent, metrics.ResultSuccess)
	return normalizeCurrent(city, &payload, c.now()), nil
}

// SearchLocations は地名のオートコンプリート候補を取得する。
// プロバイダーが空配列を返した場合は空スライスとnilエラーを返す。
func (c *Client) SearchLocations(ctx context.Context, query string) ([]LocationCandidate, error) {
	if c.apiKey == "" {
		c.logConfigurationError(metrics.EndpointSearch, slog.String("query", query))
		return nil, ErrConfiguration
	}

	params := url.Values{}
	params.Set("key", c.apiKey)
	params.Set("q", query)

	body, err := c.get(ctx, metrics.EndpointSearch, "/search.json", params, slog.String("query", query))
	if err != nil {
		return nil, err
	}

	var items []searchResponseItem
	if err := json.Unmarshal(body, &items); err != nil {
		c.logDataError(metrics.EndpointSearch, body, slog.String("query", query), slog.String("error", err.Error()))
		return nil, fmt.Errorf("%w: %v", ErrUpstreamData, err)
	}

	candidates := make([]LocationCandidate, 0, len(items))
	for _, item := range items {
		candidates = append(candidates, LocationCandidate{
			ID:        item.ID,
			Name:      derefString(item.Name),
			Region:    derefString(item.Region),
			Country:   derefString(item.Country),
			Latitude:  item.Lat,
			Longitude: item.Lon,
		})
	}

	c.metrics.RecordUpstreamRequest(metrics.EndpointSearch, metrics.ResultSuccess)
	return candidates, nil
}

// get はサーキットブレーカー経由でGETリクエストを1回実行し、2xxの場合のみボディを返す。
func (c *Client) get(ctx context.Context, endpoint, path string, params url.Values, attrs ...any) ([]byte, error) {
	reqURL := c.baseURL + path + "?" + params.Encode()

	start := time.Now()
	result, err := c.breaker.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return nil, &UpstreamError{Endpoint: endpoint, Err: err}
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", "Tenki/1.0 Weather Service")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, &UpstreamError{Endpoint: endpoint, Err: err, callerAborted: ctx.Err() != nil}
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, &UpstreamError{
				Endpoint:      endpoint,
				StatusCode:    resp.StatusCode,
				Err:           err,
				callerAborted: ctx.Err() != nil,
			}
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return body, &UpstreamError{
				Endpoint:   endpoint,
				StatusCode: resp.StatusCode,
				Err:        fmt.Errorf("unexpected status %d", resp.StatusCode),
			}
		}
		return body, nil
	})
	c.metrics.RecordUpstreamLatency(endpoint, time.Since(start))

	if err != nil {
		var upstreamErr *UpstreamError
		if !errors.As(err, &upstreamErr) {
			// サーキットブレーカーが開いている場合
			upstreamErr = &UpstreamError{Endpoint: endpoint, Err: err}
		}
		body, _ := result.([]byte)
		logAttrs := append([]any{
			slog.String("endpoint", endpoint),
			slog.Int("http_status", upstreamErr.StatusCode),
			slog.String("error", upstreamErr.Error()),
			slog.String("response_body", truncateBody(body)),
		}, attrs...)
		c.logger.Error("天気APIの呼び出しに失敗しました", logAttrs...)
		c.metrics.RecordUpstreamRequest(endpoint, metrics.ResultUpstreamFail)
		return nil, upstreamErr
	}

	body, _ := result.([]byte)
	return body, nil
}

func (c *Client) logConfigurationError(endpoint string, attrs ...any) {
	c.logger.Error("天気APIキーが設定されていません",
		append([]any{slog.String("endpoint", endpoint)}, attrs...)...,
	)
	c.metrics.RecordUpstreamRequest(endpoint, metrics.ResultConfigError)
}

func (c *Client) logDataError(endpoint string, body []byte, attrs ...any) {
	c.logger.Warn("天気APIのレスポンスに必要なデータが含まれていません",
		append([]any{
			slog.String("endpoint", endpoint),
			slog.String("response_body", truncateBody(body)),
		}, attrs...)...,
	)
	c.metrics.RecordUpstreamRequest(endpoint, metrics.ResultDataError)
}

// normalizeCurrent はプロバイダーのレスポンスをNormalizedWeatherに変換する。
// 都市名がレスポンスにない場合は問い合わせた都市名を使う。
func normalizeCurrent(query string, payload *currentResponse, retrievedAt time.Time) *NormalizedWeather {
	w := &NormalizedWeather{
		City:        query,
		LocalTime:   payload.Location.LocalTime,
		RetrievedAt: retrievedAt.UTC(),
	}
	if name := payload.Location.Name; name != nil && *name != "" {
		w.City = *name
	}

	current := payload.Current
	w.TemperatureCelsius = current.TempC
	w.WindKph = current.WindKph
	w.HumidityPercent = current.Humidity
	if current.Condition != nil {
		w.Condition = current.Condition.Text
	}
	return w
}

func truncateBody(body []byte) string {
	if len(body) > maxLoggedBodyBytes {
		return string(body[:maxLoggedBodyBytes])
	}
	return string(body)
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
