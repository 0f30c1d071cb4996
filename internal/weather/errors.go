package weather

import (
	"errors"
	"fmt"
)

// ErrConfiguration はAPIキーが未設定の場合のエラー。再デプロイまで解消しない。
var ErrConfiguration = errors.New("weather api key is not configured")

// ErrUpstreamData はプロバイダーのレスポンスに必須ブロックがない場合のエラー。
// 呼び出し元では「見つからない」と同等に扱う。
var ErrUpstreamData = errors.New("weather api returned unexpected data")

// UpstreamError は通信エラーまたは非2xxステータスを表す。
// StatusCodeは通信エラーやサーキットブレーカー遮断時には0になる。
type UpstreamError struct {
	Endpoint   string
	StatusCode int
	Err        error

	// callerAborted は呼び出し元のコンテキストがキャンセルまたは期限切れになったことを示す。
	callerAborted bool
}

// Error はerrorインターフェースを実装する。
func (e *UpstreamError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("weather api %s returned status %d", e.Endpoint, e.StatusCode)
	}
	return fmt.Sprintf("weather api %s request failed: %v", e.Endpoint, e.Err)
}

// Unwrap は元のエラーを返す。
func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// isClientStatus はステータスが4xxかどうかを返す。
// 4xxは都市名の誤りなど入力起因のため、サーキットブレーカーの失敗に数えない。
func (e *UpstreamError) isClientStatus() bool {
	return e.StatusCode >= 400 && e.StatusCode < 500
}

// notProviderFault はプロバイダー側の障害ではないエラーかどうかを返す。
// 4xxと呼び出し元の中断はサーキットブレーカーの失敗に数えない。
func (e *UpstreamError) notProviderFault() bool {
	return e.isClientStatus() || e.callerAborted
}
