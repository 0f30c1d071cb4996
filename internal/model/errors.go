// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, weather, favorite, user, system
	Action   string // ユーザー向け対処方法
	Fields   map[string][]string
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeUnauthorized       = "UNAUTHORIZED"
	ErrCodeForbidden          = "FORBIDDEN"
	ErrCodeInvalidCredentials = "INVALID_CREDENTIALS"
	ErrCodeValidation         = "VALIDATION_FAILED"
	ErrCodeEmailTaken         = "EMAIL_TAKEN"
	ErrCodeUnknownRole        = "UNKNOWN_ROLE"
	ErrCodeUserNotFound       = "USER_NOT_FOUND"
	ErrCodeSelfDelete         = "ADMIN_SELF_DELETE"
	ErrCodeWeatherNotFound    = "WEATHER_NOT_FOUND"
	ErrCodeLocationsNotFound  = "LOCATIONS_NOT_FOUND"
	ErrCodeFavoriteExists     = "FAVORITE_EXISTS"
	ErrCodeFavoriteNotFound   = "FAVORITE_NOT_FOUND"
	ErrCodeNotAcceptable      = "NOT_ACCEPTABLE"
	ErrCodeRateLimited        = "RATE_LIMIT_EXCEEDED"
	ErrCodeInternal           = "INTERNAL_ERROR"
	ErrCodeInvalidRequest     = "INVALID_REQUEST"
	ErrCodeRouteNotFound      = "ROUTE_NOT_FOUND"
	ErrCodeMethodNotAllowed   = "METHOD_NOT_ALLOWED"
)

// NewUnauthorizedError は未認証エラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "認証が必要です。",
		Category: "auth",
		Action:   "ログインしてください。",
	}
}

// NewForbiddenError は権限不足エラーを生成する。
func NewForbiddenError() *APIError {
	return &APIError{
		Code:     ErrCodeForbidden,
		Message:  "この操作を行う権限がありません。",
		Category: "auth",
		Action:   "管理者に権限の付与を依頼してください。",
	}
}

// NewInvalidCredentialsError はログイン失敗エラーを生成する。
func NewInvalidCredentialsError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCredentials,
		Message:  "メールアドレスまたはパスワードが正しくありません。",
		Category: "auth",
		Action:   "入力内容を確認して再度ログインしてください。",
	}
}

// NewValidationError は入力検証エラーを生成する。
// fieldsにはフィールド名ごとのエラーメッセージを格納する。
func NewValidationError(fields map[string][]string) *APIError {
	return &APIError{
		Code:     ErrCodeValidation,
		Message:  "入力内容が正しくありません。",
		Category: "validation",
		Action:   "エラー内容を確認して再度お試しください。",
		Fields:   fields,
	}
}

// NewEmailTakenError はメールアドレス重複エラーを生成する。
func NewEmailTakenError(email string) *APIError {
	return &APIError{
		Code:     ErrCodeEmailTaken,
		Message:  fmt.Sprintf("このメールアドレスは既に登録されています: %s", email),
		Category: "validation",
		Action:   "別のメールアドレスを指定してください。",
		Fields:   map[string][]string{"email": {"has already been taken"}},
	}
}

// NewUnknownRoleError は存在しないロールが指定された場合のエラーを生成する。
func NewUnknownRoleError(role string) *APIError {
	return &APIError{
		Code:     ErrCodeUnknownRole,
		Message:  fmt.Sprintf("存在しないロールです: %s", role),
		Category: "validation",
		Action:   "ロールには user または admin を指定してください。",
		Fields:   map[string][]string{"roles": {"contains an unknown role"}},
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "ユーザーが見つかりません。",
		Category: "user",
		Action:   "ユーザーIDを確認してください。",
	}
}

// NewSelfDeleteError は管理者が自分自身を削除しようとした場合のエラーを生成する。
func NewSelfDeleteError() *APIError {
	return &APIError{
		Code:     ErrCodeSelfDelete,
		Message:  "管理者は自分自身を削除できません。",
		Category: "user",
		Action:   "別の管理者に削除を依頼してください。",
	}
}

// NewWeatherNotFoundError は天気情報を取得できなかった場合のエラーを生成する。
func NewWeatherNotFoundError(city string) *APIError {
	return &APIError{
		Code:     ErrCodeWeatherNotFound,
		Message:  fmt.Sprintf("指定された都市の天気情報を取得できませんでした: %s", city),
		Category: "weather",
		Action:   "都市名を確認し、しばらく待ってから再度お試しください。",
	}
}

// NewLocationsNotFoundError は地名検索の結果が得られなかった場合のエラーを生成する。
func NewLocationsNotFoundError(query string) *APIError {
	return &APIError{
		Code:     ErrCodeLocationsNotFound,
		Message:  fmt.Sprintf("検索条件に一致する地点が見つかりませんでした: %s", query),
		Category: "weather",
		Action:   "別のキーワードで検索してください。",
	}
}

// NewFavoriteExistsError はお気に入り登録済みエラーを生成する。
func NewFavoriteExistsError(city string) *APIError {
	return &APIError{
		Code:     ErrCodeFavoriteExists,
		Message:  fmt.Sprintf("この都市は既にお気に入りに登録されています: %s", city),
		Category: "favorite",
		Action:   "お気に入り一覧を確認してください。",
	}
}

// NewFavoriteNotFoundError はお気に入りに存在しない都市を削除しようとした場合のエラーを生成する。
func NewFavoriteNotFoundError(city string) *APIError {
	return &APIError{
		Code:     ErrCodeFavoriteNotFound,
		Message:  fmt.Sprintf("この都市はお気に入りに登録されていません: %s", city),
		Category: "favorite",
		Action:   "お気に入り一覧を確認してください。",
	}
}

// NewNotAcceptableError はAcceptヘッダーがJSONを許容しない場合のエラーを生成する。
func NewNotAcceptableError() *APIError {
	return &APIError{
		Code:     ErrCodeNotAcceptable,
		Message:  "Acceptヘッダーには application/json を指定してください。",
		Category: "validation",
		Action:   "Accept: application/json を付与して再度リクエストしてください。",
	}
}

// NewRateLimitError はレート制限超過エラーを生成する。
func NewRateLimitError() *APIError {
	return &APIError{
		Code:     ErrCodeRateLimited,
		Message:  "リクエスト数が上限を超えました。",
		Category: "system",
		Action:   "Retry-Afterヘッダーの秒数だけ待ってから再度お試しください。",
	}
}

// NewInternalError は内部エラーを生成する。詳細はログにのみ記録する。
func NewInternalError() *APIError {
	return &APIError{
		Code:     ErrCodeInternal,
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewInvalidRequestError はリクエストボディを解析できない場合のエラーを生成する。
func NewInvalidRequestError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  "リクエストボディの解析に失敗しました。",
		Category: "validation",
		Action:   "正しいJSON形式でリクエストしてください。",
	}
}

// NewRouteNotFoundError は存在しないエンドポイントへのリクエストのエラーを生成する。
func NewRouteNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeRouteNotFound,
		Message:  "エンドポイントが見つかりません。",
		Category: "system",
		Action:   "URLを確認してください。",
	}
}

// NewMethodNotAllowedError は許可されていないHTTPメソッドのエラーを生成する。
func NewMethodNotAllowedError() *APIError {
	return &APIError{
		Code:     ErrCodeMethodNotAllowed,
		Message:  "このHTTPメソッドは許可されていません。",
		Category: "system",
		Action:   "HTTPメソッドを確認してください。",
	}
}
