package middleware

import (
	"context"
	"mime"
	"net/http"
	"strings"

	"golang.org/x/text/language"

	"github.com/hitoshi/tenki/internal/model"
)

var localeContextKey = contextKey("locale")

// NewLocaleMiddleware はAccept-Languageヘッダーから対応ロケールを選び、
// コンテキストに注入するミドルウェアを返す。
// supportedの先頭をデフォルトとして扱い、一致しない場合はデフォルトを使う。
func NewLocaleMiddleware(supported []string, defaultLocale string) func(next http.Handler) http.Handler {
	tags := make([]language.Tag, 0, len(supported)+1)
	names := make([]string, 0, len(supported)+1)

	// language.NewMatcherは先頭のタグをフォールバックとして返す
	tags = append(tags, language.Make(defaultLocale))
	names = append(names, defaultLocale)
	for _, s := range supported {
		if s == defaultLocale {
			continue
		}
		tags = append(tags, language.Make(s))
		names = append(names, s)
	}
	matcher := language.NewMatcher(tags)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			locale := defaultLocale
			if header := r.Header.Get("Accept-Language"); header != "" {
				_, index, confidence := matcher.Match(parseAcceptLanguage(header)...)
				if confidence != language.No {
					locale = names[index]
				}
			}

			w.Header().Set("Content-Language", locale)
			annotateAccessLog(r.Context(), func(f *accessLogFields) { f.locale = locale })
			ctx := context.WithValue(r.Context(), localeContextKey, locale)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// parseAcceptLanguage はAccept-Languageヘッダーを品質値順のタグに変換する。
// 解析できない場合は空を返し、デフォルトロケールが選ばれる。
func parseAcceptLanguage(header string) []language.Tag {
	tags, _, err := language.ParseAcceptLanguage(header)
	if err != nil {
		return nil
	}
	return tags
}

// LocaleFromContext はリクエストコンテキストからロケールを取得する。
// ロケールミドルウェアを通過していない場合は空文字列を返す。
func LocaleFromContext(ctx context.Context) string {
	locale, _ := ctx.Value(localeContextKey).(string)
	return locale
}

// ContextWithLocale はコンテキストにロケールを注入する。
func ContextWithLocale(ctx context.Context, locale string) context.Context {
	return context.WithValue(ctx, localeContextKey, locale)
}

// NewAcceptJSONMiddleware はAcceptヘッダーがJSONを許容しないリクエストに406を返すミドルウェアを返す。
// Acceptヘッダーが無い場合は許容する。
func NewAcceptJSONMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !acceptsJSON(r.Header.Values("Accept")) {
				WriteErrorResponse(w, http.StatusNotAcceptable, model.NewNotAcceptableError())
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// acceptsJSON はAcceptヘッダーの値にJSONを許容するメディアレンジが含まれるかを返す。
func acceptsJSON(values []string) bool {
	if len(values) == 0 {
		return true
	}
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			mediaType, params, err := mime.ParseMediaType(part)
			if err != nil {
				continue
			}
			if params["q"] == "0" {
				continue
			}
			switch mediaType {
			case "application/json", "application/*", "*/*":
				return true
			}
			if strings.HasSuffix(mediaType, "+json") {
				return true
			}
		}
	}
	return false
}
