package handler

import (
	"github.com/hitoshi/tenki/internal/activity"
	"github.com/hitoshi/tenki/internal/auth"
	"github.com/hitoshi/tenki/internal/favorite"
	"github.com/hitoshi/tenki/internal/history"
	"github.com/hitoshi/tenki/internal/middleware"
	"github.com/hitoshi/tenki/internal/user"
	"github.com/hitoshi/tenki/internal/weather"
)

// ドメインサービスはアダプタなしでハンドラーのインターフェースを満たす。

// --- compile-time interface checks ---

var _ AuthServiceInterface = (*auth.Service)(nil)
var _ middleware.TokenAuthenticator = (*auth.Service)(nil)
var _ ActivityServiceInterface = (*activity.Service)(nil)
var _ LocationSearcher = (*weather.Service)(nil)
var _ FavoriteServiceInterface = (*favorite.Service)(nil)
var _ HistoryServiceInterface = (*history.Service)(nil)
var _ UserServiceInterface = (*user.Service)(nil)
