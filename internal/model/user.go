// Package model はドメインモデルを定義する。
package model

import "time"

// ロール名
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User はサービス利用ユーザーを表す。
// PasswordHashはbcryptハッシュで、レスポンスには含めない。
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Roles        []string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// HasRole はユーザーが指定ロールを持つかを返す。
func (u *User) HasRole(role string) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// Session は発行済みアクセストークンを表す。
// IDはJWTのjtiとして埋め込まれ、ログアウト時に行ごと削除される。
type Session struct {
	ID        string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// UserFilter はユーザー一覧の絞り込み条件。
type UserFilter struct {
	Search string // name または email の部分一致
}
