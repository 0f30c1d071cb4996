package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken はトークンの署名、形式、有効期限のいずれかが不正な場合のエラー。
var ErrInvalidToken = errors.New("invalid access token")

// tokenIssuer はJWTのiss クレームに設定する値。
const tokenIssuer = "tenki"

// Claims はアクセストークンのクレーム。
// SubjectにユーザーID、IDにセッションIDを格納する。
type Claims struct {
	jwt.RegisteredClaims
}

// TokenSigner はHS256でアクセストークンの署名と検証を行う。
type TokenSigner struct {
	secret []byte
}

// NewTokenSigner はTokenSignerを生成する。
func NewTokenSigner(secret string) *TokenSigner {
	return &TokenSigner{secret: []byte(secret)}
}

// Sign はセッションに対応するアクセストークンを発行する。
func (s *TokenSigner) Sign(userID, sessionID string, issuedAt, expiresAt time.Time) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   userID,
			ID:        sessionID,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	})

	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("アクセストークンの署名に失敗しました: %w", err)
	}
	return signed, nil
}

// Parse はアクセストークンを検証し、クレームを返す。
func (s *TokenSigner) Parse(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || claims.Subject == "" || claims.ID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
