package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidSessionToken はCookieのセッショントークンが不正な場合のエラー。
var ErrInvalidSessionToken = errors.New("invalid session token")

// sessionClaims はセッションCookieに格納するJWTクレーム。
type sessionClaims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// SessionTokenSigner はセッションIDをHS256で署名したCookie値に変換する。
// サーバー側のsessionsテーブルと組み合わせて使用し、改ざんされたCookieをDB参照前に拒否する。
type SessionTokenSigner struct {
	key []byte
	now func() time.Time
}

// NewSessionTokenSigner はSECRET_KEYを署名鍵とするSessionTokenSignerを生成する。
func NewSessionTokenSigner(secret string) *SessionTokenSigner {
	return &SessionTokenSigner{
		key: []byte(secret),
		now: time.Now,
	}
}

// Sign はセッションIDと有効期限からCookie値を生成する。
func (s *SessionTokenSigner) Sign(sessionID string, expiresAt time.Time) (string, error) {
	claims := sessionClaims{
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(s.now()),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}
	return token, nil
}

// Parse はCookie値の署名と有効期限を検証し、セッションIDを返す。
func (s *SessionTokenSigner) Parse(token string) (string, error) {
	claims := &sessionClaims{}
	_, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (any, error) { return s.key, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidSessionToken, err)
	}
	if claims.SessionID == "" {
		return "", fmt.Errorf("%w: missing sid", ErrInvalidSessionToken)
	}
	return claims.SessionID, nil
}
