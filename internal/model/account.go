// Package model はドメインモデルを定義する。
package model

import "time"

// Account は登録済みのユーザーアカウントを表す。
// PasswordHashはbcryptハッシュであり、平文のパスワードは保持しない。
type Account struct {
	ID           int64
	Handle       string
	PasswordHash string
	Email        string
	CreatedAt    time.Time
}

// Session はアカウントのログインセッションを表す。
type Session struct {
	ID        string
	AccountID int64
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Expired はセッションが指定時刻の時点で期限切れかどうかを返す。
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
