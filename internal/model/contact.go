package model

import "time"

// Contact はアカウントが管理する連絡先を表す。
// AccountIDは所有者のアカウントIDで、所有者が削除された場合は0になる。
type Contact struct {
	ID        int64
	FullName  string
	Phone     string
	Email     string
	AccountID int64
	CreatedAt time.Time
	UpdatedAt time.Time
}
