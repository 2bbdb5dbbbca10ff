// Package repository はデータ永続化のインターフェースとPostgreSQL実装を定義する。
package repository

import (
	"context"
	"time"

	"github.com/hitoshi/contactman/internal/model"
)

// AccountRepository はアカウントデータの永続化インターフェース。
type AccountRepository interface {
	// FindByID は指定IDのアカウントを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id int64) (*model.Account, error)

	// FindByHandle はハンドル（ユーザー名）でアカウントを検索する。見つからない場合はnilを返す。
	FindByHandle(ctx context.Context, handle string) (*model.Account, error)

	// FindByEmail はメールアドレスでアカウントを検索する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.Account, error)

	// Create はアカウントを作成し、採番されたIDとcreated_atをaccountに設定する。
	// handle/emailのユニーク制約違反はHANDLE_TAKEN/EMAIL_TAKENのAppErrorとして返す。
	Create(ctx context.Context, account *model.Account) error
}

// ContactRepository は連絡先データの永続化インターフェース。
type ContactRepository interface {
	// FindByID は指定IDの連絡先を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id int64) (*model.Contact, error)

	// ListByAccountID はアカウントが所有する連絡先をID昇順で返す。
	ListByAccountID(ctx context.Context, accountID int64) ([]*model.Contact, error)

	// Create は連絡先を作成し、採番されたIDとタイムスタンプをcontactに設定する。
	Create(ctx context.Context, contact *model.Contact) error

	// Update は連絡先の全フィールドと所有者を上書き更新する。
	Update(ctx context.Context, contact *model.Contact) error

	// Delete は指定IDの連絡先を削除する。
	Delete(ctx context.Context, id int64) error
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。
	DeleteByID(ctx context.Context, id string) error
	// DeleteByAccountID は指定アカウントの全セッションを削除する。
	DeleteByAccountID(ctx context.Context, accountID int64) error
	// DeleteExpired はbefore時点で期限切れのセッションを削除し、削除件数を返す。
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}
