package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hitoshi/contactman/internal/model"
)

const accountColumns = `id, handle, password_hash, email, created_at`

// PostgresAccountRepo はPostgreSQLを使用したアカウントリポジトリ。
type PostgresAccountRepo struct {
	db *sql.DB
}

// NewPostgresAccountRepo はPostgresAccountRepoを生成する。
func NewPostgresAccountRepo(db *sql.DB) *PostgresAccountRepo {
	return &PostgresAccountRepo{db: db}
}

// FindByID は指定IDのアカウントを取得する。見つからない場合はnilを返す。
func (r *PostgresAccountRepo) FindByID(ctx context.Context, id int64) (*model.Account, error) {
	return r.findOne(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id)
}

// FindByHandle はハンドルでアカウントを検索する。見つからない場合はnilを返す。
func (r *PostgresAccountRepo) FindByHandle(ctx context.Context, handle string) (*model.Account, error) {
	return r.findOne(ctx, `SELECT `+accountColumns+` FROM accounts WHERE handle = $1`, handle)
}

// FindByEmail はメールアドレスでアカウントを検索する。見つからない場合はnilを返す。
func (r *PostgresAccountRepo) FindByEmail(ctx context.Context, email string) (*model.Account, error) {
	return r.findOne(ctx, `SELECT `+accountColumns+` FROM accounts WHERE email = $1`, email)
}

func (r *PostgresAccountRepo) findOne(ctx context.Context, query string, arg any) (*model.Account, error) {
	account := &model.Account{}
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&account.ID, &account.Handle, &account.PasswordHash, &account.Email, &account.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find account: %w", err)
	}
	return account, nil
}

// Create はアカウントを作成し、採番されたIDとcreated_atを設定する。
func (r *PostgresAccountRepo) Create(ctx context.Context, account *model.Account) error {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO accounts (handle, password_hash, email)
		 VALUES ($1, $2, $3)
		 RETURNING id, created_at`,
		account.Handle, account.PasswordHash, account.Email,
	).Scan(&account.ID, &account.CreatedAt)
	if err != nil {
		if translated := translateUniqueViolation(err); translated != err {
			return translated
		}
		return fmt.Errorf("failed to insert account: %w", err)
	}
	return nil
}

// compile-time interface check
var _ AccountRepository = (*PostgresAccountRepo)(nil)
