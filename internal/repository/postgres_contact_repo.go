package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hitoshi/contactman/internal/model"
)

// 所有者が削除された連絡先のaccount_idはNULLになるため0として読み出す。
const contactColumns = `id, full_name, phone, email, COALESCE(account_id, 0), created_at, updated_at`

// PostgresContactRepo はPostgreSQLを使用した連絡先リポジトリ。
type PostgresContactRepo struct {
	db *sql.DB
}

// NewPostgresContactRepo はPostgresContactRepoを生成する。
func NewPostgresContactRepo(db *sql.DB) *PostgresContactRepo {
	return &PostgresContactRepo{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanContact(row rowScanner) (*model.Contact, error) {
	c := &model.Contact{}
	if err := row.Scan(&c.ID, &c.FullName, &c.Phone, &c.Email, &c.AccountID, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	return c, nil
}

// FindByID は指定IDの連絡先を取得する。見つからない場合はnilを返す。
func (r *PostgresContactRepo) FindByID(ctx context.Context, id int64) (*model.Contact, error) {
	c, err := scanContact(r.db.QueryRowContext(ctx,
		`SELECT `+contactColumns+` FROM contacts WHERE id = $1`,
		id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find contact by ID: %w", err)
	}
	return c, nil
}

// ListByAccountID はアカウントが所有する連絡先をID昇順で返す。
func (r *PostgresContactRepo) ListByAccountID(ctx context.Context, accountID int64) ([]*model.Contact, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+contactColumns+` FROM contacts WHERE account_id = $1 ORDER BY id`,
		accountID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list contacts: %w", err)
	}
	defer rows.Close()

	var contacts []*model.Contact
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan contact: %w", err)
		}
		contacts = append(contacts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate contacts: %w", err)
	}
	return contacts, nil
}

// Create は連絡先を作成し、採番されたIDとタイムスタンプを設定する。
func (r *PostgresContactRepo) Create(ctx context.Context, contact *model.Contact) error {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO contacts (full_name, phone, email, account_id)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at, updated_at`,
		contact.FullName, contact.Phone, contact.Email, contact.AccountID,
	).Scan(&contact.ID, &contact.CreatedAt, &contact.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert contact: %w", err)
	}
	return nil
}

// Update は連絡先の全フィールドと所有者を上書き更新する。
func (r *PostgresContactRepo) Update(ctx context.Context, contact *model.Contact) error {
	err := r.db.QueryRowContext(ctx,
		`UPDATE contacts
		 SET full_name = $1, phone = $2, email = $3, account_id = $4, updated_at = now()
		 WHERE id = $5
		 RETURNING updated_at`,
		contact.FullName, contact.Phone, contact.Email, contact.AccountID, contact.ID,
	).Scan(&contact.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.NewContactNotFoundError(contact.ID)
	}
	if err != nil {
		return fmt.Errorf("failed to update contact: %w", err)
	}
	return nil
}

// Delete は指定IDの連絡先を削除する。
func (r *PostgresContactRepo) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM contacts WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete contact: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return model.NewContactNotFoundError(id)
	}
	return nil
}

// compile-time interface check
var _ ContactRepository = (*PostgresContactRepo)(nil)
