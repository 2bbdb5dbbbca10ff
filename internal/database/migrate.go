// Package database はPostgreSQL接続と埋め込みマイグレーションの管理を提供する。
package database

import (
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// MigrationStatus はマイグレーション適用後のスキーマ状態。
type MigrationStatus struct {
	Version uint
	Dirty   bool
}

// NewMigrator はマイグレーション実行用のmigrateインスタンスを生成する。
func NewMigrator(databaseURL string) (*migrate.Migrate, error) {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to create migration source: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", source, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrator: %w", err)
	}

	return m, nil
}

// RunMigrations はすべての未適用マイグレーションを適用する。
// すでに最新の場合はエラーなしで返る。
func RunMigrations(databaseURL string) error {
	_, err := Migrate(databaseURL)
	return err
}

// Migrate はすべての未適用マイグレーションを適用し、適用後のバージョンを返す。
// dirty状態のスキーマに対しては手動復旧が必要なためエラーを返す。
func Migrate(databaseURL string) (*MigrationStatus, error) {
	m, err := NewMigrator(databaseURL)
	if err != nil {
		return nil, err
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return nil, fmt.Errorf("failed to read migration version: %w", err)
	}
	if dirty {
		return nil, fmt.Errorf("database schema is dirty at version %d", version)
	}

	return &MigrationStatus{Version: version, Dirty: dirty}, nil
}
