// Package database はデータベース接続とマイグレーション管理を提供する。
package database

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	migratedb "github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var migrationsFS embed.FS

// NewMigrator はマイグレーション実行用のmigrateインスタンスを生成する。
// 既存の接続プールdbを使用し、ドライバごとのマイグレーションファイルを適用対象とする。
//
// PostgreSQLはプールから専有した1接続を使い、Closeでその接続のみを返却する。
// SQLiteはプールそのものを使うため、CloseするとDBも閉じられる。
func NewMigrator(ctx context.Context, db *sql.DB, driver Driver) (*migrate.Migrate, error) {
	source, err := iofs.New(migrationsFS, "migrations/"+string(driver))
	if err != nil {
		return nil, fmt.Errorf("failed to create migration source: %w", err)
	}

	var instance migratedb.Driver
	switch driver {
	case DriverPostgres:
		conn, connErr := db.Conn(ctx)
		if connErr != nil {
			return nil, fmt.Errorf("failed to acquire migration connection: %w", connErr)
		}
		instance, err = postgres.WithConnection(ctx, conn, &postgres.Config{})
		if err != nil {
			conn.Close()
		}
	case DriverSQLite:
		instance, err = sqlite.WithInstance(db, &sqlite.Config{})
	default:
		return nil, fmt.Errorf("unsupported database driver: %q", driver)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, string(driver), instance)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrator: %w", err)
	}

	return m, nil
}

// RunMigrations はすべての未適用マイグレーションを適用する。
// すでに最新の場合はエラーなしで返る。dbは呼び出し後も引き続き使用できる。
func RunMigrations(ctx context.Context, db *sql.DB, driver Driver) error {
	m, err := NewMigrator(ctx, db, driver)
	if err != nil {
		return err
	}
	if driver == DriverPostgres {
		defer m.Close()
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}
