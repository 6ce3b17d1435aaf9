// Пакет database — пул подключений PostgreSQL для репозиториев контента,
// встроенные миграции схемы content_items/uploaded_files и проверка готовности.
package database

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/h4ck3r-coding/csc-portal/content-module/internal/config"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrDirtyMigration — предыдущая миграция прервана, схема в неизвестном состоянии.
// Требуется ручное исправление и migrate force.
var ErrDirtyMigration = errors.New("схема БД в состоянии dirty")

// readinessTables — таблицы, без которых сервис не может обслуживать запросы.
var readinessTables = []string{"content_items", "uploaded_files"}

// poolConfig строит конфигурацию пула из настроек сервиса.
func poolConfig(cfg *config.Config) (*pgxpool.Config, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseDSN())
	if err != nil {
		return nil, fmt.Errorf("ошибка парсинга DSN: %w", err)
	}
	if cfg.DBMaxConns > 0 {
		poolCfg.MaxConns = int32(cfg.DBMaxConns) //nolint:gosec // ограничено валидацией конфигурации
	}
	if cfg.DBMinConns > 0 {
		poolCfg.MinConns = int32(cfg.DBMinConns) //nolint:gosec // ограничено валидацией конфигурации
	}
	if cfg.DBConnectTimeout > 0 {
		poolCfg.ConnConfig.ConnectTimeout = cfg.DBConnectTimeout
	}
	poolCfg.ConnConfig.RuntimeParams["application_name"] = "content-module"
	return poolCfg, nil
}

// Connect создаёт пул подключений и дожидается первого ping
// не дольше DBConnectTimeout.
func Connect(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*pgxpool.Pool, error) {
	poolCfg, err := poolConfig(cfg)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания пула подключений: %w", err)
	}

	pingCtx := ctx
	if cfg.DBConnectTimeout > 0 {
		var cancel context.CancelFunc
		pingCtx, cancel = context.WithTimeout(ctx, cfg.DBConnectTimeout)
		defer cancel()
	}
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ошибка подключения к PostgreSQL %s: %w", cfg.DatabaseURL(), err)
	}

	logger.Info("Подключение к PostgreSQL установлено",
		slog.String("host", cfg.DBHost),
		slog.Int("port", cfg.DBPort),
		slog.String("database", cfg.DBName),
		slog.Int("max_conns", int(poolCfg.MaxConns)),
	)

	return pool, nil
}

// migrationURL — DSN сервиса со схемой драйвера pgx5 для golang-migrate.
func migrationURL(cfg *config.Config) (string, error) {
	u, err := url.Parse(cfg.DatabaseDSN())
	if err != nil {
		return "", fmt.Errorf("ошибка парсинга DSN: %w", err)
	}
	u.Scheme = "pgx5"
	return u.String(), nil
}

// Migrate применяет встроенные миграции схемы контента.
// Схема в состоянии dirty не трогается: возвращается ErrDirtyMigration.
func Migrate(cfg *config.Config, logger *slog.Logger) error {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("ошибка создания источника миграций: %w", err)
	}

	dbURL, err := migrationURL(cfg)
	if err != nil {
		return err
	}

	m, err := migrate.NewWithSourceInstance("iofs", source, dbURL)
	if err != nil {
		return fmt.Errorf("ошибка инициализации миграций: %w", err)
	}
	defer m.Close()

	before, dirty, err := m.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		before = 0
	case err != nil:
		return fmt.Errorf("ошибка чтения версии схемы: %w", err)
	case dirty:
		return fmt.Errorf("%w: версия %d", ErrDirtyMigration, before)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("ошибка применения миграций с версии %d: %w", before, err)
	}

	after, _, err := m.Version()
	if err != nil {
		return fmt.Errorf("ошибка чтения версии схемы: %w", err)
	}
	if after == before {
		logger.Info("Схема БД актуальна", slog.Uint64("version", uint64(after)))
	} else {
		logger.Info("Миграции применены",
			slog.Uint64("from", uint64(before)),
			slog.Uint64("to", uint64(after)),
		)
	}
	return nil
}

// ReadinessChecker — готовность PostgreSQL для /health/ready:
// БД доступна и схема контента создана.
type ReadinessChecker struct {
	pool    *pgxpool.Pool
	timeout time.Duration
}

// NewReadinessChecker создаёт проверку готовности PostgreSQL.
func NewReadinessChecker(pool *pgxpool.Pool) *ReadinessChecker {
	return &ReadinessChecker{pool: pool, timeout: 3 * time.Second}
}

// CheckReady возвращает fail, если БД недоступна или таблицы контента
// не созданы; в сообщении — занятость пула.
func (c *ReadinessChecker) CheckReady() (status string, message string) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	var missing []string
	rows, err := c.pool.Query(ctx,
		`SELECT t FROM unnest($1::text[]) AS t WHERE to_regclass(t) IS NULL`, readinessTables)
	if err != nil {
		return "fail", fmt.Sprintf("PostgreSQL недоступен: %v", err)
	}
	for rows.Next() {
		var table string
		if err := rows.Scan(&table); err != nil {
			rows.Close()
			return "fail", fmt.Sprintf("PostgreSQL: ошибка проверки схемы: %v", err)
		}
		missing = append(missing, table)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return "fail", fmt.Sprintf("PostgreSQL: ошибка проверки схемы: %v", err)
	}
	if len(missing) > 0 {
		return "fail", fmt.Sprintf("схема не применена, нет таблиц: %v", missing)
	}

	stat := c.pool.Stat()
	return "ok", fmt.Sprintf("подключений занято %d из %d", stat.AcquiredConns(), stat.MaxConns())
}
