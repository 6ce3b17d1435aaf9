// Пакет config — загрузка и валидация конфигурации Content Module
// из переменных окружения.
package config

import (
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Версия приложения, задаётся при сборке через -ldflags.
var Version = "dev"

// Бэкенды хранения контента.
const (
	StorageBackendPostgres = "postgres"
	StorageBackendMemory   = "memory"
)

// Config содержит все параметры конфигурации Content Module.
type Config struct {
	// --- Сервер ---

	// Порт HTTP-сервера (диапазон 8040-8049)
	Port int
	// Уровень логирования (debug, info, warn, error)
	LogLevel slog.Level
	// Формат логов (json, text)
	LogFormat string
	// Таймауты HTTP-сервера
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	// Таймаут graceful shutdown HTTP-сервера
	ShutdownTimeout time.Duration
	// Разрешённые CORS origins (через запятую)
	CORSAllowedOrigins []string

	// --- Хранилище контента ---

	// Бэкенд хранения: postgres или memory
	StorageBackend string
	// Заполнить пустое хранилище демо-контентом при старте
	SeedDemo bool

	// --- PostgreSQL ---

	DBHost     string
	DBPort     int
	DBName     string
	DBUser     string
	DBPassword string
	// Режим SSL: disable, require, verify-ca, verify-full
	DBSSLMode string
	// Размер пула подключений
	DBMaxConns int
	DBMinConns int
	// Таймаут установки подключения и первого ping
	DBConnectTimeout time.Duration

	// --- Аутентификация (Keycloak) ---

	// Отключить JWT на изменяющих маршрутах (только для разработки)
	AuthDisabled bool
	// URL Keycloak (например, https://keycloak.csc.lan)
	KeycloakURL string
	// Имя realm в Keycloak
	KeycloakRealm string
	// Issuer JWT (авто-вычисляется из KeycloakURL, если не задан)
	JWTIssuer string
	// URL JWKS endpoint (авто-вычисляется из KeycloakURL, если не задан)
	JWTJWKSURL string
	// Таймаут HTTP-клиента JWKS
	JWKSClientTimeout time.Duration
	// Интервал обновления JWKS-ключей
	JWKSRefreshInterval time.Duration
	// Допустимое отклонение времени при проверке JWT
	JWTLeeway time.Duration
	// Таймаут проверки готовности Keycloak
	KeycloakReadinessTimeout time.Duration
	// Путь к CA-сертификату для TLS-соединений с Keycloak (опционально)
	CACertPath string
	// Группы Keycloak, дающие роль admin
	RoleAdminGroups []string
	// Группы Keycloak, дающие роль readonly
	RoleReadonlyGroups []string

	// --- Загрузка файлов ---

	// Директория хранения загруженных файлов
	UploadDir string
	// Максимальный размер загружаемого файла в байтах
	MaxUploadSize int64
	// Публичный базовый URL сервиса (для ссылок на загруженные файлы)
	PublicBaseURL string

	// --- Кэш ---

	// Максимальное количество записей в LRU-кэше контента
	CacheMaxSize int
	// Время жизни записи в кэше
	CacheTTL time.Duration

	// --- Google Drive ---

	// Путь к JSON-ключу сервисного аккаунта Google (опционально)
	DriveCredentialsFile string
	// Таймаут запроса метаданных файла Drive
	DriveLookupTimeout time.Duration

	// --- Мониторинг зависимостей ---

	// Имя группы в метриках topologymetrics
	DephealthGroup string
	// Интервал проверки зависимостей topologymetrics
	DephealthCheckInterval time.Duration
}

// Load загружает конфигурацию из переменных окружения, валидирует
// обязательные поля и возвращает Config или ошибку.
func Load() (*Config, error) {
	cfg := &Config{}
	var err error

	// --- Сервер ---

	// CM_PORT — порт HTTP-сервера (по умолчанию 8040)
	cfg.Port, err = getEnvInt("CM_PORT", 8040)
	if err != nil {
		return nil, fmt.Errorf("CM_PORT: %w", err)
	}
	if cfg.Port < 8040 || cfg.Port > 8049 {
		return nil, fmt.Errorf("CM_PORT: значение %d вне допустимого диапазона 8040-8049", cfg.Port)
	}

	cfg.LogLevel, err = parseLogLevel(getEnvDefault("CM_LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("CM_LOG_LEVEL: %w", err)
	}

	cfg.LogFormat = getEnvDefault("CM_LOG_FORMAT", "json")
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("CM_LOG_FORMAT: недопустимое значение %q, допустимые: json, text", cfg.LogFormat)
	}

	if cfg.ReadTimeout, err = getEnvDuration("CM_HTTP_READ_TIMEOUT", 30*time.Second); err != nil {
		return nil, fmt.Errorf("CM_HTTP_READ_TIMEOUT: %w", err)
	}
	if cfg.WriteTimeout, err = getEnvDuration("CM_HTTP_WRITE_TIMEOUT", 60*time.Second); err != nil {
		return nil, fmt.Errorf("CM_HTTP_WRITE_TIMEOUT: %w", err)
	}
	if cfg.IdleTimeout, err = getEnvDuration("CM_HTTP_IDLE_TIMEOUT", 120*time.Second); err != nil {
		return nil, fmt.Errorf("CM_HTTP_IDLE_TIMEOUT: %w", err)
	}
	if cfg.ShutdownTimeout, err = getEnvDuration("CM_SHUTDOWN_TIMEOUT", 5*time.Second); err != nil {
		return nil, fmt.Errorf("CM_SHUTDOWN_TIMEOUT: %w", err)
	}

	// CM_CORS_ALLOWED_ORIGINS — origins админского клиента (по умолчанию *)
	cfg.CORSAllowedOrigins = parseCSV(getEnvDefault("CM_CORS_ALLOWED_ORIGINS", "*"))

	// --- Хранилище контента ---

	cfg.StorageBackend = getEnvDefault("CM_STORAGE_BACKEND", StorageBackendPostgres)
	if cfg.StorageBackend != StorageBackendPostgres && cfg.StorageBackend != StorageBackendMemory {
		return nil, fmt.Errorf("CM_STORAGE_BACKEND: недопустимое значение %q, допустимые: postgres, memory", cfg.StorageBackend)
	}

	if cfg.SeedDemo, err = getEnvBool("CM_SEED_DEMO", false); err != nil {
		return nil, fmt.Errorf("CM_SEED_DEMO: %w", err)
	}

	// --- PostgreSQL (обязателен только для бэкенда postgres) ---

	if cfg.StorageBackend == StorageBackendPostgres {
		if err := loadDatabase(cfg); err != nil {
			return nil, err
		}
	}

	// --- Аутентификация ---

	if cfg.AuthDisabled, err = getEnvBool("CM_AUTH_DISABLED", false); err != nil {
		return nil, fmt.Errorf("CM_AUTH_DISABLED: %w", err)
	}
	if !cfg.AuthDisabled {
		if err := loadAuth(cfg); err != nil {
			return nil, err
		}
	}

	// --- Загрузка файлов ---

	cfg.UploadDir = getEnvDefault("CM_UPLOAD_DIR", "./data/uploads")

	// CM_MAX_UPLOAD_SIZE — в байтах (по умолчанию 20 MiB)
	cfg.MaxUploadSize, err = getEnvInt64("CM_MAX_UPLOAD_SIZE", 20<<20)
	if err != nil {
		return nil, fmt.Errorf("CM_MAX_UPLOAD_SIZE: %w", err)
	}
	if cfg.MaxUploadSize <= 0 {
		return nil, fmt.Errorf("CM_MAX_UPLOAD_SIZE: значение должно быть положительным, получено %d", cfg.MaxUploadSize)
	}

	cfg.PublicBaseURL = strings.TrimRight(getEnvDefault("CM_PUBLIC_BASE_URL", fmt.Sprintf("http://localhost:%d", cfg.Port)), "/")
	if u, parseErr := url.Parse(cfg.PublicBaseURL); parseErr != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("CM_PUBLIC_BASE_URL: некорректный URL %q", cfg.PublicBaseURL)
	}

	// --- Кэш ---

	cfg.CacheMaxSize, err = getEnvInt("CM_CACHE_MAX_SIZE", 1000)
	if err != nil {
		return nil, fmt.Errorf("CM_CACHE_MAX_SIZE: %w", err)
	}
	if cfg.CacheMaxSize < 1 {
		return nil, fmt.Errorf("CM_CACHE_MAX_SIZE: значение %d меньше 1", cfg.CacheMaxSize)
	}
	if cfg.CacheTTL, err = getEnvDuration("CM_CACHE_TTL", 5*time.Minute); err != nil {
		return nil, fmt.Errorf("CM_CACHE_TTL: %w", err)
	}

	// --- Google Drive ---

	cfg.DriveCredentialsFile = getEnvDefault("CM_DRIVE_CREDENTIALS_FILE", "")
	if cfg.DriveLookupTimeout, err = getEnvDuration("CM_DRIVE_LOOKUP_TIMEOUT", 5*time.Second); err != nil {
		return nil, fmt.Errorf("CM_DRIVE_LOOKUP_TIMEOUT: %w", err)
	}

	// --- Мониторинг зависимостей ---

	cfg.DephealthGroup = getEnvDefault("CM_DEPHEALTH_GROUP", "csc")
	if cfg.DephealthCheckInterval, err = getEnvDuration("CM_DEPHEALTH_CHECK_INTERVAL", 15*time.Second); err != nil {
		return nil, fmt.Errorf("CM_DEPHEALTH_CHECK_INTERVAL: %w", err)
	}

	return cfg, nil
}

// loadDatabase читает параметры подключения к PostgreSQL.
func loadDatabase(cfg *Config) error {
	var err error

	if cfg.DBHost, err = getEnvRequired("CM_DB_HOST"); err != nil {
		return err
	}
	if cfg.DBPort, err = getEnvInt("CM_DB_PORT", 5432); err != nil {
		return fmt.Errorf("CM_DB_PORT: %w", err)
	}
	if cfg.DBName, err = getEnvRequired("CM_DB_NAME"); err != nil {
		return err
	}
	if cfg.DBUser, err = getEnvRequired("CM_DB_USER"); err != nil {
		return err
	}
	if cfg.DBPassword, err = getEnvRequired("CM_DB_PASSWORD"); err != nil {
		return err
	}

	cfg.DBSSLMode = getEnvDefault("CM_DB_SSL_MODE", "disable")
	validSSLModes := map[string]bool{
		"disable": true, "require": true, "verify-ca": true, "verify-full": true,
	}
	if !validSSLModes[cfg.DBSSLMode] {
		return fmt.Errorf("CM_DB_SSL_MODE: недопустимое значение %q, допустимые: disable, require, verify-ca, verify-full", cfg.DBSSLMode)
	}

	if cfg.DBMaxConns, err = getEnvInt("CM_DB_MAX_CONNS", 10); err != nil {
		return fmt.Errorf("CM_DB_MAX_CONNS: %w", err)
	}
	if cfg.DBMinConns, err = getEnvInt("CM_DB_MIN_CONNS", 1); err != nil {
		return fmt.Errorf("CM_DB_MIN_CONNS: %w", err)
	}
	if cfg.DBMaxConns < 1 || cfg.DBMinConns < 0 || cfg.DBMinConns > cfg.DBMaxConns {
		return fmt.Errorf("CM_DB_MIN_CONNS/CM_DB_MAX_CONNS: недопустимый размер пула %d..%d", cfg.DBMinConns, cfg.DBMaxConns)
	}
	if cfg.DBConnectTimeout, err = getEnvDuration("CM_DB_CONNECT_TIMEOUT", 10*time.Second); err != nil {
		return fmt.Errorf("CM_DB_CONNECT_TIMEOUT: %w", err)
	}
	return nil
}

// loadAuth читает параметры Keycloak и JWT.
func loadAuth(cfg *Config) error {
	var err error

	if cfg.KeycloakURL, err = getEnvRequired("CM_KEYCLOAK_URL"); err != nil {
		return err
	}
	cfg.KeycloakURL = strings.TrimRight(cfg.KeycloakURL, "/")
	cfg.KeycloakRealm = getEnvDefault("CM_KEYCLOAK_REALM", "csc")

	cfg.JWTIssuer = getEnvDefault("CM_JWT_ISSUER",
		fmt.Sprintf("%s/realms/%s", cfg.KeycloakURL, cfg.KeycloakRealm))
	cfg.JWTJWKSURL = getEnvDefault("CM_JWT_JWKS_URL",
		fmt.Sprintf("%s/realms/%s/protocol/openid-connect/certs", cfg.KeycloakURL, cfg.KeycloakRealm))

	if cfg.JWKSClientTimeout, err = getEnvDuration("CM_JWKS_CLIENT_TIMEOUT", 10*time.Second); err != nil {
		return fmt.Errorf("CM_JWKS_CLIENT_TIMEOUT: %w", err)
	}
	if cfg.JWKSRefreshInterval, err = getEnvDuration("CM_JWKS_REFRESH_INTERVAL", 15*time.Minute); err != nil {
		return fmt.Errorf("CM_JWKS_REFRESH_INTERVAL: %w", err)
	}
	if cfg.JWTLeeway, err = getEnvDuration("CM_JWT_LEEWAY", 30*time.Second); err != nil {
		return fmt.Errorf("CM_JWT_LEEWAY: %w", err)
	}
	if cfg.KeycloakReadinessTimeout, err = getEnvDuration("CM_KEYCLOAK_READINESS_TIMEOUT", 3*time.Second); err != nil {
		return fmt.Errorf("CM_KEYCLOAK_READINESS_TIMEOUT: %w", err)
	}

	cfg.CACertPath = getEnvDefault("CM_CA_CERT_PATH", "")
	cfg.RoleAdminGroups = parseCSV(getEnvDefault("CM_ROLE_ADMIN_GROUPS", "csc-admins"))
	cfg.RoleReadonlyGroups = parseCSV(getEnvDefault("CM_ROLE_READONLY_GROUPS", "csc-viewers"))
	return nil
}

// DatabaseDSN возвращает URL подключения к PostgreSQL.
// Логин и пароль экранируются, поэтому допускают любые символы.
func (c *Config) DatabaseDSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.DBUser, c.DBPassword),
		Host:     net.JoinHostPort(c.DBHost, strconv.Itoa(c.DBPort)),
		Path:     "/" + c.DBName,
		RawQuery: url.Values{"sslmode": {c.DBSSLMode}}.Encode(),
	}
	return u.String()
}

// DatabaseURL возвращает URL PostgreSQL без пароля (для лейблов метрик).
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s@%s:%d/%s", c.DBUser, c.DBHost, c.DBPort, c.DBName)
}

// SetupLogger настраивает глобальный slog-логгер на основе конфигурации.
func SetupLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// --- Вспомогательные функции ---

// getEnvRequired возвращает значение переменной окружения или ошибку, если она не задана.
func getEnvRequired(key string) (string, error) {
	val := os.Getenv(key)
	if val == "" {
		return "", fmt.Errorf("%s: обязательная переменная окружения не задана", key)
	}
	return val, nil
}

// getEnvDefault возвращает значение переменной окружения или значение по умолчанию.
func getEnvDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

// getEnvInt возвращает целочисленное значение переменной окружения или значение по умолчанию.
func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("некорректное целое число: %q", val)
	}
	return n, nil
}

// getEnvInt64 — то же, что getEnvInt, для размеров в байтах.
func getEnvInt64(key string, defaultVal int64) (int64, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("некорректное целое число: %q", val)
	}
	return n, nil
}

// getEnvBool возвращает логическое значение переменной окружения или значение по умолчанию.
func getEnvBool(key string, defaultVal bool) (bool, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return false, fmt.Errorf("некорректное логическое значение: %q", val)
	}
	return b, nil
}

// getEnvDuration возвращает time.Duration из переменной окружения или значение по умолчанию.
func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("некорректная длительность: %q (используйте формат Go: 30s, 1h, 15m)", val)
	}
	return d, nil
}

// parseLogLevel преобразует строку уровня логирования в slog.Level.
func parseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("недопустимый уровень %q, допустимые: debug, info, warn, error", level)
	}
}

// parseCSV разбирает строку, разделённую запятыми, на срез строк.
// Пробелы вокруг элементов убираются, пустые элементы игнорируются.
func parseCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}
