// drive_inspector.go — получение метаданных файлов Google Drive
// через Drive API v3 от имени сервисного аккаунта.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

// Prometheus-метрики запросов к Drive API.
var driveLookupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "cm_drive_lookups_total",
	Help: "Количество запросов метаданных файлов Google Drive по результату.",
}, []string{"result"})

// DriveInspector — запрос размера файла Google Drive.
// Используется только для обогащения вложения, ссылки строятся без API.
type DriveInspector struct {
	svc     *drive.Service
	timeout time.Duration
	logger  *slog.Logger
}

// NewDriveInspector создаёт клиент Drive API по JSON-ключу сервисного аккаунта.
// Сервисный аккаунт видит файлы, открытые «всем, у кого есть ссылка».
func NewDriveInspector(ctx context.Context, credentialsFile string, timeout time.Duration, logger *slog.Logger) (*DriveInspector, error) {
	b, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("чтение ключа сервисного аккаунта %s: %w", credentialsFile, err)
	}

	jwtCfg, err := google.JWTConfigFromJSON(b, drive.DriveReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("разбор ключа сервисного аккаунта: %w", err)
	}

	svc, err := drive.NewService(ctx, option.WithHTTPClient(jwtCfg.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("создание клиента Drive API: %w", err)
	}
	return newDriveInspector(svc, timeout, logger), nil
}

// newDriveInspector создаёт инспектор поверх готового клиента Drive API.
func newDriveInspector(svc *drive.Service, timeout time.Duration, logger *slog.Logger) *DriveInspector {
	return &DriveInspector{
		svc:     svc,
		timeout: timeout,
		logger:  logger.With(slog.String("component", "drive_inspector")),
	}
}

// FileSize возвращает размер файла в байтах.
func (d *DriveInspector) FileSize(ctx context.Context, fileID string) (int64, error) {
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	f, err := d.svc.Files.Get(fileID).
		Fields("size").
		SupportsAllDrives(true).
		Context(ctx).
		Do()
	if err != nil {
		driveLookupsTotal.WithLabelValues("error").Inc()
		return 0, fmt.Errorf("запрос метаданных файла Drive %s: %w", fileID, err)
	}

	driveLookupsTotal.WithLabelValues("success").Inc()
	d.logger.Debug("Размер файла Drive получен",
		slog.String("file_id", fileID),
		slog.Int64("size", f.Size),
	)
	return f.Size, nil
}
