package health

import (
	"context"
	"database/sql"
	"time"

	"sst-backend/internal/shared/telemetry"
)

const pingTimeout = 2 * time.Second

// Service encapsulates health-related checks.
type Service struct {
	// DB is optional; in-memory deployments report only the process.
	DB *sql.DB
}

// NewService constructs a new health service.
func NewService(db *sql.DB) *Service {
	return &Service{DB: db}
}

// Status reports process liveness and, when configured, database reachability.
func (s *Service) Status(ctx context.Context) map[string]bool {
	status := map[string]bool{"ok": true}
	if s == nil || s.DB == nil {
		return status
	}
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := s.DB.PingContext(ctx); err != nil {
		telemetry.Warn("health.db_unreachable", map[string]any{"error": err})
		status["ok"] = false
		status["database"] = false
		return status
	}
	status["database"] = true
	return status
}
