package app

import (
	"context"
	"fmt"
	"time"

	"unpack/internal/core/ports"
	"unpack/internal/shared/util"
)

type HealthStatus struct {
	Status     string            `json:"status"`
	Timestamp  time.Time         `json:"timestamp"`
	Components map[string]string `json:"components"`
}

type HealthService struct {
	app *App
}

func NewHealthService(app *App) *HealthService {
	return &HealthService{app: app}
}

func (s *HealthService) Check(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:     "up",
		Timestamp:  time.Now().UTC(),
		Components: make(map[string]string),
	}

	if s.app.Tree == nil {
		status.Status = "degraded"
		status.Components["tree"] = "missing"
	} else {
		status.Components["tree"] = fmt.Sprintf("ok (%d files)", s.app.Tree.Len())
	}

	if s.app.pipeline == nil {
		status.Status = "degraded"
		status.Components["pipeline"] = "missing"
	} else {
		status.Components["pipeline"] = "ok"
	}

	switch {
	case s.app.oracle == "":
		status.Components["oracle"] = "disabled"
	case s.app.cache != nil:
		status.Components["oracle"] = fmt.Sprintf("ok (%s, %d cached)", s.app.oracle, s.app.cache.Len())
	default:
		status.Components["oracle"] = "ok (" + s.app.oracle + ")"
	}

	if hr, ok := s.app.records.(ports.HealthReporter); ok && s.app.records != nil {
		state, detail := hr.Health(ctx)
		if state == "error" {
			status.Status = "degraded"
		}
		if detail != "" {
			state += " (" + detail + ")"
		}
		status.Components["records"] = state
	} else if s.app.Config.Records.Enabled {
		status.Status = "degraded"
		status.Components["records"] = "missing but enabled in config"
	} else {
		status.Components["records"] = "disabled"
	}

	status.Components["memory"] = util.ReadMemoryUsage().String()
	return status
}
