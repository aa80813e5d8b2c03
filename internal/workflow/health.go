package workflow

import (
	"context"

	"polyvox/internal/compile"
	"polyvox/internal/stage"
)

// Health runs every registered handler's health check.
func (m *Manager) Health(ctx context.Context) []stage.Health {
	types := []compile.JobType{
		compile.JobCleanup,
		compile.JobTranslate,
		compile.JobTTS,
		compile.JobAssembly,
		compile.JobVideo,
	}
	out := make([]stage.Health, 0, len(types))
	for _, jobType := range types {
		handler := m.handlers.forType(jobType)
		if handler == nil {
			continue
		}
		out = append(out, handler.HealthCheck(ctx))
	}
	return out
}
