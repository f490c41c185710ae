package ports

import (
	"context"

	"github.com/Marketen/slotwatch/internal/application/domain"
)

// Renderer draws the concentration series of a report to an image.
type Renderer interface {
	Render(ctx context.Context, report *domain.Report) error
}

// MetricsSink publishes the outcome of a run.
type MetricsSink interface {
	Record(ctx context.Context, report *domain.Report) error
}
