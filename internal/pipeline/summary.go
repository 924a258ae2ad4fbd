package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/activation-spot-service/internal/aggregate"
	"github.com/couchcryptid/activation-spot-service/internal/domain"
)

// LogQuerier runs activation log queries.
type LogQuerier interface {
	ActivationLog(ctx context.Context, q aggregate.Query) (aggregate.ActivationLog, error)
}

// ReportNotifier posts multi-line reports.
type ReportNotifier interface {
	Report(ctx context.Context, text string)
}

// Summarizer posts the daily activation summary of each program.
type Summarizer struct {
	engine         LogQuerier
	notifier       ReportNotifier
	region         string
	locationPrefix string
	logger         *slog.Logger
}

// NewSummarizer creates a Summarizer reporting on region.
func NewSummarizer(engine LogQuerier, notifier ReportNotifier, region, locationPrefix string, logger *slog.Logger) *Summarizer {
	return &Summarizer{
		engine:         engine,
		notifier:       notifier,
		region:         region,
		locationPrefix: locationPrefix,
		logger:         logger,
	}
}

// Summarize posts the activation log of the program's summary window.
func (s *Summarizer) Summarize(ctx context.Context, prog *domain.Program) error {
	log, err := s.engine.ActivationLog(ctx, aggregate.Query{
		Program:        prog.Name,
		Region:         s.region,
		LocationPrefix: s.locationPrefix,
		Window:         time.Duration(prog.SummaryHours) * time.Hour,
	})
	if err != nil {
		return fmt.Errorf("summary %s: %w", prog.Name, err)
	}
	s.notifier.Report(ctx, log.Message())
	s.logger.Info("summary posted", "program", prog.Name, "stations", log.Stations, "references", log.References)
	return nil
}

// SummarizeAll posts a summary for every program.
func (s *Summarizer) SummarizeAll(ctx context.Context, programs []*domain.Program) error {
	var errs []error
	for _, prog := range programs {
		if err := s.Summarize(ctx, prog); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
