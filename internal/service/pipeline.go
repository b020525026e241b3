package service

import (
	"time"

	"github.com/google/uuid"

	"github.com/techcodes/backend/internal/config"
	"github.com/techcodes/backend/internal/models"
	"github.com/techcodes/backend/internal/sheet"
)

// Pipeline runs resolve, classify, sequence, compose and project over one
// table. Given the same table and clock it always yields the same records.
type Pipeline struct {
	Resolver  Resolver
	Projector Projector
}

// Run derives a batch. now is the clock reference used when the sheet has
// no start time column.
func (p Pipeline) Run(t sheet.Table, now time.Time) (models.Batch, error) {
	resolved, err := p.Resolver.Resolve(t, now)
	if err != nil {
		return models.Batch{}, err
	}

	sequenced := Sequence(resolved.Tickets)
	records := make([]models.Record, 0, len(sequenced))
	for _, s := range sequenced {
		records = append(records, p.Projector.Project(s))
	}

	return models.Batch{
		ID:              uuid.NewString(),
		ProcessedAt:     now.UTC(),
		TimestampSource: resolved.TimestampSource,
		Records:         records,
	}, nil
}

// NewPipeline builds the pipeline from runtime configuration.
func NewPipeline(cfg config.Config) (Pipeline, error) {
	loc, err := cfg.Location()
	if err != nil {
		return Pipeline{}, err
	}
	return Pipeline{
		Resolver: Resolver{Location: loc},
		Projector: Projector{
			BaseURL:          cfg.MessagingBaseURL,
			CountryCode:      cfg.CountryCode,
			TokenPlaceholder: cfg.TokenPlaceholder,
			StripPictographs: cfg.StripPictographs,
			Template:         cfg.MessageTemplate,
		},
	}, nil
}
