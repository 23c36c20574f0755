package timeline

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/chartspan/chartspan/internal/platform/telemetry"
)

// Service orchestrates one pipeline run: fetch the raw records, then run
// the pure normalize → filter → aggregate → assemble transform. The run is
// idempotent and side-effect free; a stale result is simply discarded by
// the caller.
type Service struct {
	repo   Repository
	logger zerolog.Logger
}

func NewService(repo Repository, logger zerolog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// Result is the display contract handed to the rendering layer: the
// ordered event set, the fixed lane table, and the dropped-record count
// (records excluded during normalization for unresolvable dates).
type Result struct {
	PatientID      string    `json:"patient_id"`
	Level          Level     `json:"level"`
	Lanes          []LaneDef `json:"lanes"`
	Events         []Event   `json:"events"`
	Total          int       `json:"total"`
	DroppedRecords int       `json:"dropped_records"`
}

// BuildTimeline produces the display-ready timeline for one patient.
func (s *Service) BuildTimeline(ctx context.Context, patientID string, crit Criteria, level Level) (*Result, error) {
	if patientID == "" {
		return nil, fmt.Errorf("patient id is required")
	}
	if err := crit.Validate(); err != nil {
		return nil, err
	}

	started := time.Now()
	records, err := s.fetchAll(ctx, patientID)
	if err != nil {
		return nil, err
	}

	events, dropped := NormalizeAll(records)
	normalized := len(events)

	events, err = ApplyFilters(events, crit)
	if err != nil {
		return nil, err
	}
	events = Aggregate(events, level)
	events = Assemble(events)

	telemetry.ObservePipelineRun(dropped, len(events), time.Since(started))
	s.logger.Debug().
		Str("patient_id", patientID).
		Str("level", string(level)).
		Int("normalized", normalized).
		Int("dropped", dropped).
		Int("emitted", len(events)).
		Dur("elapsed", time.Since(started)).
		Msg("timeline built")

	return &Result{
		PatientID:      patientID,
		Level:          level,
		Lanes:          Lanes(),
		Events:         events,
		Total:          len(events),
		DroppedRecords: dropped,
	}, nil
}

// ResolveEvents maps a set of event ids (typically split from an
// aggregated marker's original_ids) back to their normalized events.
func (s *Service) ResolveEvents(ctx context.Context, patientID string, ids []string) ([]Event, error) {
	if patientID == "" {
		return nil, fmt.Errorf("patient id is required")
	}
	records, err := s.fetchAll(ctx, patientID)
	if err != nil {
		return nil, err
	}
	events, _ := NormalizeAll(records)
	wanted := make(map[string]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}
	var out []Event
	for _, e := range events {
		if wanted[e.ID] {
			out = append(out, e)
		}
	}
	return Assemble(out), nil
}

// fetchAll loads every source table for the patient concurrently. The
// pipeline stays single-threaded; only this I/O phase fans out.
func (s *Service) fetchAll(ctx context.Context, patientID string) (map[Kind][]Record, error) {
	g, ctx := errgroup.WithContext(ctx)
	results := make([][]Record, len(Kinds))
	for i, kind := range Kinds {
		i, kind := i, kind
		g.Go(func() error {
			recs, err := s.repo.FetchRecords(ctx, kind, patientID)
			if err != nil {
				return fmt.Errorf("fetch %s: %w", kind, err)
			}
			results[i] = recs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	byKind := make(map[Kind][]Record, len(Kinds))
	for i, kind := range Kinds {
		byKind[kind] = results[i]
	}
	return byKind, nil
}
