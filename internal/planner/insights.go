package planner

import (
	"context"
	"fmt"

	"github.com/evanhutnik/aegis-service/internal/graph"
	"github.com/evanhutnik/aegis-service/internal/scoring"
	t "github.com/evanhutnik/aegis-service/internal/types"
	"golang.org/x/sync/errgroup"
)

const (
	trendHour      = 12
	trendYearMonth = 6
	trendYears     = 5
)

// Compare assesses two areas at the same time. Unlike route scoring, a failed
// lookup for either area fails the comparison.
func (p *Planner) Compare(ctx context.Context, a, b t.AreaID, tc t.TimeContext) (*t.Comparison, error) {
	if err := p.validateArea(a); err != nil {
		return nil, err
	}
	if err := p.validateArea(b); err != nil {
		return nil, err
	}
	if err := ValidateTime(tc); err != nil {
		return nil, err
	}

	var sevA, sevB float64
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		sevA, err = p.resolve(gctx, t.KeyFor(a, tc))
		return err
	})
	g.Go(func() error {
		var err error
		sevB, err = p.resolve(gctx, t.KeyFor(b, tc))
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("comparing areas %d and %d: %w", a, b, err)
	}

	cmp := &t.Comparison{
		Context: tc,
		A:       scoring.Assess(a, sevA),
		B:       scoring.Assess(b, sevB),
	}
	cmp.Safer = cmp.A.Area
	if cmp.B.Safety > cmp.A.Safety {
		cmp.Safer = cmp.B.Area
	}
	return cmp, nil
}

// Trends returns an area's severity across the months of year (at noon), the
// hours of month, and the five years ending at year (June, noon).
func (p *Planner) Trends(ctx context.Context, area t.AreaID, year, month int) (*t.Trends, error) {
	if err := p.validateArea(area); err != nil {
		return nil, err
	}
	if err := ValidateTime(t.TimeContext{Month: month, Hour: trendHour, Year: year}); err != nil {
		return nil, err
	}
	if year-trendYears+1 < 1 {
		return nil, fmt.Errorf("%w: year %d too early for a %d-year trend", ErrInvalidTimeContext, year, trendYears)
	}

	tr := &t.Trends{
		Area:    area,
		Year:    year,
		Monthly: make([]t.TrendPoint, 12),
		Hourly:  make([]t.TrendPoint, 24),
		Yearly:  make([]t.TrendPoint, trendYears),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)
	fill := func(dst *t.TrendPoint, tc t.TimeContext) {
		g.Go(func() error {
			severity, err := p.resolve(gctx, t.KeyFor(area, tc))
			if err != nil {
				return err
			}
			*dst = t.TrendPoint{
				Month:    tc.Month,
				Hour:     tc.Hour,
				Year:     tc.Year,
				Severity: severity,
				Safety:   scoring.SeverityToSafety(severity),
			}
			return nil
		})
	}

	for i := range tr.Monthly {
		fill(&tr.Monthly[i], t.TimeContext{Month: i + 1, Hour: trendHour, Year: year})
	}
	for i := range tr.Hourly {
		fill(&tr.Hourly[i], t.TimeContext{Month: month, Hour: i, Year: year})
	}
	for i := range tr.Yearly {
		fill(&tr.Yearly[i], t.TimeContext{Month: trendYearMonth, Hour: trendHour, Year: year - trendYears + 1 + i})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("trends for area %d: %w", area, err)
	}
	return tr, nil
}

func (p *Planner) validateArea(area t.AreaID) error {
	if !p.graph.Has(area) {
		return fmt.Errorf("%w: %d", graph.ErrInvalidArea, area)
	}
	return nil
}
