package planner

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"time"

	"github.com/evanhutnik/aegis-service/internal/cache"
	"github.com/evanhutnik/aegis-service/internal/graph"
	"github.com/evanhutnik/aegis-service/internal/metrics"
	"github.com/evanhutnik/aegis-service/internal/scoring"
	t "github.com/evanhutnik/aegis-service/internal/types"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

var ErrInvalidTimeContext = errors.New("invalid time context")

// Predictor resolves the severity of an area at a point in time.
type Predictor interface {
	Severity(ctx context.Context, key t.SeverityKey) (float64, error)
}

// UnreachablePolicy decides what happens when no path joins start and end.
type UnreachablePolicy string

const (
	// PolicyError reports graph.ErrNoPath.
	PolicyError UnreachablePolicy = "error"
	// PolicyDirect substitutes the two-area path [start, end].
	PolicyDirect UnreachablePolicy = "direct"
)

func ParsePolicy(s string) (UnreachablePolicy, error) {
	switch UnreachablePolicy(s) {
	case PolicyError, "":
		return PolicyError, nil
	case PolicyDirect:
		return PolicyDirect, nil
	}
	return "", fmt.Errorf("unknown unreachable policy %q", s)
}

type Request struct {
	Start   t.AreaID
	End     t.AreaID
	Context t.TimeContext
}

type Option func(*Planner)

func PolicyOption(policy UnreachablePolicy) Option {
	return func(p *Planner) {
		p.policy = policy
	}
}

// ConcurrencyOption bounds concurrent severity lookups per route.
func ConcurrencyOption(n int) Option {
	return func(p *Planner) {
		p.concurrency = n
	}
}

func MetricsOption(m *metrics.Registry) Option {
	return func(p *Planner) {
		p.metrics = m
	}
}

func LoggerOption(logger *zap.SugaredLogger) Option {
	return func(p *Planner) {
		p.Logger = logger
	}
}

// Planner owns the area graph, the severity cache and the prediction client.
type Planner struct {
	graph       *graph.Graph
	cache       cache.Cache
	predictor   Predictor
	metrics     *metrics.Registry
	policy      UnreachablePolicy
	concurrency int
	flights     singleflight.Group

	Logger *zap.SugaredLogger
}

func New(g *graph.Graph, c cache.Cache, p Predictor, opts ...Option) *Planner {
	pl := &Planner{
		graph:       g,
		cache:       c,
		predictor:   p,
		policy:      PolicyError,
		concurrency: 8,
	}
	for _, opt := range opts {
		opt(pl)
	}
	if pl.Logger == nil {
		pl.Logger = zap.NewNop().Sugar()
	}
	if pl.metrics == nil {
		pl.metrics = metrics.NewRegistry()
	}
	if pl.concurrency < 1 {
		pl.concurrency = 1
	}
	return pl
}

func (p *Planner) Graph() *graph.Graph {
	return p.graph
}

func ValidateTime(tc t.TimeContext) error {
	if tc.Month < 1 || tc.Month > 12 {
		return fmt.Errorf("%w: month %d outside 1..12", ErrInvalidTimeContext, tc.Month)
	}
	if tc.Hour < 0 || tc.Hour > 23 {
		return fmt.Errorf("%w: hour %d outside 0..23", ErrInvalidTimeContext, tc.Hour)
	}
	if tc.Year < 1 {
		return fmt.Errorf("%w: year %d", ErrInvalidTimeContext, tc.Year)
	}
	return nil
}

// PlanRoutes scores one candidate route per preference and returns the
// distinct ones, safest first. Areas whose severity cannot be resolved are
// left out of their route; a route with no resolved area is dropped, so the
// result may be empty without an error.
func (p *Planner) PlanRoutes(ctx context.Context, req Request) ([]t.RouteOption, error) {
	if err := p.graph.Validate(req.Start, req.End); err != nil {
		return nil, err
	}
	if err := ValidateTime(req.Context); err != nil {
		return nil, err
	}

	paths := make([][]t.AreaID, len(t.Preferences))
	for i, pref := range t.Preferences {
		path, err := p.path(req.Start, req.End, pref)
		if err != nil {
			return nil, err
		}
		paths[i] = path
	}

	candidates := make([]*t.RouteOption, len(paths))
	g := new(errgroup.Group)
	for i, pref := range t.Preferences {
		i, pref := i, pref
		g.Go(func() error {
			candidates[i] = p.scoreRoute(ctx, paths[i], req, pref)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	routes := distinct(candidates)
	for _, r := range routes {
		p.metrics.RoutesPlannedTotal.WithLabelValues(string(r.Preference)).Inc()
	}
	return routes, nil
}

func (p *Planner) path(start, end t.AreaID, pref t.Preference) ([]t.AreaID, error) {
	path, err := p.graph.FindPath(start, end, pref)
	if errors.Is(err, graph.ErrNoPath) && p.policy == PolicyDirect {
		p.Logger.Warnw("No path between areas, using direct route",
			"start", start, "end", end)
		return []t.AreaID{start, end}, nil
	}
	return path, err
}

// scoreRoute resolves every area of path concurrently. Points are written to
// their path index so completion order does not affect the result.
func (p *Planner) scoreRoute(ctx context.Context, path []t.AreaID, req Request, pref t.Preference) *t.RouteOption {
	slots := make([]*t.RoutePoint, len(path))

	g := new(errgroup.Group)
	g.SetLimit(p.concurrency)
	for i, area := range path {
		i, area := i, area
		g.Go(func() error {
			severity, err := p.resolve(ctx, t.KeyFor(area, req.Context))
			if err != nil {
				p.metrics.AreasSkippedTotal.Inc()
				p.Logger.Warnf("Error resolving severity for area %v: %v", area, err.Error())
				return nil
			}
			point := scoring.Point(area, req.Start, severity)
			slots[i] = &point
			return nil
		})
	}
	_ = g.Wait()

	points := make([]t.RoutePoint, 0, len(slots))
	for _, pt := range slots {
		if pt != nil {
			points = append(points, *pt)
		}
	}
	return scoring.Route(path, points, pref)
}

// resolve returns a cached severity or fetches it, collapsing concurrent
// fetches of the same key into one prediction call.
func (p *Planner) resolve(ctx context.Context, key t.SeverityKey) (float64, error) {
	if v, ok := p.cache.Get(ctx, key); ok {
		p.metrics.CacheHitsTotal.Inc()
		return v, nil
	}
	p.metrics.CacheMissesTotal.Inc()

	// The shared fetch outlives any single caller; the predictor's own
	// timeout bounds it.
	fctx := context.WithoutCancel(ctx)
	ch := p.flights.DoChan(key.String(), func() (interface{}, error) {
		if v, ok := p.cache.Get(fctx, key); ok {
			return v, nil
		}
		start := time.Now()
		severity, err := p.predictor.Severity(fctx, key)
		p.metrics.RecordPredictCall(err, time.Since(start))
		if err != nil {
			return 0.0, err
		}
		p.cache.Put(fctx, key, severity)
		return severity, nil
	})

	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return 0, res.Err
		}
		return res.Val.(float64), nil
	}
}

// distinct drops nil candidates and repeated area sequences, keeping the
// first, then orders by average safety, highest first.
func distinct(candidates []*t.RouteOption) []t.RouteOption {
	routes := make([]t.RouteOption, 0, len(candidates))
	for _, c := range candidates {
		if c == nil {
			continue
		}
		dup := slices.ContainsFunc(routes, func(r t.RouteOption) bool {
			return slices.Equal(r.Areas(), c.Areas())
		})
		if !dup {
			routes = append(routes, *c)
		}
	}
	sort.SliceStable(routes, func(i, j int) bool {
		return routes[i].AverageSafety > routes[j].AverageSafety
	})
	return routes
}
