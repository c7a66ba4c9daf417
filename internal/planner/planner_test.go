package planner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/evanhutnik/aegis-service/internal/cache"
	"github.com/evanhutnik/aegis-service/internal/graph"
	"github.com/evanhutnik/aegis-service/internal/types"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakePredictor struct {
	mu         sync.Mutex
	severities map[types.AreaID]float64
	failing    map[types.AreaID]bool
	calls      map[types.SeverityKey]int
	active     int
	delay      time.Duration
}

func newFakePredictor(severities map[types.AreaID]float64) *fakePredictor {
	return &fakePredictor{
		severities: severities,
		failing:    map[types.AreaID]bool{},
		calls:      map[types.SeverityKey]int{},
	}
}

func (f *fakePredictor) Severity(ctx context.Context, key types.SeverityKey) (float64, error) {
	f.mu.Lock()
	f.calls[key]++
	f.active++
	f.mu.Unlock()
	defer func() {
		f.mu.Lock()
		f.active--
		f.mu.Unlock()
	}()

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if f.failing[key.Area] {
		return 0, fmt.Errorf("prediction unavailable for area %d", key.Area)
	}
	if v, ok := f.severities[key.Area]; ok {
		return v, nil
	}
	return 10, nil
}

func (f *fakePredictor) inFlight() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.active
}

func (f *fakePredictor) totalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

func (f *fakePredictor) maxCallsPerKey() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n = max(n, c)
	}
	return n
}

var june = types.TimeContext{Month: 6, Hour: 21, Year: 2024}

func lineGraph() *graph.Graph {
	return graph.New(map[types.AreaID][]types.AreaID{
		1: {2},
		2: {1, 3},
		3: {2},
	})
}

func newPlanner(g *graph.Graph, p Predictor, opts ...Option) *Planner {
	return New(g, cache.NewMemory(cache.DefaultTTL), p, opts...)
}

func areasOf(routes []types.RouteOption) [][]types.AreaID {
	var out [][]types.AreaID
	for _, r := range routes {
		out = append(out, r.Areas())
	}
	return out
}

func TestPlanRoutes_LineGraph(t *testing.T) {
	pred := newFakePredictor(map[types.AreaID]float64{1: 5, 2: 10, 3: 2})
	p := newPlanner(lineGraph(), pred)

	routes, err := p.PlanRoutes(context.Background(), Request{Start: 1, End: 3, Context: june})
	require.NoError(t, err)
	require.Len(t, routes, 1)

	r := routes[0]
	assert.Equal(t, []types.AreaID{1, 2, 3}, r.Areas())
	assert.Equal(t, "Direct Route", r.Name)
	assert.InDelta(t, 8.4865, r.AverageSafety, 1e-4)
	assert.Equal(t, types.RiskLow, r.RiskLevel)
	assert.Equal(t, 4.0, r.TotalDistance)
	assert.Equal(t, 3, pred.totalCalls())
}

func TestPlanRoutes_RankedAndDistinct(t *testing.T) {
	pred := newFakePredictor(map[types.AreaID]float64{1: 5, 2: 10, 3: 2, 77: 1})
	p := newPlanner(graph.Chicago(), pred)

	routes, err := p.PlanRoutes(context.Background(), Request{Start: 1, End: 3, Context: june})
	require.NoError(t, err)
	require.Len(t, routes, 3)

	assert.Equal(t, [][]types.AreaID{{1, 77, 3}, {1, 2, 77, 3}, {1, 2, 3}}, areasOf(routes))
	assert.Equal(t, "Safe Route", routes[0].Name)
	assert.Equal(t, "Alternative Route", routes[1].Name)
	assert.Equal(t, "Direct Route", routes[2].Name)
	for i := 1; i < len(routes); i++ {
		assert.GreaterOrEqual(t, routes[i-1].AverageSafety, routes[i].AverageSafety)
	}
}

func TestPlanRoutes_OneCallPerKey(t *testing.T) {
	pred := newFakePredictor(nil)
	pred.delay = 10 * time.Millisecond
	p := newPlanner(graph.Chicago(), pred)

	_, err := p.PlanRoutes(context.Background(), Request{Start: 1, End: 3, Context: june})
	require.NoError(t, err)

	assert.Equal(t, 4, len(pred.calls))
	assert.Equal(t, 1, pred.maxCallsPerKey())
}

func TestPlanRoutes_CachedOnSecondRequest(t *testing.T) {
	pred := newFakePredictor(nil)
	p := newPlanner(graph.Chicago(), pred)
	req := Request{Start: 1, End: 10, Context: june}

	first, err := p.PlanRoutes(context.Background(), req)
	require.NoError(t, err)
	calls := pred.totalCalls()

	second, err := p.PlanRoutes(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, calls, pred.totalCalls())
	assert.Equal(t, first, second)
}

func TestPlanRoutes_SkipsFailingAreas(t *testing.T) {
	pred := newFakePredictor(map[types.AreaID]float64{1: 5, 3: 2, 77: 1})
	pred.failing[2] = true
	p := newPlanner(graph.Chicago(), pred)

	routes, err := p.PlanRoutes(context.Background(), Request{Start: 1, End: 3, Context: june})
	require.NoError(t, err)

	// Without area 2, the direct and the third candidate collapse onto
	// the points of other routes.
	assert.ElementsMatch(t, [][]types.AreaID{{1, 3}, {1, 77, 3}}, areasOf(routes))
	for _, r := range routes {
		assert.NotContains(t, r.Areas(), types.AreaID(2))
	}
}

func TestPlanRoutes_AllFailing(t *testing.T) {
	pred := newFakePredictor(nil)
	for _, a := range graph.Chicago().Areas() {
		pred.failing[a] = true
	}
	p := newPlanner(graph.Chicago(), pred)

	routes, err := p.PlanRoutes(context.Background(), Request{Start: 1, End: 3, Context: june})
	require.NoError(t, err)
	assert.Empty(t, routes)
}

func TestPlanRoutes_RejectsBeforeSearching(t *testing.T) {
	pred := newFakePredictor(nil)
	p := newPlanner(graph.Chicago(), pred)
	ctx := context.Background()

	_, err := p.PlanRoutes(ctx, Request{Start: 4, End: 4, Context: june})
	assert.True(t, errors.Is(err, graph.ErrSameArea))

	_, err = p.PlanRoutes(ctx, Request{Start: 0, End: 4, Context: june})
	assert.True(t, errors.Is(err, graph.ErrInvalidArea))

	_, err = p.PlanRoutes(ctx, Request{Start: 1, End: 78, Context: june})
	assert.True(t, errors.Is(err, graph.ErrInvalidArea))

	_, err = p.PlanRoutes(ctx, Request{Start: 1, End: 3, Context: types.TimeContext{Month: 13, Hour: 1, Year: 2024}})
	assert.True(t, errors.Is(err, ErrInvalidTimeContext))

	_, err = p.PlanRoutes(ctx, Request{Start: 1, End: 3, Context: types.TimeContext{Month: 1, Hour: 24, Year: 2024}})
	assert.True(t, errors.Is(err, ErrInvalidTimeContext))

	assert.Equal(t, 0, pred.totalCalls())
}

func TestPlanRoutes_UnreachablePolicy(t *testing.T) {
	g := graph.New(map[types.AreaID][]types.AreaID{
		1: {2},
		2: {1},
		3: {},
	})
	req := Request{Start: 1, End: 3, Context: june}

	_, err := newPlanner(g, newFakePredictor(nil)).PlanRoutes(context.Background(), req)
	assert.True(t, errors.Is(err, graph.ErrNoPath))

	routes, err := newPlanner(g, newFakePredictor(nil), PolicyOption(PolicyDirect)).PlanRoutes(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, routes, 1)
	assert.Equal(t, []types.AreaID{1, 3}, routes[0].Areas())
}

func TestPlanRoutes_Cancelled(t *testing.T) {
	pred := newFakePredictor(nil)
	pred.delay = time.Second
	p := newPlanner(graph.Chicago(), pred)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := p.PlanRoutes(ctx, Request{Start: 1, End: 10, Context: june})
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Less(t, time.Since(start), 500*time.Millisecond)

	// Fetches already started run to completion and fill the cache.
	require.Eventually(t, func() bool { return pred.inFlight() == 0 }, 3*time.Second, 10*time.Millisecond)
}

func TestResolve_WaiterSurvivesFirstCallerCancel(t *testing.T) {
	pred := newFakePredictor(map[types.AreaID]float64{5: 3.5})
	pred.delay = 100 * time.Millisecond
	p := newPlanner(graph.Chicago(), pred)
	key := types.KeyFor(5, june)

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := p.resolve(firstCtx, key)
		firstErr <- err
	}()
	require.Eventually(t, func() bool { return pred.totalCalls() == 1 }, time.Second, time.Millisecond)

	type result struct {
		v   float64
		err error
	}
	second := make(chan result, 1)
	go func() {
		v, err := p.resolve(context.Background(), key)
		second <- result{v, err}
	}()

	cancelFirst()
	assert.True(t, errors.Is(<-firstErr, context.Canceled))

	res := <-second
	require.NoError(t, res.err)
	assert.Equal(t, 3.5, res.v)
	assert.Equal(t, 1, pred.totalCalls())

	v, ok := p.cache.Get(context.Background(), key)
	require.True(t, ok)
	assert.Equal(t, 3.5, v)
}

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy("")
	require.NoError(t, err)
	assert.Equal(t, PolicyError, p)

	p, err = ParsePolicy("direct")
	require.NoError(t, err)
	assert.Equal(t, PolicyDirect, p)

	_, err = ParsePolicy("teleport")
	assert.Error(t, err)
}

func TestCompare(t *testing.T) {
	pred := newFakePredictor(map[types.AreaID]float64{8: 20, 32: 3})
	p := newPlanner(graph.Chicago(), pred)

	cmp, err := p.Compare(context.Background(), 8, 32, june)
	require.NoError(t, err)
	assert.Equal(t, types.AreaID(32), cmp.Safer)
	assert.Equal(t, 20.0, cmp.A.Severity)
	assert.Greater(t, cmp.B.Safety, cmp.A.Safety)
	assert.Equal(t, types.RiskHigh, cmp.A.RiskLevel)
}

func TestCompare_FailureIsError(t *testing.T) {
	pred := newFakePredictor(nil)
	pred.failing[32] = true
	p := newPlanner(graph.Chicago(), pred)

	_, err := p.Compare(context.Background(), 8, 32, june)
	assert.Error(t, err)

	_, err = p.Compare(context.Background(), 8, 99, june)
	assert.True(t, errors.Is(err, graph.ErrInvalidArea))
}

func TestTrends(t *testing.T) {
	pred := newFakePredictor(nil)
	p := newPlanner(graph.Chicago(), pred)

	tr, err := p.Trends(context.Background(), 25, 2024, 3)
	require.NoError(t, err)

	require.Len(t, tr.Monthly, 12)
	require.Len(t, tr.Hourly, 24)
	require.Len(t, tr.Yearly, 5)
	for i, pt := range tr.Monthly {
		assert.Equal(t, i+1, pt.Month)
		assert.Equal(t, 12, pt.Hour)
	}
	for i, pt := range tr.Hourly {
		assert.Equal(t, i, pt.Hour)
		assert.Equal(t, 3, pt.Month)
	}
	assert.Equal(t, 2020, tr.Yearly[0].Year)
	assert.Equal(t, 2024, tr.Yearly[4].Year)

	// Monthly, hourly and yearly series share two (month, hour, year) keys.
	assert.Equal(t, 39, len(pred.calls))
	assert.Equal(t, 1, pred.maxCallsPerKey())
}

func TestTrends_FailureIsError(t *testing.T) {
	pred := newFakePredictor(nil)
	pred.failing[25] = true
	p := newPlanner(graph.Chicago(), pred)

	_, err := p.Trends(context.Background(), 25, 2024, 3)
	assert.Error(t, err)
}
