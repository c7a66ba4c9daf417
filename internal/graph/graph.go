package graph

import (
	"errors"
	"fmt"
	"sort"

	t "github.com/evanhutnik/aegis-service/internal/types"
)

var (
	ErrInvalidArea = errors.New("invalid community area")
	ErrSameArea    = errors.New("start and end locations must be different")
	ErrNoPath      = errors.New("no path between areas")
)

// Graph is an immutable adjacency list of community areas.
type Graph struct {
	neighbors map[t.AreaID][]t.AreaID
}

// New copies adj into a Graph. Symmetry is not enforced.
func New(adj map[t.AreaID][]t.AreaID) *Graph {
	g := &Graph{neighbors: make(map[t.AreaID][]t.AreaID, len(adj))}
	for area, ns := range adj {
		g.neighbors[area] = append([]t.AreaID(nil), ns...)
	}
	return g
}

func (g *Graph) Has(area t.AreaID) bool {
	_, ok := g.neighbors[area]
	return ok
}

// Neighbors returns a copy of the areas bordering area.
func (g *Graph) Neighbors(area t.AreaID) []t.AreaID {
	return append([]t.AreaID(nil), g.neighbors[area]...)
}

func (g *Graph) Adjacent(a, b t.AreaID) bool {
	for _, n := range g.neighbors[a] {
		if n == b {
			return true
		}
	}
	return false
}

// Areas returns every area in ascending order.
func (g *Graph) Areas() []t.AreaID {
	areas := make([]t.AreaID, 0, len(g.neighbors))
	for area := range g.neighbors {
		areas = append(areas, area)
	}
	sort.Slice(areas, func(i, j int) bool { return areas[i] < areas[j] })
	return areas
}

func (g *Graph) Len() int {
	return len(g.neighbors)
}

// Validate checks a start/end pair before any path search.
func (g *Graph) Validate(start, end t.AreaID) error {
	if !g.Has(start) {
		return fmt.Errorf("%w: %d", ErrInvalidArea, start)
	}
	if !g.Has(end) {
		return fmt.Errorf("%w: %d", ErrInvalidArea, end)
	}
	if start == end {
		return ErrSameArea
	}
	return nil
}
