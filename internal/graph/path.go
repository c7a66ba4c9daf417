package graph

import (
	"slices"

	t "github.com/evanhutnik/aegis-service/internal/types"
)

const (
	// wantedPaths is how many completed paths a search collects before stopping.
	wantedPaths = 3
	// maxCompletedPaths bounds the search even if wantedPaths is raised.
	maxCompletedPaths = 10
)

type frontierItem struct {
	area t.AreaID
	path []t.AreaID
}

type searchState struct {
	area   t.AreaID
	length int
}

// FindPaths returns up to three simple paths from start to end, shortest first.
// The frontier is FIFO: every expansion adds exactly one hop, so it is always
// ordered by path length. A state (area, path length) is expanded at most once.
func (g *Graph) FindPaths(start, end t.AreaID) [][]t.AreaID {
	queue := []frontierItem{{area: start, path: []t.AreaID{start}}}
	visited := make(map[searchState]struct{})
	var paths [][]t.AreaID

	for len(queue) > 0 && len(paths) < maxCompletedPaths {
		current := queue[0]
		queue = queue[1:]

		if current.area == end {
			paths = append(paths, current.path)
			if len(paths) >= wantedPaths {
				break
			}
			continue
		}

		state := searchState{area: current.area, length: len(current.path)}
		if _, seen := visited[state]; seen {
			continue
		}
		visited[state] = struct{}{}

		for _, n := range g.candidates(current.area, end, current.path) {
			queue = append(queue, frontierItem{
				area: n,
				path: append(current.path[:len(current.path):len(current.path)], n),
			})
		}
	}
	return paths
}

// candidates returns the neighbors of area not already on path, closest id to end first.
func (g *Graph) candidates(area, end t.AreaID, path []t.AreaID) []t.AreaID {
	var out []t.AreaID
	for _, n := range g.neighbors[area] {
		if !slices.Contains(path, n) {
			out = append(out, n)
		}
	}
	slices.SortStableFunc(out, func(a, b t.AreaID) int {
		return absDiff(a, end) - absDiff(b, end)
	})
	return out
}

// FindPath picks one of the completed paths for the given preference.
// It returns ErrNoPath when start and end are not connected.
func (g *Graph) FindPath(start, end t.AreaID, pref t.Preference) ([]t.AreaID, error) {
	if err := g.Validate(start, end); err != nil {
		return nil, err
	}
	paths := g.FindPaths(start, end)
	if len(paths) == 0 {
		return nil, ErrNoPath
	}
	return selectPath(paths, pref), nil
}

func selectPath(paths [][]t.AreaID, pref t.Preference) []t.AreaID {
	switch {
	case pref == t.Shortest:
		return paths[0]
	case pref == t.Alternative1 && len(paths) > 1:
		return paths[1]
	case pref == t.Alternative2 && len(paths) > 2:
		return paths[2]
	}
	return paths[min(len(paths)-1, 1)]
}

func absDiff(a, b t.AreaID) int {
	if a > b {
		return int(a - b)
	}
	return int(b - a)
}
