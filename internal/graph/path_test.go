package graph

import (
	"errors"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evanhutnik/aegis-service/internal/types"
)

func lineGraph() *Graph {
	return New(map[types.AreaID][]types.AreaID{
		1: {2},
		2: {1, 3},
		3: {2},
	})
}

func diamondGraph() *Graph {
	return New(map[types.AreaID][]types.AreaID{
		1: {2, 3},
		2: {1, 4},
		3: {1, 4},
		4: {2, 3},
	})
}

func connected(g *Graph, path []types.AreaID) bool {
	for i := 1; i < len(path); i++ {
		if !g.Adjacent(path[i-1], path[i]) {
			return false
		}
	}
	return true
}

func TestFindPath_Line(t *testing.T) {
	g := lineGraph()
	for _, pref := range types.Preferences {
		path, err := g.FindPath(1, 3, pref)
		require.NoError(t, err)
		assert.Equal(t, []types.AreaID{1, 2, 3}, path, "preference %s", pref)
	}
}

func TestFindPaths_NeighborsClosestToEndFirst(t *testing.T) {
	paths := diamondGraph().FindPaths(1, 4)
	assert.Equal(t, [][]types.AreaID{{1, 3, 4}, {1, 2, 4}}, paths)
}

func TestFindPath_Preferences(t *testing.T) {
	g := Chicago()

	shortest, err := g.FindPath(1, 3, types.Shortest)
	require.NoError(t, err)
	alt1, err := g.FindPath(1, 3, types.Alternative1)
	require.NoError(t, err)
	alt2, err := g.FindPath(1, 3, types.Alternative2)
	require.NoError(t, err)

	assert.Equal(t, []types.AreaID{1, 2, 3}, shortest)
	assert.Equal(t, []types.AreaID{1, 77, 3}, alt1)
	assert.Equal(t, []types.AreaID{1, 2, 77, 3}, alt2)
}

func TestFindPath_AlternativeFallsBack(t *testing.T) {
	g := diamondGraph()

	alt2, err := g.FindPath(1, 4, types.Alternative2)
	require.NoError(t, err)
	assert.Equal(t, []types.AreaID{1, 2, 4}, alt2)

	alt1, err := lineGraph().FindPath(1, 3, types.Alternative1)
	require.NoError(t, err)
	assert.Equal(t, []types.AreaID{1, 2, 3}, alt1)
}

func TestFindPath_Disconnected(t *testing.T) {
	g := New(map[types.AreaID][]types.AreaID{
		1: {2},
		2: {1},
		3: {},
	})
	_, err := g.FindPath(1, 3, types.Shortest)
	assert.True(t, errors.Is(err, ErrNoPath))
	assert.Empty(t, g.FindPaths(1, 3))
}

func TestFindPath_RejectsInvalidInput(t *testing.T) {
	g := Chicago()

	_, err := g.FindPath(5, 5, types.Shortest)
	assert.True(t, errors.Is(err, ErrSameArea))

	_, err = g.FindPath(0, 5, types.Shortest)
	assert.True(t, errors.Is(err, ErrInvalidArea))

	_, err = g.FindPath(5, 78, types.Shortest)
	assert.True(t, errors.Is(err, ErrInvalidArea))
}

func TestChicago_AllAreasPresent(t *testing.T) {
	g := Chicago()
	require.Equal(t, 77, g.Len())
	areas := g.Areas()
	assert.Equal(t, types.AreaID(1), areas[0])
	assert.Equal(t, types.AreaID(77), areas[len(areas)-1])
}

func TestNeighbors_ReturnsCopy(t *testing.T) {
	g := Chicago()
	ns := g.Neighbors(1)
	ns[0] = 99
	assert.Equal(t, []types.AreaID{2, 77}, g.Neighbors(1))
}

// TestFindPathInvariants checks that every returned path starts at start,
// ends at end, and only steps between adjacent areas.
func TestFindPathInvariants(t *testing.T) {
	g := Chicago()

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("paths are connected and anchored", prop.ForAll(
		func(start, end int, prefIdx int) bool {
			if start == end {
				return true
			}
			s, e := types.AreaID(start), types.AreaID(end)
			path, err := g.FindPath(s, e, types.Preferences[prefIdx])
			if err != nil {
				return false
			}
			return path[0] == s && path[len(path)-1] == e && connected(g, path)
		},
		gen.IntRange(1, 77),
		gen.IntRange(1, 77),
		gen.IntRange(0, 2),
	))

	properties.Property("paths never revisit an area", prop.ForAll(
		func(start, end int) bool {
			for _, path := range g.FindPaths(types.AreaID(start), types.AreaID(end)) {
				seen := map[types.AreaID]bool{}
				for _, a := range path {
					if seen[a] {
						return false
					}
					seen[a] = true
				}
			}
			return true
		},
		gen.IntRange(1, 77),
		gen.IntRange(1, 77),
	))

	properties.TestingRun(t)
}
