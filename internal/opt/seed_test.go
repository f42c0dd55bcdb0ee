package opt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutsourceAll(t *testing.T) {
	in := loadFixture(t)
	sol := OutsourceAll(in)
	assert.Equal(t, Solution{0, 0, 1, 1, 2, 2, 3, 3}, sol)
}

func TestGreedySeed(t *testing.T) {
	in := loadFixture(t)
	sol := GreedySeed(in)
	require.NoError(t, sol.Validate(in))
	assert.Equal(t, Solution{1, 1, 0, 2, 2, 3, 3, 0}, sol)

	res, err := Evaluate(in, sol)
	require.NoError(t, err)
	assert.True(t, res.Feasible)
	assert.Equal(t, 470.0, res.Cost)

	base, err := Cost(in, OutsourceAll(in))
	require.NoError(t, err)
	assert.LessOrEqual(t, res.Cost, base)
}

func TestSeedStrategies(t *testing.T) {
	in := loadFixture(t)

	s, err := ParseStrategy("")
	require.NoError(t, err)
	assert.Equal(t, StrategyOutsource, s)

	s, err = ParseStrategy(" Greedy ")
	require.NoError(t, err)
	assert.Equal(t, StrategyGreedy, s)

	_, err = ParseStrategy("alns")
	assert.Error(t, err)

	sol, err := Seed(in, StrategyGreedy)
	require.NoError(t, err)
	assert.Equal(t, GreedySeed(in), sol)

	_, err = Seed(in, Strategy("random"))
	assert.Error(t, err)
}

func TestInsertPair(t *testing.T) {
	r := Route{{0, true}, {0, false}}
	got := insertPair(r, 1, 1, 2)
	assert.Equal(t, Route{{0, true}, {1, true}, {1, false}, {0, false}}, got)
	got = insertPair(r, 1, 2, 3)
	assert.Equal(t, Route{{0, true}, {0, false}, {1, true}, {1, false}}, got)
	got = insertPair(r, 1, 0, 3)
	assert.Equal(t, Route{{1, true}, {0, true}, {0, false}, {1, false}}, got)
	assert.Len(t, r, 2)
}
