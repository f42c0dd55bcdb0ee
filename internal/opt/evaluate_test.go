package opt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vesselpdp/internal/problem"
)

func loadFixture(t *testing.T) *problem.Instance {
	t.Helper()
	in, err := problem.Load("../problem/testdata/Call_3_Vehicle_2.txt")
	require.NoError(t, err)
	return in
}

func TestEvaluateFixture(t *testing.T) {
	in := loadFixture(t)

	tests := []struct {
		name     string
		sol      Solution
		feasible bool
		penalty  float64
		cost     float64
		kinds    []ViolationKind
	}{
		{"both vehicles busy", Solution{1, 1, 2, 2, 0, 3, 3, 0}, true, 0, 550, nil},
		{"outsource all", Solution{0, 0, 1, 1, 2, 2, 3, 3}, true, 0, 6000, nil},
		{"incompatible and overloaded", Solution{3, 3, 0, 0, 1, 1, 2, 2}, false, 3005, 3028, []ViolationKind{Incompatible, Capacity}},
		{"capacity", Solution{0, 3, 2, 2, 3, 0, 1, 1}, false, 1, 1340, []ViolationKind{Capacity}},
		{"late pickup", Solution{2, 2, 1, 1, 0, 0, 3, 3}, false, 8, 3340, []ViolationKind{TimeWindow}},
		// call 1 carried twice by vehicle 1: port cost is charged per pickup/delivery pair
		{"call repeated in segment", Solution{1, 1, 1, 1, 0, 0, 2, 2, 3, 3}, true, 0, 5280, nil},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			res, err := Evaluate(in, tc.sol)
			require.NoError(t, err)
			assert.Equal(t, tc.feasible, res.Feasible)
			assert.InDelta(t, tc.penalty, res.Penalty, 1e-9)
			assert.InDelta(t, tc.cost, res.Cost, 1e-9)

			var kinds []ViolationKind
			for _, v := range res.Violations {
				kinds = append(kinds, v.Kind)
			}
			assert.Equal(t, tc.kinds, kinds)
			if tc.feasible {
				assert.Equal(t, FeasibleReason, res.Reason)
			} else {
				assert.Equal(t, res.Violations[0].String(), res.Reason)
			}
		})
	}
}

func TestEvaluateBreakdown(t *testing.T) {
	in := loadFixture(t)
	res, err := Evaluate(in, Solution{1, 1, 2, 2, 0, 3, 3, 0})
	require.NoError(t, err)
	assert.Equal(t, []float64{310, 240}, res.VehicleCosts)
	assert.Zero(t, res.OutsourcedCost)

	res, err = Evaluate(in, Solution{2, 2, 1, 1, 0, 0, 3, 3})
	require.NoError(t, err)
	require.Len(t, res.Violations, 1)
	assert.Equal(t, Violation{Kind: TimeWindow, Vehicle: 1, Call: 1, Position: 2, Amount: 8}, res.Violations[0])
	assert.Equal(t, 3000.0, res.OutsourcedCost)
	assert.Contains(t, res.Reason, "time window")
}

func TestEvaluateIncompatibleCountedOncePerCall(t *testing.T) {
	in := loadFixture(t)
	res, err := Evaluate(in, Solution{3, 3, 0, 0, 1, 1, 2, 2})
	require.NoError(t, err)

	n := 0
	for _, v := range res.Violations {
		if v.Kind == Incompatible {
			n++
			assert.Equal(t, 3, v.Call)
			assert.Equal(t, 1, v.Vehicle)
		}
	}
	assert.Equal(t, 1, n)
	assert.Contains(t, res.Reason, "incompatible")
}

func TestEvaluateAllSeparators(t *testing.T) {
	in := loadFixture(t)
	res, err := Evaluate(in, Solution{0, 0})
	require.NoError(t, err)
	assert.True(t, res.Feasible)
	assert.Zero(t, res.Cost)
	assert.Zero(t, res.Penalty)
}

func TestEvaluateIsPure(t *testing.T) {
	in := loadFixture(t)
	sol := Solution{0, 3, 2, 2, 3, 0, 1, 1}
	before := append(Solution(nil), sol...)

	a, err := Evaluate(in, sol)
	require.NoError(t, err)
	b, err := Evaluate(in, sol)
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Equal(t, before, sol)
	assert.Equal(t, loadFixture(t), in)
}

func TestCostAndFeasibility(t *testing.T) {
	in := loadFixture(t)
	cost, err := Cost(in, Solution{0, 3, 2, 2, 3, 0, 1, 1})
	require.NoError(t, err)
	assert.Equal(t, 1340.0, cost)

	pen, ok, err := Feasibility(in, Solution{0, 3, 2, 2, 3, 0, 1, 1})
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 1.0, pen)
}

func TestEvaluateRejectsMismatchedEncoding(t *testing.T) {
	in := loadFixture(t)
	for name, sol := range map[string]Solution{
		"too few separators":  {1, 1, 0, 2, 2, 3, 3},
		"too many separators": {0, 0, 0, 1, 1, 2, 2, 3, 3},
		"call out of range":   {4, 4, 0, 0, 1, 1},
		"negative call":       {-1, -1, 0, 0},
		"missing delivery":    {1, 0, 1, 0, 2, 2, 3, 3},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Evaluate(in, sol)
			assert.ErrorIs(t, err, ErrDimension)
		})
	}
}

func TestEvaluateAcceptsWhatValidateRejects(t *testing.T) {
	in := loadFixture(t)
	sol := Solution{1, 1, 1, 1, 0, 0, 2, 2, 3, 3}

	assert.ErrorIs(t, sol.Validate(in), ErrAssignment)

	res, err := Evaluate(in, sol)
	require.NoError(t, err)
	assert.True(t, res.Feasible)
	assert.InDelta(t, 5280, res.Cost, 1e-9)
	assert.InDelta(t, 5000, res.OutsourcedCost, 1e-9)
	require.Len(t, res.VehicleCosts, 2)
	assert.InDelta(t, 280, res.VehicleCosts[0], 1e-9)
	assert.Zero(t, res.VehicleCosts[1])
}
