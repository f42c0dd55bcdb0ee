package opt

import (
	"fmt"
	"strings"

	"vesselpdp/internal/problem"
)

// Strategy selects how Seed builds an initial solution.
type Strategy string

const (
	StrategyOutsource Strategy = "outsource"
	StrategyGreedy    Strategy = "greedy"
)

// ParseStrategy maps a flag or request value to a Strategy. The empty
// string selects StrategyOutsource.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(s))) {
	case "", StrategyOutsource:
		return StrategyOutsource, nil
	case StrategyGreedy:
		return StrategyGreedy, nil
	}
	return "", fmt.Errorf("unknown seed strategy %q (want outsource or greedy)", s)
}

// Seed builds an initial solution for in.
func Seed(in *problem.Instance, strategy Strategy) (Solution, error) {
	switch strategy {
	case StrategyOutsource, "":
		return OutsourceAll(in), nil
	case StrategyGreedy:
		return GreedySeed(in), nil
	}
	return nil, fmt.Errorf("unknown seed strategy %q", strategy)
}

// OutsourceAll leaves every vehicle idle and puts each call, pickup and
// delivery, in the outsourced segment.
func OutsourceAll(in *problem.Instance) Solution {
	plan := Plan{Routes: make([]Route, in.NumVehicles())}
	for c := range in.Calls {
		plan.Outsourced = append(plan.Outsourced, Stop{Call: c, Pickup: true}, Stop{Call: c})
	}
	return plan.Encode()
}

// GreedySeed takes calls in index order and inserts each one at the
// cheapest feasible (pickup, delivery) position over the vehicles allowed
// to carry it. A call moves off the outsourced segment only if that lowers
// the total cost, so the result is feasible and never worse than
// OutsourceAll.
func GreedySeed(in *problem.Instance) Solution {
	plan := Plan{Routes: make([]Route, in.NumVehicles())}
	costs := make([]float64, in.NumVehicles())
	for c, call := range in.Calls {
		bestDelta, bestV := call.NotTransportCost, -1
		var bestRoute Route
		for v := range plan.Routes {
			if !in.Compatible(v, c) {
				continue
			}
			r := plan.Routes[v]
			for i := 0; i <= len(r); i++ {
				for j := i + 1; j <= len(r)+1; j++ {
					cand := insertPair(r, c, i, j)
					d := routeCost(in, v, cand) - costs[v]
					if d >= bestDelta || !routeFeasible(in, v, cand) {
						continue
					}
					bestDelta, bestV, bestRoute = d, v, cand
				}
			}
		}
		if bestV < 0 {
			plan.Outsourced = append(plan.Outsourced, Stop{Call: c, Pickup: true}, Stop{Call: c})
			continue
		}
		plan.Routes[bestV] = bestRoute
		costs[bestV] = routeCost(in, bestV, bestRoute)
	}
	return plan.Encode()
}

// insertPair returns a copy of r with the pickup of call c at index i and
// its delivery at index j of the result, i < j.
func insertPair(r Route, c, i, j int) Route {
	out := make(Route, 0, len(r)+2)
	out = append(out, r[:i]...)
	out = append(out, Stop{Call: c, Pickup: true})
	out = append(out, r[i:j-1]...)
	out = append(out, Stop{Call: c})
	out = append(out, r[j-1:]...)
	return out
}
