// Package opt evaluates and builds solutions for pickup-and-delivery
// instances loaded by package problem.
package opt

import (
	"fmt"
	"math"

	"vesselpdp/internal/problem"
)

// ViolationKind names a feasibility constraint.
type ViolationKind string

const (
	Incompatible ViolationKind = "incompatible"
	Capacity     ViolationKind = "capacity"
	TimeWindow   ViolationKind = "time_window"
)

// Violation is one broken constraint. Vehicle and Call are 1-based as in
// the encoding; Position indexes the vehicle's route.
type Violation struct {
	Kind     ViolationKind `json:"kind"`
	Vehicle  int           `json:"vehicle"`
	Call     int           `json:"call"`
	Position int           `json:"position"`
	Amount   float64       `json:"amount"`
}

func (v Violation) String() string {
	switch v.Kind {
	case Incompatible:
		return fmt.Sprintf("incompatible vessel and cargo: vehicle %d cannot carry call %d", v.Vehicle, v.Call)
	case Capacity:
		return fmt.Sprintf("capacity exceeded: vehicle %d at position %d (call %d) by %g", v.Vehicle, v.Position, v.Call, v.Amount)
	default:
		return fmt.Sprintf("time window exceeded: vehicle %d at position %d (call %d) by %g", v.Vehicle, v.Position, v.Call, v.Amount)
	}
}

// FeasibleReason is the Reason of a solution without violations.
const FeasibleReason = "feasible"

// Result is the outcome of evaluating one solution.
type Result struct {
	Feasible   bool        `json:"feasible"`
	Reason     string      `json:"reason"`
	Penalty    float64     `json:"penalty"`
	Cost       float64     `json:"cost"`
	Violations []Violation `json:"violations,omitempty"`

	VehicleCosts   []float64 `json:"vehicleCosts"`
	OutsourcedCost float64   `json:"outsourcedCost"`
}

// Evaluate decodes s and computes its feasibility penalty and total cost.
// It never stops at the first violation: every vehicle is scanned and the
// penalties add up. Only a structural mismatch between s and in is an
// error.
func Evaluate(in *problem.Instance, s Solution) (Result, error) {
	plan, err := Decode(in, s)
	if err != nil {
		return Result{}, err
	}
	return evaluatePlan(in, plan), nil
}

// Cost returns the total routing cost of s.
func Cost(in *problem.Instance, s Solution) (float64, error) {
	res, err := Evaluate(in, s)
	return res.Cost, err
}

// Feasibility returns the penalty of s and whether it is zero-violation.
func Feasibility(in *problem.Instance, s Solution) (float64, bool, error) {
	res, err := Evaluate(in, s)
	return res.Penalty, res.Feasible, err
}

func evaluatePlan(in *problem.Instance, plan Plan) Result {
	res := Result{VehicleCosts: make([]float64, len(plan.Routes))}
	report := func(v Violation) {
		res.Violations = append(res.Violations, v)
		res.Penalty += v.Amount
	}
	for v, r := range plan.Routes {
		travel, port := scanRoute(in, v, r, report)
		res.VehicleCosts[v] = travel + port
		res.Cost += travel + port
	}
	for _, st := range plan.Outsourced {
		res.OutsourcedCost += in.Calls[st.Call].NotTransportCost / 2
	}
	res.Cost += res.OutsourcedCost
	res.Feasible = len(res.Violations) == 0
	res.Reason = FeasibleReason
	if !res.Feasible {
		res.Reason = res.Violations[0].String()
	}
	return res
}

// scanRoute walks route r of vehicle v once, returning its travel and port
// cost and passing each violation to report when it is non-nil.
func scanRoute(in *problem.Instance, v int, r Route, report func(Violation)) (travel, port float64) {
	if len(r) == 0 {
		return 0, 0
	}
	veh := in.Vehicles[v]
	var t, load float64
	var flagged map[int]bool
	prev := -1
	for k, st := range r {
		call := in.Calls[st.Call]
		node := st.port(in)
		var leg float64
		if prev < 0 {
			travel += in.FirstTravelCost[v][node]
			leg = in.FirstTravelTime[v][node]
		} else {
			travel += in.TravelCost[v][prev][node]
			leg = in.TravelTime[v][prev][node]
		}
		prev = node
		port += in.PortCost[v][st.Call] / 2

		if report == nil {
			continue
		}
		if !in.Compatible(v, st.Call) && !flagged[st.Call] {
			if flagged == nil {
				flagged = make(map[int]bool)
			}
			flagged[st.Call] = true
			report(Violation{Kind: Incompatible, Vehicle: v + 1, Call: st.Call + 1, Position: k, Amount: call.NotTransportCost})
		}

		lower, upper := call.DeliveryLower, call.DeliveryUpper
		service := in.UnloadingTime[v][st.Call]
		if st.Pickup {
			lower, upper = call.PickupLower, call.PickupUpper
			service = in.LoadingTime[v][st.Call]
			load += call.Size
		} else {
			load -= call.Size
		}
		if load > veh.Capacity {
			report(Violation{Kind: Capacity, Vehicle: v + 1, Call: st.Call + 1, Position: k, Amount: load - veh.Capacity})
		}
		arrive := math.Max(t+leg, lower)
		if arrive > upper {
			report(Violation{Kind: TimeWindow, Vehicle: v + 1, Call: st.Call + 1, Position: k, Amount: arrive - upper})
		}
		t = arrive + math.Max(service, 0)
	}
	return travel, port
}

// routeFeasible reports whether r on vehicle v breaks no constraint.
func routeFeasible(in *problem.Instance, v int, r Route) bool {
	ok := true
	scanRoute(in, v, r, func(Violation) { ok = false })
	return ok
}

func routeCost(in *problem.Instance, v int, r Route) float64 {
	travel, port := scanRoute(in, v, r, nil)
	return travel + port
}
