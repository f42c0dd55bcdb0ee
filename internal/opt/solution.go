package opt

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"vesselpdp/internal/problem"
)

// Separator ends a vehicle segment in a Solution.
const Separator = 0

var (
	// ErrDimension reports an encoding that does not fit the instance.
	ErrDimension = errors.New("solution does not match instance")
	// ErrAssignment reports a call that is not carried exactly once.
	ErrAssignment = errors.New("call not assigned exactly once")
	// ErrSyntax reports an unparsable textual solution.
	ErrSyntax = errors.New("invalid solution syntax")
)

// Solution is the flat encoding: one segment of 1-based call ids per
// vehicle, each closed by Separator, followed by the outsourced segment.
// Within a segment the first occurrence of a call is its pickup and the
// second its delivery.
type Solution []int

// Stop is one port visit of a route.
type Stop struct {
	Call   int // 0-based
	Pickup bool
}

// Route is the visiting order of one vehicle.
type Route []Stop

// Plan is a decoded Solution.
type Plan struct {
	Routes     []Route // one per vehicle
	Outsourced Route
}

// ParseSolution reads "4,4,7,7,0,...", "[4 4 7 7 0 ...]" and similar.
func ParseSolution(s string) (Solution, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "[")
	s = strings.TrimSuffix(s, "]")
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || unicode.IsSpace(r) })
	out := make(Solution, 0, len(fields))
	for _, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrSyntax, f)
		}
		out = append(out, n)
	}
	return out, nil
}

func (s Solution) String() string {
	parts := make([]string, len(s))
	for i, v := range s {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ",")
}

// Decode splits s into per-vehicle routes. It only checks what the
// evaluator relies on: one separator per vehicle, call ids in range and an
// even number of occurrences of each call within its segment.
func Decode(in *problem.Instance, s Solution) (Plan, error) {
	nv, nc := in.NumVehicles(), in.NumCalls()
	seps := 0
	for _, x := range s {
		if x == Separator {
			seps++
		}
	}
	if seps != nv {
		return Plan{}, fmt.Errorf("%w: %d separators for %d vehicles", ErrDimension, seps, nv)
	}

	plan := Plan{Routes: make([]Route, nv)}
	seg := 0
	seen := make([]int, nc)
	var cur Route
	closeSegment := func() error {
		for _, st := range cur {
			if seen[st.Call]%2 != 0 {
				return fmt.Errorf("%w: call %d has no delivery in segment %d", ErrDimension, st.Call+1, seg+1)
			}
		}
		for _, st := range cur {
			seen[st.Call] = 0
		}
		if seg < nv {
			plan.Routes[seg] = cur
		} else {
			plan.Outsourced = cur
		}
		cur = nil
		seg++
		return nil
	}
	for i, x := range s {
		if x == Separator {
			if err := closeSegment(); err != nil {
				return Plan{}, err
			}
			continue
		}
		if x < 1 || x > nc {
			return Plan{}, fmt.Errorf("%w: call %d at position %d not in 1..%d", ErrDimension, x, i, nc)
		}
		c := x - 1
		cur = append(cur, Stop{Call: c, Pickup: seen[c]%2 == 0})
		seen[c]++
	}
	if err := closeSegment(); err != nil {
		return Plan{}, err
	}
	return plan, nil
}

// Encode is the inverse of Decode.
func (p Plan) Encode() Solution {
	n := len(p.Routes) + len(p.Outsourced)
	for _, r := range p.Routes {
		n += len(r)
	}
	out := make(Solution, 0, n)
	for _, r := range p.Routes {
		for _, st := range r {
			out = append(out, st.Call+1)
		}
		out = append(out, Separator)
	}
	for _, st := range p.Outsourced {
		out = append(out, st.Call+1)
	}
	return out
}

// Validate checks that s decodes against in and that every call is either
// carried by exactly one vehicle or outsourced, with one pickup and one
// delivery.
func (s Solution) Validate(in *problem.Instance) error {
	plan, err := Decode(in, s)
	if err != nil {
		return err
	}
	count := make([]int, in.NumCalls())
	for _, r := range plan.Routes {
		for _, st := range r {
			count[st.Call]++
		}
	}
	for _, st := range plan.Outsourced {
		count[st.Call]++
	}
	for c, n := range count {
		if n != 2 {
			return fmt.Errorf("%w: call %d occurs %d times", ErrAssignment, c+1, n)
		}
	}
	return nil
}

func (st Stop) port(in *problem.Instance) int {
	if st.Pickup {
		return in.Calls[st.Call].Origin
	}
	return in.Calls[st.Call].Destination
}
