package problem

import (
	"bufio"
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

const maxLineBytes = 1 << 20

// Load reads and parses the instance file at path.
func Load(path string) (*Instance, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open instance: %w", err)
	}
	defer func() { _ = f.Close() }()
	in, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return in, nil
}

// ParseBytes parses an instance held in memory.
func ParseBytes(src []byte) (*Instance, error) {
	return Parse(bytes.NewReader(src))
}

// Parse reads an instance. It never returns a partially filled Instance: on
// any failure the result is nil and the error is a *ParseError. Declared
// counts are checked against the rows actually present before any table is
// allocated.
func Parse(r io.Reader) (*Instance, error) {
	p, err := scan(r)
	if err != nil {
		return nil, err
	}
	in, err := p.instance()
	if err != nil {
		var pe *ParseError
		if errors.As(err, &pe) {
			return nil, pe
		}
		return nil, &ParseError{Line: p.line, Section: p.section, Err: err}
	}
	return in, nil
}

type dataLine struct {
	num    int // 1-based line in the source
	fields []string
}

type parser struct {
	lines   []dataLine
	pos     int
	line    int
	section string
}

// scan splits r into data lines, skipping comments and blank lines.
func scan(r io.Reader) (*parser, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	p := &parser{section: "input"}
	n := 0
	for sc.Scan() {
		n++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "%") {
			continue
		}
		parts := strings.Split(text, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		p.lines = append(p.lines, dataLine{num: n, fields: parts})
	}
	if err := sc.Err(); err != nil {
		return nil, &ParseError{Line: n + 1, Section: p.section, Err: fmt.Errorf("%w: %v", ErrMalformed, err)}
	}
	return p, nil
}

func (p *parser) fail(err error) error {
	return &ParseError{Line: p.line, Section: p.section, Err: err}
}

// next returns the fields of the next data line.
func (p *parser) next() ([]string, error) {
	if p.pos >= len(p.lines) {
		return nil, &ParseError{Section: p.section, Err: ErrMissingSection}
	}
	l := p.lines[p.pos]
	p.pos++
	p.line = l.num
	return l.fields, nil
}

// expect fails unless at least rows data lines remain. rows < 0 marks a
// count product that overflowed.
func (p *parser) expect(rows int) error {
	if rows < 0 {
		return p.fail(fmt.Errorf("%w: declared counts are too large", ErrOutOfRange))
	}
	if left := len(p.lines) - p.pos; rows > left {
		return p.fail(fmt.Errorf("%w: declared counts need %d more rows, %d remain", ErrOutOfRange, rows, left))
	}
	return nil
}

// mul and add return -1 on overflow or when an operand is already -1.
func mul(a, b int) int {
	if a < 0 || b < 0 || (a != 0 && b > math.MaxInt/a) {
		return -1
	}
	return a * b
}

func add(terms ...int) int {
	sum := 0
	for _, t := range terms {
		if t < 0 || sum > math.MaxInt-t {
			return -1
		}
		sum += t
	}
	return sum
}

func (p *parser) row(want int) ([]string, error) {
	f, err := p.next()
	if err != nil {
		return nil, err
	}
	if want > 0 && len(f) != want {
		return nil, p.fail(fmt.Errorf("%w: got %d, want %d", ErrFieldCount, len(f), want))
	}
	return f, nil
}

func (p *parser) count(section string) (int, error) {
	p.section = section
	f, err := p.row(1)
	if err != nil {
		return 0, err
	}
	n, err := p.integer(f[0])
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, p.fail(fmt.Errorf("%w: negative count %d", ErrOutOfRange, n))
	}
	return n, nil
}

func (p *parser) number(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, p.fail(fmt.Errorf("%w: %q", ErrNotANumber, s))
	}
	return v, nil
}

func (p *parser) integer(s string) (int, error) {
	v, err := p.number(s)
	if err != nil {
		return 0, err
	}
	if v != math.Trunc(v) {
		return 0, p.fail(fmt.Errorf("%w: %q is not an integer", ErrNotANumber, s))
	}
	return int(v), nil
}

// index parses a 1-based index in [1, n] and returns it 0-based.
func (p *parser) index(s, what string, n int) (int, error) {
	v, err := p.integer(s)
	if err != nil {
		return 0, err
	}
	if v < 1 || v > n {
		return 0, p.fail(fmt.Errorf("%w: %s %d not in 1..%d", ErrOutOfRange, what, v, n))
	}
	return v - 1, nil
}

func (p *parser) instance() (*Instance, error) {
	nodes, err := p.count("number of nodes")
	if err != nil {
		return nil, err
	}
	if nodes == 0 {
		return nil, p.fail(fmt.Errorf("%w: instance has no nodes", ErrOutOfRange))
	}
	nv, err := p.count("number of vehicles")
	if err != nil {
		return nil, err
	}
	if err := p.expect(nv); err != nil {
		return nil, err
	}
	in := &Instance{Nodes: nodes, Vehicles: make([]Vehicle, nv)}
	if err := p.vehicles(in); err != nil {
		return nil, err
	}
	nc, err := p.count("number of calls")
	if err != nil {
		return nil, err
	}
	// compatibility, calls, travel legs and port rows
	if err := p.expect(add(nv, nc, mul(mul(nv, nodes), nodes), mul(nv, nc))); err != nil {
		return nil, err
	}
	in.Calls = make([]Call, nc)
	if err := p.compatibility(in); err != nil {
		return nil, err
	}
	if err := p.calls(in); err != nil {
		return nil, err
	}
	if err := p.travel(in); err != nil {
		return nil, err
	}
	if err := p.portTimes(in); err != nil {
		return nil, err
	}
	p.section = "end of file"
	if _, err := p.next(); err == nil {
		return nil, p.fail(ErrTrailingData)
	} else if !errors.Is(err, ErrMissingSection) {
		return nil, err
	}
	in.deriveFirstLegs()
	return in, nil
}

func (p *parser) vehicles(in *Instance) error {
	p.section = "vehicles"
	seen := make([]bool, len(in.Vehicles))
	for range in.Vehicles {
		f, err := p.row(4)
		if err != nil {
			return err
		}
		v, err := p.index(f[0], "vehicle", len(in.Vehicles))
		if err != nil {
			return err
		}
		if seen[v] {
			return p.fail(fmt.Errorf("%w: vehicle %d", ErrDuplicateRow, v+1))
		}
		seen[v] = true
		home, err := p.index(f[1], "home node", in.Nodes)
		if err != nil {
			return err
		}
		start, err := p.number(f[2])
		if err != nil {
			return err
		}
		capacity, err := p.number(f[3])
		if err != nil {
			return err
		}
		in.Vehicles[v] = Vehicle{Home: home, StartTime: start, Capacity: capacity}
	}
	return nil
}

func (p *parser) compatibility(in *Instance) error {
	p.section = "vessel cargo"
	nv, nc := len(in.Vehicles), len(in.Calls)
	in.VesselCargo = make([][]bool, nv)
	for range nv {
		f, err := p.row(0)
		if err != nil {
			return err
		}
		v, err := p.index(f[0], "vehicle", nv)
		if err != nil {
			return err
		}
		if in.VesselCargo[v] != nil {
			return p.fail(fmt.Errorf("%w: vehicle %d", ErrDuplicateRow, v+1))
		}
		row := make([]bool, nc)
		for _, s := range f[1:] {
			if s == "" {
				continue
			}
			c, err := p.index(s, "call", nc)
			if err != nil {
				return err
			}
			row[c] = true
		}
		in.VesselCargo[v] = row
	}
	return nil
}

func (p *parser) calls(in *Instance) error {
	p.section = "calls"
	seen := make([]bool, len(in.Calls))
	for range in.Calls {
		f, err := p.row(9)
		if err != nil {
			return err
		}
		c, err := p.index(f[0], "call", len(in.Calls))
		if err != nil {
			return err
		}
		if seen[c] {
			return p.fail(fmt.Errorf("%w: call %d", ErrDuplicateRow, c+1))
		}
		seen[c] = true
		origin, err := p.index(f[1], "origin node", in.Nodes)
		if err != nil {
			return err
		}
		dest, err := p.index(f[2], "destination node", in.Nodes)
		if err != nil {
			return err
		}
		var vals [6]float64
		for i := range vals {
			if vals[i], err = p.number(f[3+i]); err != nil {
				return err
			}
		}
		in.Calls[c] = Call{
			Origin:           origin,
			Destination:      dest,
			Size:             vals[0],
			NotTransportCost: vals[1],
			PickupLower:      vals[2],
			PickupUpper:      vals[3],
			DeliveryLower:    vals[4],
			DeliveryUpper:    vals[5],
		}
	}
	return nil
}

func (p *parser) travel(in *Instance) error {
	p.section = "travel times and costs"
	nv, n := len(in.Vehicles), in.Nodes
	in.TravelTime = cube(nv, n)
	in.TravelCost = cube(nv, n)
	seen := make([]bool, nv*n*n)
	for range nv * n * n {
		f, err := p.row(5)
		if err != nil {
			return err
		}
		v, err := p.index(f[0], "vehicle", nv)
		if err != nil {
			return err
		}
		from, err := p.index(f[1], "origin node", n)
		if err != nil {
			return err
		}
		to, err := p.index(f[2], "destination node", n)
		if err != nil {
			return err
		}
		k := (v*n+from)*n + to
		if seen[k] {
			return p.fail(fmt.Errorf("%w: vehicle %d leg %d->%d", ErrDuplicateRow, v+1, from+1, to+1))
		}
		seen[k] = true
		if in.TravelTime[v][from][to], err = p.number(f[3]); err != nil {
			return err
		}
		if in.TravelCost[v][from][to], err = p.number(f[4]); err != nil {
			return err
		}
	}
	return nil
}

func (p *parser) portTimes(in *Instance) error {
	p.section = "node times and costs"
	nv, nc := len(in.Vehicles), len(in.Calls)
	in.LoadingTime = grid(nv, nc)
	in.UnloadingTime = grid(nv, nc)
	in.PortCost = grid(nv, nc)
	seen := make([]bool, nv*nc)
	for range nv * nc {
		f, err := p.row(6)
		if err != nil {
			return err
		}
		v, err := p.index(f[0], "vehicle", nv)
		if err != nil {
			return err
		}
		c, err := p.index(f[1], "call", nc)
		if err != nil {
			return err
		}
		if seen[v*nc+c] {
			return p.fail(fmt.Errorf("%w: vehicle %d call %d", ErrDuplicateRow, v+1, c+1))
		}
		seen[v*nc+c] = true
		var vals [4]float64
		for i := range vals {
			if vals[i], err = p.number(f[2+i]); err != nil {
				return err
			}
		}
		in.LoadingTime[v][c] = vals[0]
		in.UnloadingTime[v][c] = vals[2]
		in.PortCost[v][c] = vals[1] + vals[3]
	}
	return nil
}

func (in *Instance) deriveFirstLegs() {
	nv := len(in.Vehicles)
	in.FirstTravelTime = grid(nv, in.Nodes)
	in.FirstTravelCost = grid(nv, in.Nodes)
	for v, veh := range in.Vehicles {
		for j := 0; j < in.Nodes; j++ {
			in.FirstTravelTime[v][j] = in.TravelTime[v][veh.Home][j] + veh.StartTime
			in.FirstTravelCost[v][j] = in.TravelCost[v][veh.Home][j]
		}
	}
}

func grid(rows, cols int) [][]float64 {
	out := make([][]float64, rows)
	for i := range out {
		out[i] = make([]float64, cols)
	}
	return out
}

func cube(k, n int) [][][]float64 {
	out := make([][][]float64, k)
	for i := range out {
		out[i] = grid(n, n)
	}
	return out
}

// Checksum identifies instance source text; equal sources give equal sums.
func Checksum(src []byte) string {
	sum := sha256.Sum256(src)
	return hex.EncodeToString(sum[:])
}
