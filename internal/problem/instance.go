// Package problem loads pickup-and-delivery instances for a heterogeneous
// vessel fleet and exposes them as read-only tables.
package problem

// Vehicle is one vessel of the fleet.
type Vehicle struct {
	Home      int // 0-based node index
	StartTime float64
	Capacity  float64
}

// Call is a transportation request: pick Size units up at Origin and
// deliver them to Destination within the given time windows.
type Call struct {
	Origin           int // 0-based node index
	Destination      int // 0-based node index
	Size             float64
	NotTransportCost float64
	PickupLower      float64
	PickupUpper      float64
	DeliveryLower    float64
	DeliveryUpper    float64
}

// Instance is a loaded problem. All tables are 0-based and must not be
// modified once Parse has returned.
type Instance struct {
	Nodes    int
	Vehicles []Vehicle
	Calls    []Call

	// [vehicle][from][to]
	TravelTime [][][]float64
	TravelCost [][][]float64

	// [vehicle][node]: leg from the vessel's home node, starting time included.
	FirstTravelTime [][]float64
	FirstTravelCost [][]float64

	// [vehicle][call]
	LoadingTime   [][]float64
	UnloadingTime [][]float64
	PortCost      [][]float64
	VesselCargo   [][]bool
}

// Cargo column order used by CargoMatrix.
const (
	CargoOrigin = iota
	CargoDestination
	CargoSize
	CargoNotTransportCost
	CargoPickupLower
	CargoPickupUpper
	CargoDeliveryLower
	CargoDeliveryUpper
	cargoColumns
)

func (in *Instance) NumVehicles() int { return len(in.Vehicles) }
func (in *Instance) NumCalls() int    { return len(in.Calls) }

// Compatible reports whether vehicle v may carry call c (both 0-based).
func (in *Instance) Compatible(v, c int) bool {
	return in.VesselCargo[v][c]
}

// Capacities returns the per-vehicle capacity vector.
func (in *Instance) Capacities() []float64 {
	out := make([]float64, len(in.Vehicles))
	for i, v := range in.Vehicles {
		out[i] = v.Capacity
	}
	return out
}

// CargoMatrix returns one row per call with the columns Cargo* above. Node
// columns stay 0-based.
func (in *Instance) CargoMatrix() [][]float64 {
	out := make([][]float64, len(in.Calls))
	for i, c := range in.Calls {
		row := make([]float64, cargoColumns)
		row[CargoOrigin] = float64(c.Origin)
		row[CargoDestination] = float64(c.Destination)
		row[CargoSize] = c.Size
		row[CargoNotTransportCost] = c.NotTransportCost
		row[CargoPickupLower] = c.PickupLower
		row[CargoPickupUpper] = c.PickupUpper
		row[CargoDeliveryLower] = c.DeliveryLower
		row[CargoDeliveryUpper] = c.DeliveryUpper
		out[i] = row
	}
	return out
}

// Unpack returns the instance as its positional field sequence: node count,
// vehicle count, call count, cargo, travel time, first travel time, vessel
// capacity, loading time, unloading time, vessel cargo, travel cost, first
// travel cost and port cost. The slices share memory with the instance.
func (in *Instance) Unpack() (
	nodes, vehicles, calls int,
	cargo [][]float64,
	travelTime [][][]float64,
	firstTravelTime [][]float64,
	capacity []float64,
	loadingTime, unloadingTime [][]float64,
	vesselCargo [][]bool,
	travelCost [][][]float64,
	firstTravelCost [][]float64,
	portCost [][]float64,
) {
	return in.Nodes, len(in.Vehicles), len(in.Calls),
		in.CargoMatrix(),
		in.TravelTime,
		in.FirstTravelTime,
		in.Capacities(),
		in.LoadingTime, in.UnloadingTime,
		in.VesselCargo,
		in.TravelCost,
		in.FirstTravelCost,
		in.PortCost
}

// CompatibilityTable renders VesselCargo as 0/1 rows, one per vehicle.
func (in *Instance) CompatibilityTable() [][]int {
	out := make([][]int, len(in.VesselCargo))
	for v, row := range in.VesselCargo {
		out[v] = make([]int, len(row))
		for c, ok := range row {
			if ok {
				out[v][c] = 1
			}
		}
	}
	return out
}
