package model

import (
	"time"

	"vesselpdp/internal/opt"
)

// API and storage types shared by the store, cache and HTTP layers.

type InstanceIn struct {
	Name   string `json:"name"`
	Source string `json:"source"`
}

// Instance is a stored problem file plus its headline dimensions. Source is
// the raw file text and is not sent to clients.
type Instance struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Nodes     int       `json:"nodes"`
	Vehicles  int       `json:"vehicles"`
	Calls     int       `json:"calls"`
	Checksum  string    `json:"checksum"`
	Source    string    `json:"-"`
	CreatedAt time.Time `json:"createdAt"`
}

type InstanceDetail struct {
	Instance
	Compatibility [][]int   `json:"compatibility"`
	Capacities    []float64 `json:"capacities"`
}

type EvaluateRequest struct {
	InstanceID string `json:"instanceId"`
	Solution   []int  `json:"solution"`
}

type SeedRequest struct {
	Strategy string `json:"strategy,omitempty"`
}

type Evaluation struct {
	ID             string          `json:"id"`
	InstanceID     string          `json:"instanceId"`
	Solution       []int           `json:"solution"`
	Feasible       bool            `json:"feasible"`
	Reason         string          `json:"reason"`
	Penalty        float64         `json:"penalty"`
	Cost           float64         `json:"cost"`
	Violations     []opt.Violation `json:"violations,omitempty"`
	VehicleCosts   []float64       `json:"vehicleCosts,omitempty"`
	OutsourcedCost float64         `json:"outsourcedCost"`
	Strategy       string          `json:"strategy,omitempty"`
	Cached         bool            `json:"cached"`
	CreatedAt      time.Time       `json:"createdAt"`
}

// NewEvaluation copies an evaluator result into a record for instanceID.
func NewEvaluation(instanceID string, sol opt.Solution, res opt.Result) Evaluation {
	return Evaluation{
		InstanceID:     instanceID,
		Solution:       append([]int(nil), sol...),
		Feasible:       res.Feasible,
		Reason:         res.Reason,
		Penalty:        res.Penalty,
		Cost:           res.Cost,
		Violations:     res.Violations,
		VehicleCosts:   res.VehicleCosts,
		OutsourcedCost: res.OutsourcedCost,
	}
}

// Result is the inverse of NewEvaluation.
func (e Evaluation) Result() opt.Result {
	return opt.Result{
		Feasible:       e.Feasible,
		Reason:         e.Reason,
		Penalty:        e.Penalty,
		Cost:           e.Cost,
		Violations:     e.Violations,
		VehicleCosts:   e.VehicleCosts,
		OutsourcedCost: e.OutsourcedCost,
	}
}

// Event is published to stream subscribers of an instance.
type Event struct {
	Type       string     `json:"type"`
	InstanceID string     `json:"instanceId"`
	Evaluation Evaluation `json:"evaluation"`
}

const EventEvaluationCompleted = "evaluation.completed"
