package store

import (
	"context"
	"errors"

	"vesselpdp/internal/model"
)

// Store is the persistence interface used by the API server and the CLI.
type Store interface {
	// Instances
	SaveInstance(ctx context.Context, in model.Instance) (model.Instance, error)
	GetInstance(ctx context.Context, id string) (model.Instance, error)
	ListInstances(ctx context.Context, cursor string, limit int) ([]model.Instance, string, error)
	DeleteInstance(ctx context.Context, id string) error

	// Evaluations
	SaveEvaluation(ctx context.Context, ev model.Evaluation) (model.Evaluation, error)
	GetEvaluation(ctx context.Context, id string) (model.Evaluation, error)
	ListEvaluations(ctx context.Context, instanceID, cursor string, limit int) ([]model.Evaluation, string, error)

	Ping(ctx context.Context) error
	Close() error
}

var ErrNotFound = errors.New("not found")

const (
	defaultLimit = 100
	maxLimit     = 500
)

func clampLimit(limit int) int {
	if limit <= 0 || limit > maxLimit {
		return defaultLimit
	}
	return limit
}
