package api

import (
	"errors"
	"fmt"
	"strings"

	"vesselpdp/internal/model"
)

const maxNameLen = 200

func validateInstanceIn(req *model.InstanceIn) error {
	req.Name = strings.TrimSpace(req.Name)
	if len(req.Name) > maxNameLen {
		return fmt.Errorf("name must be at most %d characters", maxNameLen)
	}
	if strings.TrimSpace(req.Source) == "" {
		return errors.New("source is required")
	}
	return nil
}

func validateEvaluateRequest(req *model.EvaluateRequest) error {
	if strings.TrimSpace(req.InstanceID) == "" {
		return errors.New("instanceId is required")
	}
	if req.Solution == nil {
		return errors.New("solution is required")
	}
	return nil
}
