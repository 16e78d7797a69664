package api

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"wlcheck/internal/dzn"
	"wlcheck/internal/model"
	"wlcheck/internal/validate"
)

type validationRequest struct {
	Instance     string              `json:"instance"`
	InstanceData *model.InstanceData `json:"instanceData"`
	Solution     string              `json:"solution"`
}

var errBadRequest = errors.New("invalid validation request")

func validateValidationRequest(req *validationRequest) error {
	hasText := strings.TrimSpace(req.Instance) != ""
	if hasText == (req.InstanceData != nil) {
		return fmt.Errorf("%w: exactly one of instance or instanceData must be set", errBadRequest)
	}
	if strings.TrimSpace(req.Solution) == "" {
		return fmt.Errorf("%w: solution is required", errBadRequest)
	}
	return nil
}

type validationResult struct {
	Report   validate.Report
	Notation dzn.Notation
	Text     string
}

// runValidation loads both documents into a fresh engine. Any returned
// error means the inputs were malformed and no report exists.
func runValidation(req validationRequest) (validationResult, error) {
	var data model.InstanceData
	if req.InstanceData != nil {
		data = *req.InstanceData
	} else {
		d, err := dzn.ParseInstance(req.Instance)
		if err != nil {
			return validationResult{}, fmt.Errorf("instance: %w", err)
		}
		data = d
	}
	in, err := model.NewInstance(data)
	if err != nil {
		return validationResult{}, fmt.Errorf("instance: %w", err)
	}
	as, notation, err := dzn.ParseSolution(req.Solution, in.Stores(), in.Warehouses())
	if err != nil {
		return validationResult{}, fmt.Errorf("solution: %w", err)
	}
	eng := validate.NewEngine(in)
	if err := eng.AssignAll(as); err != nil {
		return validationResult{}, fmt.Errorf("solution: %w", err)
	}
	var buf bytes.Buffer
	if err := eng.PrintReport(&buf); err != nil {
		return validationResult{}, err
	}
	return validationResult{Report: eng.Summary(), Notation: notation, Text: buf.String()}, nil
}
