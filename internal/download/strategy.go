package download

import (
	"context"
	"errors"
	"fmt"
)

// Request is one delivery: a resolved URL headed for a sink
type Request struct {
	URL           string
	SuggestedName string
	Sink          Sink
}

// Result tells which strategy delivered the file and how
type Result struct {
	Strategy string `json:"strategy"`
	FileName string `json:"file_name,omitempty"`
	Bytes    int64  `json:"bytes"`
}

// Strategy is one escalation tier of a delivery
type Strategy struct {
	Name    string
	Deliver func(ctx context.Context, req *Request) (Result, error)
}

// Run tries strategies in order and stops at the first success. observe,
// when set, sees every attempt.
func Run(ctx context.Context, req *Request, strategies []Strategy, observe func(name string, err error)) (Result, error) {
	var errs []error
	for _, s := range strategies {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		result, err := s.Deliver(ctx, req)
		if observe != nil {
			observe(s.Name, err)
		}
		if err == nil {
			result.Strategy = s.Name
			return result, nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", s.Name, err))
	}
	return Result{}, fmt.Errorf("%w: %w", ErrAllStrategiesFailed, errors.Join(errs...))
}
