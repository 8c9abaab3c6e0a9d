package controller

import (
	"context"
	"fmt"

	"github.com/spcl/knowledge-graph-of-thoughts-go/internal/model"
	"github.com/spcl/knowledge-graph-of-thoughts-go/internal/prompts"
)

// retrieveNode implements spec.md §4.5.4's retrieve branch: for each
// candidate read-query, try it, repair it with fix_query up to
// MaxQueryFixingRetry times, and if it's still unsuccessful or empty, ask
// for a brand-new query (not a repair) via retrieve_query, up to
// MaxRetrieveQueryRetry outer attempts.
func (c *Controller) retrieveNode(ctx context.Context, s *runState) (*runState, error) {
	for _, q := range s.pendingRetrieveQueries {
		payload, err := c.retrieveOne(ctx, s, q)
		if err != nil {
			return nil, err
		}
		s.rawSolutions = append(s.rawSolutions, payload)
	}
	s.iteration++
	return s, nil
}

func (c *Controller) retrieveOne(ctx context.Context, s *runState, query string) (string, error) {
	outcome, err := c.store.Read(ctx, query)
	if err != nil {
		return "", fmt.Errorf("controller: read-query connectivity error: %w", err)
	}

	for outer := 0; (!outcome.Success || outcome.IsEmpty()) && outer < c.limits.MaxRetrieveQueryRetry; outer++ {
		for fix := 0; !outcome.Success && fix < c.limits.MaxQueryFixingRetry; fix++ {
			errText := ""
			if outcome.Err != nil {
				errText = outcome.Err.Error()
			}
			fixed, err := c.fixQuery(ctx, s, query, errText)
			if err != nil {
				return "", err
			}
			query = fixed

			outcome, err = c.store.Read(ctx, query)
			if err != nil {
				return "", fmt.Errorf("controller: read-query connectivity error: %w", err)
			}
		}

		if !outcome.Success || outcome.IsEmpty() {
			fresh, err := c.retrieveQuery(ctx, s, query)
			if err != nil {
				return "", err
			}
			query = fresh

			outcome, err = c.store.Read(ctx, query)
			if err != nil {
				return "", fmt.Errorf("controller: read-query connectivity error: %w", err)
			}
		}
	}

	return payloadText(outcome), nil
}

func (c *Controller) retrieveQuery(ctx context.Context, s *runState, failedQuery string) (string, error) {
	tmpl := prompts.RetrieveQuery.For(s.dialect)
	prompt, err := prompts.Render(tmpl, prompts.RetrieveQueryData{
		Problem:     s.problem.Statement,
		GraphView:   s.graphView,
		FailedQuery: failedQuery,
	})
	if err != nil {
		return "", err
	}
	var parsed struct {
		Query string `json:"query"`
	}
	if err := c.oracle.InvokeStructured(ctx, "retrieve_query", prompt, fixQuerySchema, &parsed); err != nil {
		return "", fmt.Errorf("%w: retrieve_query: %v", model.ErrParseFailure, err)
	}
	return parsed.Query, nil
}

func (c *Controller) forcedRetrieve(ctx context.Context, s *runState) (string, error) {
	tmpl := prompts.ForcedRetrieve.For(s.dialect)
	prompt, err := prompts.Render(tmpl, prompts.RetrieveQueryData{Problem: s.problem.Statement, GraphView: s.graphView})
	if err != nil {
		return "", err
	}
	var parsed struct {
		Query string `json:"query"`
	}
	if err := c.oracle.InvokeStructured(ctx, "forced_retrieve", prompt, fixQuerySchema, &parsed); err != nil {
		return "", fmt.Errorf("%w: forced_retrieve: %v", model.ErrParseFailure, err)
	}
	outcome, err := c.store.Read(ctx, parsed.Query)
	if err != nil {
		return "", fmt.Errorf("controller: forced-retrieve read connectivity error: %w", err)
	}
	return payloadText(outcome), nil
}

func payloadText(o *model.QueryOutcome) string {
	if o == nil || o.Payload == nil {
		return ""
	}
	return fmt.Sprintf("%v", o.Payload)
}
