package controller

import (
	"context"
	"fmt"
	"strings"

	"github.com/spcl/knowledge-graph-of-thoughts-go/internal/model"
	"github.com/spcl/knowledge-graph-of-thoughts-go/internal/prompts"
)

var needForMathSchema = map[string]any{
	"type":       "object",
	"properties": map[string]any{"need_for_math": map[string]any{"type": "boolean"}},
	"required":   []string{"need_for_math"},
}

var finalSolutionSchema = map[string]any{
	"type":       "object",
	"properties": map[string]any{"final_solution": map[string]any{"type": "string"}},
	"required":   []string{"final_solution"},
}

var forcedSolutionSchema = map[string]any{
	"type":       "object",
	"properties": map[string]any{"solution": map[string]any{"type": "string"}},
	"required":   []string{"solution"},
}

// finalizeNode implements spec.md §4.5.5: if the iteration budget was
// exhausted with no solutions gathered, force a last round of retrieves;
// run every non-empty solution through need_for_math / the code-executor
// tool, parse each into candidate final answers, and either vote among them
// or fall back to forced_solution. The returned answer is never the empty
// string (property 4).
func (c *Controller) finalizeNode(ctx context.Context, s *runState) (*runState, error) {
	if s.iteration >= c.limits.MaxIterations && allEmpty(s.rawSolutions) {
		for i := 0; i < max(1, c.limits.NumNextStepsDecision); i++ {
			sol, err := c.forcedRetrieve(ctx, s)
			if err != nil {
				return nil, err
			}
			s.rawSolutions = append(s.rawSolutions, sol)
		}
	}

	if !allEmpty(s.rawSolutions) {
		var parsed []string
		for _, sol := range s.rawSolutions {
			if model.IsEmptySolution(sol) {
				continue
			}
			sol, err := c.applyMathIfNeeded(ctx, s, sol)
			if err != nil {
				return nil, err
			}
			for i := 0; i < max(1, c.limits.MaxFinalSolutionParsing); i++ {
				formatted, err := c.parseSolution(ctx, s, sol)
				if err != nil {
					return nil, err
				}
				parsed = append(parsed, formatted)
			}
		}

		if allBlank(parsed) {
			answer, err := c.forcedSolutionAnswer(ctx, s)
			if err != nil {
				return nil, err
			}
			s.finalAnswer = answer
			return s, nil
		}

		answer, err := c.voteFinalSolution(ctx, s, parsed)
		if err != nil {
			return nil, err
		}
		s.finalAnswer = answer
		return s, nil
	}

	answer, err := c.forcedSolutionAnswer(ctx, s)
	if err != nil {
		return nil, err
	}
	s.finalAnswer = answer
	return s, nil
}

func allEmpty(solutions []string) bool {
	for _, s := range solutions {
		if !model.IsEmptySolution(s) {
			return false
		}
	}
	return true
}

func allBlank(candidates []string) bool {
	for _, c := range candidates {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func (c *Controller) applyMathIfNeeded(ctx context.Context, s *runState, solution string) (string, error) {
	prompt, err := prompts.Render(prompts.NeedForMath, prompts.NeedForMathData{
		Problem:         s.problem.Statement,
		PartialSolution: solution,
	})
	if err != nil {
		return "", err
	}

	var need struct {
		NeedForMath bool `json:"need_for_math"`
	}
	if err := c.oracle.InvokeStructured(ctx, "need_for_math", prompt, needForMathSchema, &need); err != nil {
		return "", fmt.Errorf("%w: need_for_math: %v", model.ErrParseFailure, err)
	}
	if !need.NeedForMath {
		return solution, nil
	}

	mathPrompt, err := prompts.Render(prompts.MathToolCall, prompts.MathToolCallData{
		Problem:         s.problem.Statement,
		PartialSolution: solution,
	})
	if err != nil {
		return "", err
	}

	var code struct {
		Code string `json:"final_solution"`
	}
	if err := c.oracle.InvokeStructured(ctx, "math_tool_call", mathPrompt, finalSolutionSchema, &code); err != nil {
		return "", fmt.Errorf("%w: math_tool_call: %v", model.ErrParseFailure, err)
	}

	result, toolErr := c.invoker.InvokeWithRetry(ctx, model.ToolCall{
		Name:      "Python_Code_Executor",
		Arguments: map[string]any{"code": code.Code},
	})
	if toolErr != nil || result.Err != nil {
		c.log.Warn("controller: math tool call failed, keeping unaugmented solution")
		return solution, nil
	}
	return solution + "\n" + fmt.Sprintf("%v", result.Output), nil
}

func (c *Controller) parseSolution(ctx context.Context, s *runState, solution string) (string, error) {
	tmplName := "parse_solution"
	tmpl := prompts.ParseSolution
	if c.limits.GaiaFormatter {
		tmplName = "parse_solution_strict"
		tmpl = prompts.ParseSolutionStrict
	}
	prompt, err := prompts.Render(tmpl, prompts.ParseSolutionData{Problem: s.problem.Statement, Solution: solution})
	if err != nil {
		return "", err
	}
	var parsed struct {
		FinalSolution string `json:"final_solution"`
	}
	if err := c.oracle.InvokeStructured(ctx, tmplName, prompt, finalSolutionSchema, &parsed); err != nil {
		return "", fmt.Errorf("%w: %s: %v", model.ErrParseFailure, tmplName, err)
	}
	return parsed.FinalSolution, nil
}

func (c *Controller) voteFinalSolution(ctx context.Context, s *runState, candidates []string) (string, error) {
	prompt, err := prompts.Render(prompts.FinalSolutionVote, prompts.FinalSolutionVoteData{
		Problem:    s.problem.Statement,
		Candidates: candidates,
	})
	if err != nil {
		return "", err
	}
	var parsed struct {
		FinalSolution string `json:"final_solution"`
	}
	if err := c.oracle.InvokeStructured(ctx, "final_solution_vote", prompt, finalSolutionSchema, &parsed); err != nil {
		return "", fmt.Errorf("%w: final_solution_vote: %v", model.ErrParseFailure, err)
	}
	return parsed.FinalSolution, nil
}

func (c *Controller) forcedSolutionAnswer(ctx context.Context, s *runState) (string, error) {
	prompt, err := prompts.Render(prompts.ForcedSolution, prompts.ForcedSolutionData{
		Problem:   s.problem.Statement,
		GraphView: s.graphView,
	})
	if err != nil {
		return "", err
	}
	var forced struct {
		Solution string `json:"solution"`
	}
	if err := c.oracle.InvokeStructured(ctx, "forced_solution", prompt, forcedSolutionSchema, &forced); err != nil {
		return "", fmt.Errorf("%w: forced_solution: %v", model.ErrParseFailure, err)
	}
	return c.parseSolution(ctx, s, forced.Solution)
}
