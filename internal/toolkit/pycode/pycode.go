// Package pycode implements the math/code executor tool: it POSTs
// {code, required_modules} to a sandboxed executor service and, on failure,
// self-repairs the code through the oracle up to a fixed retry budget,
// grounded on PythonCodeTool.py's _run/_fix_code.
package pycode

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spcl/knowledge-graph-of-thoughts-go/internal/oracle"
	"github.com/spcl/knowledge-graph-of-thoughts-go/internal/toolkit"
	"github.com/spcl/knowledge-graph-of-thoughts-go/log"
)

const defaultTimeout = 240 * time.Second

// FixedCode is the structured-output shape the oracle emits when asked to
// repair code, mirroring PythonCodeTool.py's inline FixedCode pydantic model.
type FixedCode struct {
	FixedCode            string   `json:"fixed_code"`
	FixedRequiredModules []string `json:"fixed_required_modules"`
}

var fixSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"fixed_code":             map[string]any{"type": "string", "description": "The fixed code"},
		"fixed_required_modules": map[string]any{"type": "array", "items": map[string]any{"type": "string"}, "description": "The fixed list of required modules"},
	},
	"required": []string{"fixed_code"},
}

// Tool executes Python code against a remote sandboxed executor.
type Tool struct {
	executorURL  string
	tryToFix     bool
	maxFixTries  int
	oracle       oracle.Oracle
	http         *http.Client
	log          log.Logger
}

type Option func(*Tool)

func WithFixOnFailure(o oracle.Oracle, maxTries int) Option {
	return func(t *Tool) {
		t.tryToFix = true
		t.maxFixTries = maxTries
		t.oracle = o
	}
}

// New returns the Python_Code_Executor tool talking to executorURL.
func New(executorURL string, logger log.Logger, opts ...Option) toolkit.Tool {
	if logger == nil {
		logger = log.GetDefaultLogger()
	}
	t := &Tool{executorURL: executorURL, maxFixTries: 3, http: &http.Client{Timeout: defaultTimeout}, log: logger}
	for _, opt := range opts {
		opt(t)
	}
	return toolkit.NewSimpleTool(t.Name(), t.Description(), t.Schema(), t.call)
}

func (t *Tool) Name() string { return "Python_Code_Executor" }

func (t *Tool) Description() string {
	return `This tool executes Python code. Users can specify the code and any required packages. Best tool for math and statistic computations.
ALWAYS add a print statement for the final answer.

Limitations:
- Execution environment is Python 3.9; some packages may not be installable.
- Direct file access is not allowed. Files must be accessible via a URL.`
}

func (t *Tool) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"code":              map[string]any{"type": "string", "description": "The Python code to execute. Always print the final answer."},
			"required_modules": map[string]any{"type": "array", "items": map[string]any{"type": "string"}, "description": "Optional list of modules to install before execution."},
		},
		"required": []string{"code"},
	}
}

type runRequest struct {
	Code            string   `json:"code"`
	RequiredModules []string `json:"required_modules"`
}

func (t *Tool) call(ctx context.Context, input string) (string, error) {
	var req runRequest
	if err := json.Unmarshal([]byte(input), &req); err != nil {
		req.Code = input
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	body, status, err := t.execute(ctx, req)
	fixesLeft := t.maxFixTries

	for status != http.StatusOK && t.tryToFix && fixesLeft > 0 {
		fixesLeft--
		t.log.Error("pycode: execution failed, attempting fix (%d attempts left): %s", fixesLeft, string(body))

		fixed, fixErr := t.fixCode(ctx, string(body), req)
		if fixErr != nil {
			t.log.Error("pycode: failed to fix code: %v", fixErr)
			break
		}
		req.Code = fixed.FixedCode
		if fixed.FixedRequiredModules != nil {
			req.RequiredModules = fixed.FixedRequiredModules
		}

		body, status, err = t.execute(ctx, req)
	}

	if err != nil {
		return "", fmt.Errorf("pycode: executing code: %w", err)
	}
	if status != http.StatusOK {
		return fmt.Sprintf(`{"error": %q}`, string(body)), nil
	}
	return string(body), nil
}

func (t *Tool) execute(ctx context.Context, req runRequest) ([]byte, int, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, 0, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, t.executorURL, bytes.NewReader(payload))
	if err != nil {
		return nil, 0, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := t.http.Do(httpReq)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, err
	}
	return body, resp.StatusCode, nil
}

func (t *Tool) fixCode(ctx context.Context, errorText string, req runRequest) (*FixedCode, error) {
	prompt := fmt.Sprintf("The following Python code failed with error:\n%s\n\nCode:\n%s\n\nRequired modules: %v\n\nReturn the fixed code and fixed list of required modules.",
		errorText, req.Code, req.RequiredModules)

	var fixed FixedCode
	if err := t.oracle.InvokeStructured(ctx, "RunPythonCodeTool._fix_code", prompt, fixSchema, &fixed); err != nil {
		return nil, err
	}
	return &fixed, nil
}
