// Command kgot is the CLI front-end: one problem in, one formatted answer
// out, per spec.md §6.5. It wires a model config file and the process
// environment into a concrete Store/Invoker/Oracle triple and hands them to
// the Iterative Controller.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/spcl/knowledge-graph-of-thoughts-go/internal/config"
	"github.com/spcl/knowledge-graph-of-thoughts-go/internal/controller"
	"github.com/spcl/knowledge-graph-of-thoughts-go/internal/kgraph"
	"github.com/spcl/knowledge-graph-of-thoughts-go/internal/kgraph/memgraph"
	"github.com/spcl/knowledge-graph-of-thoughts-go/internal/kgraph/neo4j"
	"github.com/spcl/knowledge-graph-of-thoughts-go/internal/kgraph/triplestore"
	"github.com/spcl/knowledge-graph-of-thoughts-go/internal/model"
	"github.com/spcl/knowledge-graph-of-thoughts-go/internal/oracle"
	"github.com/spcl/knowledge-graph-of-thoughts-go/internal/oracle/localdaemon"
	"github.com/spcl/knowledge-graph-of-thoughts-go/internal/statistics"
	"github.com/spcl/knowledge-graph-of-thoughts-go/internal/toolkit"
	"github.com/spcl/knowledge-graph-of-thoughts-go/internal/toolkit/fileinspect"
	"github.com/spcl/knowledge-graph-of-thoughts-go/internal/toolkit/imageqa"
	"github.com/spcl/knowledge-graph-of-thoughts-go/internal/toolkit/llmquery"
	"github.com/spcl/knowledge-graph-of-thoughts-go/internal/toolkit/pycode"
	"github.com/spcl/knowledge-graph-of-thoughts-go/internal/toolkit/websurfer"
	"github.com/spcl/knowledge-graph-of-thoughts-go/internal/toolkit/wikipedia"
	"github.com/spcl/knowledge-graph-of-thoughts-go/internal/toolkit/zipextract"
	"github.com/spcl/knowledge-graph-of-thoughts-go/log"
	sashaopenai "github.com/sashabaranov/go-openai"
)

type singleFlags struct {
	problem             string
	files               []string
	iterations          int
	snapshots           string
	configLLMPath       string
	llmPlan             string
	llmPlanTemp         float64
	llmExec             string
	llmExecTemp         float64
	controllerChoice    string
	dbChoice            string
	toolChoice          []string
	gaiaFormatter       bool
	numNextStepsVote    int
	maxQueryFixingRetry int
	maxRetrieveRetry    int
	maxFinalParsing     int
	maxLLMRetries       int
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{Use: "kgot", Short: "Knowledge Graph of Thoughts reasoning controller"}
	root.AddCommand(newSingleCmd())
	return root
}

func newSingleCmd() *cobra.Command {
	f := &singleFlags{}
	cmd := &cobra.Command{
		Use:   "single",
		Short: "Solve a single natural-language problem",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSingle(cmd.Context(), f)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&f.problem, "problem", "p", "", "the problem statement (required)")
	flags.StringSliceVar(&f.files, "files", nil, "attachment file paths")
	flags.IntVarP(&f.iterations, "iterations", "i", 7, "max controller iterations")
	flags.StringVarP(&f.snapshots, "snapshots", "s", "snapshots", "snapshot base directory")
	flags.StringVar(&f.configLLMPath, "config_llm_path", "config_models.yaml", "path to the model config YAML")
	flags.StringVar(&f.llmPlan, "llm-plan", "", "logical model name used by the controller oracle (required)")
	flags.Float64Var(&f.llmPlanTemp, "llm-plan-temp", 0, "temperature override for llm-plan")
	flags.StringVar(&f.llmExec, "llm-exec", "", "logical model name used by the code-fix oracle (defaults to llm-plan)")
	flags.Float64Var(&f.llmExecTemp, "llm-exec-temp", 0, "temperature override for llm-exec")
	flags.StringVar(&f.controllerChoice, "controller_choice", "query-retrieve", "controller algorithm: direct|query-retrieve")
	flags.StringVar(&f.dbChoice, "db_choice", "in-memory", "graph backend: labeled|in-memory|triple")
	flags.StringSliceVar(&f.toolChoice, "tool_choice", nil, "tool names to enable (default: all)")
	flags.BoolVar(&f.gaiaFormatter, "gaia_formatter", false, "use the strict GAIA-style final-answer formatter")
	flags.IntVar(&f.numNextStepsVote, "num_next_steps_decision", 1, "number of next_step votes per round")
	flags.IntVar(&f.maxQueryFixingRetry, "max_query_fixing_retry", 3, "max fix_query retries per query")
	flags.IntVar(&f.maxRetrieveRetry, "max_retrieve_query_retry", 3, "max fresh-query retries per retrieve")
	flags.IntVar(&f.maxFinalParsing, "max_final_solution_parsing", 1, "max parse_solution attempts per raw solution")
	flags.IntVar(&f.maxLLMRetries, "max_llm_retries", 3, "stored in the controller limits; the oracle does not read it and retries transient failures up to 3 times")

	cmd.MarkFlagRequired("problem")
	cmd.MarkFlagRequired("llm-plan")
	return cmd
}

func runSingle(ctx context.Context, f *singleFlags) error {
	if f.controllerChoice != "query-retrieve" {
		return fmt.Errorf("controller_choice %q is not supported by this build (only query-retrieve is implemented)", f.controllerChoice)
	}

	modelConfig, err := config.LoadModelConfig(f.configLLMPath)
	if err != nil {
		return fmt.Errorf("%w", model.ErrBackendUnreachable)
	}

	statsLogger, err := statistics.NewFileLogger("usage_stats.jsonl")
	if err != nil {
		return err
	}

	planEntry, err := modelConfig.Lookup(f.llmPlan)
	if err != nil {
		return err
	}
	if f.llmPlanTemp != 0 {
		planEntry.Temperature = f.llmPlanTemp
	}
	planOracle, err := buildOracle(planEntry, f.llmPlan, statsLogger)
	if err != nil {
		return err
	}

	execName := f.llmExec
	if execName == "" {
		execName = f.llmPlan
	}
	execEntry, err := modelConfig.Lookup(execName)
	if err != nil {
		return err
	}
	if f.llmExecTemp != 0 {
		execEntry.Temperature = f.llmExecTemp
	}
	execOracle, err := buildOracle(execEntry, execName, statsLogger)
	if err != nil {
		return err
	}

	logger := log.GetDefaultLogger()
	backends := config.BackendsFromEnv()

	store, err := buildStore(ctx, f.dbChoice, backends, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	registry, err := buildToolRegistry(f.toolChoice, backends, execOracle, planOracle)
	if err != nil {
		return err
	}
	invoker := toolkit.NewInvoker(registry, logger)

	limits := controller.DefaultLimits()
	limits.MaxIterations = f.iterations
	limits.NumNextStepsDecision = f.numNextStepsVote
	limits.MaxQueryFixingRetry = f.maxQueryFixingRetry
	limits.MaxRetrieveQueryRetry = f.maxRetrieveRetry
	limits.MaxFinalSolutionParsing = f.maxFinalParsing
	limits.MaxLLMRetries = f.maxLLMRetries
	limits.GaiaFormatter = f.gaiaFormatter

	c := controller.New(store, invoker, planOracle, limits, logger)
	answer, _, err := c.Run(ctx, model.Problem{Statement: f.problem, AttachmentPaths: f.files}, 0, f.snapshots)
	if err != nil {
		return err
	}

	fmt.Println(answer)
	return nil
}

func buildOracle(entry config.ModelEntry, name string, stats *statistics.Logger) (oracle.Oracle, error) {
	switch entry.ModelFamily {
	case config.FamilyLocalDaemon:
		return oracle.NewForFamily(oracle.FamilyConfig{
			Family:    "local-daemon",
			ModelName: name,
			LocalDaemon: localdaemon.Options{
				BaseURL:     entry.BaseURL,
				ModelName:   entry.ModelID,
				Temperature: entry.Temperature,
				NumCtx:      entry.NumCtx,
				NumPredict:  entry.NumPredict,
				NumBatch:    entry.NumBatch,
			},
		}, stats)
	default:
		opts := []openai.Option{openai.WithModel(entry.ModelID)}
		if entry.APIKey != "" {
			opts = append(opts, openai.WithToken(entry.APIKey))
		}
		if entry.OrganizationID != "" {
			opts = append(opts, openai.WithOrganization(entry.OrganizationID))
		}
		if entry.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(entry.BaseURL))
		}
		hosted, err := openai.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("building hosted-api model %q: %w", name, err)
		}
		return oracle.NewForFamily(oracle.FamilyConfig{
			Family:      "hosted-api",
			ModelName:   name,
			HostedModel: hosted,
		}, stats)
	}
}

func buildStore(ctx context.Context, choice string, backends config.Backends, logger log.Logger) (kgraph.Store, error) {
	switch choice {
	case "labeled":
		return neo4j.New(ctx, neo4j.Options{URI: backends.Neo4jURI, Username: backends.Neo4jUsername, Password: backends.Neo4jPassword}, logger)
	case "triple":
		return triplestore.New(ctx, triplestore.Options{ReadURI: backends.TripleReadURI, WriteURI: backends.TripleWriteURI}, logger)
	case "in-memory":
		return memgraph.New(logger), nil
	default:
		return nil, fmt.Errorf("db_choice %q: %w", choice, model.ErrBackendUnreachable)
	}
}

func buildToolRegistry(choice []string, backends config.Backends, execOracle, planOracle oracle.Oracle) (*toolkit.Registry, error) {
	all := map[string]toolkit.Tool{
		"extract_zip":         zipextract.New(),
		"ask_llm":             llmquery.New(planOracle),
		"inspect_file":        fileinspect.New(planOracle),
		"wikipedia_tool":      wikipedia.New(planOracle),
		"execute_python_code": pycode.New(backends.ExecutorURL, log.GetDefaultLogger(), pycode.WithFixOnFailure(execOracle, 3)),
	}

	if img, err := buildImageQATool(); err == nil {
		all["image_inspector"] = img
	}

	if ws, err := buildWebSurferTool(planOracle); err == nil {
		all["web_surfer"] = ws
	}

	if len(choice) == 0 {
		tools := make([]toolkit.Tool, 0, len(all))
		for _, t := range all {
			tools = append(tools, t)
		}
		return toolkit.NewRegistry(tools...), nil
	}

	tools := make([]toolkit.Tool, 0, len(choice))
	for _, name := range choice {
		t, ok := all[name]
		if !ok {
			return nil, fmt.Errorf("tool_choice: unknown tool %q", name)
		}
		tools = append(tools, t)
	}
	return toolkit.NewRegistry(tools...), nil
}

func buildImageQATool() (toolkit.Tool, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("image_inspector: OPENAI_API_KEY not set")
	}
	return imageqa.New(sashaopenai.NewClient(apiKey), "gpt-4o"), nil
}

func buildWebSurferTool(o oracle.Oracle) (toolkit.Tool, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("web_surfer: OPENAI_API_KEY not set")
	}
	hosted, err := openai.New(openai.WithToken(apiKey))
	if err != nil {
		return nil, err
	}
	return websurfer.New(hosted, o, os.TempDir(), 10)
}
