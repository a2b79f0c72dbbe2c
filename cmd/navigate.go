// -- cmd/navigate.go --
package cmd

import (
	"context"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xkilldash9x/scout-cli/api/schemas"
	"github.com/xkilldash9x/scout-cli/internal/browser"
	"github.com/xkilldash9x/scout-cli/internal/config"
	"github.com/xkilldash9x/scout-cli/internal/llmclient"
	"github.com/xkilldash9x/scout-cli/internal/observability"
	"github.com/xkilldash9x/scout-cli/internal/oracle"
	"github.com/xkilldash9x/scout-cli/internal/perception"
	"github.com/xkilldash9x/scout-cli/internal/reporting"
	"github.com/xkilldash9x/scout-cli/internal/siteknowledge"
	"github.com/xkilldash9x/scout-cli/internal/webagent"
)

// urlResult pairs one input URL with its navigation outcome for output.
type urlResult struct {
	URL    string                 `json:"url"`
	Result schemas.WebAgentResult `json:"result"`
}

// newNavigateCmd creates the `navigate` command: run the agent against one or
// more URLs for a single goal.
func newNavigateCmd() *cobra.Command {
	navigateCmd := &cobra.Command{
		Use:   "navigate [urls...]",
		Short: "Navigates the given URLs toward a goal and prints the results",
		Args:  cobra.MinimumNArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if err := viper.BindPFlag("agent.max_steps", cmd.Flags().Lookup("max-steps")); err != nil {
				return err
			}
			if err := viper.BindPFlag("agent.navigate_budget", cmd.Flags().Lookup("budget")); err != nil {
				return err
			}
			if err := viper.BindPFlag("browser.headless", cmd.Flags().Lookup("headless")); err != nil {
				return err
			}
			if err := viper.BindPFlag("knowledge.type", cmd.Flags().Lookup("knowledge")); err != nil {
				return err
			}
			return viper.BindPFlag("reporting.intervention_dir", cmd.Flags().Lookup("out"))
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()

			cfg, err := config.NewConfigFromViper(viper.GetViper())
			if err != nil {
				return fmt.Errorf("failed to finalize config: %w", err)
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			goal, _ := cmd.Flags().GetString("goal")
			query, _ := cmd.Flags().GetString("query")
			if query == "" {
				query = goal
			}

			llm, err := llmclient.NewClient(cfg.Agent.LLM, cfg.Agent.LLM.DefaultPowerfulModel, logger)
			if err != nil {
				return fmt.Errorf("failed to build llm client: %w", err)
			}
			defer func() {
				if closeErr := llm.Close(); closeErr != nil {
					logger.Warn("Failed to close llm client", zap.Error(closeErr))
				}
			}()

			knowledge, cleanup, err := buildKnowledgeStore(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer cleanup()

			sink, err := reporting.NewFileSink(cfg.Reporting.InterventionDir, logger)
			if err != nil {
				return fmt.Errorf("failed to create intervention sink: %w", err)
			}

			agent := webagent.NewAgent(
				perception.NewInterpreter(logger),
				oracle.NewLLMOracle(llm, cfg.Agent.LLM.RequestsPerSecond, logger),
				func(sessCtx context.Context) (schemas.BrowserDriver, error) {
					return browser.NewSession(sessCtx, cfg.Browser, logger)
				},
				knowledge,
				sink,
				cfg.Agent,
				cfg.Browser.ScrollUnit,
				logger,
			)

			logger.Info("Starting navigation",
				zap.Strings("urls", args),
				zap.String("goal", goal),
				zap.Int("max_steps", cfg.Agent.MaxSteps),
			)

			// One independent session per URL; each owns its own browser.
			results := make([]urlResult, len(args))
			var mu sync.Mutex
			g, runCtx := errgroup.WithContext(ctx)
			for i, rawURL := range args {
				g.Go(func() error {
					result := agent.Navigate(runCtx, rawURL, goal, query)
					mu.Lock()
					results[i] = urlResult{URL: rawURL, Result: result}
					mu.Unlock()
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}

			json := jsoniter.ConfigCompatibleWithStandardLibrary
			out, err := json.MarshalIndent(results, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to serialize results: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}

	navigateCmd.Flags().String("goal", "", "the navigation goal, e.g. 'find hamsters for sale' (required)")
	navigateCmd.Flags().String("query", "", "the user's original query, when it differs from the goal")
	navigateCmd.Flags().Int("max-steps", 0, "maximum decision steps per URL")
	navigateCmd.Flags().Duration("budget", 0, "wall-clock budget per URL")
	navigateCmd.Flags().Bool("headless", true, "run the browser headless")
	navigateCmd.Flags().String("knowledge", "", "site knowledge backend: memory or postgres")
	navigateCmd.Flags().String("out", "", "directory for intervention records")
	_ = navigateCmd.MarkFlagRequired("goal")

	return navigateCmd
}

// buildKnowledgeStore selects the configured knowledge backend.
func buildKnowledgeStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (schemas.KnowledgeStore, func(), error) {
	switch cfg.Knowledge.Type {
	case "postgres":
		pool, err := pgxpool.New(ctx, cfg.Knowledge.Postgres.DSN())
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create postgres pool: %w", err)
		}
		store, err := siteknowledge.NewPostgresStore(ctx, pool, logger)
		if err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("failed to initialize postgres knowledge store: %w", err)
		}
		return store, pool.Close, nil
	case "", "memory":
		return siteknowledge.NewMemoryStore(logger), func() {}, nil
	}
	return nil, nil, fmt.Errorf("unsupported knowledge backend %q", cfg.Knowledge.Type)
}
