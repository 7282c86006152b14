package main

import (
	"context"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/kestrelworks/loom/internal/compose"
	"github.com/kestrelworks/loom/internal/config"
	"github.com/kestrelworks/loom/internal/history"
	"github.com/kestrelworks/loom/internal/logbook"
	"github.com/kestrelworks/loom/internal/manifest"
	"github.com/kestrelworks/loom/internal/store"
	"github.com/kestrelworks/loom/internal/template"
	"github.com/kestrelworks/loom/internal/tui"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "loom",
		Short: "Capability composition and validation engine",
		Long:  "Loom composes agents from capability manifests, validating prerequisites, conflicts and contracts along the way.",
		RunE:  runTUI,
	}

	rootCmd.AddCommand(newInitCommand())
	rootCmd.AddCommand(newComposeCommand())
	rootCmd.AddCommand(newValidateCommand())
	rootCmd.AddCommand(newCapabilitiesCommand())
	rootCmd.AddCommand(newHistoryCommand())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// runtime bundles the collaborators every command needs.
type runtime struct {
	cfg     *config.Config
	engine  *compose.Engine
	store   *store.FSStore
	history *history.Store
	logbook *logbook.Logbook
}

func newRuntime() (*runtime, error) {
	projectDir, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(projectDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := config.InitWorkspace(projectDir); err != nil {
		return nil, fmt.Errorf("failed to prepare workspace: %w", err)
	}

	lb, err := logbook.New(cfg.Log.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open logbook: %w", err)
	}
	hist, err := history.Open(cfg.History.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	fsStore := store.NewFSStore(cfg.Store.Path)
	registry := template.NewDirRegistry(cfg.Templates)
	engine := compose.New(fsStore, registry, compose.WithLogbook(lb))

	return &runtime{cfg: cfg, engine: engine, store: fsStore, history: hist, logbook: lb}, nil
}

func (r *runtime) Close() {
	if r.history != nil {
		r.history.Close()
	}
}

func runTUI(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	app := tui.NewApp(rt.history, rt.logbook)
	p := tea.NewProgram(app, tea.WithAltScreen())
	_, err = p.Run()
	return err
}

func newInitCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the .loom workspace in the current directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			projectDir, err := os.Getwd()
			if err != nil {
				return err
			}
			if err := config.InitWorkspace(projectDir); err != nil {
				return err
			}
			fmt.Println("Initialized .loom workspace")
			return nil
		},
	}
}

func newComposeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compose <manifest.yaml>",
		Short: "Compose an agent from a manifest",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			strategy, _ := cmd.Flags().GetString("strategy")
			return runPipeline(args[0], strategy, true)
		},
	}
	cmd.Flags().StringP("strategy", "s", "", "Override conflict resolution (error, first-wins, last-wins, merge)")
	return cmd
}

func newValidateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <manifest.yaml>",
		Short: "Validate a manifest without building the agent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			strategy, _ := cmd.Flags().GetString("strategy")
			return runPipeline(args[0], strategy, false)
		},
	}
	cmd.Flags().StringP("strategy", "s", "", "Override conflict resolution (error, first-wins, last-wins, merge)")
	return cmd
}

func runPipeline(manifestPath, strategyOverride string, showAgent bool) error {
	rt, err := newRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	m, err := manifest.Load(manifestPath)
	if err != nil {
		return err
	}
	if strategyOverride != "" {
		m.Rules.ConflictResolution = manifest.Strategy(strategyOverride)
	} else if m.Rules.ConflictResolution == "" && rt.cfg.Compose.Strategy != "" {
		m.Rules.ConflictResolution = manifest.Strategy(rt.cfg.Compose.Strategy)
	}

	agent, result, err := rt.engine.Compose(context.Background(), m)
	if err != nil {
		return err
	}
	if recErr := rt.history.Record(m.BaseTemplate, string(m.Rules.ConflictResolution), result); recErr != nil {
		rt.logbook.Warn("history record failed: %v", recErr)
	}

	printResult(result)
	if showAgent && agent != nil {
		printAgent(agent)
	}
	if result.Status == compose.StatusFail {
		os.Exit(1)
	}
	return nil
}

func printResult(result compose.Result) {
	fmt.Printf("Run %s: %s\n", result.RunID, result.Status)
	for _, issue := range result.Errors {
		fmt.Printf("  ✗ [%s] %s\n", issue.Code, issue.Message)
		if issue.Suggestion != "" {
			fmt.Printf("      → %s\n", issue.Suggestion)
		}
	}
	for _, issue := range result.Warnings {
		fmt.Printf("  ⚠ [%s] %s\n", issue.Code, issue.Message)
		if issue.Suggestion != "" {
			fmt.Printf("      → %s\n", issue.Suggestion)
		}
	}
}

func printAgent(agent *compose.Agent) {
	fmt.Printf("\nAgent on template %s\n", agent.Template.ID)
	fmt.Println("Capabilities:")
	for _, def := range agent.Capabilities {
		fmt.Printf("  %s\n", def.Key())
	}
	if len(agent.Behaviors) > 0 {
		fmt.Println("Behaviors:")
		for _, behavior := range agent.Behaviors {
			fmt.Printf("  %s (%d trigger(s), %d step(s))\n",
				behavior.Name, len(behavior.Triggers), len(behavior.Protocol))
		}
	}
	if len(agent.Contracts) > 0 {
		fmt.Println("Contracts:")
		for _, contract := range agent.Contracts {
			fmt.Printf("  %s: %s\n", contract.Name, contract.Assertion)
		}
	}
}

func newCapabilitiesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "capabilities",
		Short: "List capabilities available in the store",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime()
			if err != nil {
				return err
			}
			defer rt.Close()

			names, err := rt.store.Names()
			if err != nil {
				return err
			}
			if len(names) == 0 {
				fmt.Println("No capabilities found. Add *.yaml definitions under " + rt.cfg.Store.Path)
				return nil
			}
			for _, name := range names {
				fmt.Println(name)
			}
			return nil
		},
	}
}

func newHistoryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent composition runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt("limit")

			rt, err := newRuntime()
			if err != nil {
				return err
			}
			defer rt.Close()

			runs, err := rt.history.ListRuns(limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Println("No runs recorded.")
				return nil
			}
			for _, run := range runs {
				fmt.Printf("%s  %-7s  %s (strategy %s)\n",
					run.CreatedAt.Format("2006-01-02 15:04"), run.Status, run.BaseTemplate, run.Strategy)
			}
			return nil
		},
	}
	cmd.Flags().IntP("limit", "n", 20, "Maximum number of runs to show")
	return cmd
}
