// Package cli hosts the :Loop command surface (spec §6), mapping each
// subcommand to a library operation on Runner/workspace.Config. This package
// is the only place in the module that knows about process args, stdout, and
// exit codes — everything it calls is plain library code.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/loopforge/taskloop/internal/logging"
	"github.com/loopforge/taskloop/internal/macro"
	"github.com/loopforge/taskloop/internal/provider"
	"github.com/loopforge/taskloop/internal/runner"
	"github.com/loopforge/taskloop/internal/workspace"
)

// NewRootCommand builds the `loopctl` cobra command tree.
func NewRootCommand() *cobra.Command {
	var workspaceDir string

	root := &cobra.Command{
		Use:   "loopctl",
		Short: "Drive the task orchestration engine from the command line",
	}
	root.PersistentFlags().StringVar(&workspaceDir, "workspace", ".", "workspace root containing .nvimloop/")

	root.AddCommand(newWorkspaceCmd(&workspaceDir))
	root.AddCommand(newTaskCmd(&workspaceDir))
	return root
}

func newWorkspaceCmd(workspaceDir *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workspace",
		Short: "Inspect the workspace configuration (:Loop workspace info)",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "info",
		Short: "Print the loaded workspace's name and task count",
		RunE: func(c *cobra.Command, args []string) error {
			cfg, err := workspace.Load(*workspaceDir)
			if err != nil {
				return err
			}
			fmt.Fprintf(c.OutOrStdout(), "workspace %q: %d task(s)\n", cfg.Name, len(cfg.Tasks))
			return nil
		},
	})
	return cmd
}

func newTaskCmd(workspaceDir *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Run or inspect workspace tasks (:Loop task run [name])",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "run <name>",
		Short: "Build the plan rooted at name, expand macros, and execute it",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			return runTask(c, *workspaceDir, args[0])
		},
	})
	return cmd
}

// runTask implements the mapping ":Loop task run foo" -> runner.Run(foo).
func runTask(c *cobra.Command, workspaceDir, name string) error {
	cfg, err := workspace.Load(workspaceDir)
	if err != nil {
		return err
	}

	providers := provider.NewRegistry()
	providers.Register("build", provider.Shell())
	providers.Register("run", provider.Shell())
	providers.Register("vimcmd", provider.Shell())

	log := logging.Default()
	r := runner.New(providers, nil, logging.NewRunnerSink(log))

	macroCtx := &macro.Context{WorkspaceDir: workspaceDir, Variables: cfg.Variables}

	done := make(chan runner.Result, 1)
	r.Run(cfg.Tasks, name, runner.RunOptions{
		MacroContext: macroCtx,
		OnEvent: func(ev runner.LifecycleEvent) {
			if ev.Started {
				fmt.Fprintf(c.OutOrStdout(), "start %s\n", ev.NodeID)
				return
			}
			if ev.Success {
				fmt.Fprintf(c.OutOrStdout(), "stop  %s (ok)\n", ev.NodeID)
			} else {
				fmt.Fprintf(c.OutOrStdout(), "stop  %s (failed: %s)\n", ev.NodeID, ev.Message)
			}
		},
	}, func(res runner.Result) { done <- res })

	res := <-done
	if !res.Success {
		return res.Err
	}
	return nil
}
