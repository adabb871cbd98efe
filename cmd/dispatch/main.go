package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/dreamteam-ai/dispatch/pkg/channelstore"
	"github.com/dreamteam-ai/dispatch/pkg/config"
	"github.com/dreamteam-ai/dispatch/pkg/delegation"
	"github.com/dreamteam-ai/dispatch/pkg/gateway"
	"github.com/dreamteam-ai/dispatch/pkg/logger"
	"github.com/dreamteam-ai/dispatch/pkg/providers"
	"github.com/dreamteam-ai/dispatch/pkg/schedule"
	"github.com/dreamteam-ai/dispatch/pkg/team"
	"github.com/dreamteam-ai/dispatch/pkg/tools"
)

var version = "dev"

var (
	configPath string
	logLevel   string
	logFile    string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "dispatch",
		Short: "dispatch runs the agent delegation service",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger.SetLevel(logger.ParseLevel(logLevel))
			if logFile != "" {
				if err := logger.EnableFileLogging(logFile); err != nil {
					fmt.Fprintf(os.Stderr, "failed to open log file: %v\n", err)
				}
			}
		},
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", defaultConfigPath(), "path to config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "append JSON logs to this file")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(versionCmd())
	rootCmd.AddCommand(scheduleCmd())
	rootCmd.AddCommand(channelCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "dispatch.json"
	}
	return filepath.Join(home, ".dispatch", "config.json")
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the dispatch version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("dispatch %s\n", version)
		},
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the delegation gateway and schedule processor",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(configPath)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			snap, err := team.LoadSnapshot(cfg.TeamPath())
			if err != nil {
				return fmt.Errorf("loading team: %w", err)
			}
			snapshotFn := func() *team.Snapshot { return snap }

			store, err := channelstore.NewSQLiteStore(cfg.StoragePath())
			if err != nil {
				return fmt.Errorf("opening channel store: %w", err)
			}
			defer store.Close()

			factory := providers.NewFactory(cfg.LLM)
			registry := tools.NewRegistry()

			inline := delegation.NewInlineExecutor(factory, registry, cfg.Delegation)
			channelExec := delegation.NewChannelExecutor(store, inline,
				time.Duration(cfg.Delegation.ResponseTimeoutMS)*time.Millisecond)

			// The delegate tool triggers a fresh inline delegation; its own
			// sub-sessions never see the tool again.
			registry.Register(tools.NewDelegateTool(
				func(ctx context.Context, scope tools.Scope, req tools.DelegateRequest) (string, error) {
					result := inline.Execute(ctx, snapshotFn(),
						delegation.Input{AgentSlug: req.AgentSlug, Task: req.Task, Context: req.Context},
						delegation.Session{WorkspaceID: scope.WorkspaceID, UserID: scope.UserID})
					if !result.Success {
						return "", fmt.Errorf("%s", result.Error)
					}
					return result.Response, nil
				}))

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if cfg.Schedules.Enabled {
				schedStore, err := schedule.NewSQLiteStore(cfg.StoragePath())
				if err != nil {
					return fmt.Errorf("opening schedule store: %w", err)
				}
				defer schedStore.Close()
				proc := schedule.NewProcessor(schedStore, channelExec, snapshotFn,
					time.Duration(cfg.Schedules.TickSeconds)*time.Second)
				go proc.Run(ctx)
			}

			server := gateway.NewServer(cfg.Gateway, channelExec, channelExec, snapshotFn)
			if err := server.Start(); err != nil {
				return fmt.Errorf("starting gateway: %w", err)
			}

			logger.InfoCF("main", "dispatch is running",
				map[string]any{
					"workspace": snap.WorkspaceID,
					"agents":    len(snap.Agents),
					"version":   version,
				})

			<-ctx.Done()

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return server.Stop(shutdownCtx)
		},
	}
}

func scheduleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Manage delegation schedules",
	}

	var (
		agentSlug string
		headSlug  string
		task      string
		taskCtx   string
		cronExpr  string
	)
	addCmd := &cobra.Command{
		Use:   "add",
		Short: "Add a cron-driven delegation schedule",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(configPath)
			if err != nil {
				return err
			}
			snap, err := team.LoadSnapshot(cfg.TeamPath())
			if err != nil {
				return err
			}
			if _, ok := snap.FindAgent(agentSlug); !ok {
				return fmt.Errorf("agent %q not found or is disabled", agentSlug)
			}

			store, err := schedule.NewSQLiteStore(cfg.StoragePath())
			if err != nil {
				return err
			}
			defer store.Close()

			sched := &schedule.Schedule{
				ID:            uuid.NewString(),
				WorkspaceID:   snap.WorkspaceID,
				HeadAgentSlug: headSlug,
				AgentSlug:     agentSlug,
				Task:          task,
				Context:       taskCtx,
				CronExpr:      cronExpr,
				Enabled:       true,
			}
			if err := store.Add(cmd.Context(), sched); err != nil {
				return err
			}
			fmt.Printf("schedule %s created\n", sched.ID)
			return nil
		},
	}
	addCmd.Flags().StringVar(&agentSlug, "agent", "", "specialist agent slug")
	addCmd.Flags().StringVar(&headSlug, "head", "", "head agent slug recorded on fired delegations")
	addCmd.Flags().StringVar(&task, "task", "", "task description")
	addCmd.Flags().StringVar(&taskCtx, "context", "", "optional task context")
	addCmd.Flags().StringVar(&cronExpr, "cron", "", "cron expression")
	addCmd.MarkFlagRequired("agent")
	addCmd.MarkFlagRequired("task")
	addCmd.MarkFlagRequired("cron")

	cmd.AddCommand(addCmd)
	cmd.AddCommand(scheduleToggleCmd("enable", true))
	cmd.AddCommand(scheduleToggleCmd("disable", false))
	return cmd
}

func scheduleToggleCmd(use string, enabled bool) *cobra.Command {
	short := "Enable a schedule"
	if !enabled {
		short = "Disable a schedule"
	}
	return &cobra.Command{
		Use:   use + " <schedule-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(configPath)
			if err != nil {
				return err
			}
			store, err := schedule.NewSQLiteStore(cfg.StoragePath())
			if err != nil {
				return err
			}
			defer store.Close()
			return store.SetEnabled(cmd.Context(), args[0], enabled)
		},
	}
}

func channelCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "channel",
		Short: "Provision the channel substrate",
	}

	var (
		agentSlug   string
		channelName string
		displayName string
	)
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create an agent's channel and profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(configPath)
			if err != nil {
				return err
			}
			snap, err := team.LoadSnapshot(cfg.TeamPath())
			if err != nil {
				return err
			}
			agent, ok := snap.FindAgent(agentSlug)
			if !ok {
				return fmt.Errorf("agent %q not found or is disabled", agentSlug)
			}

			store, err := channelstore.NewSQLiteStore(cfg.StoragePath())
			if err != nil {
				return err
			}
			defer store.Close()

			if channelName == "" {
				channelName = agent.Slug
			}
			if displayName == "" {
				displayName = agent.Name
			}

			ch := &channelstore.Channel{
				ID:          uuid.NewString(),
				WorkspaceID: snap.WorkspaceID,
				AgentSlug:   agent.Slug,
				Name:        channelName,
			}
			if err := store.CreateChannel(cmd.Context(), ch); err != nil {
				return err
			}
			profile := &channelstore.Profile{
				ID:          uuid.NewString(),
				WorkspaceID: snap.WorkspaceID,
				AgentSlug:   agent.Slug,
				DisplayName: displayName,
			}
			if err := store.CreateProfile(cmd.Context(), profile); err != nil {
				return err
			}
			fmt.Printf("channel %s and profile %s created for %s\n", ch.ID, profile.ID, agent.Slug)
			return nil
		},
	}
	createCmd.Flags().StringVar(&agentSlug, "agent", "", "agent slug")
	createCmd.Flags().StringVar(&channelName, "name", "", "channel name (defaults to the agent slug)")
	createCmd.Flags().StringVar(&displayName, "display-name", "", "profile display name (defaults to the agent name)")
	createCmd.MarkFlagRequired("agent")

	cmd.AddCommand(createCmd)
	return cmd
}
