package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sessionwatch/sessionwatch/config"
	"github.com/sessionwatch/sessionwatch/hooks"
	"github.com/sessionwatch/sessionwatch/monitor"
	"github.com/sessionwatch/sessionwatch/snapshot"
	"github.com/sessionwatch/sessionwatch/telemetry"
)

func buildWatchCmd() *cobra.Command {
	var (
		configPath string
		provider   string
		customDir  string
		jsonLines  bool
	)

	cmd := &cobra.Command{
		Use:   "watch <workspace>",
		Short: "Attach to a workspace and stream session events until interrupted",
		Long: `Attach discovers the most recently active session for the given workspace,
replays its history, then streams derived events (token usage, tool calls,
compaction, plan changes, ...) to stdout as they occur.

Discovery is re-run automatically if no session is found yet; the session
is followed across rotation unless pinned.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd.Context(), watchOpts{
				workspace:  args[0],
				configPath: configPath,
				provider:   provider,
				customDir:  customDir,
				jsonLines:  jsonLines,
			})
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to TOML configuration file")
	cmd.Flags().StringVarP(&provider, "provider", "p", "claude-code", "Producer adapter (claude-code, opencode)")
	cmd.Flags().StringVar(&customDir, "session-dir", "", "Override session discovery with a fixed directory")
	cmd.Flags().BoolVar(&jsonLines, "json", false, "Emit one JSON object per event instead of a human-readable line")

	return cmd
}

type watchOpts struct {
	workspace  string
	configPath string
	provider   string
	customDir  string
	jsonLines  bool
}

func runWatch(ctx context.Context, opts watchOpts) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	adp, err := resolveAdapter(opts.provider, cfg)
	if err != nil {
		return err
	}

	store, err := snapshot.NewFileStore(cfg.SnapshotDir)
	if err != nil {
		return fmt.Errorf("open snapshot store: %w", err)
	}
	var finalStore snapshot.Store = store
	if cfg.RedisAddr != "" {
		finalStore = &snapshot.MirroredStore{Primary: store, Mirror: snapshot.NewRedisStore(cfg.RedisAddr, cfg.RedisDB, "")}
	}

	m := monitor.New(adp, monitor.Options{
		Store:  finalStore,
		Logger: telemetry.NewClueLogger(),
	})
	defer m.Dispose()

	printer := eventPrinter{jsonLines: opts.jsonLines}
	sub, err := m.Bus().Register(hooks.SubscriberFunc(printer.print))
	if err != nil {
		return err
	}
	defer sub.Close()

	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var startErr error
	if opts.customDir != "" {
		startErr = m.StartWithCustomPath(opts.customDir)
	} else {
		startErr = m.Start(opts.workspace)
	}
	if startErr != nil {
		return startErr
	}

	slog.Info("sessionwatch: attached", "workspace", opts.workspace, "provider", adp.Name())
	<-ctx.Done()
	slog.Info("sessionwatch: shutting down")
	return nil
}

// eventPrinter renders hooks.Event values to stdout, either as a compact
// human-readable line or as JSON.
type eventPrinter struct {
	jsonLines bool
}

func (p eventPrinter) print(evt hooks.Event) {
	if p.jsonLines {
		printJSONLine(evt)
		return
	}
	switch evt.Type {
	case hooks.SessionStart:
		fmt.Printf("[%s] session_start session=%s provider=%s\n", evt.Type, evt.Session.SessionID, evt.Session.Provider)
	case hooks.SessionEnd:
		fmt.Printf("[%s] session_end\n", evt.Type)
	case hooks.DiscoveryModeChange:
		fmt.Printf("[%s] discovery=%v\n", evt.Type, evt.BoolValue)
	case hooks.ReplayStateChange:
		fmt.Printf("[%s] replaying=%v\n", evt.Type, evt.BoolValue)
	case hooks.TokenUsage:
		fmt.Printf("[%s] model=%s input=%d output=%d cache_write=%d cache_read=%d\n",
			evt.Type, evt.TokenUsage.Model, evt.TokenUsage.Usage.InputTokens, evt.TokenUsage.Usage.OutputTokens,
			evt.TokenUsage.Usage.CacheWriteTokens, evt.TokenUsage.Usage.CacheReadTokens)
	case hooks.ToolCall:
		fmt.Printf("[%s] tool=%s id=%s\n", evt.Type, evt.ToolCall.ToolName, evt.ToolCall.ToolUseID)
	case hooks.ToolAnalytics:
		fmt.Printf("[%s] tool=%s success=%d failure=%d pending=%d\n",
			evt.Type, evt.ToolAnalytics.Name, evt.ToolAnalytics.Success, evt.ToolAnalytics.Failure, evt.ToolAnalytics.Pending)
	case hooks.Compaction:
		fmt.Printf("[%s] before=%d after=%d reclaimed=%d\n", evt.Type, evt.Compaction.ContextBefore, evt.Compaction.ContextAfter, evt.Compaction.TokensReclaimed)
	case hooks.Truncation:
		fmt.Printf("[%s] tool=%s marker=%q\n", evt.Type, evt.Truncation.ToolName, evt.Truncation.Marker)
	case hooks.LatencyUpdate:
		fmt.Printf("[%s] first_token_ms=%d total_ms=%d\n", evt.Type, evt.LatencyStats.FirstTokenLatencyMS, evt.LatencyStats.TotalResponseMS)
	case hooks.CycleDetected:
		fmt.Printf("[%s] tool=%s count=%d window_ms=%d\n", evt.Type, evt.Cycle.ToolName, evt.Cycle.Count, evt.Cycle.WindowMS)
	case hooks.QuotaUpdate:
		fmt.Printf("[%s] used=%.2f limit=%.2f unlimited=%v\n", evt.Type, evt.Quota.Used, evt.Quota.Limit, evt.Quota.Unlimited)
	case hooks.TaskChanged:
		fmt.Printf("[%s]\n", evt.Type)
	case hooks.PlanChanged:
		fmt.Printf("[%s]\n", evt.Type)
	default:
		fmt.Printf("[%s]\n", evt.Type)
	}
}

func printJSONLine(evt hooks.Event) {
	data, err := jsonMarshalCompact(evt)
	if err != nil {
		fmt.Fprintln(os.Stderr, "sessionwatch: marshal event:", err)
		return
	}
	fmt.Println(string(data))
}
