package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/Marketen/slotwatch/internal/adapters"
	"github.com/Marketen/slotwatch/internal/application/ports"
	"github.com/Marketen/slotwatch/internal/application/services"
	"github.com/Marketen/slotwatch/internal/config"
	"github.com/Marketen/slotwatch/internal/logger"
	"github.com/Marketen/slotwatch/internal/metrics"
	"github.com/Marketen/slotwatch/internal/report"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "slotwatch",
		Short:        "Find the next leader slot held by a block-engine participant",
		Long:         "slotwatch correlates the current epoch's leader schedule with the validators enrolled in a block-building program, reports the closest actionable participant slot and charts participant concentration across the epoch.",
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cmd.Flags())
			if err != nil {
				logger.Error("Failed to load config: %v", err)
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}
	config.RegisterFlags(cmd.Flags())
	return cmd
}

func run(parent context.Context, cfg *config.Config) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := logger.SetLevel(cfg.LogLevel); err != nil {
		logger.Warn("Invalid log_level %q, keeping info", cfg.LogLevel)
	}
	runID := uuid.NewString()
	logger.WithRunID(runID)

	logger.Info("Starting slotwatch on %s", cfg.Chain)
	logger.Info("Schedule source: %s, participant source: %s", cfg.ScheduleSource, cfg.ParticipantSource)
	logger.Debug("Lead time %d slots, %.2fs per slot, %d buckets", cfg.LeadTimeSlots, cfg.SecondsPerSlot, cfg.BucketCount)

	schedule, slots, err := chainSources(ctx, cfg)
	if err != nil {
		logger.Error("Failed to create chain adapter: %v", err)
		return err
	}

	var renderer ports.Renderer
	if cfg.OutputPath != "" {
		renderer = adapters.NewPlotRenderer(cfg.OutputPath, cfg.ImageWidth, cfg.ImageHeight, cfg.PointScale)
	}
	var sink ports.MetricsSink
	if cfg.MetricsTextfile != "" || cfg.MetricsPushURL != "" {
		sink = metrics.New(cfg.MetricsTextfile, cfg.MetricsPushURL)
	}

	watcher := services.NewSlotWatcher(
		schedule,
		participantSource(cfg),
		slots,
		renderer,
		sink,
		services.Options{
			RunID:      runID,
			Chain:      cfg.Chain,
			OutputPath: cfg.OutputPath,
			Correlate: services.CorrelateOptions{
				LeadTimeSlots:  cfg.LeadTimeSlots,
				SecondsPerSlot: cfg.SecondsPerSlot,
				BucketCount:    cfg.BucketCount,
			},
		},
	)

	rep, err := watcher.Run(ctx)
	if err != nil {
		logger.Error("Run failed: %v", err)
		return err
	}

	fmt.Fprintln(os.Stdout)
	report.Print(os.Stdout, rep, isatty.IsTerminal(os.Stdout.Fd()))
	fmt.Fprintln(os.Stdout)
	return nil
}

// chainSources picks the schedule and current-slot adapters for the chain.
func chainSources(ctx context.Context, cfg *config.Config) (ports.ScheduleSource, ports.SlotSource, error) {
	if cfg.Chain == config.ChainEthereum {
		beacon, err := adapters.NewBeaconAdapter(ctx, cfg.BeaconNodeURL, cfg.RequestTimeout)
		if err != nil {
			return nil, nil, err
		}
		if cfg.ScheduleSource == config.SourceFile {
			return adapters.NewFileScheduleSource(cfg.ScheduleFile), beacon, nil
		}
		return beacon, beacon, nil
	}

	rpc := adapters.NewSolanaRPCAdapter(cfg.RPCURL, cfg.RequestTimeout)
	switch cfg.ScheduleSource {
	case config.SourceFile:
		return adapters.NewFileScheduleSource(cfg.ScheduleFile), rpc, nil
	case config.SourceRPC:
		return rpc, rpc, nil
	default:
		return adapters.NewCommandScheduleSource(cfg.ScheduleArgv()), rpc, nil
	}
}

func participantSource(cfg *config.Config) ports.ParticipantSource {
	switch cfg.ParticipantSource {
	case config.SourceCommand:
		return adapters.NewCommandParticipantSource(cfg.ParticipantArgv())
	case config.SourceFile:
		return adapters.NewFileParticipantSource(cfg.ParticipantFile)
	default:
		src := adapters.NewHTTPParticipantSource(cfg.ParticipantURL, cfg.RequestTimeout)
		src.IdentityField = cfg.ParticipantIdentityField
		src.FlagField = cfg.ParticipantFlagField
		src.FlagPresenceOnly = cfg.ParticipantFlagPresenceOnly
		if cfg.ParticipantFlagPresenceOnly {
			logger.Warn("Participant flag checked for presence only; validators flagged false are counted as participants")
		}
		return src
	}
}
