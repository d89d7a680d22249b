package cli

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	_ "net/http/pprof"
	"os"
	"strings"
	"sync/atomic"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"stagerun/config"
	"stagerun/core"
	"stagerun/dashboard"
	"stagerun/db"
	"stagerun/helper"
	"stagerun/interfaces"
	"stagerun/metrics"
	"stagerun/model"
	"stagerun/monitoring"
	"stagerun/net"
	"stagerun/stages"
)

var (
	targetHeight uint64
	batchSize    uint64
)

var runCommand = &cobra.Command{
	Use:   "run <stage>",
	Short: "execute a stage forward to the target height",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runStage(args[0], model.Forward)
	},
}

func init() {
	runCommand.Flags().Uint64Var(&targetHeight, "to", 0, "target height")
	_ = runCommand.MarkFlagRequired("to")
	runCommand.Flags().Uint64Var(&batchSize, "batch", 0, "override the configured commit threshold")
	rootCmd.AddCommand(runCommand)
}

// exit codes: 0 completed, 130 cancelled by the operator, 1 failed
const (
	exitCancelled = 130
	exitFailed    = 1
)

func runStage(stageName string, direction model.Direction) {
	var cfg config.Config
	if err := viper.Unmarshal(&cfg); err != nil {
		log.Fatalf("Failed to unmarshal config: %v", err)
	}

	cp := net.NewConnectionProvider(cfg.Node)
	defer cp.Close()
	stages.RegisterStages(cp)

	stage := stages.GetStage(stageName)
	if stage == nil {
		slog.Error("unknown stage", "stage", stageName, "known", strings.Join(stages.Names(), ", "))
		os.Exit(exitFailed)
	}

	store, err := db.NewHandler(cfg.Datadir)
	if err != nil {
		slog.Error("opening stage database", "datadir", cfg.Datadir, "error", err)
		os.Exit(exitFailed)
	}
	defer func() {
		if err := store.Close(); err != nil {
			slog.Error("closing stage database", "error", err)
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// commit threshold is re-read at every batch boundary; the watcher lets
	// the operator tune it mid-run by editing the config file
	var threshold atomic.Uint64
	threshold.Store(cfg.Stages.Threshold(stageName))
	if file := viper.ConfigFileUsed(); file != "" {
		go config.WatchCommitThreshold(ctx, file, stageName, threshold.Store)
	}

	if cfg.Monitoring.Pprof != "" {
		go func() {
			slog.Info("serving pprof", "addr", cfg.Monitoring.Pprof)
			if err := http.ListenAndServe(cfg.Monitoring.Pprof, nil); err != nil {
				slog.Warn("pprof server stopped", "error", err)
			}
		}()
	}

	var recorders []interfaces.Recorder
	if cfg.Monitoring.Prometheus != "" {
		monitoring.Serve(cfg.Monitoring.Prometheus)
		recorders = append(recorders, monitoring.NewRecorder())
	}
	if cfg.InfluxDB.URL != "" {
		recorders = append(recorders, metrics.NewInfluxRecorder(cfg.InfluxDB))
	}

	controller := core.NewController(store, stage, dashboard.New(cfg.Dashboard), core.Options{
		BatchSize: threshold.Load,
		Recorders: recorders,
	})
	outcome := controller.Run(ctx, model.RunTarget{
		Stage:     stageName,
		Direction: direction,
		Height:    targetHeight,
		BatchSize: batchSize,
	})

	for _, recorder := range recorders {
		recorder.Close()
	}
	printSummary(outcome)

	switch outcome.Status {
	case model.StatusCancelled:
		cleanupAndExit(store, cp, cancel, exitCancelled)
	case model.StatusFailed:
		cleanupAndExit(store, cp, cancel, exitFailed)
	}
}

// cleanupAndExit runs the teardown that os.Exit would otherwise skip.
func cleanupAndExit(store *db.Handler, cp net.ConnectionProvider, cancel context.CancelFunc, code int) {
	cancel()
	cp.Close()
	if err := store.Close(); err != nil {
		slog.Error("closing stage database", "error", err)
	}
	os.Exit(code)
}

func printSummary(outcome model.RunOutcome) {
	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Stage", "Direction", "Status", "From", "To", "Entities", "Batches", "Elapsed")
	table.Append([]string{
		outcome.Stage,
		string(outcome.Direction),
		outcome.Status.String(),
		fmt.Sprintf("%d", outcome.StartHeight),
		fmt.Sprintf("%d", outcome.EndHeight),
		helper.FormatCount(outcome.Entities),
		fmt.Sprintf("%d", outcome.Batches),
		helper.FormatDuration(outcome.Elapsed),
	})
	table.Render()
	if outcome.Err != nil {
		slog.Error("run ended with error", "error", outcome.Err)
	}
}
