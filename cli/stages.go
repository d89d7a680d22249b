package cli

import (
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"stagerun/config"
	"stagerun/db"
	"stagerun/stages"
)

var stagesCommand = &cobra.Command{
	Use:   "stages",
	Short: "list known stages and their checkpoints",
	Run:   listStages,
}

func init() {
	rootCmd.AddCommand(stagesCommand)
}

func listStages(cmd *cobra.Command, args []string) {
	var cfg config.Config
	if err := viper.Unmarshal(&cfg); err != nil {
		log.Fatalf("Failed to unmarshal config: %v", err)
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

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Stage", "Checkpoint", "Updated")
	for _, name := range stages.Names() {
		cp, found, err := store.Load(name)
		if err != nil {
			slog.Error("loading checkpoint", "stage", name, "error", err)
			os.Exit(exitFailed)
		}
		if !found {
			table.Append([]string{name, "-", "-"})
			continue
		}
		table.Append([]string{
			name,
			fmt.Sprintf("%d", cp.Height),
			cp.UpdatedAt.Format(time.RFC3339),
		})
	}
	table.Render()
}
