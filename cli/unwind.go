package cli

import (
	"github.com/spf13/cobra"

	"stagerun/model"
)

var unwindCommand = &cobra.Command{
	Use:   "unwind <stage>",
	Short: "walk a stage backward to the target height",
	Long: "Unwind reverts a stage's data and checkpoint down to the target height, " +
		"batch by batch. The target must be strictly below the stage's current checkpoint.",
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runStage(args[0], model.Unwind)
	},
}

func init() {
	unwindCommand.Flags().Uint64Var(&targetHeight, "to", 0, "target height")
	_ = unwindCommand.MarkFlagRequired("to")
	unwindCommand.Flags().Uint64Var(&batchSize, "batch", 0, "override the configured commit threshold")
	rootCmd.AddCommand(unwindCommand)
}
