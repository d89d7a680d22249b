package cli

import (
	"errors"
	"log"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "stagerun",
	Short: "stagerun executes a single sync stage forward or backward",
	Long: "stagerun runs one sync pipeline stage in isolation against a local database, " +
		"with a live terminal dashboard. It executes a stage forward to a target height " +
		"or unwinds it back to a lower one, committing progress in batches so an " +
		"interrupted run always resumes from the last checkpoint.",
	Run: func(cmd *cobra.Command, args []string) {
		err := cmd.Help()
		if err != nil {
			return
		}
	},
}

func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		return errors.New("unable to run root command")
	}
	return nil
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().String("config", "", "path to the configuration file")
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	rootCmd.PersistentFlags().String("datadir", "", "directory holding the stage database")
	_ = viper.BindPFlag("datadir", rootCmd.PersistentFlags().Lookup("datadir"))
	rootCmd.PersistentFlags().StringSlice("node.rpc", nil, "node rpc endpoints")
	_ = viper.BindPFlag("node.rpc", rootCmd.PersistentFlags().Lookup("node.rpc"))
}

func initConfig() {
	configFile := viper.GetString("config")
	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("STAGERUN")
	viper.AutomaticEnv()
	viper.SetDefault("datadir", ".")
	viper.SetDefault("node.maxConnections", 10)
	viper.SetDefault("dashboard.refresh", "200ms")
	viper.SetDefault("logging.level", "info")

	if err := viper.ReadInConfig(); err != nil {
		log.Printf("Failed to read config file: %v", err)
	}
	initLogging()
}

func initLogging() {
	logLevel := viper.GetString("logging.level")
	var level slog.Level
	switch logLevel {
	case "debug":
		level = slog.LevelDebug
	case "error":
		level = slog.LevelError
	case "warn":
		level = slog.LevelWarn
	default:
		level = slog.LevelInfo
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	slog.SetDefault(slog.New(handler))
}
