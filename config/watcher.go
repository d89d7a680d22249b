package config

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// WatchCommitThreshold watches the config file and calls apply with the
// stage's new commit threshold whenever the file changes. The loop picks
// the new value up at the next batch boundary, so a long benchmark run can
// be tuned without restarting it.
func WatchCommitThreshold(ctx context.Context, file string, stage string, apply func(uint64)) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		slog.Error("error creating config watcher", "error", err)
		return
	}
	defer func(watcher *fsnotify.Watcher) {
		if err := watcher.Close(); err != nil {
			slog.Error("error closing config watcher", "error", err)
		}
	}(watcher)

	// watch the directory: editors replace the file on save
	if err := watcher.Add(filepath.Dir(file)); err != nil {
		slog.Error("error watching config directory", "error", err)
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !event.Op.Has(fsnotify.Create|fsnotify.Write) || filepath.Clean(event.Name) != filepath.Clean(file) {
				continue
			}
			threshold, err := readThreshold(file, stage)
			if err != nil {
				slog.Warn("ignoring config change", "file", file, "error", err)
				continue
			}
			slog.Info("commit threshold updated", "stage", stage, "threshold", threshold)
			apply(threshold)
		case err, ok := <-watcher.Errors:
			if !ok {
				slog.Error("unknown config watcher error")
				return
			}
			slog.Error("config watcher error", "error", err)
		}
	}
}

func readThreshold(file, stage string) (uint64, error) {
	v := viper.New()
	v.SetConfigFile(file)
	if err := v.ReadInConfig(); err != nil {
		return 0, err
	}
	var stages StagesConfig
	if err := v.UnmarshalKey("stages", &stages); err != nil {
		return 0, err
	}
	return stages.Threshold(stage), nil
}
