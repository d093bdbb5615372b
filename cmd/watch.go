package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/papapumpkin/resgraph/internal/watch"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Re-import whenever the target graph changes",
	Long: `Imports once, then watches the target graph file (and the config file, if
one was loaded) and runs a full import after every change until interrupted.
Each import starts from scratch; nothing is carried over between runs.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().Bool("no-store", false, "do not record runs in the history database")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, _ []string) error {
	noStore, _ := cmd.Flags().GetBool("no-store")

	s, err := openSession(cmd.Context(), !noStore)
	if err != nil {
		return err
	}
	defer s.close()

	files := []string{s.cfg.GraphPath}
	if cf := viper.ConfigFileUsed(); cf != "" {
		files = append(files, cf)
	}
	s.logger.Debug("watching files", "files", files)
	w, err := watch.NewWatcher(files)
	if err != nil {
		return err
	}

	ctx, cancel := setupSignalContext(cmd.Context(), s.printer)
	defer cancel()

	s.printer.Info("watching " + s.cfg.GraphPath + " (ctrl-c to stop)")
	configFile := viper.ConfigFileUsed()
	return watch.Run(ctx, w, func(ctx context.Context) error {
		if configFile != "" {
			if err := viper.ReadInConfig(); err != nil {
				return fmt.Errorf("reload config: %w", err)
			}
			if err := s.loadConfig(); err != nil {
				return err
			}
		}
		_, _, err := s.importOnce(ctx)
		return err
	}, func(err error) {
		s.printer.Error(err.Error())
	})
}
