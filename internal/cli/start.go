package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nestquant/nestquant/internal/config"
	"github.com/nestquant/nestquant/internal/daemon"
	"github.com/nestquant/nestquant/internal/logger"
	"github.com/nestquant/nestquant/pkg/toolreg"
	"github.com/spf13/cobra"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the nestquant orchestration daemon",
	Long: `Start the orchestration daemon in the foreground. The daemon serves
prometheus metrics and runs the cache janitor until interrupted.`,
	RunE: runStart,
}

func init() {
	rootCmd.AddCommand(startCmd)
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}

	log, err := logger.New(logger.Config{
		Level:   cfg.Logging.Level,
		File:    cfg.Logging.File,
		Console: cfg.Logging.Console,
		Pretty:  cfg.Logging.Pretty,
	})
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer log.Close()

	d, err := daemon.New(cfg, log, daemon.Options{
		Tools: builtinTools(),
	})
	if err != nil {
		return fmt.Errorf("failed to create daemon: %w", err)
	}

	if err := d.Start(); err != nil {
		return fmt.Errorf("failed to start daemon: %w", err)
	}

	// Wait for interrupt
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.Info().Str("signal", sig.String()).Msg("Shutdown signal received")

	return d.Stop()
}

// builtinTools returns the demo tool set the standalone binary ships
// with. Hosts embedding the daemon supply their own registry instead.
func builtinTools() []toolreg.Definition {
	return []toolreg.Definition{
		{
			Name:        "echo",
			Description: "Returns its input unchanged",
			Handler: func(ctx context.Context, input string) (string, error) {
				return input, nil
			},
		},
		{
			Name:        "time",
			Description: "Returns the current UTC time in RFC3339 format",
			Handler: func(ctx context.Context, input string) (string, error) {
				return time.Now().UTC().Format(time.RFC3339), nil
			},
		},
	}
}
