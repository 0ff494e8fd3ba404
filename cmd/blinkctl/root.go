//go:build !rp2040 && !rp2350 && !stm32

package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const envPrefix = "BLINKCTL_"

var (
	envFile   string
	logLevel  string
	logFormat string
	logger    = slog.New(slog.DiscardHandler)
)

var rootCmd = &cobra.Command{
	Use:   "blinkctl",
	Short: "Run, drive and inspect the LED blink firmware.",
	Long: `blinkctl runs the blink firmware on the host with a simulated LED and tick, ` +
		`opens an interactive console to a board over its UART, and dumps recorded bus traces. ` +
		`Unset flags fall back to BLINKCTL_<FLAG> variables, read from the environment or a .env file.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("env file %s: %w", envFile, err)
		}
		if err := applyEnv(cmd); err != nil {
			return err
		}
		l, err := newLogger(logLevel, logFormat)
		if err != nil {
			return err
		}
		logger = l
		return nil
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&envFile, "env-file", ".env", "dotenv file with BLINKCTL_* defaults")
	pf.StringVar(&logLevel, "log-level", "info", "debug, info, warn or error")
	pf.StringVar(&logFormat, "log-format", "text", "text or json")
}

// applyEnv fills flags the user did not set from BLINKCTL_<NAME>, with
// dashes turned into underscores.
func applyEnv(cmd *cobra.Command) error {
	var firstErr error
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if f.Changed || firstErr != nil {
			return
		}
		key := envPrefix + strings.ToUpper(strings.ReplaceAll(f.Name, "-", "_"))
		if v, ok := os.LookupEnv(key); ok {
			if err := cmd.Flags().Set(f.Name, v); err != nil {
				firstErr = fmt.Errorf("%s: %w", key, err)
			}
		}
	})
	return firstErr
}

// newLogger writes to stderr; stdout may be the simulated command wire.
func newLogger(level, format string) (*slog.Logger, error) {
	var lv slog.Level
	if err := lv.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("log level %q: %w", level, err)
	}
	opts := &slog.HandlerOptions{Level: lv}
	switch format {
	case "text":
		return slog.New(slog.NewTextHandler(os.Stderr, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(os.Stderr, opts)), nil
	default:
		return nil, fmt.Errorf("log format %q: want text or json", format)
	}
}
