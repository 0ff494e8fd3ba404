//go:build !rp2040 && !rp2350 && !stm32

package main

import (
	"context"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"timerbank-go/bus"
	"timerbank-go/platform"
	"timerbank-go/services/blinker"
	"timerbank-go/services/console"
)

var (
	consoleTTY     string
	consoleTimeout time.Duration
)

var consoleCmd = &cobra.Command{
	Use:   "console",
	Short: "Interactive command prompt to a board or a local simulation",
	Long: `console sends each line to the firmware and prints the response. With --tty it ` +
		`talks to a board over that serial device; without it a simulated firmware runs in-process.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		target, closeFn, err := consoleTarget(ctx)
		if err != nil {
			return err
		}
		defer closeFn()
		return console.New(target, os.Stdout).Run(ctx, "blink> ")
	},
}

func init() {
	f := consoleCmd.Flags()
	f.StringVar(&consoleTTY, "tty", "", "serial device of the board, e.g. /dev/ttyACM0")
	f.DurationVar(&consoleTimeout, "timeout", 2*time.Second, "how long to wait for each response")
	rootCmd.AddCommand(consoleCmd)
}

func consoleTarget(ctx context.Context) (console.Target, func(), error) {
	if consoleTTY != "" {
		t, restore, err := platform.OpenTTY(consoleTTY)
		if err != nil {
			return nil, nil, err
		}
		port := platform.NewStreamPort(t.Input(), t.Output())
		return console.NewSerialTarget(port, consoleTimeout), func() {
			_ = restore()
			_ = t.Close()
		}, nil
	}

	b := bus.NewBus(8)
	res := &platform.Resources{
		LED:    platform.NewSimPin(platform.HostLEDPin),
		Ticker: platform.NewTicker(0),
	}
	svc, err := blinker.New(res, b.NewConnection("blinker"), blinker.Options{
		Logger:     logger,
		ConfigWait: time.Millisecond,
	})
	if err != nil {
		return nil, nil, err
	}
	ctx, cancel := context.WithCancel(ctx)
	go svc.Run(ctx)
	return console.NewBusTarget(b.NewConnection("console"), consoleTimeout), cancel, nil
}
