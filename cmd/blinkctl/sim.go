//go:build !rp2040 && !rp2350 && !stm32

package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/browser"
	"github.com/rs/xid"
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"

	"timerbank-go/bus"
	"timerbank-go/platform"
	"timerbank-go/services/blinker"
	"timerbank-go/services/config"
	"timerbank-go/services/heartbeat"
	"timerbank-go/services/monitor"
	"timerbank-go/services/trace"
	"timerbank-go/types"
	"timerbank-go/x/jsonx"
)

type simFlags struct {
	device    string
	tty       string
	overlay   string
	tracePath string
	port      int
	open      bool
	duration  time.Duration
}

var sim simFlags

var simCmd = &cobra.Command{
	Use:   "sim",
	Short: "Run the firmware on the host with a simulated LED",
	Long: `sim runs the firmware against a simulated LED and tick. Commands are read from ` +
		`stdin (or --tty) and responses written back, exactly as on the board's UART.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		if sim.duration > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, sim.duration)
			defer cancel()
		}
		return runSim(ctx, sim)
	},
}

func init() {
	f := simCmd.Flags()
	f.StringVar(&sim.device, "device", "host", "embedded config to load")
	f.StringVar(&sim.tty, "tty", "", "serve the command line on this TTY instead of stdin/stdout")
	f.StringVar(&sim.overlay, "config", "", "YAML file merged over the embedded config")
	f.StringVar(&sim.tracePath, "trace", "", "record bus traffic to this CBOR file")
	f.IntVar(&sim.port, "port", 0, "monitor HTTP port; below 1000 picks a free one, negative disables")
	f.BoolVar(&sim.open, "open", false, "open the monitor in a browser")
	f.DurationVar(&sim.duration, "duration", 0, "stop after this long; 0 runs until interrupted")
	rootCmd.AddCommand(simCmd)
}

func runSim(ctx context.Context, fl simFlags) error {
	log := logger.With("run", xid.New().String())

	var overlay map[string]any
	if fl.overlay != "" {
		m, err := config.LoadOverlay(fl.overlay)
		if err != nil {
			return err
		}
		overlay = m
	}
	cfgSvc := config.NewConfigService(config.WithOverlay(overlay), config.WithLogger(log))
	doc, err := cfgSvc.Load(fl.device)
	if err != nil {
		return err
	}
	var fw types.FirmwareConfig
	if v, ok := doc["blinker"]; ok {
		if err := jsonx.Decode(v, &fw); err != nil {
			return err
		}
	}

	b := bus.NewBus(16)

	if fl.tracePath != "" {
		rec, err := trace.NewRecorder(fl.tracePath, log)
		if err != nil {
			return err
		}
		atexit.Register(func() { _ = rec.Close() })
		defer rec.Close()
		go rec.Run(ctx, b.NewConnection("trace").Subscribe(bus.T(bus.Multi)))
		log.Info("tracing bus", "file", fl.tracePath, "stream", rec.Stream())
	}

	res, err := platform.Open(platform.Config{TickMs: fw.BlinkPeriodMs, Baud: fw.Baud, Device: fl.tty})
	if err != nil {
		return err
	}
	defer res.Close()

	svc, err := blinker.New(res, b.NewConnection("blinker"), blinker.Options{Logger: log})
	if err != nil {
		return err
	}
	done := make(chan struct{})
	go func() {
		svc.Run(ctx)
		close(done)
	}()

	hb := &heartbeat.Service{Log: log}
	if err := hb.Start(ctx, b.NewConnection("heartbeat")); err != nil {
		return err
	}
	cfgSvc.Start(context.WithValue(ctx, config.CtxDeviceKey, fl.device), b.NewConnection("config"))

	if fl.port >= 0 {
		url, err := monitor.NewMonitor(b.NewConnection("monitor")).
			WithPortNumber(fl.port).
			WithLogger(log).
			StartServer(ctx)
		if err != nil {
			return err
		}
		if fl.open {
			browser.Stdout = io.Discard
			if err := browser.OpenURL(url + "/api/timers"); err != nil {
				log.Warn("could not open browser", "err", err)
			}
		}
	}

	<-done
	return nil
}
