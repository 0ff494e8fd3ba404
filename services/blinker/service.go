// Package blinker is the firmware application: it owns the timer bank, the
// blink controller and the command line, runs the tick, and exposes all of
// it on the bus.
package blinker

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"timerbank-go/blink"
	"timerbank-go/bus"
	"timerbank-go/ledcmd"
	"timerbank-go/platform"
	"timerbank-go/services/serial"
	"timerbank-go/softtimer"
	"timerbank-go/types"
	"timerbank-go/x/jsonx"
	"timerbank-go/x/mathx"
	"timerbank-go/x/timex"
)

const (
	defaultExpiryQueue = 16
	defaultConfigWait  = time.Second

	// Largest period a config may set, matching the command line's 10 s.
	maxPeriodMs = ledcmd.MaxPeriodSec * 1000
)

type Options struct {
	Slots       int           // timer bank size; 0 selects softtimer.DefaultSlots
	LineSize    int           // command buffer; 0 selects serial.DefaultLineSize
	ExpiryQueue int           // expiries buffered between tick and foreground
	ConfigWait  time.Duration // how long Run waits for config/blinker at boot
	Logger      *slog.Logger
}

type Service struct {
	res  *platform.Resources
	conn *bus.Connection
	log  *slog.Logger

	timers *softtimer.Registry
	ctrl   *blink.Controller
	interp *ledcmd.Interpreter
	lines  *serial.Worker

	lineSize   int
	configWait time.Duration

	expired chan int
	dropped atomic.Uint32
}

func New(res *platform.Resources, conn *bus.Connection, opts Options) (*Service, error) {
	s := &Service{
		res:        res,
		conn:       conn,
		log:        opts.Logger,
		lineSize:   opts.LineSize,
		configWait: opts.ConfigWait,
		lines:      serial.New(8),
	}
	if s.log == nil {
		s.log = slog.New(slog.DiscardHandler)
	}
	if s.configWait <= 0 {
		s.configWait = defaultConfigWait
	}
	s.expired = make(chan int, mathx.Or(opts.ExpiryQueue, defaultExpiryQueue))

	s.timers = softtimer.New(softtimer.Config{Slots: opts.Slots})
	ctrl, err := blink.New(s.timers, res.LED, res.Ticker, blink.Config{
		OnError: func(op string, err error) {
			s.log.Error("blink timer", "op", op, "err", err)
		},
	})
	if err != nil {
		return nil, err
	}
	s.ctrl = ctrl
	s.timers.OnExpire(s.onExpire)
	s.interp = ledcmd.NewInterpreter(ctrl, s.observe)
	return s, nil
}

func (s *Service) Timers() *softtimer.Registry { return s.timers }
func (s *Service) Blink() *blink.Controller    { return s.ctrl }

// Process runs one command line as if received on the serial port.
func (s *Service) Process(line string) string { return s.interp.Process(line) }

// onExpire runs in the tick context: no blocking, no allocation.
func (s *Service) onExpire(id int) {
	if s.ctrl.HandleExpiry(id) {
		return
	}
	select {
	case s.expired <- id:
	default:
		s.dropped.Add(1)
	}
}

func (s *Service) isr() { s.timers.Tick() }

func (s *Service) observe(line string, cmd ledcmd.Command, resp string, err error) {
	if err != nil {
		s.log.Info("command rejected", "line", line, "resp", resp, "err", err)
	} else {
		s.log.Info("command", "line", line, "kind", cmd.Kind.String(), "period_ms", s.ctrl.Period())
	}
	s.pubBlinkState()
}

// Run blocks until ctx is done.
func (s *Service) Run(ctx context.Context) {
	cfgSub := s.conn.Subscribe(topicConfig())
	cmdSub := s.conn.Subscribe(blinkerCtrlWildcard())
	timerSub := s.conn.Subscribe(timerCtrlWildcard())
	defer s.conn.Unsubscribe(cfgSub)
	defer s.conn.Unsubscribe(cmdSub)
	defer s.conn.Unsubscribe(timerSub)

	s.awaitConfig(ctx, cfgSub)
	if ctx.Err() != nil {
		return
	}

	if s.res.Serial != nil {
		stop, err := s.lines.Register(ctx, serial.ReaderCfg{
			Dev:           s.res.SerialDev,
			Port:          s.res.Serial,
			LineSize:      s.lineSize,
			PublishTXEcho: true,
		})
		if err != nil {
			s.log.Error("serial attach failed", "dev", s.res.SerialDev, "err", err)
		} else {
			defer stop()
		}
	}

	go s.res.Ticker.Run(ctx, s.isr)

	s.pubBlinkState()
	s.pubStatus("ready", "")
	s.log.Info("blinker ready", "slots", s.timers.Cap(), "period_ms", s.ctrl.Period(), "running", s.ctrl.Running())

	for {
		select {
		case <-ctx.Done():
			s.pubStatus("stopped", "context_cancelled")
			return
		case ev := <-s.lines.Events():
			s.handleLine(ev)
		case id := <-s.expired:
			s.handleExpired(id)
		case m := <-cfgSub.Channel():
			s.applyConfig(m.Payload, false)
		case m := <-cmdSub.Channel():
			s.handleBlinkerControl(m)
		case m := <-timerSub.Channel():
			s.handleTimerControl(m)
		}
	}
}

func (s *Service) awaitConfig(ctx context.Context, sub *bus.Subscription) {
	t := time.NewTimer(s.configWait)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case m := <-sub.Channel():
		s.applyConfig(m.Payload, true)
	case <-t.C:
		s.log.Warn("no blinker config, using defaults")
	}
}

// applyConfig applies a config/blinker document. Timers and line size are
// boot-only.
func (s *Service) applyConfig(payload any, boot bool) {
	var cfg types.FirmwareConfig
	if err := jsonx.Decode(payload, &cfg); err != nil {
		s.log.Warn("bad blinker config", "err", err)
		return
	}
	if cfg.BlinkPeriodMs != 0 {
		s.ctrl.SetPeriod(mathx.Clamp(cfg.BlinkPeriodMs, ledcmd.MinPeriodMs, maxPeriodMs))
	}
	if cfg.BlinkTicks != 0 {
		if err := s.ctrl.SetBlinkTicks(cfg.BlinkTicks); err != nil {
			s.log.Warn("blink ticks", "err", err)
		}
	}
	if cfg.BlinkAutostart {
		s.ctrl.Start()
	}
	if !boot {
		if len(cfg.Timers) > 0 || cfg.LineSize != 0 {
			s.log.Info("timers and line_size apply at boot only")
		}
		s.pubBlinkState()
		return
	}
	if cfg.LineSize != 0 {
		s.lineSize = cfg.LineSize
	}
	for _, ts := range cfg.Timers {
		id, err := s.timers.Add(ts.Duration, ts.AutoStart)
		if err != nil {
			s.log.Warn("boot timer not added", "duration", ts.Duration, "err", err)
			continue
		}
		s.log.Info("boot timer", "id", id, "duration", ts.Duration, "auto_start", ts.AutoStart)
	}
}

func (s *Service) handleLine(ev serial.Event) {
	s.conn.Publish(s.conn.NewMessage(TopicSerial(ev.Dev, ev.Dir), types.SerialLine{
		Dev:  ev.Dev,
		Dir:  ev.Dir,
		Line: ev.Line,
		TS:   ev.TS.UnixMilli(),
	}, false))
	if ev.Dir != serial.DirRX {
		return
	}
	resp := s.interp.Process(ev.Line)
	if err := s.lines.Send(ev.Dev, resp); err != nil {
		s.log.Error("serial send failed", "dev", ev.Dev, "err", err)
	}
}

func (s *Service) handleExpired(id int) {
	if n := s.dropped.Swap(0); n > 0 {
		s.log.Warn("expiry events dropped", "count", n)
	}
	s.conn.Publish(s.conn.NewMessage(TopicExpired(id), types.TimerExpired{ID: id, TS: timex.NowMs()}, false))
}

func (s *Service) pubBlinkState() {
	s.conn.Publish(s.conn.NewMessage(TopicState(), s.ctrl.Snapshot(), true))
}

func (s *Service) pubStatus(level, status string) {
	s.conn.Publish(s.conn.NewMessage(TopicStatus(), types.ServiceState{
		Level:  level,
		Status: status,
		TS:     timex.NowMs(),
	}, true))
}
