package heartbeat

import (
	"context"
	"log/slog"
	"time"

	"timerbank-go/bus"
	"timerbank-go/types"
	"timerbank-go/x/timex"
)

var (
	topicConfigHeartbeat = bus.T("config", "heartbeat")
	TopicHeartbeat       = bus.T("heartbeat")
)

const defaultInterval = 10 * time.Second

type Service struct {
	Log *slog.Logger // nil discards
}

// interval accepts {"interval": n} or a bare number, in seconds.
func interval(payload any) (time.Duration, bool) {
	if m, ok := payload.(map[string]any); ok {
		payload = m["interval"]
	}
	var secs float64
	switch v := payload.(type) {
	case float64:
		secs = v
	case int:
		secs = float64(v)
	default:
		return 0, false
	}
	if secs <= 0 {
		return 0, false
	}
	return time.Duration(secs * float64(time.Second)), true
}

func (s *Service) serviceLoop(ctx context.Context, conn *bus.Connection) {
	log := s.Log
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	cfgSub := conn.Subscribe(topicConfigHeartbeat)
	defer conn.Unsubscribe(cfgSub)

	start := time.Now()
	var seq uint32
	tick := time.NewTicker(defaultInterval)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("heartbeat service stopping")
			return
		case <-tick.C:
			seq++
			conn.Publish(conn.NewMessage(TopicHeartbeat, types.Heartbeat{
				Seq:      seq,
				UptimeMs: time.Since(start).Milliseconds(),
				TS:       timex.NowMs(),
			}, false))
			log.Debug("heartbeat", "seq", seq)
		case msg := <-cfgSub.Channel():
			if d, ok := interval(msg.Payload); ok {
				tick.Reset(d)
				log.Info("heartbeat interval set", "interval", d)
			}
		}
	}
}

// Start the heartbeat service.
func (s *Service) Start(ctx context.Context, conn *bus.Connection) error {
	go s.serviceLoop(ctx, conn)
	return nil
}
