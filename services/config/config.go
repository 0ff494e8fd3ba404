package config

import (
	"context"
	"encoding/json"
	"log/slog"

	"timerbank-go/bus"
	"timerbank-go/errcode"
)

const (
	serviceName  = "config"
	configPrefix = "config"
)

type ctxKey string

// CtxDeviceKey carries the device ID used to pick the embedded config.
const CtxDeviceKey ctxKey = "device"

// EmbeddedConfigLookup allows overriding how configs are resolved.
var EmbeddedConfigLookup = func(device string) ([]byte, bool) {
	b, ok := embeddedConfigs[device]
	return b, ok
}

// -----------------------------------------------------------------------------
// Config Service
// -----------------------------------------------------------------------------

type ConfigService struct {
	Name    string
	overlay map[string]any
	log     *slog.Logger
}

type Option func(*ConfigService)

// WithOverlay merges m over the embedded document. Object values are merged
// one level deep; anything else replaces the embedded value.
func WithOverlay(m map[string]any) Option {
	return func(s *ConfigService) { s.overlay = m }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *ConfigService) {
		if l != nil {
			s.log = l
		}
	}
}

func NewConfigService(opts ...Option) *ConfigService {
	s := &ConfigService{
		Name: serviceName,
		log:  slog.New(slog.DiscardHandler),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Load resolves the configuration document for device.
func (s *ConfigService) Load(device string) (map[string]any, error) {
	if device == "" {
		return nil, errcode.Wrap(errcode.InvalidParams, "config", "missing device ID", nil)
	}
	raw, ok := EmbeddedConfigLookup(device)
	if !ok || len(raw) == 0 {
		return nil, errcode.Wrap(errcode.InvalidParams, "config", "no embedded config for device: "+device, nil)
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, errcode.Wrap(errcode.InvalidPayload, "config", "embedded config is not a JSON object", err)
	}
	merge(m, s.overlay)
	return m, nil
}

func merge(dst, src map[string]any) {
	for k, v := range src {
		dm, dok := dst[k].(map[string]any)
		sm, sok := v.(map[string]any)
		if dok && sok {
			for kk, vv := range sm {
				dm[kk] = vv
			}
			continue
		}
		dst[k] = v
	}
}

// publishConfig publishes each top-level key as a retained message on
// config/<key>.
func (s *ConfigService) publishConfig(ctx context.Context, conn *bus.Connection) error {
	device, _ := ctx.Value(CtxDeviceKey).(string)
	m, err := s.Load(device)
	if err != nil {
		return err
	}
	for k, v := range m {
		conn.Publish(conn.NewMessage(bus.T(configPrefix, k), v, true))
	}
	s.log.Info("config published", "device", device, "keys", len(m))
	return nil
}

// Start launches the config publisher in a goroutine.
func (s *ConfigService) Start(ctx context.Context, conn *bus.Connection) {
	go func() {
		if err := s.publishConfig(ctx, conn); err != nil {
			s.log.Error("config publish failed", "err", err)
		}
	}()
}
