package types

// Firmware configuration supplied on topic "config/blinker".
// Zero fields fall back to defaults.
type FirmwareConfig struct {
	BlinkPeriodMs  uint32      `json:"blink_period_ms,omitempty" yaml:"blink_period_ms,omitempty"`
	BlinkTicks     uint32      `json:"blink_ticks,omitempty" yaml:"blink_ticks,omitempty"`
	BlinkAutostart bool        `json:"blink_autostart,omitempty" yaml:"blink_autostart,omitempty"`
	LineSize       int         `json:"line_size,omitempty" yaml:"line_size,omitempty"`
	Baud           uint32      `json:"baud,omitempty" yaml:"baud,omitempty"`
	Timers         []TimerSpec `json:"timers,omitempty" yaml:"timers,omitempty"`
}

// TimerSpec declares a software timer added at boot.
type TimerSpec struct {
	Duration  uint32 `json:"duration" yaml:"duration"`
	AutoStart bool   `json:"auto_start" yaml:"auto_start"`
}
