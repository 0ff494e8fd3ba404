package config

// -----------------------------------------------------------------------------
// Embedded configuration
//
// Key: device ID (same value placed in ctx under CtxDeviceKey)
// Val: raw JSON bytes for that device
// -----------------------------------------------------------------------------

const cfgPico = `{
  "blinker": {
    "blink_period_ms": 1000,
    "blink_ticks": 1,
    "blink_autostart": false,
    "line_size": 64,
    "baud": 9600,
    "timers": [
      {"duration": 100, "auto_start": true}
    ]
  },
  "heartbeat": {
    "interval": 10
  }
}`

const cfgDisco = `{
  "blinker": {
    "blink_period_ms": 1000,
    "blink_ticks": 1,
    "line_size": 64,
    "baud": 9600
  },
  "heartbeat": {
    "interval": 10
  }
}`

const cfgHost = `{
  "blinker": {
    "blink_period_ms": 500,
    "blink_ticks": 1,
    "blink_autostart": true,
    "line_size": 64,
    "timers": [
      {"duration": 10, "auto_start": true},
      {"duration": 25, "auto_start": false}
    ]
  },
  "heartbeat": {
    "interval": 5
  }
}`

var embeddedConfigs = map[string][]byte{
	"pico":         []byte(cfgPico),
	"stm32f4disco": []byte(cfgDisco),
	"host":         []byte(cfgHost),
}
