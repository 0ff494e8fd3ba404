package types

// ------------------------
// Generic replies
// ------------------------

type OKReply struct {
	OK     bool `json:"ok"`
	Result any  `json:"result,omitempty"`
}

type ErrorReply struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"` // errcode.Code
}

// ------------------------
// Service state (retained)
// ------------------------

type ServiceState struct {
	Level  string `json:"level"`  // "idle", "ready", "stopped", "error"
	Status string `json:"status"` // short code
	TS     int64  `json:"ts_ms"`
}

// Event: heartbeat
type Heartbeat struct {
	Seq      uint32 `json:"seq"`
	UptimeMs int64  `json:"uptime_ms"`
	TS       int64  `json:"ts_ms"`
}
