package types

// ------------------------
// LED blink
// ------------------------

// Retained: blinker/state
type BlinkState struct {
	PeriodMs uint32 `json:"period_ms"`
	Running  bool   `json:"running"`
	Level    bool   `json:"level"`
	TS       int64  `json:"ts_ms"`
}

// Control: blinker/control/command
type CommandRequest struct {
	Line string `json:"line"`
}

type CommandReply struct {
	Line     string `json:"line"`
	Response string `json:"response"` // "OK" | "Invalid value" | "CmdError"
}
