package types

// ------------------------
// Software timers
// ------------------------

// TimerSlot is a point-in-time copy of one registry slot.
type TimerSlot struct {
	ID        int    `json:"id"`
	Duration  uint32 `json:"duration"`  // ticks
	Remaining uint32 `json:"remaining"` // ticks
	Active    bool   `json:"active"`
	Claimed   bool   `json:"claimed"`
	Reserved  bool   `json:"reserved,omitempty"`
}

// Event: timer/<id>/expired
type TimerExpired struct {
	ID int   `json:"id"`
	TS int64 `json:"ts_ms"`
}

// Controls: timer/control/<verb>
type TimerAdd struct {
	Duration  uint32 `json:"duration"`
	AutoStart bool   `json:"auto_start"`
}

type TimerRef struct {
	ID int `json:"id"`
}

type TimerUpdate struct {
	ID       int    `json:"id"`
	Duration uint32 `json:"duration"`
}

type TimerAdded struct {
	ID int `json:"id"`
}
