package types

// ------------------------
// Serial
// ------------------------

type SerialInfo struct {
	Dev  string `json:"dev"`
	Baud uint32 `json:"baud"` // 0 if unspecified
}

// Event: serial/<dev>/rx | serial/<dev>/tx
type SerialLine struct {
	Dev  string `json:"dev"`
	Dir  string `json:"dir"` // "rx" | "tx"
	Line string `json:"line"`
	TS   int64  `json:"ts_ms"`
}
