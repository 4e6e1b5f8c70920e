package domain

// CdnCounter is one CDN rule's live traffic figure inside a LiveSample.
// When IsRate is true the value is already a rate in Kbps; otherwise it is
// a cumulative byte counter and the console derives the rate from deltas.
type CdnCounter struct {
	RuleID int64   `json:"rule_id,string"`
	Name   string  `json:"name"`
	Value  float64 `json:"value"`
	IsRate bool    `json:"is_rate"`
}

// LiveSample is one telemetry snapshot for an online subscriber.
type LiveSample struct {
	At           int64        `json:"at"` // unix seconds
	DownRateKbps float64      `json:"down_rate_kbps"`
	UpRateKbps   float64      `json:"up_rate_kbps"`
	PingMs       float64      `json:"ping_ms"`
	PingOK       bool         `json:"ping_ok"` // false when the latency probe timed out
	Cdn          []CdnCounter `json:"cdn"`
}
