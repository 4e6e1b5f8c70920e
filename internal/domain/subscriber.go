package domain

import "time"

// Subscriber is a PPPoE subscriber account.
type Subscriber struct {
	ID           int64     `gorm:"primaryKey" json:"id,string" form:"id"`    // Primary key ID
	Username     string    `gorm:"size:64;uniqueIndex" json:"username" form:"username"` // PPPoE login
	Realname     string    `gorm:"size:128" json:"realname" form:"realname"` // Customer name
	PlanID       int64     `gorm:"index" json:"plan_id,string" form:"plan_id"` // Service plan ID
	NodeID       int64     `gorm:"index" json:"node_id,string" form:"node_id"` // POP node ID
	IPAddr       string    `gorm:"size:64" json:"ip_addr" form:"ip_addr"`    // Static IP, empty means pool-assigned
	MacAddr      string    `gorm:"size:32" json:"mac_addr" form:"mac_addr"`  // Bound MAC, empty means unbound
	ExpireAt     time.Time `json:"expire_at" form:"expire_at"`               // Account expiry
	Status       string    `gorm:"size:16;index;default:'enabled'" json:"status" form:"status"` // enabled|disabled
	Online       bool      `json:"online"`                                   // Currently in session (server-computed)
	UpRateKbps   int64     `json:"up_rate_kbps" form:"up_rate_kbps"`         // Effective upload rate
	DownRateKbps int64     `json:"down_rate_kbps" form:"down_rate_kbps"`     // Effective download rate
	QuotaBytes   int64     `json:"quota_bytes" form:"quota_bytes"`           // Daily quota in bytes, 0 means unlimited
	Remark       string    `gorm:"size:255" json:"remark" form:"remark"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TableName Specify table name
func (Subscriber) TableName() string {
	return "subscriber"
}

// ServicePlan is a sellable service definition applied to subscribers.
type ServicePlan struct {
	ID               int64     `gorm:"primaryKey" json:"id,string" form:"id"`
	Name             string    `gorm:"size:128;uniqueIndex" json:"name" form:"name"`
	UpRateKbps       int64     `json:"up_rate_kbps" form:"up_rate_kbps"`     // Upload rate in Kbps
	DownRateKbps     int64     `json:"down_rate_kbps" form:"down_rate_kbps"` // Download rate in Kbps
	PcqMode          string    `gorm:"size:32" json:"pcq_mode" form:"pcq_mode"` // Router PCQ mode, passed through to the backend
	DailyQuotaBytes  int64     `json:"daily_quota" form:"daily_quota"`       // Daily quota in bytes, 0 means unlimited
	TimeSpeedEnabled bool      `json:"time_speed_enabled" form:"time_speed_enabled"` // Enables day/night ratio fields
	DayRatio         int       `json:"day_ratio" form:"day_ratio"`           // Percent of base rate during day window
	NightRatio       int       `json:"night_ratio" form:"night_ratio"`       // Percent of base rate during night window
	NightStart       string    `gorm:"size:8" json:"night_start" form:"night_start"` // 24h clock, e.g. "23:00"
	FupTiers         string    `gorm:"type:text" json:"fup_tiers"`           // FUP tier JSON, display-only on the console
	Status           string    `gorm:"size:16;index;default:'enabled'" json:"status" form:"status"`
	Remark           string    `gorm:"size:255" json:"remark" form:"remark"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// TableName Specify table name
func (ServicePlan) TableName() string {
	return "service_plan"
}

// NasNode is a POP/NAS device subscribers terminate on. The console only
// reads these; device management belongs to the backend.
type NasNode struct {
	ID        int64     `gorm:"primaryKey" json:"id,string"`
	Name      string    `gorm:"size:128" json:"name"`
	Ipaddr    string    `gorm:"size:64" json:"ipaddr"`
	Online    bool      `json:"online"`
	Latency   int       `json:"latency"` // milliseconds, -1 when unreachable
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName Specify table name
func (NasNode) TableName() string {
	return "nas_node"
}
