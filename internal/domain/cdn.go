package domain

import "time"

// CDN rule match directions. A port rule matches by destination port, a
// dscp rule by DSCP value; the two fields are mutually exclusive.
const (
	CdnDirectionPort = "port"
	CdnDirectionDscp = "dscp"
)

// CdnRule is a CDN traffic-shaping rule synced to routers by the backend.
type CdnRule struct {
	ID        int64     `gorm:"primaryKey" json:"id,string" form:"id"`
	Name      string    `gorm:"size:128;uniqueIndex" json:"name" form:"name"`
	Direction string    `gorm:"size:16" json:"direction" form:"direction"` // port|dscp
	Port      int       `json:"port" form:"port"`                          // Required when direction=port
	Dscp      int       `json:"dscp" form:"dscp"`                          // Required when direction=dscp
	RateKbps  int64     `json:"rate_kbps" form:"rate_kbps"`                // Guaranteed rate
	CeilKbps  int64     `json:"ceil_kbps" form:"ceil_kbps"`                // Burst ceiling, 0 means same as rate
	IsRate    bool      `json:"is_rate"`                                   // Live counter is already a rate, not cumulative
	Status    string    `gorm:"size:16;index;default:'enabled'" json:"status" form:"status"`
	Remark    string    `gorm:"size:255" json:"remark" form:"remark"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName Specify table name
func (CdnRule) TableName() string {
	return "cdn_rule"
}
