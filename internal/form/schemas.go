package form

import "github.com/netvigil/ispadm/internal/domain"

// The concrete form schemas. Each page of the console is parameterized by
// one of these instead of hand-coding its fetch/transform/submit cycle.

// SubscriberSchema describes the PPPoE subscriber form.
func SubscriberSchema() Schema {
	return Schema{
		Resource: "subscribers",
		Fields: []Field{
			{Name: "username", Label: "Username", Kind: KindString, Required: true},
			{Name: "realname", Label: "Customer name", Kind: KindString},
			{Name: "plan_id", Label: "Service plan", Kind: KindID, Required: true},
			{Name: "node_id", Label: "POP node", Kind: KindID},
			{Name: "ip_addr", Label: "Static IP", Kind: KindIP},
			{Name: "mac_addr", Label: "Bound MAC", Kind: KindString},
			{Name: "expire_at", Label: "Expiry", Kind: KindTimestamp, Required: true},
			{Name: "quota_bytes", Label: "Daily quota (GB)", Kind: KindBytesGB, ZeroMeaning: "unlimited"},
			{Name: "status", Label: "Status", Kind: KindEnum, Enum: []string{"enabled", "disabled"}, Default: "enabled"},
			{Name: "remark", Label: "Remark", Kind: KindString},
		},
	}
}

// PlanSchema describes the service plan form. The day/night ratio fields
// only apply while time-based speed is on; they are zeroed at submit when
// it is off so a stale ratio never reaches the backend.
func PlanSchema() Schema {
	timeSpeedOn := func(values map[string]string) bool {
		return values["time_speed_enabled"] == "true"
	}
	return Schema{
		Resource: "plans",
		Fields: []Field{
			{Name: "name", Label: "Plan name", Kind: KindString, Required: true},
			{Name: "up_rate_kbps", Label: "Upload (Kbps)", Kind: KindInt, Required: true, Min: 1},
			{Name: "down_rate_kbps", Label: "Download (Kbps)", Kind: KindInt, Required: true, Min: 1},
			{Name: "pcq_mode", Label: "PCQ mode", Kind: KindEnum, Enum: []string{"", "pcq-upload", "pcq-download", "pcq-both"}},
			{Name: "daily_quota", Label: "Daily quota (GB)", Kind: KindBytesGB, ZeroMeaning: "unlimited"},
			{Name: "time_speed_enabled", Label: "Time-based speed", Kind: KindBool, Default: false},
			{Name: "day_ratio", Label: "Day ratio (%)", Kind: KindInt, Min: 1, EnabledWhen: timeSpeedOn, ZeroWhenDisabled: true},
			{Name: "night_ratio", Label: "Night ratio (%)", Kind: KindInt, Min: 1, EnabledWhen: timeSpeedOn, ZeroWhenDisabled: true},
			{Name: "night_start", Label: "Night window start", Kind: KindClock12h, EnabledWhen: timeSpeedOn},
			{Name: "status", Label: "Status", Kind: KindEnum, Enum: []string{"enabled", "disabled"}, Default: "enabled"},
			{Name: "remark", Label: "Remark", Kind: KindString},
		},
	}
}

// CdnRuleSchema describes the CDN shaping rule form. Direction selects
// whether the rule matches by port or by DSCP; the inactive match field
// is excluded from the payload entirely.
func CdnRuleSchema() Schema {
	isPort := func(values map[string]string) bool {
		return values["direction"] == domain.CdnDirectionPort
	}
	isDscp := func(values map[string]string) bool {
		return values["direction"] == domain.CdnDirectionDscp
	}
	return Schema{
		Resource: "cdn_rules",
		Fields: []Field{
			{Name: "name", Label: "Rule name", Kind: KindString, Required: true},
			{Name: "direction", Label: "Match direction", Kind: KindEnum, Required: true,
				Enum: []string{domain.CdnDirectionPort, domain.CdnDirectionDscp}, Default: domain.CdnDirectionPort},
			{Name: "port", Label: "Port", Kind: KindInt, Required: true, Min: 1, EnabledWhen: isPort},
			{Name: "dscp", Label: "DSCP", Kind: KindInt, Required: true, EnabledWhen: isDscp},
			{Name: "rate_kbps", Label: "Rate (Kbps)", Kind: KindInt, Required: true, Min: 1},
			{Name: "ceil_kbps", Label: "Ceiling (Kbps)", Kind: KindInt, ZeroMeaning: "same as rate"},
			{Name: "status", Label: "Status", Kind: KindEnum, Enum: []string{"enabled", "disabled"}, Default: "enabled"},
			{Name: "remark", Label: "Remark", Kind: KindString},
		},
	}
}

// ScheduleSchema describes the backup schedule form. Time is entered on a
// 12-hour clock and submitted in the backend's 24-hour encoding.
func ScheduleSchema() Schema {
	return Schema{
		Resource: "schedules",
		Fields: []Field{
			{Name: "name", Label: "Schedule name", Kind: KindString, Required: true},
			{Name: "frequency", Label: "Frequency", Kind: KindEnum, Required: true,
				Enum: []string{"daily", "weekly", "monthly"}, Default: "daily"},
			{Name: "time", Label: "Run time", Kind: KindClock12h, Required: true, Default: "02:00"},
			{Name: "retention", Label: "Copies kept", Kind: KindInt, Required: true, Min: 1, Default: int64(7)},
			{Name: "storage_type", Label: "Storage", Kind: KindEnum, Required: true,
				Enum: []string{"local", "cloud"}, Default: "local"},
			{Name: "status", Label: "Status", Kind: KindEnum, Enum: []string{"enabled", "disabled"}, Default: "enabled"},
		},
	}
}
