package view

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/netvigil/ispadm/internal/domain"
)

// Column sets shared by the CLI table output and the dashboard tabs.
// Only columns with an obvious total order declare Less; everything else
// stays in server order.

func formatKbps(kbps int64) string {
	if kbps >= 1024 {
		return fmt.Sprintf("%.1fM", float64(kbps)/1024)
	}
	return strconv.FormatInt(kbps, 10) + "K"
}

func formatExpiry(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("2006-01-02")
}

func onlineMark(online bool) string {
	if online {
		return "online"
	}
	return "offline"
}

// SubscriberColumns declares the subscriber list layout.
func SubscriberColumns() []Column[domain.Subscriber] {
	return []Column[domain.Subscriber]{
		{
			Key: "username", Header: "Username",
			Render: func(s domain.Subscriber) string { return s.Username },
			Less: func(a, b domain.Subscriber) bool {
				return strings.ToLower(a.Username) < strings.ToLower(b.Username)
			},
		},
		{
			Key: "realname", Header: "Name",
			Render: func(s domain.Subscriber) string { return s.Realname },
		},
		{
			Key: "status", Header: "Status",
			Render: func(s domain.Subscriber) string { return s.Status },
		},
		{
			Key: "online", Header: "Session",
			Render: func(s domain.Subscriber) string { return onlineMark(s.Online) },
		},
		{
			Key: "rate", Header: "Down/Up",
			Render: func(s domain.Subscriber) string {
				return formatKbps(s.DownRateKbps) + "/" + formatKbps(s.UpRateKbps)
			},
		},
		{
			Key: "expire_at", Header: "Expires",
			Render: func(s domain.Subscriber) string { return formatExpiry(s.ExpireAt) },
			Less: func(a, b domain.Subscriber) bool {
				return a.ExpireAt.Before(b.ExpireAt)
			},
		},
	}
}

// PlanColumns declares the service plan list layout.
func PlanColumns() []Column[domain.ServicePlan] {
	return []Column[domain.ServicePlan]{
		{
			Key: "name", Header: "Name",
			Render: func(p domain.ServicePlan) string { return p.Name },
			Less: func(a, b domain.ServicePlan) bool {
				return strings.ToLower(a.Name) < strings.ToLower(b.Name)
			},
		},
		{
			Key: "rate", Header: "Down/Up",
			Render: func(p domain.ServicePlan) string {
				return formatKbps(p.DownRateKbps) + "/" + formatKbps(p.UpRateKbps)
			},
			Less: func(a, b domain.ServicePlan) bool {
				return a.DownRateKbps < b.DownRateKbps
			},
		},
		{
			Key: "quota", Header: "Daily Quota",
			Render: func(p domain.ServicePlan) string {
				if p.DailyQuotaBytes == 0 {
					return "unlimited"
				}
				return fmt.Sprintf("%.1fGB", float64(p.DailyQuotaBytes)/float64(1<<30))
			},
		},
		{
			Key: "time_speed", Header: "Day/Night",
			Render: func(p domain.ServicePlan) string {
				if !p.TimeSpeedEnabled {
					return "-"
				}
				return fmt.Sprintf("%d%%/%d%%", p.DayRatio, p.NightRatio)
			},
		},
		{
			Key: "status", Header: "Status",
			Render: func(p domain.ServicePlan) string { return p.Status },
		},
	}
}

// CdnRuleColumns declares the CDN rule list layout.
func CdnRuleColumns() []Column[domain.CdnRule] {
	return []Column[domain.CdnRule]{
		{
			Key: "name", Header: "Name",
			Render: func(r domain.CdnRule) string { return r.Name },
			Less: func(a, b domain.CdnRule) bool {
				return strings.ToLower(a.Name) < strings.ToLower(b.Name)
			},
		},
		{
			Key: "match", Header: "Match",
			Render: func(r domain.CdnRule) string {
				if r.Direction == domain.CdnDirectionDscp {
					return fmt.Sprintf("dscp %d", r.Dscp)
				}
				return fmt.Sprintf("port %d", r.Port)
			},
		},
		{
			Key: "rate", Header: "Rate/Ceil",
			Render: func(r domain.CdnRule) string {
				ceil := r.CeilKbps
				if ceil == 0 {
					ceil = r.RateKbps
				}
				return formatKbps(r.RateKbps) + "/" + formatKbps(ceil)
			},
			Less: func(a, b domain.CdnRule) bool { return a.RateKbps < b.RateKbps },
		},
		{
			Key: "counter", Header: "Counter",
			Render: func(r domain.CdnRule) string {
				if r.IsRate {
					return "rate"
				}
				return "cumulative"
			},
		},
		{
			Key: "status", Header: "Status",
			Render: func(r domain.CdnRule) string { return r.Status },
		},
	}
}

// BackupColumns declares the backup list layout.
func BackupColumns() []Column[domain.Backup] {
	return []Column[domain.Backup]{
		{
			Key: "filename", Header: "Filename",
			Render: func(b domain.Backup) string { return b.Filename },
			Less: func(a, b domain.Backup) bool { return a.Filename < b.Filename },
		},
		{
			Key: "size", Header: "Size",
			Render: func(b domain.Backup) string {
				return fmt.Sprintf("%.1fMB", float64(b.SizeBytes)/float64(1<<20))
			},
			Less: func(a, b domain.Backup) bool { return a.SizeBytes < b.SizeBytes },
		},
		{
			Key: "kind", Header: "Kind",
			Render: func(b domain.Backup) string { return b.Kind },
		},
		{
			Key: "storage", Header: "Storage",
			Render: func(b domain.Backup) string { return b.Storage },
		},
		{
			Key: "created_at", Header: "Created",
			Render: func(b domain.Backup) string { return b.CreatedAt.Format("2006-01-02 15:04") },
			Less:   func(a, b domain.Backup) bool { return a.CreatedAt.Before(b.CreatedAt) },
		},
	}
}

// ScheduleColumns declares the backup schedule list layout.
func ScheduleColumns() []Column[domain.BackupSchedule] {
	return []Column[domain.BackupSchedule]{
		{
			Key: "name", Header: "Name",
			Render: func(s domain.BackupSchedule) string { return s.Name },
			Less: func(a, b domain.BackupSchedule) bool {
				return strings.ToLower(a.Name) < strings.ToLower(b.Name)
			},
		},
		{
			Key: "when", Header: "When",
			Render: func(s domain.BackupSchedule) string { return s.Frequency + " " + s.Time },
		},
		{
			Key: "retention", Header: "Keep",
			Render: func(s domain.BackupSchedule) string { return strconv.Itoa(s.Retention) },
		},
		{
			Key: "storage", Header: "Storage",
			Render: func(s domain.BackupSchedule) string { return s.StorageType },
		},
		{
			Key: "status", Header: "Status",
			Render: func(s domain.BackupSchedule) string { return s.Status },
		},
		{
			Key: "last", Header: "Last Run",
			Render: func(s domain.BackupSchedule) string {
				if s.LastRunAt.IsZero() {
					return "-"
				}
				return s.LastRunAt.Format("2006-01-02 15:04") + " " + s.LastResult
			},
		},
	}
}

// LedgerColumns declares the ledger list layout.
func LedgerColumns() []Column[domain.LedgerEntry] {
	return []Column[domain.LedgerEntry]{
		{
			Key: "created_at", Header: "Date",
			Render: func(e domain.LedgerEntry) string { return e.CreatedAt.Format("2006-01-02 15:04") },
			Less:   func(a, b domain.LedgerEntry) bool { return a.CreatedAt.Before(b.CreatedAt) },
		},
		{
			Key: "username", Header: "Username",
			Render: func(e domain.LedgerEntry) string { return e.Username },
		},
		{
			Key: "kind", Header: "Kind",
			Render: func(e domain.LedgerEntry) string { return e.Kind },
		},
		{
			Key: "amount", Header: "Amount",
			Render: func(e domain.LedgerEntry) string {
				return fmt.Sprintf("%.2f", float64(e.AmountCents)/100)
			},
		},
		{
			Key: "balance", Header: "Balance",
			Render: func(e domain.LedgerEntry) string {
				return fmt.Sprintf("%.2f", float64(e.BalanceCents)/100)
			},
		},
		{
			Key: "reference", Header: "Reference",
			Render: func(e domain.LedgerEntry) string { return e.Reference },
		},
	}
}
