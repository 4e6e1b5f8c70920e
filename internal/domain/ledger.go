package domain

import "time"

// LedgerEntry is one row of a subscriber's transaction ledger. Amounts are
// integer cents; the console never does money arithmetic beyond display.
type LedgerEntry struct {
	ID           int64     `gorm:"primaryKey" json:"id,string"`
	Username     string    `gorm:"size:64;index" json:"username"`
	Kind         string    `gorm:"size:16" json:"kind"` // payment|charge|adjustment
	AmountCents  int64     `json:"amount_cents"`
	BalanceCents int64     `json:"balance_cents"`
	Reference    string    `gorm:"size:128" json:"reference"`
	Remark       string    `gorm:"size:255" json:"remark"`
	CreatedAt    time.Time `json:"created_at"`
}

// TableName Specify table name
func (LedgerEntry) TableName() string {
	return "ledger_entry"
}

// BulkJob records one executed bulk operation for audit.
type BulkJob struct {
	ID        int64     `gorm:"primaryKey" json:"id,string"`
	Operation string    `gorm:"size:32" json:"operation"`
	Filter    string    `gorm:"type:text" json:"filter"` // filter JSON as submitted
	Total     int       `json:"total"`
	Succeeded int       `json:"succeeded"`
	Failed    int       `json:"failed"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName Specify table name
func (BulkJob) TableName() string {
	return "bulk_job"
}
