package domain

import "time"

// Backup is one backup artifact held by the backend. Identified by
// filename rather than a numeric ID.
type Backup struct {
	Filename  string    `gorm:"primaryKey;size:255" json:"filename"`
	SizeBytes int64     `json:"size_bytes"`
	Kind      string    `gorm:"size:16" json:"kind"` // full|data
	Storage   string    `gorm:"size:16" json:"storage_type"` // local|cloud
	CreatedAt time.Time `json:"created_at"`
}

// TableName Specify table name
func (Backup) TableName() string {
	return "backup"
}

// BackupSchedule is a recurring backup job definition.
type BackupSchedule struct {
	ID          int64     `gorm:"primaryKey" json:"id,string" form:"id"`
	Name        string    `gorm:"size:128;uniqueIndex" json:"name" form:"name"`
	Frequency   string    `gorm:"size:16" json:"frequency" form:"frequency"` // daily|weekly|monthly
	Time        string    `gorm:"size:8" json:"time" form:"time"`            // 24h clock "02:00"
	Retention   int       `json:"retention" form:"retention"`                // Copies kept, older ones pruned
	StorageType string    `gorm:"size:16" json:"storage_type" form:"storage_type"` // local|cloud
	Status      string    `gorm:"size:16;index;default:'enabled'" json:"status" form:"status"`
	LastRunAt   time.Time `json:"last_run_at"`
	NextRunAt   time.Time `json:"next_run_at"`
	LastResult  string    `gorm:"size:16" json:"last_result"`  // success|failed
	LastMessage string    `gorm:"size:255" json:"last_message"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName Specify table name
func (BackupSchedule) TableName() string {
	return "backup_schedule"
}

// BackupLog records one schedule execution.
type BackupLog struct {
	ID         int64     `gorm:"primaryKey" json:"id,string"`
	ScheduleID int64     `gorm:"index" json:"schedule_id,string"`
	Filename   string    `gorm:"size:255" json:"filename"`
	Result     string    `gorm:"size:16" json:"result"`
	Message    string    `gorm:"size:255" json:"message"`
	CreatedAt  time.Time `json:"created_at"`
}

// TableName Specify table name
func (BackupLog) TableName() string {
	return "backup_log"
}
