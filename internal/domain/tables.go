package domain

var Tables = []interface{}{
	// Accounts
	&Subscriber{},
	&ServicePlan{},
	&NasNode{},
	// Shaping
	&CdnRule{},
	// Backups
	&Backup{},
	&BackupSchedule{},
	&BackupLog{},
	// Billing / audit
	&LedgerEntry{},
	&BulkJob{},
	// Operators
	&SysOpr{},
}
