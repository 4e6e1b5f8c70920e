package domain

import (
	"time"
)

// SysOpr is an operator account allowed to log in to the console backend.
type SysOpr struct {
	ID        int64     `gorm:"primaryKey" json:"id,string" form:"id"`
	Realname  string    `json:"realname" form:"realname"`
	Email     string    `json:"email" form:"email"`
	Username  string    `gorm:"size:64;uniqueIndex" json:"username" form:"username"`
	Password  string    `json:"password" form:"password"`
	Level     string    `json:"level" form:"level"`
	Status    string    `json:"status" form:"status"`
	Remark    string    `json:"remark" form:"remark"`
	LastLogin time.Time `json:"last_login" form:"last_login"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName Specify table name
func (SysOpr) TableName() string {
	return "sys_opr"
}
