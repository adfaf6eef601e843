package system

import "time"

// FlagAdminExists is claimed exactly once, by the transaction that creates the first admin.
const FlagAdminExists = "admin_exists"

type SystemFlag struct {
	Key       string    `gorm:"primaryKey;column:key" json:"key"`
	Value     string    `gorm:"column:value" json:"value"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

func (SystemFlag) TableName() string { return "system_flag" }
