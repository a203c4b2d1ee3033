package schema

import "time"

// SchemaMeta 记录状态库的 schema 版本，单行（ID=1）。
// 库中版本高于程序已知版本时进入安全模式，只读不写。
type SchemaMeta struct {
	ID            int       `gorm:"primaryKey"`
	SchemaVersion int       `gorm:"not null"`
	CreatedAt     time.Time `gorm:"autoCreateTime"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime"`
}

func (SchemaMeta) TableName() string {
	return "schema_meta"
}
