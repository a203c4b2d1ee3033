package schema

import "time"

// StateBlob 按命名空间存放的一类实体的序列化快照
// 表内每个命名空间仅一行，整组在同一事务中写入
type StateBlob struct {
	Namespace string    `gorm:"primaryKey;size:64"`
	Version   int       `gorm:"not null;default:1"`
	Checksum  string    `gorm:"size:16"` // crc32(IEEE) 十六进制
	Payload   []byte    `gorm:"type:blob"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (StateBlob) TableName() string {
	return "state_blobs"
}
