package model

import (
	"time"
)

// Model3D 3D模型记录表（精简）
// 文件与图片存储由外部服务负责；这里只保留成就统计与经验发放需要的字段
type Model3D struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID      int64     `gorm:"index;not null" json:"user_id"`
	Name        string    `gorm:"type:varchar(100);not null" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	CreatedAt   time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

func (Model3D) TableName() string {
	return "model3d"
}
