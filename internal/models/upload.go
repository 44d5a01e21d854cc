package models

import "time"

// UploadLog 表格上传审计记录
type UploadLog struct {
	ID         int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	BatchNo    string    `gorm:"type:varchar(32);uniqueIndex;not null" json:"batch_no"`
	FileName   string    `gorm:"type:varchar(255);not null" json:"file_name"`
	Format     string    `gorm:"type:varchar(20);not null" json:"format"`
	ReportID   *int64    `gorm:"index" json:"report_id,omitempty"`
	OperatorID *int64    `gorm:"index" json:"operator_id,omitempty"`
	RowCount   int       `gorm:"not null;default:0" json:"row_count"`
	Parsed     int       `gorm:"not null;default:0" json:"parsed"`
	Dropped    int       `gorm:"not null;default:0" json:"dropped"`
	Weeks      int       `gorm:"not null;default:0" json:"weeks"`
	Status     string    `gorm:"type:varchar(20);not null;index" json:"status"`
	Error      *string   `gorm:"type:text" json:"error,omitempty"`
	ArchiveURL *string   `gorm:"type:varchar(500)" json:"archive_url,omitempty"`
	CreatedAt  time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

// TableName 表名
func (UploadLog) TableName() string {
	return "upload_logs"
}

// UploadStatus 上传结果
const (
	UploadStatusSuccess = "success" // 全部周处理成功
	UploadStatusPartial = "partial" // 部分周失败
	UploadStatusFailed  = "failed"  // 解析失败或全部周失败
)

// 上传格式
const (
	UploadFormatWeekly    = "weekly"
	UploadFormatMigration = "migration"
)

// All 返回需要自动迁移的模型
func All() []interface{} {
	return []interface{}{
		&WeeklyReport{},
		&SalesTransaction{},
		&RevenueStat{},
		&ProductSale{},
		&UploadLog{},
	}
}
