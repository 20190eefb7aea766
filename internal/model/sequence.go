package model

// SequenceCounter is the durable atomic counter behind the sequence generator,
// keyed by (tenant, year, kind). Rows are only ever incremented, never reset.
type SequenceCounter struct {
	TenantID string `gorm:"type:uuid;primaryKey"`
	Year     int    `gorm:"primaryKey"`
	Kind     string `gorm:"type:varchar(20);primaryKey"`
	Value    int64  `gorm:"not null;default:0"`
}
