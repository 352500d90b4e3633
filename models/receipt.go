package models

import "time"

// Receipt is one processed receipt image and the fields extracted from it.
// The five extracted columns are nullable: a missing field means the
// extractor found nothing, which is a normal outcome.
type Receipt struct {
	ID          uint `gorm:"primaryKey"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
	FileName    string `gorm:"size:255;not null;uniqueIndex"`
	StorePath   string `gorm:"column:store_path;size:512"`
	ContentType string `gorm:"size:128"`

	MerchantName  *string `gorm:"size:255"`
	Date          *string `gorm:"size:64"` // raw matched text; format is receipt-dependent
	TotalAmount   *float64
	TransactionID *string `gorm:"size:128"`
	PaymentMethod *string `gorm:"size:64"`
	RawText       string  `gorm:"type:text"`

	// Mark receipts whose pipeline run failed (decode error) so they can be
	// reviewed instead of silently dropped.
	Failed       bool   `gorm:"default:false;index"`
	FailedReason string `gorm:"size:255"`
}
