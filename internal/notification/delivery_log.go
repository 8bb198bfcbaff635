package notification

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DeliveryRecord is one row of the push delivery log.
type DeliveryRecord struct {
	ID        string    `json:"id" gorm:"primaryKey"`
	UserID    string    `json:"user_id,omitempty" gorm:"index"`
	Token     string    `json:"-" gorm:"index"`
	Title     string    `json:"title"`
	Outcome   Outcome   `json:"outcome" gorm:"index;not null"`
	MessageID string    `json:"message_id,omitempty"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at" gorm:"index"`
}

type DeliveryFilter struct {
	UserID  string
	Outcome Outcome
	Limit   int
	Offset  int
}

// DeliveryLog stores dispatch outcomes.
type DeliveryLog interface {
	Record(ctx context.Context, rec *DeliveryRecord) error
	List(ctx context.Context, f DeliveryFilter) ([]*DeliveryRecord, int64, error)
}

type gormDeliveryLog struct {
	db *gorm.DB
}

// NewGormDeliveryLog creates the delivery log and migrates its table.
func NewGormDeliveryLog(db *gorm.DB) (DeliveryLog, error) {
	if err := db.AutoMigrate(&DeliveryRecord{}); err != nil {
		return nil, err
	}
	return &gormDeliveryLog{db: db}, nil
}

func (r *gormDeliveryLog) Record(ctx context.Context, rec *DeliveryRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	return r.db.WithContext(ctx).Create(rec).Error
}

func (r *gormDeliveryLog) List(ctx context.Context, f DeliveryFilter) ([]*DeliveryRecord, int64, error) {
	var records []*DeliveryRecord
	var total int64

	query := r.db.WithContext(ctx).Model(&DeliveryRecord{})
	if f.UserID != "" {
		query = query.Where("user_id = ?", f.UserID)
	}
	if f.Outcome != "" {
		query = query.Where("outcome = ?", f.Outcome)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if f.Limit <= 0 {
		f.Limit = 50
	}
	err := query.Order("created_at DESC").Limit(f.Limit).Offset(f.Offset).Find(&records).Error
	if err != nil {
		return nil, 0, err
	}
	return records, total, nil
}
