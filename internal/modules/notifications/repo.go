package notifications

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Ensure inserts a notification unless one with the same (user, type, ref)
// identity already exists. Webhook handlers call this so redelivery never
// produces duplicate rows.
func Ensure(ctx context.Context, tx *gorm.DB, n Notification) error {
	var cnt int64
	if err := tx.WithContext(ctx).
		Model(&Notification{}).
		Where("user_id = ? AND type = ? AND ref_type = ? AND ref_id = ?", n.UserID, n.Type, n.RefType, n.RefID).
		Count(&cnt).Error; err != nil {
		return err
	}
	if cnt > 0 {
		return nil
	}

	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	return tx.WithContext(ctx).Create(&n).Error
}

// ListForUser returns newest-first notifications for the feed endpoint.
func ListForUser(ctx context.Context, db *gorm.DB, userID string, limit int) ([]Notification, error) {
	if limit < 1 || limit > 100 {
		limit = 50
	}
	var out []Notification
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&out).Error
	return out, err
}
