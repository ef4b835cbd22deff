package postgres

import (
	"gorm.io/gorm"

	"github.com/danilocontato-coder/quotemasterpro-sub002/internal/notification"
)

type NotificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) notification.Repository {
	return &NotificationRepository{db: db}
}

func (r *NotificationRepository) Append(n *notification.Notification) error {
	return r.db.Create(n).Error
}

func (r *NotificationRepository) ListBySupplier(supplierID int64, limit int) ([]*notification.Notification, error) {
	var notifications []*notification.Notification
	err := r.db.Where("supplier_id = ?", supplierID).
		Order("created_at DESC").Limit(limit).Find(&notifications).Error
	return notifications, err
}
