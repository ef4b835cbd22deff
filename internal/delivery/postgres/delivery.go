package postgres

import (
	"time"

	"gorm.io/gorm"

	"github.com/danilocontato-coder/quotemasterpro-sub002/internal/core/datamodel/delivery"
)

type DeliveryRepository struct {
	db *gorm.DB
}

func NewDeliveryRepository(db *gorm.DB) *DeliveryRepository {
	return &DeliveryRepository{db: db}
}

func (r *DeliveryRepository) CreateDelivery(d *delivery.Delivery) error {
	return r.db.Create(d).Error
}

func (r *DeliveryRepository) CreateConfirmation(c *delivery.Confirmation) error {
	return r.db.Create(c).Error
}

func (r *DeliveryRepository) GetConfirmationByCode(code string) (*delivery.Confirmation, error) {
	var c delivery.Confirmation
	if err := r.db.First(&c, "code = ?", code).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// ConsumeConfirmation is the single-use gate: the is_used predicate lives
// in the WHERE clause, so of two concurrent redemptions exactly one sees a
// row affected.
func (r *DeliveryRepository) ConsumeConfirmation(code string, confirmedBy int64, at time.Time) (bool, error) {
	result := r.db.Model(&delivery.Confirmation{}).
		Where("code = ? AND is_used = false", code).
		Updates(map[string]interface{}{
			"is_used":      true,
			"confirmed_by": confirmedBy,
			"confirmed_at": at,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *DeliveryRepository) MarkDelivered(deliveryID int64, at time.Time) error {
	return r.db.Model(&delivery.Delivery{}).
		Where("id = ?", deliveryID).
		Updates(map[string]interface{}{
			"status":       delivery.StatusDelivered,
			"delivered_at": at,
			"updated_at":   at,
		}).Error
}
