package postgres

import (
	"time"

	"gorm.io/gorm"

	"github.com/danilocontato-coder/quotemasterpro-sub002/internal/core/datamodel/client"
)

type ClientRepository struct {
	db *gorm.DB
}

func NewClientRepository(db *gorm.DB) *ClientRepository {
	return &ClientRepository{db: db}
}

func (r *ClientRepository) GetByID(id int64) (*client.Client, error) {
	var c client.Client
	if err := r.db.First(&c, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *ClientRepository) UpdateGatewayCustomerID(id int64, customerID string) error {
	return r.db.Model(&client.Client{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"gateway_customer_id": customerID,
			"updated_at":          time.Now(),
		}).Error
}
