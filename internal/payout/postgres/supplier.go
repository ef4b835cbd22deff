package postgres

import (
	"time"

	"gorm.io/gorm"

	"github.com/danilocontato-coder/quotemasterpro-sub002/internal/core/datamodel/supplier"
)

type SupplierRepository struct {
	db *gorm.DB
}

func NewSupplierRepository(db *gorm.DB) *SupplierRepository {
	return &SupplierRepository{db: db}
}

func (r *SupplierRepository) GetByID(id int64) (*supplier.Supplier, error) {
	var s supplier.Supplier
	if err := r.db.First(&s, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *SupplierRepository) UpdateWalletID(id int64, walletID string) error {
	return r.db.Model(&supplier.Supplier{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"wallet_id":  walletID,
			"updated_at": time.Now(),
		}).Error
}
