package postgres

import (
	"gorm.io/gorm"

	"github.com/danilocontato-coder/quotemasterpro-sub002/internal/audit"
)

type AuditRepository struct {
	db *gorm.DB
}

func NewAuditRepository(db *gorm.DB) audit.Repository {
	return &AuditRepository{db: db}
}

func (r *AuditRepository) Append(log *audit.Log) error {
	return r.db.Create(log).Error
}

func (r *AuditRepository) ListByEntity(entity string, entityID int64) ([]*audit.Log, error) {
	var logs []*audit.Log
	err := r.db.Where("entity = ? AND entity_id = ?", entity, entityID).
		Order("created_at ASC").Find(&logs).Error
	return logs, err
}
