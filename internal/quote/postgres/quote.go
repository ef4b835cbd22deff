package postgres

import (
	"time"

	"gorm.io/gorm"

	"github.com/danilocontato-coder/quotemasterpro-sub002/internal/core/datamodel/quote"
)

type QuoteRepository struct {
	db *gorm.DB
}

func NewQuoteRepository(db *gorm.DB) *QuoteRepository {
	return &QuoteRepository{db: db}
}

func (r *QuoteRepository) GetByID(id int64) (*quote.Quote, error) {
	var q quote.Quote
	if err := r.db.First(&q, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &q, nil
}

// Approve flips pending to approved in one conditional write so concurrent
// approvals collapse into a single event.
func (r *QuoteRepository) Approve(id int64, at time.Time) (bool, error) {
	result := r.db.Model(&quote.Quote{}).
		Where("id = ? AND status = ?", id, quote.StatusPending).
		Updates(map[string]interface{}{
			"status":      quote.StatusApproved,
			"approved_at": at,
			"updated_at":  at,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
