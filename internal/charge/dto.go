package charge

import (
	"github.com/danilocontato-coder/quotemasterpro-sub002/internal"
	"github.com/danilocontato-coder/quotemasterpro-sub002/internal/core/common/validation"
)

type CreateChargeRequest struct {
	QuoteID int64 `json:"quote_id"`
}

func (r *CreateChargeRequest) Validate() error {
	v := validation.NewValidator()
	v.Field("quote_id", r.QuoteID).Required().MinInt(1, internal.ErrCodeValidationFailed)

	if appErr := v.Validate(); appErr != nil {
		return appErr
	}
	return nil
}
