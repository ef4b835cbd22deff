package supplier

import (
	"time"

	"github.com/shopspring/decimal"
)

// Supplier carries the payout identifiers the settlement engine needs:
// the gateway sub-account (wallet) that receives split proceeds, plus the
// PIX key or bank account used for direct transfers. Everything else about
// suppliers (onboarding, catalog, users) lives outside this service.
type Supplier struct {
	ID     int64  `gorm:"primaryKey"`
	Name   string `gorm:"column:name;not null"`
	Email  string `gorm:"column:email"`
	Phone  string `gorm:"column:phone"`
	TaxID  string `gorm:"column:tax_id;not null;index"`

	WalletID *string `gorm:"column:wallet_id"`

	PixKeyType *string `gorm:"column:pix_key_type"`
	PixKey     *string `gorm:"column:pix_key"`

	BankCode         *string `gorm:"column:bank_code"`
	BankAgency       *string `gorm:"column:bank_agency"`
	BankAccount      *string `gorm:"column:bank_account"`
	BankAccountDigit *string `gorm:"column:bank_account_digit"`
	BankAccountType  *string `gorm:"column:bank_account_type"`
	BankOwnerName    *string `gorm:"column:bank_owner_name"`

	MonthlyRevenue *decimal.Decimal `gorm:"column:monthly_revenue;type:numeric(15,2)"`

	CreatedAt time.Time `gorm:"column:created_at;default:now()"`
	UpdatedAt time.Time `gorm:"column:updated_at;default:now()"`
}

func (Supplier) TableName() string {
	return "suppliers"
}

// HasPixKey reports whether the supplier registered a usable PIX key.
func (s *Supplier) HasPixKey() bool {
	return s.PixKey != nil && *s.PixKey != ""
}

// HasBankAccount reports whether the full bank-account tuple is present.
func (s *Supplier) HasBankAccount() bool {
	return notEmpty(s.BankCode) && notEmpty(s.BankAgency) &&
		notEmpty(s.BankAccount) && notEmpty(s.BankAccountDigit) &&
		notEmpty(s.BankOwnerName)
}

func notEmpty(v *string) bool {
	return v != nil && *v != ""
}
