package payout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/danilocontato-coder/quotemasterpro-sub002/internal"
	"github.com/danilocontato-coder/quotemasterpro-sub002/internal/audit"
	gwtypes "github.com/danilocontato-coder/quotemasterpro-sub002/internal/core/datamodel/gateway"
	"github.com/danilocontato-coder/quotemasterpro-sub002/internal/core/datamodel/supplier"
	"github.com/danilocontato-coder/quotemasterpro-sub002/internal/gateway"
)

// SupplierRepository is the slice of supplier persistence the validator needs.
type SupplierRepository interface {
	GetByID(id int64) (*supplier.Supplier, error)
	UpdateWalletID(id int64, walletID string) error
}

// GatewayAPI is the gateway surface used for destination validation and
// healing.
type GatewayAPI interface {
	WalletExists(ctx context.Context, walletID string) (bool, error)
	FindAccountByTaxID(ctx context.Context, taxID string) (*gwtypes.Account, error)
	CreateAccount(ctx context.Context, req *gwtypes.AccountRequest) (*gwtypes.Account, error)
}

// Result reports whether a usable payout destination exists for a supplier.
type Result struct {
	Valid    bool
	WalletID string
	Healed   bool
}

// Validator confirms a supplier's payout destination is live at the gateway
// and self-heals stale wallet references. Charge creation treats a
// validation failure as "no split", never as a blocked charge.
type Validator struct {
	suppliers      SupplierRepository
	gateway        GatewayAPI
	auditor        audit.Recorder
	fallbackIncome decimal.Decimal
	logger         *slog.Logger
}

func NewValidator(suppliers SupplierRepository, gw GatewayAPI, auditor audit.Recorder, fallbackIncome decimal.Decimal, logger *slog.Logger) *Validator {
	return &Validator{
		suppliers:      suppliers,
		gateway:        gw,
		auditor:        auditor,
		fallbackIncome: fallbackIncome,
		logger:         logger,
	}
}

// Validate checks the supplier's wallet liveness, healing it when stale.
// An invalid result with a nil error means the caller should proceed
// without a split.
func (v *Validator) Validate(ctx context.Context, supplierID int64) (*Result, error) {
	sup, err := v.suppliers.GetByID(supplierID)
	if err != nil {
		return nil, internal.ErrSupplierNotFound.WithCause(err)
	}

	// A split routes money the supplier must later be able to withdraw; a
	// live wallet alone is not enough without a complete PIX key or bank
	// tuple to pay out against.
	if _, err := ResolveDestination(sup); err != nil {
		v.logger.Warn("supplier has no complete payee details, skipping split",
			"supplier_id", supplierID)
		return &Result{Valid: false}, nil
	}

	if sup.WalletID == nil || *sup.WalletID == "" {
		v.logger.Info("supplier has no wallet id, charge proceeds without a split",
			"supplier_id", supplierID)
		return &Result{Valid: false}, nil
	}

	alive, err := v.gateway.WalletExists(ctx, *sup.WalletID)
	if err != nil {
		// Gateway unreachable: neither confirm nor heal. Report invalid so
		// the charge still goes out without a split.
		v.logger.Error("wallet liveness check failed",
			"supplier_id", supplierID,
			"wallet_id", *sup.WalletID,
			"error", err)
		return &Result{Valid: false}, nil
	}

	if alive {
		return &Result{Valid: true, WalletID: *sup.WalletID}, nil
	}

	v.logger.Warn("stale payout destination detected",
		"supplier_id", supplierID,
		"wallet_id", *sup.WalletID)

	walletID, err := v.heal(ctx, sup, "stale wallet id")
	if err != nil {
		return &Result{Valid: false}, nil
	}

	return &Result{Valid: true, WalletID: walletID, Healed: true}, nil
}

// heal recovers a payout destination: first by looking up an existing
// sub-account for the supplier's tax id (avoids duplicate accounts for the
// same legal entity), then by creating one.
func (v *Validator) heal(ctx context.Context, sup *supplier.Supplier, reason string) (string, error) {
	oldWallet := ""
	if sup.WalletID != nil {
		oldWallet = *sup.WalletID
	}

	account, err := v.gateway.FindAccountByTaxID(ctx, sup.TaxID)
	if err != nil {
		return "", fmt.Errorf("sub-account lookup failed: %w", err)
	}

	if account == nil {
		req := &gwtypes.AccountRequest{
			Name:        sup.Name,
			Email:       sup.Email,
			CpfCnpj:     sup.TaxID,
			MobilePhone: sup.Phone,
			IncomeValue: v.declaredIncome(sup),
		}
		account, err = v.gateway.CreateAccount(ctx, req)
		if err != nil {
			var gwErr *gateway.Error
			if errors.As(err, &gwErr) {
				return "", internal.NewValidationError(
					"gateway rejected sub-account creation: "+gwErr.Error(),
					internal.ErrCodeInvalidDestination).WithCause(gwErr)
			}
			return "", fmt.Errorf("sub-account creation failed: %w", err)
		}
	}

	if account.WalletID == "" {
		return "", fmt.Errorf("gateway sub-account %s has no wallet id", account.ID)
	}

	if err := v.suppliers.UpdateWalletID(sup.ID, account.WalletID); err != nil {
		return "", fmt.Errorf("persisting healed wallet id failed: %w", err)
	}
	sup.WalletID = &account.WalletID

	v.auditor.Record(ctx, audit.Entry{
		Action:   "payout_destination_healed",
		Entity:   "supplier",
		EntityID: sup.ID,
		Details: map[string]interface{}{
			"old_wallet_id": oldWallet,
			"new_wallet_id": account.WalletID,
			"reason":        reason,
		},
	})

	v.logger.Info("payout destination healed",
		"supplier_id", sup.ID,
		"old_wallet_id", oldWallet,
		"new_wallet_id", account.WalletID,
		"reason", reason)

	return account.WalletID, nil
}

// declaredIncome derives a plausible income figure from business metadata,
// with a conservative constant when no signal exists.
func (v *Validator) declaredIncome(sup *supplier.Supplier) decimal.Decimal {
	if sup.MonthlyRevenue != nil && sup.MonthlyRevenue.IsPositive() {
		return *sup.MonthlyRevenue
	}
	return v.fallbackIncome
}
