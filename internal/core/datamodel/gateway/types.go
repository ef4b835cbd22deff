package gateway

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Wire types for the payment gateway REST API. Field names follow the
// gateway's JSON contract, not ours.

type ChargeStatus string

const (
	ChargeStatusPending   ChargeStatus = "PENDING"
	ChargeStatusReceived  ChargeStatus = "RECEIVED"
	ChargeStatusConfirmed ChargeStatus = "CONFIRMED"
	ChargeStatusOverdue   ChargeStatus = "OVERDUE"
	ChargeStatusRefunded  ChargeStatus = "REFUNDED"
)

type TransferStatus string

const (
	TransferStatusPending   TransferStatus = "PENDING"
	TransferStatusDone      TransferStatus = "DONE"
	TransferStatusFailed    TransferStatus = "FAILED"
	TransferStatusCancelled TransferStatus = "CANCELLED"
)

type BillingType string

const (
	BillingPix        BillingType = "PIX"
	BillingBoleto     BillingType = "BOLETO"
	BillingCreditCard BillingType = "CREDIT_CARD"
	BillingUndefined  BillingType = "UNDEFINED"
)

type CustomerRequest struct {
	Name        string `json:"name"`
	CpfCnpj     string `json:"cpfCnpj"`
	Email       string `json:"email,omitempty"`
	MobilePhone string `json:"mobilePhone,omitempty"`
}

func (r *CustomerRequest) Validate() error {
	if r.Name == "" {
		return fmt.Errorf("name is required")
	}
	if len(onlyDigits(r.CpfCnpj)) != 11 && len(onlyDigits(r.CpfCnpj)) != 14 {
		return fmt.Errorf("cpfCnpj must have 11 or 14 digits")
	}
	return nil
}

type Customer struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	CpfCnpj string `json:"cpfCnpj"`
	Email   string `json:"email"`
}

// SplitInstruction routes a fixed portion of a charge's proceeds directly
// to a wallet at settlement time.
type SplitInstruction struct {
	WalletID   string          `json:"walletId"`
	FixedValue decimal.Decimal `json:"fixedValue"`
}

type ChargeRequest struct {
	Customer          string             `json:"customer"`
	BillingType       BillingType        `json:"billingType"`
	Value             decimal.Decimal    `json:"value"`
	DueDate           string             `json:"dueDate"`
	Description       string             `json:"description,omitempty"`
	ExternalReference string             `json:"externalReference,omitempty"`
	InstallmentCount  int                `json:"installmentCount,omitempty"`
	Split             []SplitInstruction `json:"split,omitempty"`
}

func (r *ChargeRequest) Validate() error {
	if r.Customer == "" {
		return fmt.Errorf("customer is required")
	}
	if !r.Value.IsPositive() {
		return fmt.Errorf("value must be greater than 0")
	}
	if r.DueDate == "" {
		return fmt.Errorf("dueDate is required")
	}
	return nil
}

type Charge struct {
	ID                string          `json:"id"`
	Customer          string          `json:"customer"`
	Status            ChargeStatus    `json:"status"`
	Value             decimal.Decimal `json:"value"`
	NetValue          decimal.Decimal `json:"netValue"`
	BillingType       BillingType     `json:"billingType"`
	InvoiceURL        string          `json:"invoiceUrl"`
	BankSlipURL       string          `json:"bankSlipUrl"`
	ExternalReference string          `json:"externalReference"`
}

type BankAccountInfo struct {
	BankCode     string `json:"bank"`
	OwnerName    string `json:"ownerName"`
	CpfCnpj      string `json:"cpfCnpj"`
	Agency       string `json:"agency"`
	Account      string `json:"account"`
	AccountDigit string `json:"accountDigit"`
	AccountType  string `json:"bankAccountType"`
}

type TransferRequest struct {
	Value             decimal.Decimal  `json:"value"`
	PixAddressKey     string           `json:"pixAddressKey,omitempty"`
	PixAddressKeyType string           `json:"pixAddressKeyType,omitempty"`
	BankAccount       *BankAccountInfo `json:"bankAccount,omitempty"`
	Description       string           `json:"description,omitempty"`
	ExternalReference string           `json:"externalReference,omitempty"`
}

func (r *TransferRequest) Validate() error {
	if !r.Value.IsPositive() {
		return fmt.Errorf("value must be greater than 0")
	}
	if r.PixAddressKey == "" && r.BankAccount == nil {
		return fmt.Errorf("either pixAddressKey or bankAccount is required")
	}
	return nil
}

type Transfer struct {
	ID                string          `json:"id"`
	Status            TransferStatus  `json:"status"`
	Value             decimal.Decimal `json:"value"`
	ExternalReference string          `json:"externalReference"`
	FailReason        string          `json:"failReason"`
}

type AccountRequest struct {
	Name        string          `json:"name"`
	Email       string          `json:"email"`
	CpfCnpj     string          `json:"cpfCnpj"`
	CompanyType string          `json:"companyType,omitempty"`
	IncomeValue decimal.Decimal `json:"incomeValue"`
	MobilePhone string          `json:"mobilePhone,omitempty"`
}

func (r *AccountRequest) Validate() error {
	if r.Name == "" {
		return fmt.Errorf("name is required")
	}
	digits := onlyDigits(r.CpfCnpj)
	if len(digits) != 11 && len(digits) != 14 {
		return fmt.Errorf("cpfCnpj must have 11 or 14 digits")
	}
	if !r.IncomeValue.IsPositive() {
		return fmt.Errorf("incomeValue must be greater than 0")
	}
	return nil
}

// Account is a gateway sub-account; its WalletID is the payout destination
// attached to charge splits and healed when stale.
type Account struct {
	ID       string `json:"id"`
	WalletID string `json:"walletId"`
	Name     string `json:"name"`
	CpfCnpj  string `json:"cpfCnpj"`
	Email    string `json:"email"`
}

type APIError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

type ErrorResponse struct {
	Errors []APIError `json:"errors"`
}

func onlyDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
