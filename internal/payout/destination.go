package payout

import (
	"regexp"
	"strings"

	"github.com/danilocontato-coder/quotemasterpro-sub002/internal"
	gwtypes "github.com/danilocontato-coder/quotemasterpro-sub002/internal/core/datamodel/gateway"
	"github.com/danilocontato-coder/quotemasterpro-sub002/internal/core/datamodel/supplier"
)

// PixKeyType mirrors the gateway's PIX key taxonomy.
type PixKeyType string

const (
	PixKeyCPF    PixKeyType = "CPF"
	PixKeyCNPJ   PixKeyType = "CNPJ"
	PixKeyEmail  PixKeyType = "EMAIL"
	PixKeyPhone  PixKeyType = "PHONE"
	PixKeyRandom PixKeyType = "EVP"
)

// Destination is the payee payment detail resolved once at validation time
// and consumed uniformly by transfer construction: either a PIX key or a
// full bank-account tuple.
type Destination interface {
	ApplyTo(req *gwtypes.TransferRequest)
}

type PixDestination struct {
	KeyType PixKeyType
	Key     string
}

func (d PixDestination) ApplyTo(req *gwtypes.TransferRequest) {
	req.PixAddressKey = d.Key
	req.PixAddressKeyType = string(d.KeyType)
}

type BankAccountDestination struct {
	BankCode     string
	OwnerName    string
	TaxID        string
	Agency       string
	Account      string
	AccountDigit string
	AccountType  string
}

func (d BankAccountDestination) ApplyTo(req *gwtypes.TransferRequest) {
	req.BankAccount = &gwtypes.BankAccountInfo{
		BankCode:     d.BankCode,
		OwnerName:    d.OwnerName,
		CpfCnpj:      d.TaxID,
		Agency:       d.Agency,
		Account:      d.Account,
		AccountDigit: d.AccountDigit,
		AccountType:  d.AccountType,
	}
}

var (
	emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	phonePattern = regexp.MustCompile(`^\+?\d{10,13}$`)
)

// ClassifyPixKey infers the key type the gateway expects: tax id, email,
// phone, or an opaque random (EVP) key.
func ClassifyPixKey(key string) PixKeyType {
	trimmed := strings.TrimSpace(key)
	digits := onlyDigits(trimmed)

	switch {
	case len(digits) == 11 && len(digits) == len(trimmed):
		return PixKeyCPF
	case len(digits) == 14 && len(digits) == len(trimmed):
		return PixKeyCNPJ
	case emailPattern.MatchString(trimmed):
		return PixKeyEmail
	case phonePattern.MatchString(trimmed):
		return PixKeyPhone
	default:
		return PixKeyRandom
	}
}

// ResolveDestination picks the payee payment detail for a supplier,
// preferring a PIX key over full bank-account data. Returns
// ErrMissingPayoutDetails when neither method is complete.
func ResolveDestination(s *supplier.Supplier) (Destination, error) {
	if s.HasPixKey() {
		keyType := ClassifyPixKey(*s.PixKey)
		if s.PixKeyType != nil && *s.PixKeyType != "" {
			keyType = PixKeyType(strings.ToUpper(*s.PixKeyType))
		}
		return PixDestination{KeyType: keyType, Key: strings.TrimSpace(*s.PixKey)}, nil
	}

	if s.HasBankAccount() {
		accountType := "CONTA_CORRENTE"
		if s.BankAccountType != nil && *s.BankAccountType != "" {
			accountType = *s.BankAccountType
		}
		return BankAccountDestination{
			BankCode:     *s.BankCode,
			OwnerName:    *s.BankOwnerName,
			TaxID:        s.TaxID,
			Agency:       *s.BankAgency,
			Account:      *s.BankAccount,
			AccountDigit: *s.BankAccountDigit,
			AccountType:  accountType,
		}, nil
	}

	return nil, internal.ErrMissingPayoutDetails
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
