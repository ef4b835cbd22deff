package delivery

import (
	"context"
	"crypto/rand"
	"log/slog"
	"time"

	"github.com/danilocontato-coder/quotemasterpro-sub002/internal"
	"github.com/danilocontato-coder/quotemasterpro-sub002/internal/core/datamodel/delivery"
)

type RepositoryAPI interface {
	CreateDelivery(d *delivery.Delivery) error
	CreateConfirmation(c *delivery.Confirmation) error
	GetConfirmationByCode(code string) (*delivery.Confirmation, error)

	// ConsumeConfirmation flips is_used in one conditional write; false
	// means another redemption got there first.
	ConsumeConfirmation(code string, confirmedBy int64, at time.Time) (bool, error)
	MarkDelivered(deliveryID int64, at time.Time) error
}

// Service owns the delivery confirmation codes that gate escrow release.
type Service struct {
	repo    RepositoryAPI
	codeTTL time.Duration
	logger  *slog.Logger
}

func NewService(repo RepositoryAPI, codeTTL time.Duration, logger *slog.Logger) *Service {
	return &Service{
		repo:    repo,
		codeTTL: codeTTL,
		logger:  logger,
	}
}

// Dispatch registers an outgoing delivery for a quote and mints its
// single-use confirmation code.
func (s *Service) Dispatch(ctx context.Context, quoteID int64) (*delivery.Delivery, *delivery.Confirmation, error) {
	d := &delivery.Delivery{
		QuoteID: quoteID,
		Status:  delivery.StatusDispatched,
	}
	if err := s.repo.CreateDelivery(d); err != nil {
		return nil, nil, internal.NewInternalError("failed to create delivery", err)
	}

	code, err := generateCode()
	if err != nil {
		return nil, nil, internal.NewInternalError("failed to generate confirmation code", err)
	}

	conf := &delivery.Confirmation{
		DeliveryID: d.ID,
		QuoteID:    quoteID,
		Code:       code,
		ExpiresAt:  time.Now().Add(s.codeTTL),
	}
	if err := s.repo.CreateConfirmation(conf); err != nil {
		return nil, nil, internal.NewInternalError("failed to create confirmation code", err)
	}

	s.logger.Info("delivery dispatched",
		"delivery_id", d.ID,
		"quote_id", quoteID,
		"code_expires_at", conf.ExpiresAt)

	return d, conf, nil
}

// Consume redeems a confirmation code exactly once. Expiry is checked
// before the conditional write; the write itself is the only arbiter of
// "already used", so concurrent redemptions cannot both succeed.
func (s *Service) Consume(ctx context.Context, code string, confirmedBy int64) (*delivery.Confirmation, error) {
	conf, err := s.repo.GetConfirmationByCode(code)
	if err != nil {
		return nil, internal.ErrCodeNotFound.WithCause(err)
	}

	now := time.Now()
	if conf.Expired(now) {
		return nil, internal.ErrCodeExpired
	}
	if conf.IsUsed {
		return nil, internal.ErrCodeAlreadyUsed
	}

	consumed, err := s.repo.ConsumeConfirmation(code, confirmedBy, now)
	if err != nil {
		return nil, internal.NewInternalError("failed to consume confirmation code", err)
	}
	if !consumed {
		return nil, internal.ErrCodeAlreadyUsed
	}

	if err := s.repo.MarkDelivered(conf.DeliveryID, now); err != nil {
		s.logger.Error("failed to mark delivery as delivered",
			"delivery_id", conf.DeliveryID,
			"error", err)
	}

	conf.IsUsed = true
	conf.ConfirmedBy = &confirmedBy
	conf.ConfirmedAt = &now

	s.logger.Info("delivery confirmed",
		"delivery_id", conf.DeliveryID,
		"quote_id", conf.QuoteID,
		"confirmed_by", confirmedBy)

	return conf, nil
}

// codeAlphabet skips ambiguous glyphs (0/O, 1/I/L) so codes survive being
// read over the phone.
const codeAlphabet = "23456789ABCDEFGHJKMNPQRSTUVWXYZ"

const codeLength = 8

func generateCode() (string, error) {
	buf := make([]byte, codeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	for i, b := range buf {
		buf[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return string(buf), nil
}
