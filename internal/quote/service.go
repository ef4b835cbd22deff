package quote

import (
	"context"
	"log/slog"
	"time"

	"github.com/danilocontato-coder/quotemasterpro-sub002/internal"
	"github.com/danilocontato-coder/quotemasterpro-sub002/internal/core/datamodel/quote"
	"github.com/danilocontato-coder/quotemasterpro-sub002/internal/core/events"
)

type RepositoryAPI interface {
	GetByID(id int64) (*quote.Quote, error)
	Approve(id int64, at time.Time) (bool, error)
}

// Service covers the narrow slice of quote lifecycle the settlement engine
// cares about: approval, which kicks off charge issuance downstream.
type Service struct {
	repo     RepositoryAPI
	eventBus *events.EventBus
	logger   *slog.Logger
}

func NewService(repo RepositoryAPI, eventBus *events.EventBus, logger *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		eventBus: eventBus,
		logger:   logger,
	}
}

func (s *Service) GetQuote(id int64) (*quote.Quote, error) {
	q, err := s.repo.GetByID(id)
	if err != nil {
		return nil, internal.ErrQuoteNotFound.WithCause(err)
	}
	return q, nil
}

// Approve moves a pending quote to approved and announces it. The approval
// write is conditional so an already-approved quote does not fire a second
// charge issuance.
func (s *Service) Approve(ctx context.Context, id int64) (*quote.Quote, error) {
	q, err := s.repo.GetByID(id)
	if err != nil {
		return nil, internal.ErrQuoteNotFound.WithCause(err)
	}

	if q.Status == quote.StatusApproved {
		return q, nil
	}
	if q.Status != quote.StatusPending {
		return nil, internal.NewConflictError("quote cannot be approved from its current status", internal.ErrCodeInvalidTransition)
	}

	now := time.Now()
	applied, err := s.repo.Approve(id, now)
	if err != nil {
		return nil, internal.NewInternalError("failed to approve quote", err)
	}
	if !applied {
		// Lost the race to another approver; re-read and report.
		return s.repo.GetByID(id)
	}

	q.Status = quote.StatusApproved
	q.ApprovedAt = &now

	s.eventBus.Publish(ctx, events.NewQuoteApprovedEvent(q.ID, q.ClientID, q.SupplierID))

	s.logger.Info("quote approved",
		"quote_id", q.ID,
		"client_id", q.ClientID,
		"supplier_id", q.SupplierID,
		"total", q.Total.String())

	return q, nil
}
