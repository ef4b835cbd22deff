package audit

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"
)

// Log is one structured audit record. Appended by every state-changing
// settlement operation; consumed by reporting.
type Log struct {
	ID       int64           `gorm:"primaryKey"`
	Action   string          `gorm:"column:action;not null;index"`
	Entity   string          `gorm:"column:entity;not null"`
	EntityID int64           `gorm:"column:entity_id;index"`
	ActorID  *int64          `gorm:"column:actor_id"`
	Details  json.RawMessage `gorm:"column:details;type:jsonb"`

	CreatedAt time.Time `gorm:"column:created_at;default:now()"`
}

func (Log) TableName() string {
	return "audit_logs"
}

type Entry struct {
	Action   string
	Entity   string
	EntityID int64
	ActorID  *int64
	Details  map[string]interface{}
}

// Recorder is the audit sink injected into settlement components.
type Recorder interface {
	Record(ctx context.Context, entry Entry)
}

type Repository interface {
	Append(log *Log) error
	ListByEntity(entity string, entityID int64) ([]*Log, error)
}

// Service persists audit entries best-effort: an audit failure is logged
// but never fails the operation being audited.
type Service struct {
	repo   Repository
	logger *slog.Logger
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

func (s *Service) Record(ctx context.Context, entry Entry) {
	details, err := json.Marshal(entry.Details)
	if err != nil {
		s.logger.Error("failed to marshal audit details",
			"action", entry.Action,
			"entity", entry.Entity,
			"error", err)
		details = nil
	}

	log := &Log{
		Action:   entry.Action,
		Entity:   entry.Entity,
		EntityID: entry.EntityID,
		ActorID:  entry.ActorID,
		Details:  details,
	}

	if err := s.repo.Append(log); err != nil {
		s.logger.Error("failed to append audit log",
			"action", entry.Action,
			"entity", entry.Entity,
			"entity_id", entry.EntityID,
			"error", err)
	}
}
