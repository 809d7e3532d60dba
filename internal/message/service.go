package message

import (
	"context"
	"fmt"

	"github.com/ovaphlow/pitchfork/service-catalog/internal/message/entity"
	"github.com/ovaphlow/pitchfork/service-catalog/pkg/utilities"
)

// Repository is the message store. *repo.MessageRepo satisfies it.
type Repository interface {
	Create(ctx context.Context, m *entity.Message) error
	List(ctx context.Context) ([]entity.Message, error)
}

// Service records consumed events and lists them. It is the consumer's sink.
type Service struct {
	repo Repository
	ids  *utilities.IDGenerator
}

func NewService(r Repository, ids *utilities.IDGenerator) *Service {
	return &Service{repo: r, ids: ids}
}

// Store saves body as a new message.
func (s *Service) Store(ctx context.Context, body string) error {
	m := &entity.Message{ID: s.ids.NewID(), Body: body}
	if err := s.repo.Create(ctx, m); err != nil {
		return fmt.Errorf("store message: %w", err)
	}
	return nil
}

func (s *Service) List(ctx context.Context) ([]entity.Message, error) {
	return s.repo.List(ctx)
}
