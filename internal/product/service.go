package product

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-catalog/internal/event"
	"github.com/ovaphlow/pitchfork/service-catalog/internal/product/entity"
	"github.com/ovaphlow/pitchfork/service-catalog/pkg/utilities"
)

// Repository is the product store. *repo.Repo satisfies it.
type Repository interface {
	Create(ctx context.Context, p *entity.Product) error
	GetByID(ctx context.Context, id string) (*entity.Product, error)
	List(ctx context.Context) ([]entity.Product, error)
	Update(ctx context.Context, id string, patch entity.Patch) (*entity.Product, error)
	Delete(ctx context.Context, id string) (bool, error)
}

// EventPublisher accepts envelopes for asynchronous delivery. *event.Publisher
// satisfies it.
type EventPublisher interface {
	Publish(topic string, e event.Envelope)
}

// sentinel errors for common failure modes
var (
	ErrNotFound     = errors.New("product not found")
	ErrInvalidID    = errors.New("invalid product id")
	ErrInvalidInput = errors.New("invalid product")
)

// CreateInput is a new product before it has an id.
type CreateInput struct {
	Name        string
	Description string
	Price       float64
}

// Service encapsulates product business logic. Every successful mutation is
// reported on the events topic after the store call returns.
type Service struct {
	repo   Repository
	ids    *utilities.IDGenerator
	events EventPublisher
	topic  string
	logger *zap.SugaredLogger
}

func NewService(r Repository, ids *utilities.IDGenerator, events EventPublisher, topic string, logger *zap.SugaredLogger) *Service {
	return &Service{repo: r, ids: ids, events: events, topic: topic, logger: logger}
}

func (s *Service) Create(ctx context.Context, createdBy string, in CreateInput) (*entity.Product, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if err := checkPrice(in.Price); err != nil {
		return nil, err
	}
	p := &entity.Product{
		ID:          s.ids.NewID(),
		Name:        name,
		Description: in.Description,
		Price:       in.Price,
		CreatedBy:   createdBy,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}
	s.emit(event.Created, p.ID, *p)
	return p, nil
}

func (s *Service) Get(ctx context.Context, id string) (*entity.Product, error) {
	id, err := parseID(id)
	if err != nil {
		return nil, err
	}
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return p, nil
}

func (s *Service) List(ctx context.Context) ([]entity.Product, error) {
	return s.repo.List(ctx)
}

// Update applies patch. An empty patch returns the current product and emits nothing.
func (s *Service) Update(ctx context.Context, id string, patch entity.Patch) (*entity.Product, error) {
	if patch.Empty() {
		return s.Get(ctx, id)
	}
	id, err := parseID(id)
	if err != nil {
		return nil, err
	}
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: name must not be empty", ErrInvalidInput)
		}
		patch.Name = &name
	}
	if patch.Price != nil {
		if err := checkPrice(*patch.Price); err != nil {
			return nil, err
		}
	}
	p, err := s.repo.Update(ctx, id, patch)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	s.emit(event.Updated, p.ID, *p)
	return p, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	id, err := parseID(id)
	if err != nil {
		return err
	}
	removed, err := s.repo.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !removed {
		return ErrNotFound
	}
	s.emit(event.Deleted, id, nil)
	return nil
}

func (s *Service) emit(kind event.Kind, productID string, payload any) {
	if s.events == nil {
		return
	}
	s.events.Publish(s.topic, event.New(kind, productID, payload))
}

func parseID(id string) (string, error) {
	canonical, err := utilities.ParseID(id)
	if err != nil {
		return "", ErrInvalidID
	}
	return canonical, nil
}

func checkPrice(price float64) error {
	if price < 0 || math.IsNaN(price) || math.IsInf(price, 0) {
		return fmt.Errorf("%w: price must be a non-negative number", ErrInvalidInput)
	}
	return nil
}
