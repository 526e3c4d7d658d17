package order

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/orderflow-api/internal/domain"
	"github.com/jhoicas/orderflow-api/internal/domain/entity"
	"github.com/jhoicas/orderflow-api/internal/domain/repository"
)

// Paginación del listado de órdenes.
const (
	DefaultListLimit = 10
	MaxListLimit     = 100
)

// ListInput filtros del listado. StartDate y EndDate son días inclusivos (se ignora la hora).
type ListInput struct {
	Status    string
	UserID    string
	StartDate *time.Time
	EndDate   *time.Time
	Skip      int
	Limit     int
}

// Service consultas sobre el OrderStore.
type Service struct {
	orders repository.OrderRepository
}

func NewService(orders repository.OrderRepository) *Service {
	return &Service{orders: orders}
}

// Get devuelve domain.ErrNotFound para ids inexistentes o mal formados.
func (s *Service) Get(ctx context.Context, id string) (*entity.Order, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("%w: orden %q", domain.ErrNotFound, id)
	}
	o, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, fmt.Errorf("%w: orden %s", domain.ErrNotFound, id)
	}
	return o, nil
}

// List aplica límite por defecto 10 y tope 100, más recientes primero.
func (s *Service) List(ctx context.Context, in ListInput) ([]*entity.Order, error) {
	f, err := buildFilter(in)
	if err != nil {
		return nil, err
	}
	return s.orders.List(ctx, f)
}

func buildFilter(in ListInput) (repository.OrderFilter, error) {
	if in.Skip < 0 || in.Limit < 0 {
		return repository.OrderFilter{}, fmt.Errorf("%w: skip y limit no pueden ser negativos", domain.ErrInvalidInput)
	}
	f := repository.OrderFilter{UserID: in.UserID, Skip: in.Skip, Limit: in.Limit}
	if f.Limit == 0 {
		f.Limit = DefaultListLimit
	}
	if f.Limit > MaxListLimit {
		f.Limit = MaxListLimit
	}
	if in.Status != "" {
		st := entity.OrderStatus(in.Status)
		if !st.Valid() {
			return repository.OrderFilter{}, fmt.Errorf("%w: estado %q desconocido", domain.ErrInvalidInput, in.Status)
		}
		f.Status = &st
	}
	if in.StartDate != nil {
		from := startOfDay(*in.StartDate)
		f.From = &from
	}
	if in.EndDate != nil {
		to := startOfDay(*in.EndDate).AddDate(0, 0, 1)
		f.To = &to
	}
	if f.From != nil && f.To != nil && !f.From.Before(*f.To) {
		return repository.OrderFilter{}, fmt.Errorf("%w: start_date posterior a end_date", domain.ErrInvalidInput)
	}
	return f, nil
}

func startOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
