package sector

import (
	"context"
	"fmt"
	"strings"

	"service-fulfillment/internal/apperr"
	"service-fulfillment/internal/domain"
	"service-fulfillment/internal/logx"
	"service-fulfillment/internal/storeretry"
)

// Service is the sector catalog.
type Service struct {
	repo   sectorRepository
	retry  *storeretry.Retrier
	logger logx.Logger
}

// NewService creates a sector Service.
func NewService(repo sectorRepository, retry *storeretry.Retrier, logger logx.Logger) *Service {
	if logger == nil {
		logger = logx.Nop()
	}
	if retry == nil {
		retry = storeretry.New(storeretry.Config{}, logger, nil)
	}
	return &Service{repo: repo, retry: retry, logger: logger}
}

// CreateInput describes a new sector.
type CreateInput struct {
	Name     string
	City     string
	Pincodes []string
}

func (in CreateInput) validate() (domain.Sector, error) {
	var violations []string
	sec := domain.Sector{
		Name:     strings.TrimSpace(in.Name),
		City:     strings.TrimSpace(in.City),
		Pincodes: domain.NormalizePincodes(in.Pincodes),
		Active:   true,
	}
	if sec.Name == "" {
		violations = append(violations, "name is required")
	}
	if sec.City == "" {
		violations = append(violations, "city is required")
	}
	for _, p := range sec.Pincodes {
		if !domain.ValidatePincode(p) {
			violations = append(violations, fmt.Sprintf("pincode %q is malformed", p))
		}
	}
	return sec, apperr.NewValidationError(violations)
}

// Create validates and stores a new active sector.
func (s *Service) Create(ctx context.Context, in CreateInput) (*domain.Sector, error) {
	sec, err := in.validate()
	if err != nil {
		return nil, err
	}
	err = s.retry.Do(ctx, "insert sector", func(ctx context.Context) error {
		return s.repo.InsertSector(ctx, &sec)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("sector created",
		logx.String("event", "sector_created"),
		logx.Int64("sector_id", sec.ID),
		logx.String("city", sec.City),
	)
	return &sec, nil
}

// Get returns a sector or apperr.ErrNotFound.
func (s *Service) Get(ctx context.Context, id int64) (*domain.Sector, error) {
	sec, err := storeretry.Value(ctx, s.retry, "get sector", func(ctx context.Context) (*domain.Sector, error) {
		return s.repo.GetSector(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	if sec == nil {
		return nil, fmt.Errorf("sector %d: %w", id, apperr.ErrNotFound)
	}
	return sec, nil
}

// List returns every sector.
func (s *Service) List(ctx context.Context) ([]domain.Sector, error) {
	return storeretry.Value(ctx, s.retry, "list sectors", s.repo.ListSectors)
}

// SetActive toggles activation, the only change allowed on a sector.
func (s *Service) SetActive(ctx context.Context, id int64, active bool) (*domain.Sector, error) {
	ok, err := storeretry.Value(ctx, s.retry, "set sector active", func(ctx context.Context) (bool, error) {
		return s.repo.SetSectorActive(ctx, id, active)
	})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("sector %d: %w", id, apperr.ErrNotFound)
	}
	s.logger.Info("sector activation changed",
		logx.String("event", "sector_activation"),
		logx.Int64("sector_id", id),
		logx.Any("active", active),
	)
	return s.Get(ctx, id)
}
