package courier

import (
	"context"
	"fmt"
	"strings"

	"service-fulfillment/internal/apperr"
	"service-fulfillment/internal/domain"
	"service-fulfillment/internal/logx"
	"service-fulfillment/internal/storeretry"
)

// MaxRating is the upper bound of a courier rating.
const MaxRating = 5.0

// Service coordinates courier business logic and orchestrates repository calls.
type Service struct {
	repo   courierRepository
	retry  *storeretry.Retrier
	logger logx.Logger
}

// NewService creates and configures a courier Service.
func NewService(r courierRepository, retry *storeretry.Retrier, logger logx.Logger) *Service {
	if logger == nil {
		logger = logx.Nop()
	}
	if retry == nil {
		retry = storeretry.New(storeretry.Config{}, logger, nil)
	}
	return &Service{repo: r, retry: retry, logger: logger}
}

func validatePincodes(pincodes []string, violations []string) []string {
	for _, p := range pincodes {
		if !domain.ValidatePincode(strings.TrimSpace(p)) {
			violations = append(violations, fmt.Sprintf("pincode %q is malformed", p))
		}
	}
	return violations
}

// validateCreate validates a courier for creation and fills defaults.
func validateCreate(c *domain.Courier) error {
	if c == nil {
		return apperr.NewValidationError([]string{"courier is required"})
	}
	var violations []string
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		violations = append(violations, "name is required")
	}
	if !domain.ValidatePhone(c.Phone) {
		violations = append(violations, "phone must look like +<11-12 digits>")
	}
	if c.VehicleType == "" {
		c.VehicleType = domain.VehicleFoot
	}
	if !c.VehicleType.Valid() {
		violations = append(violations, fmt.Sprintf("vehicle_type %q is not supported", c.VehicleType))
	}
	if c.Rating < 0 || c.Rating > MaxRating {
		violations = append(violations, fmt.Sprintf("rating must be within 0..%g", MaxRating))
	}
	violations = validatePincodes(c.CoveragePincodes, violations)
	if len(violations) == 0 {
		c.CoveragePincodes = domain.NormalizePincodes(c.CoveragePincodes)
	}
	return apperr.NewValidationError(violations)
}

func validateUpdate(u *domain.PartialCourierUpdate) error {
	var violations []string
	if u.ID <= 0 {
		violations = append(violations, "id must be positive")
	}
	if u.Name == nil && u.Phone == nil && u.VehicleType == nil && u.Verified == nil &&
		u.Active == nil && u.CoveragePincodes == nil && u.Rating == nil {
		violations = append(violations, "at least one field must be set")
	}
	if u.Name != nil {
		name := strings.TrimSpace(*u.Name)
		if name == "" {
			violations = append(violations, "name must not be blank")
		}
		u.Name = &name
	}
	if u.Phone != nil && !domain.ValidatePhone(*u.Phone) {
		violations = append(violations, "phone must look like +<11-12 digits>")
	}
	if u.VehicleType != nil && !u.VehicleType.Valid() {
		violations = append(violations, fmt.Sprintf("vehicle_type %q is not supported", *u.VehicleType))
	}
	if u.Rating != nil && (*u.Rating < 0 || *u.Rating > MaxRating) {
		violations = append(violations, fmt.Sprintf("rating must be within 0..%g", MaxRating))
	}
	if u.CoveragePincodes != nil {
		before := len(violations)
		violations = validatePincodes(*u.CoveragePincodes, violations)
		if len(violations) == before {
			normalized := domain.NormalizePincodes(*u.CoveragePincodes)
			u.CoveragePincodes = &normalized
		}
	}
	return apperr.NewValidationError(violations)
}

// Get retrieves a courier by its ID.
func (s *Service) Get(ctx context.Context, id int64) (*domain.Courier, error) {
	c, err := storeretry.Value(ctx, s.retry, "get courier", func(ctx context.Context) (*domain.Courier, error) {
		return s.repo.GetCourier(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, fmt.Errorf("courier %d: %w", id, apperr.ErrNotFound)
	}
	return c, nil
}

// List returns couriers with optional pagination
func (s *Service) List(ctx context.Context, limit, offset *int) ([]domain.Courier, error) {
	var violations []string
	if limit != nil && *limit < 0 {
		violations = append(violations, "limit must not be negative")
	}
	if offset != nil && *offset < 0 {
		violations = append(violations, "offset must not be negative")
	}
	if err := apperr.NewValidationError(violations); err != nil {
		return nil, err
	}
	return storeretry.Value(ctx, s.retry, "list couriers", func(ctx context.Context) ([]domain.Courier, error) {
		return s.repo.ListCouriers(ctx, limit, offset)
	})
}

// Create persists a new courier and returns its generated ID.
func (s *Service) Create(ctx context.Context, c *domain.Courier) (int64, error) {
	if err := validateCreate(c); err != nil {
		return 0, err
	}
	id, err := storeretry.Value(ctx, s.retry, "create courier", func(ctx context.Context) (int64, error) {
		return s.repo.CreateCourier(ctx, c)
	})
	if err != nil {
		return 0, err
	}
	s.logger.Info("courier onboarded",
		logx.String("event", "courier_created"),
		logx.Int64("courier_id", id),
		logx.String("vehicle_type", string(c.VehicleType)),
	)
	return id, nil
}

// UpdatePartial applies a partial update to a courier. It returns true if a row was updated.
func (s *Service) UpdatePartial(ctx context.Context, u domain.PartialCourierUpdate) (bool, error) {
	if err := validateUpdate(&u); err != nil {
		return false, err
	}
	ok, err := storeretry.Value(ctx, s.retry, "update courier", func(ctx context.Context) (bool, error) {
		return s.repo.UpdateCourierPartial(ctx, u)
	})
	if err != nil {
		return false, err
	}
	if !ok {
		return false, fmt.Errorf("courier %d: %w", u.ID, apperr.ErrNotFound)
	}
	return true, nil
}
