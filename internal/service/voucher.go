package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/holaphone/order-service/internal/domain"
	"github.com/holaphone/order-service/internal/repository"
	apperrors "github.com/holaphone/order-service/pkg/errors"
)

// VoucherPreview is the result of a non-committing voucher application.
type VoucherPreview struct {
	Code           string `json:"code"`
	DiscountAmount int64  `json:"discount_amount"`
	FinalTotal     int64  `json:"final_total"`
}

// VoucherInput holds the configurable fields of a voucher.
type VoucherInput struct {
	Code          string
	DiscountType  string
	DiscountValue int64
	MaxDiscount   int64
	UsageLimit    int
	MinOrderValue int64
	Categories    []string
	StartDate     time.Time
	EndDate       time.Time
	IsActive      bool
}

// VoucherService implements voucher preview and admin management.
type VoucherService struct {
	repo   repository.VoucherRepository
	logger *slog.Logger
	now    func() time.Time
}

// NewVoucherService creates a new voucher service.
func NewVoucherService(repo repository.VoucherRepository, logger *slog.Logger) *VoucherService {
	return &VoucherService{
		repo:   repo,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Preview evaluates a voucher against a subtotal and category set without
// redeeming it. Usage count is untouched; only checkout increments it.
func (s *VoucherService) Preview(ctx context.Context, code string, subtotal int64, categoryIDs []string) (*VoucherPreview, error) {
	if code == "" {
		return nil, apperrors.InvalidInput("voucher code is required")
	}
	if subtotal < 0 {
		return nil, apperrors.InvalidInput("subtotal must be non-negative")
	}

	voucher, err := s.repo.GetByCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("resolve voucher: %w", err)
	}

	discount, err := voucher.Evaluate(subtotal, categoryIDs, s.now())
	if err != nil {
		return nil, err
	}

	return &VoucherPreview{
		Code:           voucher.Code,
		DiscountAmount: discount,
		FinalTotal:     domain.FinalTotal(subtotal, discount),
	}, nil
}

// Create registers a new voucher.
func (s *VoucherService) Create(ctx context.Context, input VoucherInput) (*domain.Voucher, error) {
	if err := validateVoucherInput(input); err != nil {
		return nil, err
	}

	now := s.now()
	voucher := &domain.Voucher{
		ID:            uuid.New().String(),
		Code:          input.Code,
		DiscountType:  input.DiscountType,
		DiscountValue: input.DiscountValue,
		MaxDiscount:   input.MaxDiscount,
		UsageLimit:    input.UsageLimit,
		UsedCount:     0,
		MinOrderValue: input.MinOrderValue,
		Categories:    input.Categories,
		StartDate:     input.StartDate,
		EndDate:       input.EndDate,
		IsActive:      input.IsActive,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.repo.Create(ctx, voucher); err != nil {
		return nil, fmt.Errorf("create voucher: %w", err)
	}

	s.logger.InfoContext(ctx, "voucher created",
		slog.String("voucher_id", voucher.ID),
		slog.String("code", voucher.Code),
	)

	return voucher, nil
}

// Get retrieves a voucher by ID.
func (s *VoucherService) Get(ctx context.Context, id string) (*domain.Voucher, error) {
	voucher, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get voucher: %w", err)
	}
	return voucher, nil
}

// List returns vouchers matching the filter.
func (s *VoucherService) List(ctx context.Context, filter repository.VoucherFilter) ([]domain.Voucher, int, error) {
	vouchers, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("list vouchers: %w", err)
	}
	return vouchers, total, nil
}

// Update replaces a voucher's configurable fields. The code and the used
// count are immutable.
func (s *VoucherService) Update(ctx context.Context, id string, input VoucherInput) (*domain.Voucher, error) {
	if err := validateVoucherInput(input); err != nil {
		return nil, err
	}

	voucher, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get voucher for update: %w", err)
	}

	voucher.DiscountType = input.DiscountType
	voucher.DiscountValue = input.DiscountValue
	voucher.MaxDiscount = input.MaxDiscount
	voucher.UsageLimit = input.UsageLimit
	voucher.MinOrderValue = input.MinOrderValue
	voucher.Categories = input.Categories
	voucher.StartDate = input.StartDate
	voucher.EndDate = input.EndDate
	voucher.IsActive = input.IsActive

	if err := s.repo.Update(ctx, voucher); err != nil {
		return nil, fmt.Errorf("update voucher: %w", err)
	}

	s.logger.InfoContext(ctx, "voucher updated",
		slog.String("voucher_id", voucher.ID),
		slog.String("code", voucher.Code),
	)

	return voucher, nil
}

// Delete removes a voucher.
func (s *VoucherService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete voucher: %w", err)
	}

	s.logger.InfoContext(ctx, "voucher deleted", slog.String("voucher_id", id))
	return nil
}

func validateVoucherInput(input VoucherInput) error {
	if input.Code == "" {
		return apperrors.InvalidInput("voucher code is required")
	}
	if input.DiscountType != domain.DiscountTypeFixed && input.DiscountType != domain.DiscountTypePercentage {
		return apperrors.InvalidInput(fmt.Sprintf("invalid discount type %q", input.DiscountType))
	}
	if input.DiscountValue <= 0 {
		return apperrors.InvalidInput("discount value must be positive")
	}
	if input.DiscountType == domain.DiscountTypePercentage && input.DiscountValue > 100 {
		return apperrors.InvalidInput("percentage discount cannot exceed 100")
	}
	if input.UsageLimit <= 0 {
		return apperrors.InvalidInput("usage limit must be positive")
	}
	if !input.EndDate.After(input.StartDate) {
		return apperrors.InvalidInput("end date must be after start date")
	}
	return nil
}
