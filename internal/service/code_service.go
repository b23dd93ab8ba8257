package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"qualityhair-hub/internal/model"
	"qualityhair-hub/internal/repository"
)

const (
	codeListDefaultPage = 1
	codeListDefaultSize = 20
	codeListMaxPageSize = 200
)

var (
	ErrDiscountCodeNotFound = errors.New("discount code not found")
	ErrDiscountCodeUsed     = errors.New("discount code already used")
	ErrDiscountCodeExpired  = errors.New("discount code expired")
	ErrDiscountCodeInactive = errors.New("discount code not yet active")
)

// CodeStatus is the public view of a discount code. The consultation link
// stays internal.
type CodeStatus struct {
	Code           string    `json:"code"`
	AmountCents    int64     `json:"amount_cents"`
	Currency       string    `json:"currency"`
	ActivationDate time.Time `json:"activation_date"`
	ExpiresAt      time.Time `json:"expires_at"`
	Active         bool      `json:"active"`
}

type CodeService struct {
	codeRepo repository.DiscountCodeRepository
	logger   *zap.Logger

	now func() time.Time
}

func NewCodeService(codeRepo repository.DiscountCodeRepository, logger *zap.Logger) *CodeService {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &CodeService{
		codeRepo: codeRepo,
		logger:   logger,
		now:      time.Now,
	}
}

// Lookup validates a code for the storefront. The distinct sentinels let the
// handler tell the customer whether the code is unknown, spent, early or late.
func (s *CodeService) Lookup(ctx context.Context, code string) (*CodeStatus, error) {
	if s.codeRepo == nil {
		return nil, errors.New("discount code repository is nil")
	}

	normalized := strings.ToUpper(strings.TrimSpace(code))
	if normalized == "" {
		return nil, ErrDiscountCodeNotFound
	}

	found, err := s.codeRepo.FindByCode(ctx, normalized)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrDiscountCodeNotFound
		}
		return nil, err
	}

	now := s.now().UTC()
	status := &CodeStatus{
		Code:           found.Code,
		AmountCents:    found.AmountCents,
		Currency:       found.Currency,
		ActivationDate: found.ActivationDate,
		ExpiresAt:      found.ExpiresAt,
		Active:         found.IsActive(now),
	}

	switch {
	case found.Used:
		return status, ErrDiscountCodeUsed
	case now.Before(found.ActivationDate):
		return status, ErrDiscountCodeInactive
	case !now.Before(found.ExpiresAt):
		return status, ErrDiscountCodeExpired
	}

	return status, nil
}

func (s *CodeService) List(
	ctx context.Context,
	used *bool,
	activeAt *time.Time,
	page, pageSize int,
) ([]*model.DiscountCode, error) {
	if s.codeRepo == nil {
		return nil, errors.New("discount code repository is nil")
	}

	page, pageSize = normalizeCodeListPage(page, pageSize)
	filter := repository.DiscountCodeListFilter{
		Used:     used,
		ActiveAt: activeAt,
		Pagination: repository.Pagination{
			Limit:  int32(pageSize),
			Offset: int32((page - 1) * pageSize),
		},
	}

	return s.codeRepo.List(ctx, filter)
}

func (s *CodeService) CountActive(ctx context.Context) (int64, error) {
	if s.codeRepo == nil {
		return 0, errors.New("discount code repository is nil")
	}
	return s.codeRepo.CountActive(ctx, s.now().UTC())
}

func normalizeCodeListPage(page, pageSize int) (int, int) {
	if page <= 0 {
		page = codeListDefaultPage
	}
	if pageSize <= 0 {
		pageSize = codeListDefaultSize
	}
	if pageSize > codeListMaxPageSize {
		pageSize = codeListMaxPageSize
	}
	return page, pageSize
}
