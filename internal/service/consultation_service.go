package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"qualityhair-hub/internal/model"
	"qualityhair-hub/internal/repository"
)

var (
	ErrConsultationNotFound  = errors.New("consultation not found")
	ErrInvalidConsultationID = errors.New("invalid consultation id")
)

type ConsultationService struct {
	consultationRepo repository.ConsultationRepository
	codeRepo         repository.DiscountCodeRepository
}

func NewConsultationService(
	consultationRepo repository.ConsultationRepository,
	codeRepo repository.DiscountCodeRepository,
) *ConsultationService {
	return &ConsultationService{
		consultationRepo: consultationRepo,
		codeRepo:         codeRepo,
	}
}

// ConsultationDetail pairs a consultation with its code when one exists.
type ConsultationDetail struct {
	Consultation *model.Consultation `json:"consultation"`
	DiscountCode *model.DiscountCode `json:"discount_code,omitempty"`
}

func (s *ConsultationService) Get(ctx context.Context, id string) (*ConsultationDetail, error) {
	if s.consultationRepo == nil {
		return nil, errors.New("consultation repository is nil")
	}

	parsed, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return nil, ErrInvalidConsultationID
	}

	consultation, err := s.consultationRepo.FindByID(ctx, parsed)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrConsultationNotFound
		}
		return nil, err
	}

	detail := &ConsultationDetail{Consultation: consultation}
	if s.codeRepo != nil {
		if code, codeErr := s.codeRepo.FindByConsultationID(ctx, parsed); codeErr == nil {
			detail.DiscountCode = code
		} else if !errors.Is(codeErr, repository.ErrNotFound) {
			return nil, codeErr
		}
	}

	return detail, nil
}

func (s *ConsultationService) List(
	ctx context.Context,
	status *model.ConsultationStatus,
	email *string,
	page, pageSize int,
) ([]*model.Consultation, int64, error) {
	if s.consultationRepo == nil {
		return nil, 0, errors.New("consultation repository is nil")
	}

	page, pageSize = normalizeCodeListPage(page, pageSize)
	filter := repository.ConsultationListFilter{
		Status: status,
		Email:  email,
		Pagination: repository.Pagination{
			Limit:  int32(pageSize),
			Offset: int32((page - 1) * pageSize),
		},
	}

	items, err := s.consultationRepo.List(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	total, err := s.consultationRepo.Count(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	return items, total, nil
}

func (s *ConsultationService) CountPending(ctx context.Context) (int64, error) {
	if s.consultationRepo == nil {
		return 0, errors.New("consultation repository is nil")
	}
	return s.consultationRepo.CountPending(ctx)
}
