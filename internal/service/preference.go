package service

import (
	"context"
	"errors"
	"stockwatch/internal/repository"
	"stockwatch/pkg/common"
	"stockwatch/pkg/logger"

	goValidator "github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

// ErrInvalidEmail is returned when a recipient email fails local
// validation; nothing is persisted in that case.
var ErrInvalidEmail = errors.New("recipient email must contain an @ character")

type PreferenceService interface {
	SaveRecipientEmail(ctx context.Context, email string) error
	GetRecipientEmail(ctx context.Context) (string, error)
}

type preferenceService struct {
	log      *logger.Logger
	validate *goValidator.Validate
	repo     repository.PreferenceRepository
}

func NewPreferenceService(log *logger.Logger, validate *goValidator.Validate, repo repository.PreferenceRepository) PreferenceService {
	return &preferenceService{
		log:      log,
		validate: validate,
		repo:     repo,
	}
}

func (s *preferenceService) SaveRecipientEmail(ctx context.Context, email string) error {
	if err := s.validate.Var(email, "required,contains=@"); err != nil {
		return ErrInvalidEmail
	}
	return s.repo.Set(ctx, common.KEY_RECIPIENT_EMAIL, email)
}

// GetRecipientEmail returns the stored email, or empty when none has been
// saved yet. Absence is not an error.
func (s *preferenceService) GetRecipientEmail(ctx context.Context) (string, error) {
	var email string
	err := s.repo.Get(ctx, common.KEY_RECIPIENT_EMAIL, &email)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return email, nil
}
