package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/ridgeline-exteriors/booking-api/internal/acculynx"
	"github.com/ridgeline-exteriors/booking-api/internal/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ContactService makes sure a user has an AccuLynx contact before a job references it
type ContactService struct {
	profiles profileStore
	crm      crmClient
	logger   *zap.Logger
}

func NewContactService(profiles profileStore, crm crmClient, logger *zap.Logger) *ContactService {
	return &ContactService{
		profiles: profiles,
		crm:      crm,
		logger:   logger,
	}
}

// EnsureContact returns the user's AccuLynx contact id, creating the contact
// when the profile has none yet. A *ContactNotPersistedError means the
// contact exists remotely and must not be created again.
func (s *ContactService) EnsureContact(ctx context.Context, userID uuid.UUID) (string, error) {
	profile, err := s.profiles.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrProfileNotFound
		}
		return "", fmt.Errorf("failed to load profile: %w", err)
	}

	if profile.AccuLynxContactID != nil && *profile.AccuLynxContactID != "" {
		return *profile.AccuLynxContactID, nil
	}

	req, err := s.contactRequest(profile)
	if err != nil {
		return "", err
	}

	created, err := s.crm.CreateContact(ctx, req)
	if err != nil {
		s.logger.Warn("AccuLynx contact creation failed",
			zap.String("user_id", userID.String()),
			zap.Error(err),
		)
		return "", err
	}

	if err := s.profiles.SetAccuLynxContactID(ctx, userID, created.ID); err != nil {
		s.logger.Error("AccuLynx contact created but profile update failed",
			zap.String("user_id", userID.String()),
			zap.String("acculynx_contact_id", created.ID),
			zap.Error(err),
		)
		return "", &ContactNotPersistedError{UserID: userID, ContactID: created.ID, Err: err}
	}

	s.logger.Info("AccuLynx contact created",
		zap.String("user_id", userID.String()),
		zap.String("acculynx_contact_id", created.ID),
	)
	return created.ID, nil
}

func (s *ContactService) contactRequest(profile *domain.Profile) (acculynx.CreateContactRequest, error) {
	firstName := strings.TrimSpace(profile.FirstName)
	lastName := strings.TrimSpace(profile.LastName)
	phones, emails := acculynx.ContactEntries(deref(profile.Phone), deref(profile.Email))

	if firstName == "" && lastName == "" {
		return acculynx.CreateContactRequest{}, ErrIncompleteProfile
	}
	if len(phones) == 0 && len(emails) == 0 {
		return acculynx.CreateContactRequest{}, ErrIncompleteProfile
	}

	req := acculynx.CreateContactRequest{
		FirstName:      firstName,
		LastName:       lastName,
		PhoneNumbers:   phones,
		EmailAddresses: emails,
	}
	if street, city, zip := deref(profile.MailingStreet), deref(profile.MailingCity), deref(profile.MailingZip); street != "" && city != "" && zip != "" {
		addr := s.crm.NewAddress(street, city, zip)
		req.MailingAddress = &addr
	}
	return req, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}
