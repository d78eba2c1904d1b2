package accounts

import (
	"context"
	"errors"
	"strings"

	"sarvsaathi-server/internal/models"
	"sarvsaathi-server/internal/store"
)

var (
	ErrMemberNotFound    = errors.New("family member not found")
	ErrMemberIncomplete  = errors.New("first name is required")
	ErrSelfExists        = errors.New("a self profile already exists")
	ErrSelfUndeletable   = errors.New("the self profile cannot be removed")
	ErrInvalidRelation   = errors.New("unknown relationship")
	ErrContactNotFound   = errors.New("emergency contact not found")
	ErrContactIncomplete = errors.New("contact name and phone are required")
)

func validRelationship(r models.Relationship) bool {
	switch r {
	case models.RelationshipSelf, models.RelationshipSpouse, models.RelationshipChild,
		models.RelationshipParent, models.RelationshipSibling, models.RelationshipOther:
		return true
	}
	return false
}

// MemberInput creates or updates a family member. On update nil fields are
// left unchanged.
type MemberInput struct {
	FirstName         *string              `json:"firstName"`
	LastName          *string              `json:"lastName"`
	Relationship      *models.Relationship `json:"relationship"`
	Gender            *string              `json:"gender" binding:"omitempty,oneof=male female other"`
	DateOfBirth       *string              `json:"dateOfBirth"`
	Phone             *string              `json:"phone"`
	Email             *string              `json:"email" binding:"omitempty,email"`
	BloodGroup        *string              `json:"bloodGroup"`
	Allergies         *string              `json:"allergies"`
	ChronicConditions *string              `json:"chronicConditions"`
}

func (in MemberInput) apply(m *models.FamilyMember) error {
	setString(&m.FirstName, in.FirstName)
	setString(&m.LastName, in.LastName)
	setString(&m.Gender, in.Gender)
	setString(&m.Phone, in.Phone)
	setString(&m.Email, in.Email)
	setString(&m.BloodGroup, in.BloodGroup)
	setString(&m.Allergies, in.Allergies)
	setString(&m.ChronicConditions, in.ChronicConditions)
	if in.DateOfBirth != nil {
		dob, err := parseDate(*in.DateOfBirth)
		if err != nil {
			return err
		}
		m.DateOfBirth = dob
	}
	return nil
}

func (s *Service) FamilyMembers(ctx context.Context, userID string) ([]models.FamilyMember, error) {
	if _, err := s.repo.EnsureSelfMember(ctx, userID); err != nil {
		return nil, err
	}
	return s.repo.ListFamilyMembers(ctx, userID)
}

func (s *Service) FamilyMember(ctx context.Context, userID, id string) (*models.FamilyMember, error) {
	m, err := s.repo.FindActiveFamilyMember(ctx, userID, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrMemberNotFound
	}
	return m, err
}

// AddFamilyMember creates a dependent. The self record is managed through
// the account profile.
func (s *Service) AddFamilyMember(ctx context.Context, userID string, in MemberInput) (*models.FamilyMember, error) {
	if in.FirstName == nil || strings.TrimSpace(*in.FirstName) == "" {
		return nil, ErrMemberIncomplete
	}
	if in.Relationship == nil || !validRelationship(*in.Relationship) {
		return nil, ErrInvalidRelation
	}
	if *in.Relationship == models.RelationshipSelf {
		return nil, ErrSelfExists
	}

	m := &models.FamilyMember{UserID: userID, Relationship: *in.Relationship, IsActive: true}
	if err := in.apply(m); err != nil {
		return nil, err
	}
	if err := m.Validate(s.now()); err != nil {
		return nil, err
	}
	if err := s.repo.CreateFamilyMember(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *Service) UpdateFamilyMember(ctx context.Context, userID, id string, in MemberInput) (*models.FamilyMember, error) {
	m, err := s.FamilyMember(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if in.Relationship != nil && *in.Relationship != m.Relationship {
		if !validRelationship(*in.Relationship) {
			return nil, ErrInvalidRelation
		}
		if *in.Relationship == models.RelationshipSelf || m.Relationship == models.RelationshipSelf {
			return nil, ErrSelfExists
		}
		m.Relationship = *in.Relationship
	}
	if err := in.apply(m); err != nil {
		return nil, err
	}
	if strings.TrimSpace(m.FirstName) == "" {
		return nil, ErrMemberIncomplete
	}
	if err := m.Validate(s.now()); err != nil {
		return nil, err
	}
	if err := s.repo.SaveFamilyMember(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// RemoveFamilyMember deactivates a dependent. Past appointments keep
// referring to the record.
func (s *Service) RemoveFamilyMember(ctx context.Context, userID, id string) error {
	m, err := s.FamilyMember(ctx, userID, id)
	if err != nil {
		return err
	}
	if m.Relationship == models.RelationshipSelf {
		return ErrSelfUndeletable
	}
	m.IsActive = false
	return s.repo.SaveFamilyMember(ctx, m)
}

type ContactInput struct {
	Name         string `json:"name" binding:"required,max=100"`
	Phone        string `json:"phone" binding:"required,max=20"`
	Relationship string `json:"relationship" binding:"max=50"`
	Email        string `json:"email" binding:"omitempty,email"`
	IsPrimary    bool   `json:"isPrimary"`
}

func (in ContactInput) apply(c *models.EmergencyContact) error {
	c.Name = strings.TrimSpace(in.Name)
	c.Phone = strings.TrimSpace(in.Phone)
	c.Relationship = strings.TrimSpace(in.Relationship)
	c.Email = strings.TrimSpace(in.Email)
	c.IsPrimary = in.IsPrimary
	if c.Name == "" || c.Phone == "" {
		return ErrContactIncomplete
	}
	return nil
}

func (s *Service) EmergencyContacts(ctx context.Context, userID string) ([]models.EmergencyContact, error) {
	return s.repo.ListEmergencyContacts(ctx, userID)
}

func (s *Service) AddEmergencyContact(ctx context.Context, userID string, in ContactInput) (*models.EmergencyContact, error) {
	c := &models.EmergencyContact{UserID: userID}
	if err := in.apply(c); err != nil {
		return nil, err
	}
	if err := s.repo.CreateEmergencyContact(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Service) UpdateEmergencyContact(ctx context.Context, userID, id string, in ContactInput) (*models.EmergencyContact, error) {
	c, err := s.repo.GetEmergencyContact(ctx, id, userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrContactNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := in.apply(c); err != nil {
		return nil, err
	}
	if err := s.repo.SaveEmergencyContact(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Service) RemoveEmergencyContact(ctx context.Context, userID, id string) error {
	err := s.repo.DeleteEmergencyContact(ctx, id, userID)
	if errors.Is(err, store.ErrNotFound) {
		return ErrContactNotFound
	}
	return err
}
