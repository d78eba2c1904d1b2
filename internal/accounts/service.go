package accounts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"sarvsaathi-server/internal/cache"
	"sarvsaathi-server/internal/config"
	"sarvsaathi-server/internal/media"
	"sarvsaathi-server/internal/models"
	"sarvsaathi-server/internal/store"
	"sarvsaathi-server/internal/utils"
)

const dateLayout = "2006-01-02"

var (
	ErrEmailTaken         = errors.New("an account with this email already exists")
	ErrInvalidRole        = errors.New("role must be patient or doctor")
	ErrInvalidDate        = errors.New("dates must use the YYYY-MM-DD format")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInactive           = errors.New("account is disabled")
	ErrInvalidToken       = errors.New("refresh token is invalid, expired or revoked")
	ErrUserNotFound       = errors.New("user not found")
	ErrNoAvatar           = errors.New("no avatar to remove")
)

// Repository is the persistence accounts need.
type Repository interface {
	Transaction(ctx context.Context, fn func(ctx context.Context) error) error

	CreateUser(ctx context.Context, u *models.User) error
	GetUser(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	SaveUser(ctx context.Context, u *models.User) error
	CreateUserProfile(ctx context.Context, p *models.UserProfile) error
	GetUserProfile(ctx context.Context, userID string) (*models.UserProfile, error)
	SaveUserProfile(ctx context.Context, p *models.UserProfile) error

	CreateRefreshToken(ctx context.Context, t *models.RefreshToken) error
	GetActiveRefreshToken(ctx context.Context, token, userID string, now time.Time) (*models.RefreshToken, error)
	RevokeRefreshToken(ctx context.Context, token string, at time.Time) error

	CreateFamilyMember(ctx context.Context, m *models.FamilyMember) error
	FindActiveFamilyMember(ctx context.Context, userID, memberID string) (*models.FamilyMember, error)
	EnsureSelfMember(ctx context.Context, userID string) (*models.FamilyMember, error)
	ListFamilyMembers(ctx context.Context, userID string) ([]models.FamilyMember, error)
	SaveFamilyMember(ctx context.Context, m *models.FamilyMember) error

	CreateEmergencyContact(ctx context.Context, c *models.EmergencyContact) error
	GetEmergencyContact(ctx context.Context, id, userID string) (*models.EmergencyContact, error)
	ListEmergencyContacts(ctx context.Context, userID string) ([]models.EmergencyContact, error)
	SaveEmergencyContact(ctx context.Context, c *models.EmergencyContact) error
	DeleteEmergencyContact(ctx context.Context, id, userID string) error

	CreateMedicalRecord(ctx context.Context, r *models.MedicalRecord) error
	GetMedicalRecord(ctx context.Context, id, userID string) (*models.MedicalRecord, error)
	ListMedicalRecords(ctx context.Context, userID, familyMemberID string) ([]models.MedicalRecord, error)
	SaveMedicalRecord(ctx context.Context, r *models.MedicalRecord) error
	DeleteMedicalRecord(ctx context.Context, id, userID string) error

	CreateDoctorProfile(ctx context.Context, d *models.DoctorProfile) error
	GetDoctor(ctx context.Context, id string) (*models.DoctorProfile, error)
	GetDoctorByUserID(ctx context.Context, userID string) (*models.DoctorProfile, error)
	SaveDoctor(ctx context.Context, d *models.DoctorProfile) error
	ListDoctors(ctx context.Context, f store.DoctorFilter) ([]models.DoctorProfile, error)
	VerifyDoctor(ctx context.Context, email string, at time.Time) (*models.DoctorProfile, error)

	AddFavorite(ctx context.Context, f *models.FavoriteDoctor) error
	RemoveFavorite(ctx context.Context, userID, doctorID string) (bool, error)
	IsFavorite(ctx context.Context, userID, doctorID string) (bool, error)
	ListFavorites(ctx context.Context, userID string) ([]models.FavoriteDoctor, error)
}

type Service struct {
	repo     Repository
	cfg      *config.Config
	uploader media.Uploader
	cache    cache.Cache
	now      func() time.Time
}

func NewService(repo Repository, cfg *config.Config, uploader media.Uploader, c cache.Cache) *Service {
	if uploader == nil {
		uploader = media.Disabled{}
	}
	if c == nil {
		c = cache.NewNoop()
	}
	return &Service{repo: repo, cfg: cfg, uploader: uploader, cache: c, now: time.Now}
}

func parseDate(s string) (*time.Time, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return nil, ErrInvalidDate
	}
	return &t, nil
}

// RegisterInput is a new account.
type RegisterInput struct {
	Email       string      `json:"email" binding:"required,email"`
	Password    string      `json:"password" binding:"required,min=8"`
	Role        models.Role `json:"role" binding:"required"`
	FirstName   string      `json:"firstName" binding:"required"`
	LastName    string      `json:"lastName"`
	Phone       string      `json:"phone"`
	DateOfBirth string      `json:"dateOfBirth"`
	Specialty   string      `json:"specialty"`
}

// Register creates the account, its profile, the doctor profile for doctors
// and the self family member in one transaction.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	role := models.Role(strings.ToLower(string(in.Role)))
	if !role.Valid() {
		return nil, ErrInvalidRole
	}
	dob, err := parseDate(in.DateOfBirth)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Email:       strings.ToLower(strings.TrimSpace(in.Email)),
		FirstName:   strings.TrimSpace(in.FirstName),
		LastName:    strings.TrimSpace(in.LastName),
		Phone:       strings.TrimSpace(in.Phone),
		DateOfBirth: dob,
		Role:        role,
		IsActive:    true,
	}
	if err := user.SetPassword(in.Password); err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	self := models.NewSelfMember(user)
	if err := self.Validate(s.now()); err != nil {
		return nil, err
	}

	_, err = s.repo.GetUserByEmail(ctx, user.Email)
	if err == nil {
		return nil, ErrEmailTaken
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	err = s.repo.Transaction(ctx, func(ctx context.Context) error {
		if err := s.repo.CreateUser(ctx, user); err != nil {
			if errors.Is(err, store.ErrDuplicate) {
				return ErrEmailTaken
			}
			return fmt.Errorf("create user: %w", err)
		}

		profile := &models.UserProfile{
			UserID:             user.ID,
			Country:            "India",
			EmailNotifications: true,
			SMSNotifications:   true,
		}
		if err := s.repo.CreateUserProfile(ctx, profile); err != nil {
			return fmt.Errorf("create profile: %w", err)
		}
		user.Profile = profile

		if role == models.RoleDoctor {
			doctor := &models.DoctorProfile{
				UserID:               user.ID,
				Specialty:            strings.TrimSpace(in.Specialty),
				ConsultationDuration: 15,
				IsAcceptingPatients:  true,
			}
			if err := s.repo.CreateDoctorProfile(ctx, doctor); err != nil {
				return fmt.Errorf("create doctor profile: %w", err)
			}
		}

		self.UserID = user.ID
		if err := s.repo.CreateFamilyMember(ctx, self); err != nil {
			return fmt.Errorf("create self member: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Ctx(ctx).Info().Str("user_id", user.ID).Str("role", string(role)).Msg("user registered")
	return user, nil
}

// Session is a freshly issued token pair.
type Session struct {
	AccessToken  string               `json:"accessToken"`
	RefreshToken string               `json:"refreshToken"`
	User         models.UserSanitized `json:"user"`
}

func (s *Service) issue(ctx context.Context, user *models.User) (*Session, error) {
	now := s.now()
	access, refresh, err := utils.GenerateTokens(user, s.cfg, now)
	if err != nil {
		return nil, err
	}
	err = s.repo.CreateRefreshToken(ctx, &models.RefreshToken{
		UserID:    user.ID,
		Token:     refresh,
		ExpiresAt: now.Add(s.cfg.JWT.RefreshTTL),
	})
	if err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}
	return &Session{AccessToken: access, RefreshToken: refresh, User: user.Sanitize()}, nil
}

// Login checks the credentials and opens a session.
func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	user, err := s.repo.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !user.CheckPassword(password) {
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, ErrInactive
	}
	return s.issue(ctx, user)
}

// Refresh rotates a refresh token: the presented token is revoked and a new
// pair is issued.
func (s *Service) Refresh(ctx context.Context, token string) (*Session, error) {
	claims, err := utils.ValidateToken(token, s.cfg.JWT.RefreshSecret)
	if err != nil {
		return nil, ErrInvalidToken
	}

	now := s.now()
	if _, err := s.repo.GetActiveRefreshToken(ctx, token, claims.UserID, now); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}

	user, err := s.repo.GetUser(ctx, claims.UserID)
	if err != nil {
		return nil, ErrInvalidToken
	}
	if !user.IsActive {
		return nil, ErrInactive
	}

	var session *Session
	err = s.repo.Transaction(ctx, func(ctx context.Context) error {
		if err := s.repo.RevokeRefreshToken(ctx, token, now); err != nil {
			if errors.Is(err, store.ErrStatusMismatch) {
				return ErrInvalidToken
			}
			return err
		}
		session, err = s.issue(ctx, user)
		return err
	})
	return session, err
}

// Logout revokes the refresh token. Unknown tokens are ignored.
func (s *Service) Logout(ctx context.Context, token string) error {
	err := s.repo.RevokeRefreshToken(ctx, token, s.now())
	if errors.Is(err, store.ErrStatusMismatch) {
		return nil
	}
	return err
}

// Profile returns the user with their profile.
func (s *Service) Profile(ctx context.Context, userID string) (*models.User, error) {
	u, err := s.repo.GetUser(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	return u, err
}

// ProfileInput updates the account. Nil fields are left unchanged.
type ProfileInput struct {
	FirstName          *string  `json:"firstName"`
	LastName           *string  `json:"lastName"`
	Phone              *string  `json:"phone"`
	DateOfBirth        *string  `json:"dateOfBirth"`
	Gender             *string  `json:"gender" binding:"omitempty,oneof=male female other"`
	BloodGroup         *string  `json:"bloodGroup"`
	AddressLine1       *string  `json:"addressLine1"`
	AddressLine2       *string  `json:"addressLine2"`
	City               *string  `json:"city"`
	State              *string  `json:"state"`
	Pincode            *string  `json:"pincode"`
	Country            *string  `json:"country"`
	Latitude           *float64 `json:"latitude"`
	Longitude          *float64 `json:"longitude"`
	EmailNotifications *bool    `json:"emailNotifications"`
	SMSNotifications   *bool    `json:"smsNotifications"`
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = strings.TrimSpace(*src)
	}
}

// UpdateProfile applies in to the account and profile and keeps the self
// family member in step with the account details.
func (s *Service) UpdateProfile(ctx context.Context, userID string, in ProfileInput) (*models.User, error) {
	u, err := s.Profile(ctx, userID)
	if err != nil {
		return nil, err
	}

	setString(&u.FirstName, in.FirstName)
	setString(&u.LastName, in.LastName)
	setString(&u.Phone, in.Phone)
	if in.DateOfBirth != nil {
		dob, err := parseDate(*in.DateOfBirth)
		if err != nil {
			return nil, err
		}
		u.DateOfBirth = dob
	}

	p := u.Profile
	if p == nil {
		p = &models.UserProfile{UserID: u.ID, Country: "India"}
	}
	setString(&p.Gender, in.Gender)
	setString(&p.BloodGroup, in.BloodGroup)
	setString(&p.AddressLine1, in.AddressLine1)
	setString(&p.AddressLine2, in.AddressLine2)
	setString(&p.City, in.City)
	setString(&p.State, in.State)
	setString(&p.Pincode, in.Pincode)
	setString(&p.Country, in.Country)
	if in.Latitude != nil {
		p.Latitude = in.Latitude
	}
	if in.Longitude != nil {
		p.Longitude = in.Longitude
	}
	if in.EmailNotifications != nil {
		p.EmailNotifications = *in.EmailNotifications
	}
	if in.SMSNotifications != nil {
		p.SMSNotifications = *in.SMSNotifications
	}

	self, err := s.repo.EnsureSelfMember(ctx, u.ID)
	if err != nil {
		return nil, fmt.Errorf("resolve self member: %w", err)
	}
	self.FirstName = u.FirstName
	self.LastName = u.LastName
	self.Phone = u.Phone
	self.DateOfBirth = u.DateOfBirth
	self.Gender = p.Gender
	self.BloodGroup = p.BloodGroup
	if err := self.Validate(s.now()); err != nil {
		return nil, err
	}

	err = s.repo.Transaction(ctx, func(ctx context.Context) error {
		if err := s.repo.SaveUser(ctx, u); err != nil {
			return err
		}
		if err := s.repo.SaveUserProfile(ctx, p); err != nil {
			return err
		}
		return s.repo.SaveFamilyMember(ctx, self)
	})
	if err != nil {
		return nil, err
	}
	u.Profile = p
	return u, nil
}
