package accounts

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"sarvsaathi-server/internal/config"
	"sarvsaathi-server/internal/media"
	"sarvsaathi-server/internal/models"
	"sarvsaathi-server/internal/store"
)

var errBoom = errors.New("boom")

// fakeRepo keeps everything in maps. Transaction runs fn directly.
type fakeRepo struct {
	users    map[string]*models.User
	profiles map[string]*models.UserProfile
	tokens   map[string]*models.RefreshToken
	members  map[string]*models.FamilyMember
	contacts map[string]*models.EmergencyContact
	records  map[string]*models.MedicalRecord
	doctors  map[string]*models.DoctorProfile
	favs     map[string]bool

	listDoctorCalls int
	createUserErr   error
	seq             int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		users:    map[string]*models.User{},
		profiles: map[string]*models.UserProfile{},
		tokens:   map[string]*models.RefreshToken{},
		members:  map[string]*models.FamilyMember{},
		contacts: map[string]*models.EmergencyContact{},
		records:  map[string]*models.MedicalRecord{},
		doctors:  map[string]*models.DoctorProfile{},
		favs:     map[string]bool{},
	}
}

func (f *fakeRepo) id(prefix string) string {
	f.seq++
	return fmt.Sprintf("%s-%d", prefix, f.seq)
}

func (f *fakeRepo) Transaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (f *fakeRepo) CreateUser(ctx context.Context, u *models.User) error {
	if f.createUserErr != nil {
		return f.createUserErr
	}
	u.ID = f.id("user")
	f.users[u.ID] = u
	return nil
}

func (f *fakeRepo) GetUser(ctx context.Context, id string) (*models.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	u.Profile = f.profiles[id]
	return u, nil
}

func (f *fakeRepo) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range f.users {
		if u.Email == strings.ToLower(email) {
			return u, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeRepo) SaveUser(ctx context.Context, u *models.User) error {
	f.users[u.ID] = u
	return nil
}

func (f *fakeRepo) CreateUserProfile(ctx context.Context, p *models.UserProfile) error {
	p.ID = f.id("profile")
	f.profiles[p.UserID] = p
	return nil
}

func (f *fakeRepo) GetUserProfile(ctx context.Context, userID string) (*models.UserProfile, error) {
	p, ok := f.profiles[userID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return p, nil
}

func (f *fakeRepo) SaveUserProfile(ctx context.Context, p *models.UserProfile) error {
	f.profiles[p.UserID] = p
	return nil
}

func (f *fakeRepo) CreateRefreshToken(ctx context.Context, t *models.RefreshToken) error {
	f.tokens[t.Token] = t
	return nil
}

func (f *fakeRepo) GetActiveRefreshToken(ctx context.Context, token, userID string, now time.Time) (*models.RefreshToken, error) {
	t, ok := f.tokens[token]
	if !ok || t.UserID != userID || t.IsRevoked || !t.ExpiresAt.After(now) {
		return nil, store.ErrNotFound
	}
	return t, nil
}

func (f *fakeRepo) RevokeRefreshToken(ctx context.Context, token string, at time.Time) error {
	t, ok := f.tokens[token]
	if !ok || t.IsRevoked {
		return store.ErrStatusMismatch
	}
	t.IsRevoked = true
	t.RevokedAt = &at
	return nil
}

func (f *fakeRepo) CreateFamilyMember(ctx context.Context, m *models.FamilyMember) error {
	m.ID = f.id("member")
	f.members[m.ID] = m
	return nil
}

func (f *fakeRepo) FindActiveFamilyMember(ctx context.Context, userID, memberID string) (*models.FamilyMember, error) {
	m, ok := f.members[memberID]
	if !ok || m.UserID != userID || !m.IsActive {
		return nil, store.ErrNotFound
	}
	return m, nil
}

func (f *fakeRepo) EnsureSelfMember(ctx context.Context, userID string) (*models.FamilyMember, error) {
	for _, m := range f.members {
		if m.UserID == userID && m.Relationship == models.RelationshipSelf && m.IsActive {
			return m, nil
		}
	}
	self := models.NewSelfMember(f.users[userID])
	return self, f.CreateFamilyMember(ctx, self)
}

func (f *fakeRepo) ListFamilyMembers(ctx context.Context, userID string) ([]models.FamilyMember, error) {
	var out []models.FamilyMember
	for _, m := range f.members {
		if m.UserID == userID && m.IsActive {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (f *fakeRepo) SaveFamilyMember(ctx context.Context, m *models.FamilyMember) error {
	f.members[m.ID] = m
	return nil
}

func (f *fakeRepo) CreateEmergencyContact(ctx context.Context, c *models.EmergencyContact) error {
	c.ID = f.id("contact")
	f.contacts[c.ID] = c
	return nil
}

func (f *fakeRepo) GetEmergencyContact(ctx context.Context, id, userID string) (*models.EmergencyContact, error) {
	c, ok := f.contacts[id]
	if !ok || c.UserID != userID {
		return nil, store.ErrNotFound
	}
	return c, nil
}

func (f *fakeRepo) ListEmergencyContacts(ctx context.Context, userID string) ([]models.EmergencyContact, error) {
	var out []models.EmergencyContact
	for _, c := range f.contacts {
		if c.UserID == userID {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (f *fakeRepo) SaveEmergencyContact(ctx context.Context, c *models.EmergencyContact) error {
	f.contacts[c.ID] = c
	return nil
}

func (f *fakeRepo) DeleteEmergencyContact(ctx context.Context, id, userID string) error {
	c, ok := f.contacts[id]
	if !ok || c.UserID != userID {
		return store.ErrNotFound
	}
	delete(f.contacts, id)
	return nil
}

func (f *fakeRepo) CreateMedicalRecord(ctx context.Context, r *models.MedicalRecord) error {
	r.ID = f.id("record")
	f.records[r.ID] = r
	return nil
}

func (f *fakeRepo) GetMedicalRecord(ctx context.Context, id, userID string) (*models.MedicalRecord, error) {
	r, ok := f.records[id]
	if !ok || r.UserID != userID {
		return nil, store.ErrNotFound
	}
	return r, nil
}

func (f *fakeRepo) ListMedicalRecords(ctx context.Context, userID, familyMemberID string) ([]models.MedicalRecord, error) {
	var out []models.MedicalRecord
	for _, r := range f.records {
		if r.UserID != userID {
			continue
		}
		if familyMemberID != "" && (r.FamilyMemberID == nil || *r.FamilyMemberID != familyMemberID) {
			continue
		}
		out = append(out, *r)
	}
	return out, nil
}

func (f *fakeRepo) SaveMedicalRecord(ctx context.Context, r *models.MedicalRecord) error {
	f.records[r.ID] = r
	return nil
}

func (f *fakeRepo) DeleteMedicalRecord(ctx context.Context, id, userID string) error {
	if _, err := f.GetMedicalRecord(ctx, id, userID); err != nil {
		return err
	}
	delete(f.records, id)
	return nil
}

func (f *fakeRepo) CreateDoctorProfile(ctx context.Context, d *models.DoctorProfile) error {
	d.ID = f.id("doctor")
	f.doctors[d.ID] = d
	return nil
}

func (f *fakeRepo) GetDoctor(ctx context.Context, id string) (*models.DoctorProfile, error) {
	d, ok := f.doctors[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return d, nil
}

func (f *fakeRepo) GetDoctorByUserID(ctx context.Context, userID string) (*models.DoctorProfile, error) {
	for _, d := range f.doctors {
		if d.UserID == userID {
			return d, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeRepo) SaveDoctor(ctx context.Context, d *models.DoctorProfile) error {
	f.doctors[d.ID] = d
	return nil
}

func (f *fakeRepo) ListDoctors(ctx context.Context, filter store.DoctorFilter) ([]models.DoctorProfile, error) {
	f.listDoctorCalls++
	var out []models.DoctorProfile
	for _, d := range f.doctors {
		if d.IsVerified && strings.Contains(strings.ToLower(d.Specialty), strings.ToLower(filter.Specialty)) {
			out = append(out, *d)
		}
	}
	return out, nil
}

func (f *fakeRepo) VerifyDoctor(ctx context.Context, email string, at time.Time) (*models.DoctorProfile, error) {
	u, err := f.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	d, err := f.GetDoctorByUserID(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	d.IsVerified = true
	d.VerifiedAt = &at
	return d, nil
}

func (f *fakeRepo) AddFavorite(ctx context.Context, fav *models.FavoriteDoctor) error {
	f.favs[fav.UserID+"/"+fav.DoctorID] = true
	return nil
}

func (f *fakeRepo) RemoveFavorite(ctx context.Context, userID, doctorID string) (bool, error) {
	key := userID + "/" + doctorID
	if !f.favs[key] {
		return false, nil
	}
	delete(f.favs, key)
	return true, nil
}

func (f *fakeRepo) IsFavorite(ctx context.Context, userID, doctorID string) (bool, error) {
	return f.favs[userID+"/"+doctorID], nil
}

func (f *fakeRepo) ListFavorites(ctx context.Context, userID string) ([]models.FavoriteDoctor, error) {
	var out []models.FavoriteDoctor
	for key := range f.favs {
		if parts := strings.SplitN(key, "/", 2); parts[0] == userID {
			out = append(out, models.FavoriteDoctor{UserID: userID, DoctorID: parts[1]})
		}
	}
	return out, nil
}

type fakeUploader struct {
	uploads []media.UploadInput
	deleted []string
	err     error
}

func (u *fakeUploader) Upload(ctx context.Context, in media.UploadInput) (*media.UploadResult, error) {
	if u.err != nil {
		return nil, u.err
	}
	if _, err := io.ReadAll(in.File); err != nil {
		return nil, err
	}
	u.uploads = append(u.uploads, in)
	id := in.PublicID
	if id == "" {
		id = fmt.Sprintf("%s/file-%d", in.Folder, len(u.uploads))
	}
	return &media.UploadResult{URL: "https://cdn.test/" + id, PublicID: id}, nil
}

func (u *fakeUploader) Delete(ctx context.Context, publicID string) error {
	u.deleted = append(u.deleted, publicID)
	return nil
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.JWT.Secret = "access-secret"
	cfg.JWT.RefreshSecret = "refresh-secret"
	cfg.JWT.AccessTTL = 15 * time.Minute
	cfg.JWT.RefreshTTL = 24 * time.Hour
	cfg.Cloudinary.Folder = "sarvsaathi"
	cfg.Cache.DoctorTTL = time.Minute
	return cfg
}

func stringsReader(s string) io.Reader {
	return strings.NewReader(s)
}
