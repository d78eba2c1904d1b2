package accounts

import (
	"context"
	"fmt"
	"io"
	"path"

	"github.com/rs/zerolog/log"

	"sarvsaathi-server/internal/media"
	"sarvsaathi-server/internal/models"
)

func (s *Service) avatarID(userID string) string {
	return path.Join(s.cfg.Cloudinary.Folder, "avatars", userID)
}

func (s *Service) profileOf(ctx context.Context, userID string) (*models.UserProfile, error) {
	u, err := s.Profile(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u.Profile != nil {
		return u.Profile, nil
	}
	p := &models.UserProfile{UserID: u.ID, Country: "India"}
	if err := s.repo.CreateUserProfile(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// UploadAvatar stores the image under a per-user id, replacing any earlier
// avatar, and records its URL on the profile.
func (s *Service) UploadAvatar(ctx context.Context, userID string, file io.Reader, filename string) (*models.UserProfile, error) {
	p, err := s.profileOf(ctx, userID)
	if err != nil {
		return nil, err
	}

	res, err := s.uploader.Upload(ctx, media.UploadInput{
		File:     file,
		Filename: filename,
		PublicID: s.avatarID(userID),
	})
	if err != nil {
		return nil, fmt.Errorf("upload avatar: %w", err)
	}

	p.AvatarURL = res.URL
	if err := s.repo.SaveUserProfile(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// DeleteAvatar removes the stored image and clears the URL. A storage
// failure is logged; the profile is cleared regardless.
func (s *Service) DeleteAvatar(ctx context.Context, userID string) error {
	p, err := s.profileOf(ctx, userID)
	if err != nil {
		return err
	}
	if p.AvatarURL == "" {
		return ErrNoAvatar
	}

	if err := s.uploader.Delete(ctx, s.avatarID(userID)); err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("user_id", userID).Msg("avatar delete failed")
	}
	p.AvatarURL = ""
	return s.repo.SaveUserProfile(ctx, p)
}
