package emergency

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"sarvsaathi-server/internal/models"
	"sarvsaathi-server/internal/notify"
)

var errNoDeliverer = errors.New("no delivery channel configured")

// SOSInput is an optional location and message attached to an SOS.
type SOSInput struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Message   string   `json:"message"`
}

// SOSResult counts the contacts reached.
type SOSResult struct {
	Notified int `json:"notified"`
	Failed   int `json:"failed"`
}

func sosBody(name string, in SOSInput) string {
	var b strings.Builder
	fmt.Fprintf(&b, "SOS ALERT: %s needs help urgently.", name)
	if msg := strings.TrimSpace(in.Message); msg != "" {
		fmt.Fprintf(&b, "\nMessage: %s", msg)
	}
	if in.Latitude != nil && in.Longitude != nil {
		fmt.Fprintf(&b, "\nLocation: https://www.google.com/maps?q=%v,%v", *in.Latitude, *in.Longitude)
	}
	return b.String()
}

// TriggerSOS alerts every emergency contact of the user concurrently. A
// contact counts as notified when all of its channels succeeded.
func (s *Service) TriggerSOS(ctx context.Context, userID string, in SOSInput) (*SOSResult, error) {
	user, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load requester: %w", err)
	}
	contacts, err := s.repo.ListEmergencyContacts(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list emergency contacts: %w", err)
	}
	if len(contacts) == 0 {
		return nil, ErrNoEmergencyContacts
	}

	body := sosBody(user.FullName(), in)
	var notified, failed atomic.Int32

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.SOSWorkers)
	for _, c := range contacts {
		g.Go(func() error {
			if err := s.alertContact(gctx, c, body); err != nil {
				failed.Add(1)
				log.Ctx(ctx).Warn().Err(err).Str("contact_id", c.ID).Msg("sos delivery failed")
				return nil
			}
			notified.Add(1)
			return nil
		})
	}
	_ = g.Wait()

	log.Ctx(ctx).Warn().
		Str("user_id", userID).
		Int32("notified", notified.Load()).
		Int32("failed", failed.Load()).
		Msg("sos triggered")

	return &SOSResult{Notified: int(notified.Load()), Failed: int(failed.Load())}, nil
}

func (s *Service) alertContact(ctx context.Context, c models.EmergencyContact, body string) error {
	if s.deliverer == nil {
		return errNoDeliverer
	}
	return s.deliverer.Deliver(ctx, notify.Message{
		Name:    c.Name,
		Phone:   c.Phone,
		Email:   c.Email,
		Subject: "SOS ALERT",
		Body:    body,
	})
}
