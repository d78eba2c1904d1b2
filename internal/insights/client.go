package insights

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
)

// DefaultPatientAge is used when the patient's date of birth is unknown.
const DefaultPatientAge = 37

// ErrUnavailable is returned when the inference service cannot answer.
var ErrUnavailable = errors.New("inference service unavailable")

// Features are the inputs of the no-show model.
type Features struct {
	PatientAge      int       `json:"patient_age"`
	ReminderSent    bool      `json:"reminder_sent"`
	BookingDate     time.Time `json:"booking_date"`
	AppointmentDate time.Time `json:"appointment_date"`
}

// WaitDays is the whole number of days between booking and appointment,
// never negative.
func (f Features) WaitDays() int {
	d := int(f.AppointmentDate.Sub(f.BookingDate).Hours() / 24)
	if d < 0 {
		return 0
	}
	return d
}

// Weekday returns the appointment day with Monday as 0.
func (f Features) Weekday() int {
	return (int(f.AppointmentDate.Weekday()) + 6) % 7
}

type predictRequest struct {
	Features
	WaitingDays    int `json:"waiting_days"`
	AppointmentDOW int `json:"appointment_dow"`
}

// Prediction is the model's no-show risk.
type Prediction struct {
	Label      string  `json:"prediction"`
	Confidence float64 `json:"confidence_score"`
}

// HighRisk reports whether the model flagged the appointment.
func (p *Prediction) HighRisk() bool {
	return p.Label == "High Risk"
}

// GuidanceRequest describes a patient asking for symptom guidance.
type GuidanceRequest struct {
	Symptoms string `json:"symptoms"`
	Gender   string `json:"gender,omitempty"`
	Age      int    `json:"age,omitempty"`
}

// Guidance is structured free-text advice.
type Guidance struct {
	Assessment      string   `json:"assessment"`
	Conditions      []string `json:"conditions"`
	Recommendations string   `json:"recommendations"`
	Urgency         string   `json:"urgency"`
	SelfCare        string   `json:"selfCare"`
	Warnings        string   `json:"warnings"`
	Fallback        bool     `json:"fallback"`
}

// Client calls the ML inference service behind a circuit breaker.
type Client struct {
	baseURL    string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	settings := gobreaker.Settings{
		Name:        "ml-service",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state changed")
		},
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		breaker:    gobreaker.NewCircuitBreaker(settings),
	}
}

// PredictNoShow asks the model for the no-show risk of an appointment.
func (c *Client) PredictNoShow(ctx context.Context, f Features) (*Prediction, error) {
	if f.PatientAge < 0 {
		f.PatientAge = DefaultPatientAge
	}
	req := predictRequest{
		Features:       f,
		WaitingDays:    f.WaitDays(),
		AppointmentDOW: f.Weekday(),
	}

	var out Prediction
	if err := c.post(ctx, "/predict", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SymptomGuidance returns guidance from the service, or the rule-based
// fallback when the service fails. It never returns nil.
func (c *Client) SymptomGuidance(ctx context.Context, req GuidanceRequest) *Guidance {
	var out Guidance
	if err := c.post(ctx, "/generate_guidance", req, &out); err != nil {
		log.Warn().Err(err).Msg("symptom guidance falling back to rules")
		return FallbackGuidance(req.Symptoms)
	}
	if out.Assessment == "" && len(out.Conditions) == 0 {
		return FallbackGuidance(req.Symptoms)
	}
	return &out
}

func (c *Client) post(ctx context.Context, path string, in, out interface{}) error {
	_, err := c.breaker.Execute(func() (interface{}, error) {
		raw, err := json.Marshal(in)
		if err != nil {
			return nil, err
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(raw))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
			return nil, fmt.Errorf("status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(body)))
		}
		return nil, json.NewDecoder(resp.Body).Decode(out)
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}
