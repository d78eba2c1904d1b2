package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultTwilioBaseURL = "https://api.twilio.com/2010-04-01"

// TwilioClient sends SMS and WhatsApp messages through the Twilio REST API.
type TwilioClient struct {
	accountSID   string
	authToken    string
	fromNumber   string
	whatsAppFrom string
	baseURL      string
	httpClient   *http.Client
}

// NewTwilioClient returns nil when the account credentials are missing.
func NewTwilioClient(accountSID, authToken, fromNumber, whatsAppFrom string) *TwilioClient {
	if strings.TrimSpace(accountSID) == "" || strings.TrimSpace(authToken) == "" {
		return nil
	}
	return &TwilioClient{
		accountSID:   accountSID,
		authToken:    authToken,
		fromNumber:   fromNumber,
		whatsAppFrom: whatsAppFrom,
		baseURL:      defaultTwilioBaseURL,
		httpClient:   &http.Client{Timeout: 10 * time.Second},
	}
}

type twilioMessageResponse struct {
	SID     string `json:"sid"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

func (c *TwilioClient) SendSMS(ctx context.Context, to, body string) error {
	if c.fromNumber == "" {
		return errors.New("twilio sender number not configured")
	}
	return c.send(ctx, c.fromNumber, to, body)
}

func (c *TwilioClient) SendWhatsApp(ctx context.Context, to, body string) error {
	if c.whatsAppFrom == "" {
		return errors.New("twilio whatsapp number not configured")
	}
	return c.send(ctx, whatsAppAddress(c.whatsAppFrom), whatsAppAddress(to), body)
}

func whatsAppAddress(number string) string {
	if strings.HasPrefix(number, "whatsapp:") {
		return number
	}
	return "whatsapp:" + number
}

func (c *TwilioClient) send(ctx context.Context, from, to, body string) error {
	form := url.Values{}
	form.Set("From", from)
	form.Set("To", to)
	form.Set("Body", body)

	endpoint := fmt.Sprintf("%s/Accounts/%s/Messages.json", c.baseURL, c.accountSID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("twilio create request: %w", err)
	}
	req.SetBasicAuth(c.accountSID, c.authToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("twilio request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("twilio send failed: status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var out twilioMessageResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return fmt.Errorf("twilio decode response: %w", err)
	}
	if out.SID == "" {
		return errors.New("twilio response missing message sid")
	}
	return nil
}
