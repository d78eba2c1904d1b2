package media

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

const defaultCloudinaryBaseURL = "https://api.cloudinary.com/v1_1"

// ErrNotConfigured is returned when no storage credentials are set.
var ErrNotConfigured = errors.New("media storage not configured")

// Uploader stores files in object storage and returns their public URL.
type Uploader interface {
	Upload(ctx context.Context, in UploadInput) (*UploadResult, error)
	Delete(ctx context.Context, publicID string) error
}

// UploadInput describes one file. PublicID is optional; when set, an
// existing asset with the same id is overwritten.
type UploadInput struct {
	File     io.Reader
	Filename string
	Folder   string
	PublicID string
}

type UploadResult struct {
	URL      string `json:"secure_url"`
	PublicID string `json:"public_id"`
}

// CloudinaryClient uploads with signed requests to the Cloudinary upload API.
type CloudinaryClient struct {
	cloudName  string
	apiKey     string
	apiSecret  string
	baseURL    string
	httpClient *http.Client
	now        func() time.Time
}

// NewCloudinaryClient returns nil when the credentials are incomplete.
func NewCloudinaryClient(cloudName, apiKey, apiSecret string) *CloudinaryClient {
	if cloudName == "" || apiKey == "" || apiSecret == "" {
		return nil
	}
	return &CloudinaryClient{
		cloudName:  cloudName,
		apiKey:     apiKey,
		apiSecret:  apiSecret,
		baseURL:    defaultCloudinaryBaseURL,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		now:        time.Now,
	}
}

func (c *CloudinaryClient) Upload(ctx context.Context, in UploadInput) (*UploadResult, error) {
	params := map[string]string{
		"timestamp": strconv.FormatInt(c.now().Unix(), 10),
	}
	if in.Folder != "" {
		params["folder"] = in.Folder
	}
	if in.PublicID != "" {
		params["public_id"] = in.PublicID
		params["overwrite"] = "true"
	}

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for k, v := range params {
		if err := w.WriteField(k, v); err != nil {
			return nil, err
		}
	}
	_ = w.WriteField("api_key", c.apiKey)
	_ = w.WriteField("signature", c.sign(params))

	part, err := w.CreateFormFile("file", in.Filename)
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, in.File); err != nil {
		return nil, fmt.Errorf("cloudinary read file: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/%s/auto/upload", c.baseURL, c.cloudName)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &body)
	if err != nil {
		return nil, fmt.Errorf("cloudinary create request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	var out UploadResult
	if err := c.exchange(req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *CloudinaryClient) Delete(ctx context.Context, publicID string) error {
	params := map[string]string{
		"public_id": publicID,
		"timestamp": strconv.FormatInt(c.now().Unix(), 10),
	}
	form := url.Values{}
	for k, v := range params {
		form.Set(k, v)
	}
	form.Set("api_key", c.apiKey)
	form.Set("signature", c.sign(params))

	endpoint := fmt.Sprintf("%s/%s/image/destroy", c.baseURL, c.cloudName)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("cloudinary create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var out struct {
		Result string `json:"result"`
	}
	if err := c.exchange(req, &out); err != nil {
		return err
	}
	if out.Result != "ok" && out.Result != "not found" {
		return fmt.Errorf("cloudinary destroy: result %q", out.Result)
	}
	return nil
}

// sign computes the request signature: the sorted key=value pairs joined
// with '&', followed by the API secret, SHA-1 hex encoded.
func (c *CloudinaryClient) sign(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+params[k])
	}
	sum := sha1.Sum([]byte(strings.Join(pairs, "&") + c.apiSecret))
	return hex.EncodeToString(sum[:])
}

func (c *CloudinaryClient) exchange(req *http.Request, out interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("cloudinary request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("cloudinary request failed: status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("cloudinary decode response: %w", err)
	}
	return nil
}

// Disabled rejects every call. It is wired when no credentials are set.
type Disabled struct{}

func (Disabled) Upload(ctx context.Context, in UploadInput) (*UploadResult, error) {
	return nil, ErrNotConfigured
}

func (Disabled) Delete(ctx context.Context, publicID string) error {
	return ErrNotConfigured
}
