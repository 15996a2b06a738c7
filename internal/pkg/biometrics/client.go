// Package biometrics is an HTTP client for the face recognition service.
// Any transport error or non-2xx answer is reported as ErrUnavailable.
package biometrics

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

var (
	ErrUnavailable = errors.New("biometrics service unavailable")
	ErrNoFace      = errors.New("no face detected")
)

// Match is the verdict of comparing an image against an enrolled person.
type Match struct {
	Score    float64 `json:"score"`
	Liveness float64 `json:"liveness"`
}

type Client struct {
	BaseURL string
	Token   string
	HTTP    *http.Client
}

func NewClient(baseURL, token string, timeout time.Duration) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		HTTP: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout:   5 * time.Second,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				MaxIdleConns:        50,
				IdleConnTimeout:     90 * time.Second,
				TLSHandshakeTimeout: 5 * time.Second,
			},
		},
	}
}

// Identify searches every enrolled person for the face in image. It returns
// "" when nobody matches.
func (c *Client) Identify(ctx context.Context, image []byte) (string, error) {
	var out struct {
		PartnerID *string `json:"partner_id"`
	}
	if err := c.do(ctx, http.MethodPost, "/identify", image, "image/jpeg", &out); err != nil {
		return "", err
	}
	if out.PartnerID == nil {
		return "", nil
	}
	return *out.PartnerID, nil
}

// CreatePerson enrolls a new person and returns its partner id.
func (c *Client) CreatePerson(ctx context.Context, meta map[string]string) (string, error) {
	body, err := json.Marshal(map[string]any{"meta": meta})
	if err != nil {
		return "", err
	}
	var out struct {
		ID string `json:"id"`
	}
	if err := c.do(ctx, http.MethodPost, "/persons", body, "application/json", &out); err != nil {
		return "", err
	}
	return out.ID, nil
}

// UploadPhoto adds a reference photo to a person.
func (c *Client) UploadPhoto(ctx context.Context, partnerID string, image []byte) (string, error) {
	var out struct {
		ID string `json:"id"`
	}
	path := "/persons/" + url.PathEscape(partnerID) + "/photos"
	if err := c.do(ctx, http.MethodPost, path, image, "image/jpeg", &out); err != nil {
		return "", err
	}
	return out.ID, nil
}

// DetectAndMatch compares the face in image with the person's references.
func (c *Client) DetectAndMatch(ctx context.Context, partnerID string, image []byte) (Match, error) {
	var out struct {
		Match
		FaceFound *bool `json:"face_found"`
	}
	path := "/persons/" + url.PathEscape(partnerID) + "/match"
	if err := c.do(ctx, http.MethodPost, path, image, "image/jpeg", &out); err != nil {
		return Match{}, err
	}
	if out.FaceFound != nil && !*out.FaceFound {
		return Match{}, ErrNoFace
	}
	return out.Match, nil
}

func (c *Client) DeletePerson(ctx context.Context, partnerID string) error {
	return c.do(ctx, http.MethodDelete, "/persons/"+url.PathEscape(partnerID), nil, "", nil)
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, contentType string, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("%w: %s %s status=%d, body=%s", ErrUnavailable, method, path, resp.StatusCode, string(b))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode %s: %v", ErrUnavailable, path, err)
	}
	return nil
}
