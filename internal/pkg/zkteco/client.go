// Package zkteco talks to a ZKBio-style access control server: event
// transactions, person provisioning and attendance areas.
package zkteco

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
	"strconv"
	"strings"
	"time"
)

const eventTimeLayout = "2006-01-02 15:04:05"

var ErrAPI = errors.New("urv api error")

// Event is one attendance transaction.
type Event struct {
	ID        string `json:"id"`
	EventTime string `json:"eventTime"`
	Pin       string `json:"pin"`
	AccZone   string `json:"accZone"`
	DevSn     string `json:"devSn"`
	EventName string `json:"eventName"`
}

// Time parses EventTime in loc; the server reports local wall time.
func (e Event) Time(loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(eventTimeLayout, e.EventTime, loc)
}

type User struct {
	Pin      string `json:"pin"`
	Name     string `json:"name"`
	LastName string `json:"lastName,omitempty"`
	DeptCode string `json:"deptCode,omitempty"`
}

type Area struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
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
					Timeout:   10 * time.Second,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				MaxIdleConns:        20,
				IdleConnTimeout:     90 * time.Second,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
	}
}

// ListEvents fetches one page of transactions in [from, to]. The second result
// reports whether the page was full, i.e. another page may follow.
func (c *Client) ListEvents(ctx context.Context, page, size int, from, to time.Time) ([]Event, bool, error) {
	if size <= 0 || size > 1000 {
		size = 1000
	}
	q := url.Values{}
	q.Set("pageNo", strconv.Itoa(page))
	q.Set("pageSize", strconv.Itoa(size))
	q.Set("startDate", from.Format(eventTimeLayout))
	q.Set("endDate", to.Format(eventTimeLayout))

	var events []Event
	if err := c.call(ctx, http.MethodGet, "/api/transaction/list", q, nil, &events); err != nil {
		return nil, false, err
	}
	return events, len(events) == size, nil
}

func (c *Client) AddUser(ctx context.Context, u User) error {
	return c.call(ctx, http.MethodPost, "/api/person/add", nil, u, nil)
}

func (c *Client) AddPersonArea(ctx context.Context, pin, areaCode string) error {
	body := map[string]string{"pin": pin, "code": areaCode}
	return c.call(ctx, http.MethodPost, "/api/attAreaPerson/set", nil, body, nil)
}

func (c *Client) DeletePersonArea(ctx context.Context, pin, areaCode string) error {
	body := map[string]string{"pin": pin, "code": areaCode}
	return c.call(ctx, http.MethodPost, "/api/attAreaPerson/delete", nil, body, nil)
}

func (c *Client) ListAttendanceAreas(ctx context.Context, page, size int) ([]Area, error) {
	q := url.Values{}
	q.Set("pageNo", strconv.Itoa(page))
	q.Set("pageSize", strconv.Itoa(size))

	var areas []Area
	if err := c.call(ctx, http.MethodGet, "/api/area/list", q, nil, &areas); err != nil {
		return nil, err
	}
	return areas, nil
}

func (c *Client) call(ctx context.Context, method, path string, q url.Values, in, out any) error {
	if q == nil {
		q = url.Values{}
	}
	q.Set("access_token", c.Token)

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path+"?"+q.Encode(), body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("%w: %s status=%d, body=%s", ErrAPI, path, resp.StatusCode, string(b))
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("%w: decode %s: %v", ErrAPI, path, err)
	}
	if env.Code != 0 {
		return fmt.Errorf("%w: %s code=%d, message=%s", ErrAPI, path, env.Code, env.Message)
	}
	if out == nil || len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	return json.Unmarshal(env.Data, out)
}
