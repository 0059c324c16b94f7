package avatar

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrIdentityNotFound is returned when the external service knows no such username.
	ErrIdentityNotFound = errors.New("external identity not found")

	// ErrImageUnavailable is returned when no headshot could be produced for an id.
	ErrImageUnavailable = errors.New("external image unavailable")
)

// IdentityLookup resolves an external username to its canonical spelling and numeric id.
type IdentityLookup interface {
	LookupByName(ctx context.Context, name string) (canonical string, id int64, err error)
}

// ImageLookup resolves an external user id to a headshot image URL.
type ImageLookup interface {
	HeadshotByID(ctx context.Context, id int64) (string, error)
}

// RobloxClient talks to the public Roblox users and thumbnails APIs.
type RobloxClient struct {
	usersURL      string
	thumbnailsURL string
	httpClient    *http.Client
}

// NewRobloxClient builds a client against the given API base URLs.
func NewRobloxClient(usersURL, thumbnailsURL string) *RobloxClient {
	return &RobloxClient{
		usersURL:      strings.TrimRight(usersURL, "/"),
		thumbnailsURL: strings.TrimRight(thumbnailsURL, "/"),
		httpClient:    &http.Client{Timeout: 10 * time.Second},
	}
}

type usernamesRequest struct {
	Usernames          []string `json:"usernames"`
	ExcludeBannedUsers bool     `json:"excludeBannedUsers"`
}

type usernamesResponse struct {
	Data []struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	} `json:"data"`
}

type headshotResponse struct {
	Data []struct {
		TargetID int64  `json:"targetId"`
		State    string `json:"state"`
		ImageURL string `json:"imageUrl"`
	} `json:"data"`
}

// LookupByName implements IdentityLookup.
func (c *RobloxClient) LookupByName(ctx context.Context, name string) (string, int64, error) {
	body, err := json.Marshal(usernamesRequest{Usernames: []string{name}, ExcludeBannedUsers: true})
	if err != nil {
		return "", 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.usersURL+"/v1/usernames/users", bytes.NewReader(body))
	if err != nil {
		return "", 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	var out usernamesResponse
	if err := c.do(req, &out); err != nil {
		var statusErr *statusError
		if errors.As(err, &statusErr) {
			return "", 0, fmt.Errorf("%w: %v", ErrIdentityNotFound, err)
		}
		return "", 0, err
	}

	if len(out.Data) == 0 {
		return "", 0, ErrIdentityNotFound
	}

	return out.Data[0].Name, out.Data[0].ID, nil
}

// HeadshotByID implements ImageLookup.
func (c *RobloxClient) HeadshotByID(ctx context.Context, id int64) (string, error) {
	query := url.Values{}
	query.Set("userIds", strconv.FormatInt(id, 10))
	query.Set("size", "150x150")
	query.Set("format", "Png")
	query.Set("isCircular", "false")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.thumbnailsURL+"/v1/users/avatar-headshot?"+query.Encode(), nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "application/json")

	var out headshotResponse
	if err := c.do(req, &out); err != nil {
		return "", fmt.Errorf("%w: %v", ErrImageUnavailable, err)
	}

	if len(out.Data) == 0 || out.Data[0].ImageURL == "" {
		return "", ErrImageUnavailable
	}

	return out.Data[0].ImageURL, nil
}

type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.code)
}

func (c *RobloxClient) do(req *http.Request, out any) error {
	res, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(res.Body, 4096))
		return &statusError{code: res.StatusCode}
	}

	if err := json.NewDecoder(io.LimitReader(res.Body, 1<<20)).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", req.URL.Path, err)
	}

	return nil
}
