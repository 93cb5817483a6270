package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// HTTPProvider talks to a hosted identity service over its management API.
// The wire shapes follow the common hosted-auth layout: users carry their
// panel role under publicMetadata.role.
type HTTPProvider struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

// NewHTTPProvider builds a provider against the given management API base URL.
func NewHTTPProvider(baseURL, apiKey string) *HTTPProvider {
	return &HTTPProvider{
		BaseURL:    baseURL,
		APIKey:     apiKey,
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
	}
}

type wireUser struct {
	ID             string `json:"id"`
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	ImageURL       string `json:"image_url"`
	EmailAddresses []struct {
		EmailAddress string `json:"email_address"`
	} `json:"email_addresses"`
	PublicMetadata struct {
		Role string `json:"role"`
	} `json:"public_metadata"`
}

func (w wireUser) toUser() *User {
	u := &User{
		ID:        w.ID,
		FirstName: w.FirstName,
		LastName:  w.LastName,
		ImageURL:  w.ImageURL,
		Role:      w.PublicMetadata.Role,
	}
	if len(w.EmailAddresses) > 0 {
		u.Email = w.EmailAddresses[0].EmailAddress
	}
	return u
}

func (p *HTTPProvider) do(ctx context.Context, method, path string, body, out any) (int, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return 0, err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, p.BaseURL+path, &buf)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Authorization", "Bearer "+p.APIKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := p.HTTPClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return resp.StatusCode, fmt.Errorf("identity: %s %s returned %d", method, path, resp.StatusCode)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, err
		}
	}
	return resp.StatusCode, nil
}

func (p *HTTPProvider) ResolveSession(ctx context.Context, token string) (*User, error) {
	var session struct {
		UserID string `json:"user_id"`
		Status string `json:"status"`
	}
	status, err := p.do(ctx, http.MethodGet, "/sessions/"+url.PathEscape(token), nil, &session)
	if err != nil {
		if status == http.StatusNotFound || status == http.StatusUnauthorized {
			return nil, ErrSessionInvalid
		}
		return nil, err
	}
	if session.Status != "active" || session.UserID == "" {
		return nil, ErrSessionInvalid
	}
	return p.GetUser(ctx, session.UserID)
}

func (p *HTTPProvider) GetUser(ctx context.Context, id string) (*User, error) {
	var w wireUser
	status, err := p.do(ctx, http.MethodGet, "/users/"+url.PathEscape(id), nil, &w)
	if err != nil {
		if status == http.StatusNotFound {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return w.toUser(), nil
}

func (p *HTTPProvider) ListUsers(ctx context.Context) ([]User, error) {
	var wire []wireUser
	if _, err := p.do(ctx, http.MethodGet, "/users?limit=500", nil, &wire); err != nil {
		return nil, err
	}
	out := make([]User, 0, len(wire))
	for _, w := range wire {
		out = append(out, *w.toUser())
	}
	return out, nil
}

func (p *HTTPProvider) UpdateUserRole(ctx context.Context, id, role string) (*User, error) {
	body := map[string]any{
		"public_metadata": map[string]any{"role": role},
	}
	var w wireUser
	status, err := p.do(ctx, http.MethodPatch, "/users/"+url.PathEscape(id), body, &w)
	if err != nil {
		if status == http.StatusNotFound {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return w.toUser(), nil
}
