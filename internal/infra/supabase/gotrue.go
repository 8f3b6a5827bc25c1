package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/viniciusroberto/pluggy-lead-pulse/internal/domain"
)

// ============================================================
// AuthGateway implementation — GoTrue auth API
// ============================================================

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	User         struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	} `json:"user"`
}

func (t tokenResponse) toSession() *domain.Session {
	return &domain.Session{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		ExpiresAt:    time.Now().Add(time.Duration(t.ExpiresIn) * time.Second),
		User: domain.AuthenticatedUser{
			ID:    t.User.ID,
			Email: t.User.Email,
		},
	}
}

// doAuth posts to a GoTrue endpoint with the anon key. bearerToken, when
// non-empty, overrides the Authorization header (logout needs the session's
// own access token).
func (c *Client) doAuth(ctx context.Context, path string, payload any, bearerToken string) ([]byte, int, error) {
	url := fmt.Sprintf("%s/auth/v1/%s", c.baseURL, path)

	var body *bytes.Reader
	if payload != nil {
		jsonBody, err := json.Marshal(payload)
		if err != nil {
			return nil, 0, err
		}
		body = bytes.NewReader(jsonBody)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return nil, 0, err
	}

	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	if bearerToken != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", bearerToken))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("gotrue: request failed",
			zap.String("path", path),
			zap.Error(err),
		)
		return nil, 0, err
	}
	defer resp.Body.Close()

	respBody, err := readBody(resp)
	if err != nil {
		return nil, 0, err
	}

	return respBody, resp.StatusCode, nil
}

// SignIn exchanges email+password for a token pair.
func (c *Client) SignIn(ctx context.Context, email, password string) (*domain.Session, error) {
	ctx, span := tracer.Start(ctx, "Supabase.SignIn")
	defer span.End()

	payload := map[string]string{"email": email, "password": password}
	body, status, err := c.doAuth(ctx, "token?grant_type=password", payload, "")
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "supabase/auth", Err: err}
	}
	if status == http.StatusBadRequest || status == http.StatusUnauthorized {
		c.logger.Warn("gotrue: sign-in rejected", zap.Int("status", status))
		return nil, &domain.ErrUnauthorized{Message: "Credenciais inválidas"}
	}
	if status < 200 || status >= 300 {
		return nil, &domain.ErrExternalService{
			Service: "supabase/auth",
			Err:     fmt.Errorf("gotrue returned status %d: %s", status, string(body)),
		}
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return nil, &domain.ErrExternalService{Service: "supabase/auth", Err: err}
	}
	return tr.toSession(), nil
}

// SignUp registers a new auth identity. The display name travels in the
// user metadata so the provisioning trigger can pick it up.
func (c *Client) SignUp(ctx context.Context, email, password, nome string) (*domain.AuthenticatedUser, error) {
	ctx, span := tracer.Start(ctx, "Supabase.SignUp")
	defer span.End()

	payload := map[string]any{
		"email":    email,
		"password": password,
		"data":     map[string]string{"nome": nome},
	}
	body, status, err := c.doAuth(ctx, "signup", payload, "")
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "supabase/auth", Err: err}
	}
	if status == http.StatusUnprocessableEntity || status == http.StatusBadRequest {
		c.logger.Warn("gotrue: sign-up rejected",
			zap.Int("status", status),
			zap.String("body", string(body)),
		)
		return nil, &domain.ErrConflict{Message: "Não foi possível registrar o usuário"}
	}
	if status < 200 || status >= 300 {
		return nil, &domain.ErrExternalService{
			Service: "supabase/auth",
			Err:     fmt.Errorf("gotrue returned status %d: %s", status, string(body)),
		}
	}

	var user struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	}
	if err := json.Unmarshal(body, &user); err != nil {
		return nil, &domain.ErrExternalService{Service: "supabase/auth", Err: err}
	}
	return &domain.AuthenticatedUser{ID: user.ID, Email: user.Email}, nil
}

// SignOut revokes the session on the auth server. A 401 is treated as
// success since the token is already unusable.
func (c *Client) SignOut(ctx context.Context, accessToken string) error {
	ctx, span := tracer.Start(ctx, "Supabase.SignOut")
	defer span.End()

	body, status, err := c.doAuth(ctx, "logout", nil, accessToken)
	if err != nil {
		return &domain.ErrExternalService{Service: "supabase/auth", Err: err}
	}
	if status == http.StatusUnauthorized || (status >= 200 && status < 300) {
		return nil
	}
	return &domain.ErrExternalService{
		Service: "supabase/auth",
		Err:     fmt.Errorf("gotrue returned status %d: %s", status, string(body)),
	}
}

// RefreshSession trades a refresh token for a new token pair.
func (c *Client) RefreshSession(ctx context.Context, refreshToken string) (*domain.Session, error) {
	ctx, span := tracer.Start(ctx, "Supabase.RefreshSession")
	defer span.End()

	payload := map[string]string{"refresh_token": refreshToken}
	body, status, err := c.doAuth(ctx, "token?grant_type=refresh_token", payload, "")
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "supabase/auth", Err: err}
	}
	if status == http.StatusBadRequest || status == http.StatusUnauthorized {
		return nil, &domain.ErrUnauthorized{Message: "Sessão expirada"}
	}
	if status < 200 || status >= 300 {
		return nil, &domain.ErrExternalService{
			Service: "supabase/auth",
			Err:     fmt.Errorf("gotrue returned status %d: %s", status, string(body)),
		}
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return nil, &domain.ErrExternalService{Service: "supabase/auth", Err: err}
	}
	return tr.toSession(), nil
}
