package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/viniciusroberto/pluggy-lead-pulse/internal/domain"
	"github.com/viniciusroberto/pluggy-lead-pulse/internal/infra/resilience"
)

// ============================================================
// ProfileStore implementation — usuarios_dashboard table
// ============================================================

type profileRow struct {
	ID          string  `json:"id"`
	UserID      *string `json:"user_id"`
	Email       *string `json:"email"`
	Nome        *string `json:"nome"`
	Role        *string `json:"role"`
	IsActive    *bool   `json:"is_active"`
	LastLoginAt *string `json:"last_login_at"`
	CreatedAt   *string `json:"created_at"`
	UpdatedAt   *string `json:"updated_at"`
}

func (r profileRow) toDomain() domain.UserProfile {
	p := domain.UserProfile{
		ID:          r.ID,
		UserID:      deref(r.UserID),
		Email:       deref(r.Email),
		Nome:        deref(r.Nome),
		Role:        deref(r.Role),
		LastLoginAt: parseTimestamp(r.LastLoginAt),
	}
	if r.IsActive != nil {
		p.IsActive = *r.IsActive
	}
	if t := parseTimestamp(r.CreatedAt); t != nil {
		p.CreatedAt = *t
	}
	if t := parseTimestamp(r.UpdatedAt); t != nil {
		p.UpdatedAt = *t
	}
	return p
}

// GetProfileByUserID looks up the profile row linked to an auth identity.
// Absence is a valid state, returned as (nil, nil).
func (c *Client) GetProfileByUserID(ctx context.Context, userID string) (*domain.UserProfile, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetProfileByUserID")
	defer span.End()

	path := "usuarios_dashboard?" + param("user_id", "eq."+userID) + "&limit=1"

	var profile *domain.UserProfile

	_, err := c.cb.Execute(func() (any, error) {
		return nil, resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			body, err := c.doRequest(ctx, http.MethodGet, path)
			if err != nil {
				return err
			}
			if body == nil {
				return nil
			}

			var rows []profileRow
			if err := json.Unmarshal(body, &rows); err != nil {
				return fmt.Errorf("failed to decode profile: %w", err)
			}
			if len(rows) == 0 {
				return nil
			}
			p := rows[0].toDomain()
			profile = &p
			return nil
		})
	})

	if err != nil {
		return nil, &domain.ErrExternalService{Service: "supabase/profiles", Err: err}
	}

	return profile, nil
}

// ListProfiles returns every dashboard profile, newest first.
func (c *Client) ListProfiles(ctx context.Context) ([]domain.UserProfile, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListProfiles")
	defer span.End()

	path := "usuarios_dashboard?select=*&order=created_at.desc"

	var profiles []domain.UserProfile

	_, err := c.cb.Execute(func() (any, error) {
		return nil, resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			body, err := c.doRequest(ctx, http.MethodGet, path)
			if err != nil {
				return err
			}

			var rows []profileRow
			if len(body) > 0 {
				if err := json.Unmarshal(body, &rows); err != nil {
					return fmt.Errorf("failed to decode profiles: %w", err)
				}
			}

			profiles = make([]domain.UserProfile, 0, len(rows))
			for _, r := range rows {
				profiles = append(profiles, r.toDomain())
			}
			return nil
		})
	})

	if err != nil {
		return nil, &domain.ErrExternalService{Service: "supabase/profiles", Err: err}
	}

	return profiles, nil
}

// UpdateProfileByUserID patches the profile row linked to an auth identity.
func (c *Client) UpdateProfileByUserID(ctx context.Context, userID string, updates map[string]any) error {
	ctx, span := tracer.Start(ctx, "Supabase.UpdateProfileByUserID")
	defer span.End()

	path := "usuarios_dashboard?" + param("user_id", "eq."+userID)
	if err := c.doPatch(ctx, path, updates); err != nil {
		return &domain.ErrExternalService{Service: "supabase/profiles", Err: err}
	}
	return nil
}

// UpdateProfileByID patches a profile row by its primary key.
func (c *Client) UpdateProfileByID(ctx context.Context, id string, updates map[string]any) error {
	ctx, span := tracer.Start(ctx, "Supabase.UpdateProfileByID")
	defer span.End()

	path := "usuarios_dashboard?" + param("id", "eq."+id)
	if err := c.doPatch(ctx, path, updates); err != nil {
		return &domain.ErrExternalService{Service: "supabase/profiles", Err: err}
	}
	return nil
}
