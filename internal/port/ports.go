// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the domain/service
// layer from concrete implementations.
package port

import (
	"context"

	"github.com/viniciusroberto/pluggy-lead-pulse/internal/domain"
)

// LeadPage is one page of leads plus the exact count of the full filtered
// set, as returned by the primary dashboard query.
type LeadPage struct {
	Leads      []domain.Lead
	TotalCount int
}

// LeadStore runs the primary filtered lead query.
type LeadStore interface {
	// QueryLeads applies the filter predicates (skipping empty/nil ones),
	// the page window, and requests an exact total count.
	QueryLeads(ctx context.Context, filters domain.DashboardFilters) (*LeadPage, error)
}

// ValidationStore reads and writes conversation review judgments.
type ValidationStore interface {
	// GetValidations batch-fetches validation rows for a set of telefones
	// in a single request. Telefones without a row are simply absent from
	// the result.
	GetValidations(ctx context.Context, telefones []int64) (map[int64]*bool, error)

	// GetValidation fetches the single validation row for one telefone.
	// Returns (nil, nil) when no row exists.
	GetValidation(ctx context.Context, telefone int64) (*domain.ConversationValidation, error)

	// InsertValidation creates the validation row for a telefone.
	InsertValidation(ctx context.Context, v *domain.ConversationValidation) error

	// UpdateValidation overwrites the existing row for v.Telefone.
	UpdateValidation(ctx context.Context, v *domain.ConversationValidation) error
}

// MessageStore reads chat transcripts.
type MessageStore interface {
	// CountMessages batch-counts chat messages for a set of telefones in a
	// single request.
	CountMessages(ctx context.Context, telefones []int64) (int, error)

	// ListMessages returns the full transcript for one telefone ordered by
	// created_at ascending.
	ListMessages(ctx context.Context, telefone int64) ([]domain.ChatMessage, error)
}

// ProfileStore reads and writes application-level user profiles.
type ProfileStore interface {
	// GetProfileByUserID returns (nil, nil) when no profile row exists for
	// the auth identity — absence is a valid state, not an error.
	GetProfileByUserID(ctx context.Context, userID string) (*domain.UserProfile, error)

	ListProfiles(ctx context.Context) ([]domain.UserProfile, error)
	UpdateProfileByUserID(ctx context.Context, userID string, updates map[string]any) error
	UpdateProfileByID(ctx context.Context, id string, updates map[string]any) error
}

// AuthGateway is the remote auth API (session issuance lives there, not here).
type AuthGateway interface {
	SignIn(ctx context.Context, email, password string) (*domain.Session, error)
	SignUp(ctx context.Context, email, password, nome string) (*domain.AuthenticatedUser, error)
	SignOut(ctx context.Context, accessToken string) error
	RefreshSession(ctx context.Context, refreshToken string) (*domain.Session, error)
}

// TokenStore persists session tokens across restarts. Keys are namespaced
// by an auth prefix so ClearAuthData can wipe them in one action.
type TokenStore interface {
	SaveSession(s *domain.Session) error
	LoadSession() (*domain.Session, error) // (nil, nil) when nothing stored
	DeleteSession() error
	ClearAuthData() error
}

// Cache provides generic caching with TTL and a stale-but-usable window.
type Cache[T any] interface {
	Get(key string) (T, bool)
	GetStale(key string) (value T, fresh bool, ok bool)
	Set(key string, value T)
	Delete(key string)
}
