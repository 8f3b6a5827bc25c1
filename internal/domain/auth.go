package domain

import "time"

// ============================================================
// Session / identity
// ============================================================

// AuthenticatedUser is the identity issued by the remote auth service.
// Its lifetime is bound to the Session that carries it.
type AuthenticatedUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Session is the opaque token pair issued by the remote auth service plus
// its expiry. Owned exclusively by the session store: created on sign-in,
// refreshed remotely, destroyed on sign-out or expiry.
type Session struct {
	AccessToken  string            `json:"access_token"`
	RefreshToken string            `json:"refresh_token"`
	ExpiresAt    time.Time         `json:"expires_at"`
	User         AuthenticatedUser `json:"user"`
}

// Expired reports whether the session's expiry timestamp is in the past.
func (s *Session) Expired() bool {
	return s != nil && !s.ExpiresAt.IsZero() && s.ExpiresAt.Before(time.Now())
}

// UserProfile is the application-level profile record for a dashboard user.
// Created by an external provisioning step, so it may not exist for every
// authenticated identity — absence is a valid, handled state.
type UserProfile struct {
	ID          string     `json:"id"`
	UserID      string     `json:"user_id"`
	Email       string     `json:"email"`
	Nome        string     `json:"nome"`
	Role        string     `json:"role"` // "admin" | "user"
	IsActive    bool       `json:"is_active"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// ============================================================
// Session change events
// ============================================================

// SessionEventType identifies what changed in the session store.
type SessionEventType string

const (
	// EventInitial is the synthetic snapshot delivered to a new subscriber.
	// Consumers that already resolved the session at startup must skip it to
	// avoid double profile-resolution.
	EventInitial        SessionEventType = "initial"
	EventSignedIn       SessionEventType = "signed_in"
	EventSignedOut      SessionEventType = "signed_out"
	EventTokenRefreshed SessionEventType = "token_refreshed"
)

// SessionEvent is delivered to session store subscribers.
type SessionEvent struct {
	Type    SessionEventType
	Session *Session
}

// ============================================================
// Auth state machine
// ============================================================

// AuthState is the access guard's current state.
type AuthState string

const (
	AuthUninitialized   AuthState = "uninitialized"
	AuthInitializing    AuthState = "initializing"
	AuthWithProfile     AuthState = "authenticated-with-profile"
	AuthNoProfile       AuthState = "authenticated-no-profile"
	AuthUnauthenticated AuthState = "unauthenticated"
	AuthError           AuthState = "error"
)

// AccessDecision is what the route layer does with a guarded request.
type AccessDecision string

const (
	AccessAllow         AccessDecision = "allow"
	AccessLoading       AccessDecision = "loading"
	AccessRedirectLogin AccessDecision = "redirect-login"
	AccessDenyNoProfile AccessDecision = "deny-no-profile"
	AccessDenyInactive  AccessDecision = "deny-inactive"
	AccessDenyNotAdmin  AccessDecision = "deny-not-admin"
	AccessErrorRetry    AccessDecision = "error-retry"
)

// ============================================================
// Auth — Request / Response types (matches frontend API contract)
// ============================================================

// LoginRequest is the body for POST /v1/auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignUpRequest is the body for POST /v1/auth/signup.
type SignUpRequest struct {
	Nome     string `json:"nome"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SessionResponse is returned by login and session endpoints.
type SessionResponse struct {
	AccessToken  string             `json:"accessToken"`
	RefreshToken string             `json:"refreshToken"`
	ExpiresAt    time.Time          `json:"expiresAt"`
	User         *AuthenticatedUser `json:"user"`
	Profile      *UserProfile       `json:"profile,omitempty"`
}

// GuardStatusResponse exposes the guard state to the route layer.
type GuardStatusResponse struct {
	State           AuthState      `json:"state"`
	Decision        AccessDecision `json:"decision"`
	Message         string         `json:"message,omitempty"`
	Attempts        int            `json:"attempts,omitempty"`
	IsAuthenticated bool           `json:"isAuthenticated"`
	IsActive        bool           `json:"isActive"`
	IsAdmin         bool           `json:"isAdmin"`
}

// ============================================================
// Admin user management
// ============================================================

// CreateUserRequest is the body for POST /v1/admin/users.
type CreateUserRequest struct {
	Nome     string `json:"nome"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
	IsActive bool   `json:"isActive"`
}

// UpdateUserRequest is the body for PATCH /v1/admin/users/{id}.
// Nil fields are left untouched.
type UpdateUserRequest struct {
	Nome     *string `json:"nome,omitempty"`
	Role     *string `json:"role,omitempty"`
	IsActive *bool   `json:"isActive,omitempty"`
}

// SuccessResponse is a generic message envelope.
type SuccessResponse struct {
	Message string `json:"message"`
}
