package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/viniciusroberto/pluggy-lead-pulse/internal/domain"
	"github.com/viniciusroberto/pluggy-lead-pulse/internal/port"
)

var guardTracer = otel.Tracer("service/guard")

const (
	msgSessionTimeout = "Tempo esgotado ao verificar a sessão"
	msgStorageFailure = "Falha ao acessar os dados de autenticação locais"
	msgNoProfile      = "Perfil não encontrado. Contate o administrador."
	msgInactive       = "Usuário desativado. Contate o administrador para reativação."
)

// AccessGuard resolves who the caller is and what they may see. It moves
// through uninitialized → initializing → one of the steady states, and a
// session change or Retry sends it back through initializing.
type AccessGuard struct {
	sessions    *SessionStore
	profiles    port.ProfileStore
	initTimeout time.Duration
	logger      *zap.Logger

	mu       sync.RWMutex
	state    domain.AuthState
	user     *domain.AuthenticatedUser
	profile  *domain.UserProfile
	errMsg   string
	attempts int

	unsubscribe func()
}

// NewAccessGuard creates the guard in the uninitialized state.
func NewAccessGuard(sessions *SessionStore, profiles port.ProfileStore, initTimeout time.Duration, logger *zap.Logger) *AccessGuard {
	return &AccessGuard{
		sessions:    sessions,
		profiles:    profiles,
		initTimeout: initTimeout,
		logger:      logger,
		state:       domain.AuthUninitialized,
	}
}

// Start runs the first resolution and subscribes to session changes so the
// guard re-resolves whenever the session store reports a change. The
// initial snapshot event is skipped: Initialize already covers it.
func (g *AccessGuard) Start(ctx context.Context) {
	g.Initialize(ctx)

	events, unsub := g.sessions.Subscribe()
	g.mu.Lock()
	g.unsubscribe = unsub
	g.mu.Unlock()

	go func() {
		for event := range events {
			if event.Type == domain.EventInitial {
				continue
			}
			g.logger.Debug("guard: session changed, re-resolving",
				zap.String("event", string(event.Type)),
			)
			g.Initialize(context.Background())
		}
	}()
}

// Stop cancels the session subscription.
func (g *AccessGuard) Stop() {
	g.mu.Lock()
	unsub := g.unsubscribe
	g.unsubscribe = nil
	g.mu.Unlock()
	if unsub != nil {
		unsub()
	}
}

// Initialize resolves the session and profile under a bounded timeout and
// settles the guard into a steady state.
func (g *AccessGuard) Initialize(ctx context.Context) {
	ctx, span := guardTracer.Start(ctx, "AccessGuard.Initialize")
	defer span.End()

	g.mu.Lock()
	g.state = domain.AuthInitializing
	g.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, g.initTimeout)
	defer cancel()

	session, err := g.sessions.CurrentSession(ctx)
	if err != nil {
		msg := "Erro ao verificar a sessão"
		var storageErr *domain.ErrStorage
		if errors.As(err, &storageErr) {
			msg = msgStorageFailure
		}
		g.enterError(msg, err)
		return
	}
	if ctx.Err() != nil {
		g.enterError(msgSessionTimeout, ctx.Err())
		return
	}

	if session == nil {
		g.mu.Lock()
		g.state = domain.AuthUnauthenticated
		g.user = nil
		g.profile = nil
		g.errMsg = ""
		g.mu.Unlock()
		return
	}

	user := session.User

	// Profile resolution is non-fatal: a missing or unreachable profile
	// still leaves the user authenticated.
	profile, err := g.profiles.GetProfileByUserID(ctx, user.ID)
	if err != nil {
		g.logger.Warn("guard: profile lookup failed, treating as absent",
			zap.String("user_id", user.ID),
			zap.Error(err),
		)
		profile = nil
	}

	g.mu.Lock()
	g.user = &user
	g.profile = profile
	g.errMsg = ""
	if profile == nil {
		g.state = domain.AuthNoProfile
	} else {
		g.state = domain.AuthWithProfile
	}
	g.mu.Unlock()
}

func (g *AccessGuard) enterError(msg string, err error) {
	g.mu.Lock()
	g.state = domain.AuthError
	g.errMsg = msg
	g.attempts++
	attempts := g.attempts
	g.mu.Unlock()

	g.logger.Warn("guard: initialization failed",
		zap.String("message", msg),
		zap.Int("attempts", attempts),
		zap.Error(err),
	)
}

// Retry clears the error state and re-runs initialization. It is a state
// transition, not a new guard: the attempt counter survives.
func (g *AccessGuard) Retry(ctx context.Context) {
	g.mu.Lock()
	g.errMsg = ""
	g.mu.Unlock()
	g.Initialize(ctx)
}

// ============================================================
// Rendering contract
// ============================================================

// Decision maps the current state to what the route layer should do with
// the request. While initializing it reports loading, never a redirect, so
// a slow session check cannot bounce a logged-in user to the login page.
func (g *AccessGuard) Decision(requireAdmin bool) domain.AccessDecision {
	g.mu.RLock()
	defer g.mu.RUnlock()

	switch g.state {
	case domain.AuthUninitialized, domain.AuthInitializing:
		return domain.AccessLoading

	case domain.AuthUnauthenticated:
		return domain.AccessRedirectLogin

	case domain.AuthError:
		// Timeout errors grant basic access; admin views still require a
		// clean resolution.
		if strings.Contains(g.errMsg, "Tempo esgotado") && !requireAdmin {
			return domain.AccessAllow
		}
		return domain.AccessErrorRetry

	case domain.AuthNoProfile:
		// A user without a provisioned profile keeps basic access; only
		// admin-gated content reports the missing profile.
		if requireAdmin {
			return domain.AccessDenyNoProfile
		}
		return domain.AccessAllow

	case domain.AuthWithProfile:
		if !g.profile.IsActive {
			return domain.AccessDenyInactive
		}
		if requireAdmin && g.profile.Role != "admin" {
			return domain.AccessDenyNotAdmin
		}
		return domain.AccessAllow
	}

	return domain.AccessRedirectLogin
}

// Status snapshots the guard for the auth status endpoint.
func (g *AccessGuard) Status(requireAdmin bool) domain.GuardStatusResponse {
	decision := g.Decision(requireAdmin)

	g.mu.RLock()
	defer g.mu.RUnlock()

	msg := g.errMsg
	switch decision {
	case domain.AccessDenyNoProfile:
		msg = msgNoProfile
	case domain.AccessDenyInactive:
		msg = msgInactive
	}

	return domain.GuardStatusResponse{
		State:           g.state,
		Decision:        decision,
		Message:         msg,
		Attempts:        g.attempts,
		IsAuthenticated: g.user != nil && g.state != domain.AuthUnauthenticated,
		IsActive:        g.profile != nil && g.profile.IsActive,
		IsAdmin:         g.profile != nil && g.profile.IsActive && g.profile.Role == "admin",
	}
}

// ============================================================
// Predicates
// ============================================================

// IsAuthenticated reports whether a user identity is present; a profile is
// not required, and a resolved user survives a later error state.
func (g *AccessGuard) IsAuthenticated() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.user != nil && g.state != domain.AuthUnauthenticated
}

// IsActive reports whether the resolved profile is active.
func (g *AccessGuard) IsActive() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.profile != nil && g.profile.IsActive
}

// IsAdmin reports whether the resolved profile is an active administrator.
func (g *AccessGuard) IsAdmin() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.profile != nil && g.profile.IsActive && g.profile.Role == "admin"
}

// Profile returns the resolved profile, which may be nil.
func (g *AccessGuard) Profile() *domain.UserProfile {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.profile
}

// User returns the resolved user, which may be nil.
func (g *AccessGuard) User() *domain.AuthenticatedUser {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.user
}
