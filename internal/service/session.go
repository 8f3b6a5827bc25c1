// Package service provides the business logic layer (use cases):
// session lifecycle, access guarding, dashboard aggregation, conversation
// review and admin user management.
package service

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/viniciusroberto/pluggy-lead-pulse/internal/domain"
	"github.com/viniciusroberto/pluggy-lead-pulse/internal/port"
)

var sessionTracer = otel.Tracer("service/session")

// SessionStore owns the current session: it signs users in and out against
// the remote auth service, persists the token pair locally, refreshes
// expired sessions and notifies subscribers of every change.
type SessionStore struct {
	auth   port.AuthGateway
	tokens port.TokenStore
	logger *zap.Logger

	mu      sync.RWMutex
	session *domain.Session
	subs    map[string]chan domain.SessionEvent
}

// NewSessionStore creates the session store. Call Init afterwards to
// restore any persisted session.
func NewSessionStore(auth port.AuthGateway, tokens port.TokenStore, logger *zap.Logger) *SessionStore {
	return &SessionStore{
		auth:   auth,
		tokens: tokens,
		logger: logger,
		subs:   make(map[string]chan domain.SessionEvent),
	}
}

// Init restores the persisted session, refreshing it when expired. A
// storage failure is returned as-is so the caller can offer the clear-data
// remedy instead of silently starting logged out.
func (s *SessionStore) Init(ctx context.Context) error {
	ctx, span := sessionTracer.Start(ctx, "SessionStore.Init")
	defer span.End()

	stored, err := s.tokens.LoadSession()
	if err != nil {
		var storageErr *domain.ErrStorage
		if errors.As(err, &storageErr) {
			return err
		}
		return &domain.ErrStorage{Op: "load", Err: err}
	}
	if stored == nil {
		return nil
	}

	if stored.Expired() {
		refreshed, err := s.auth.RefreshSession(ctx, stored.RefreshToken)
		if err != nil {
			s.logger.Info("session: persisted session expired and refresh failed, discarding",
				zap.Error(err),
			)
			if delErr := s.tokens.DeleteSession(); delErr != nil {
				s.logger.Warn("session: failed to discard stale session", zap.Error(delErr))
			}
			return nil
		}
		stored = refreshed
		if err := s.tokens.SaveSession(stored); err != nil {
			return err
		}
	}

	s.mu.Lock()
	s.session = stored
	s.mu.Unlock()

	s.logger.Info("session: restored persisted session",
		zap.String("user_id", stored.User.ID),
	)
	return nil
}

// ============================================================
// Sign in / sign up / sign out
// ============================================================

// SignIn authenticates against the remote auth service, persists the new
// session and notifies subscribers.
func (s *SessionStore) SignIn(ctx context.Context, email, password string) (*domain.Session, error) {
	ctx, span := sessionTracer.Start(ctx, "SessionStore.SignIn")
	defer span.End()

	if email == "" {
		return nil, &domain.ErrValidation{Field: "email", Message: "obrigatório"}
	}
	if password == "" {
		return nil, &domain.ErrValidation{Field: "password", Message: "obrigatório"}
	}

	session, err := s.auth.SignIn(ctx, email, password)
	if err != nil {
		return nil, err
	}

	if err := s.tokens.SaveSession(session); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.session = session
	s.mu.Unlock()

	s.broadcast(domain.SessionEvent{Type: domain.EventSignedIn, Session: session})
	s.logger.Info("session: signed in", zap.String("user_id", session.User.ID))
	return session, nil
}

// SignUp registers a new identity. It does not sign the new user in; the
// auth service may require email confirmation first.
func (s *SessionStore) SignUp(ctx context.Context, email, password, nome string) (*domain.AuthenticatedUser, error) {
	ctx, span := sessionTracer.Start(ctx, "SessionStore.SignUp")
	defer span.End()

	if email == "" {
		return nil, &domain.ErrValidation{Field: "email", Message: "obrigatório"}
	}
	if len(password) < 6 {
		return nil, &domain.ErrValidation{Field: "password", Message: "Senha deve ter ao menos 6 caracteres"}
	}

	return s.auth.SignUp(ctx, email, password, nome)
}

// SignOut revokes the session remotely (best effort), wipes the persisted
// copy and notifies subscribers. Signing out while already signed out is a
// no-op.
func (s *SessionStore) SignOut(ctx context.Context) error {
	ctx, span := sessionTracer.Start(ctx, "SessionStore.SignOut")
	defer span.End()

	s.mu.Lock()
	session := s.session
	s.session = nil
	s.mu.Unlock()

	if session == nil {
		return nil
	}

	if err := s.auth.SignOut(ctx, session.AccessToken); err != nil {
		s.logger.Warn("session: remote sign-out failed, clearing locally anyway",
			zap.Error(err),
		)
	}

	if err := s.tokens.DeleteSession(); err != nil {
		return err
	}

	s.broadcast(domain.SessionEvent{Type: domain.EventSignedOut})
	s.logger.Info("session: signed out", zap.String("user_id", session.User.ID))
	return nil
}

// ============================================================
// Session access
// ============================================================

// CurrentSession returns the active session, refreshing it first when
// expired. A failed refresh forces a local sign-out and returns (nil, nil):
// an absent session is a state, not an error.
func (s *SessionStore) CurrentSession(ctx context.Context) (*domain.Session, error) {
	ctx, span := sessionTracer.Start(ctx, "SessionStore.CurrentSession")
	defer span.End()

	s.mu.RLock()
	session := s.session
	s.mu.RUnlock()

	if session == nil {
		return nil, nil
	}
	if !session.Expired() {
		return session, nil
	}

	refreshed, err := s.auth.RefreshSession(ctx, session.RefreshToken)
	if err != nil {
		s.logger.Info("session: refresh failed, forcing sign-out", zap.Error(err))
		s.forceSignOut()
		return nil, nil
	}

	if err := s.tokens.SaveSession(refreshed); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.session = refreshed
	s.mu.Unlock()

	s.broadcast(domain.SessionEvent{Type: domain.EventTokenRefreshed, Session: refreshed})
	return refreshed, nil
}

// ClearAuthData wipes all persisted auth state and drops the in-memory
// session. This is the recovery path for corrupt local storage.
func (s *SessionStore) ClearAuthData() error {
	if err := s.tokens.ClearAuthData(); err != nil {
		return err
	}
	s.forceSignOut()
	return nil
}

func (s *SessionStore) forceSignOut() {
	s.mu.Lock()
	had := s.session != nil
	s.session = nil
	s.mu.Unlock()

	if err := s.tokens.DeleteSession(); err != nil {
		s.logger.Warn("session: failed to delete persisted session", zap.Error(err))
	}
	if had {
		s.broadcast(domain.SessionEvent{Type: domain.EventSignedOut})
	}
}

// ============================================================
// Subscriptions
// ============================================================

// Subscribe registers a listener for session changes. The current session
// snapshot is delivered immediately as an EventInitial so subscribers start
// from known state; consumers that already resolved the session must skip
// it. The returned function cancels the subscription.
func (s *SessionStore) Subscribe() (<-chan domain.SessionEvent, func()) {
	ch := make(chan domain.SessionEvent, 8)

	s.mu.Lock()
	id := uuid.NewString()
	s.subs[id] = ch
	snapshot := s.session
	s.mu.Unlock()

	ch <- domain.SessionEvent{Type: domain.EventInitial, Session: snapshot}

	unsubscribe := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if sub, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(sub)
		}
	}
	return ch, unsubscribe
}

// broadcast delivers an event to every subscriber without blocking; a
// subscriber that stopped draining its channel loses events rather than
// wedging the store.
func (s *SessionStore) broadcast(event domain.SessionEvent) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, ch := range s.subs {
		select {
		case ch <- event:
		default:
		}
	}
}
