package service

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/viniciusroberto/pluggy-lead-pulse/internal/domain"
	"github.com/viniciusroberto/pluggy-lead-pulse/internal/port"
)

var usersTracer = otel.Tracer("service/users")

// UserService handles admin management of dashboard users.
type UserService struct {
	auth     port.AuthGateway
	profiles port.ProfileStore
	logger   *zap.Logger
}

// NewUserService creates the admin user service.
func NewUserService(auth port.AuthGateway, profiles port.ProfileStore, logger *zap.Logger) *UserService {
	return &UserService{auth: auth, profiles: profiles, logger: logger}
}

// ListUsers returns every dashboard profile, newest first.
func (s *UserService) ListUsers(ctx context.Context) ([]domain.UserProfile, error) {
	ctx, span := usersTracer.Start(ctx, "UserService.ListUsers")
	defer span.End()

	return s.profiles.ListProfiles(ctx)
}

// CreateUser registers a new auth identity and then sets role and activity
// on the profile row provisioned for it. The two steps are not
// transactional: if the profile update fails the identity already exists
// and the error surfaces to the caller.
func (s *UserService) CreateUser(ctx context.Context, req *domain.CreateUserRequest) (*domain.AuthenticatedUser, error) {
	ctx, span := usersTracer.Start(ctx, "UserService.CreateUser")
	defer span.End()

	if err := validateCreateUser(req); err != nil {
		return nil, err
	}

	role := req.Role
	if role == "" {
		role = "user"
	}

	user, err := s.auth.SignUp(ctx, req.Email, req.Password, req.Nome)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{
		"nome":      req.Nome,
		"role":      role,
		"is_active": req.IsActive,
	}
	if err := s.profiles.UpdateProfileByUserID(ctx, user.ID, updates); err != nil {
		s.logger.Error("users: identity created but profile update failed",
			zap.String("user_id", user.ID),
			zap.Error(err),
		)
		return nil, err
	}

	s.logger.Info("users: created",
		zap.String("user_id", user.ID),
		zap.String("role", role),
	)
	return user, nil
}

// UpdateUser patches nome, role and activity on a profile by its id. Nil
// request fields are left untouched.
func (s *UserService) UpdateUser(ctx context.Context, id string, req *domain.UpdateUserRequest) error {
	ctx, span := usersTracer.Start(ctx, "UserService.UpdateUser")
	defer span.End()

	if id == "" {
		return &domain.ErrValidation{Field: "id", Message: "obrigatório"}
	}

	updates := map[string]any{}
	if req.Nome != nil {
		updates["nome"] = *req.Nome
	}
	if req.Role != nil {
		if *req.Role != "admin" && *req.Role != "user" {
			return &domain.ErrValidation{Field: "role", Message: "deve ser admin ou user"}
		}
		updates["role"] = *req.Role
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}
	if len(updates) == 0 {
		return &domain.ErrValidation{Field: "body", Message: "nenhum campo para atualizar"}
	}

	if err := s.profiles.UpdateProfileByID(ctx, id, updates); err != nil {
		return err
	}

	s.logger.Info("users: updated", zap.String("id", id))
	return nil
}

func validateCreateUser(req *domain.CreateUserRequest) error {
	if req.Nome == "" {
		return &domain.ErrValidation{Field: "nome", Message: "obrigatório"}
	}
	if req.Email == "" || !strings.Contains(req.Email, "@") {
		return &domain.ErrValidation{Field: "email", Message: "e-mail inválido"}
	}
	if len(req.Password) < 6 {
		return &domain.ErrValidation{Field: "password", Message: "Senha deve ter ao menos 6 caracteres"}
	}
	if req.Role != "" && req.Role != "admin" && req.Role != "user" {
		return &domain.ErrValidation{Field: "role", Message: "deve ser admin ou user"}
	}
	return nil
}
