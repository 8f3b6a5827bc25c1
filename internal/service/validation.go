package service

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/viniciusroberto/pluggy-lead-pulse/internal/domain"
	"github.com/viniciusroberto/pluggy-lead-pulse/internal/port"
)

var validationTracer = otel.Tracer("service/validation")

// ValidationService handles conversation transcripts and manual review
// judgments.
type ValidationService struct {
	validations port.ValidationStore
	messages    port.MessageStore
	logger      *zap.Logger
}

// NewValidationService creates the review service.
func NewValidationService(validations port.ValidationStore, messages port.MessageStore, logger *zap.Logger) *ValidationService {
	return &ValidationService{
		validations: validations,
		messages:    messages,
		logger:      logger,
	}
}

// Transcript returns the full chat history for one telefone in
// chronological order, with per-sender counts.
func (s *ValidationService) Transcript(ctx context.Context, telefone int64) (*domain.Transcript, error) {
	ctx, span := validationTracer.Start(ctx, "ValidationService.Transcript")
	defer span.End()
	span.SetAttributes(attribute.Int64("lead.telefone", telefone))

	messages, err := s.messages.ListMessages(ctx, telefone)
	if err != nil {
		return nil, err
	}

	t := &domain.Transcript{
		Telefone:      telefone,
		Messages:      messages,
		TotalMessages: len(messages),
	}
	for _, m := range messages {
		switch m.TipoMsg {
		case "ia":
			t.IAMessages++
		case "human":
			t.HumanMessages++
		}
	}
	return t, nil
}

// ValidationStatus returns the review judgment for one telefone. A lead
// that was never reviewed is pendente, not an error.
func (s *ValidationService) ValidationStatus(ctx context.Context, telefone int64) (*domain.ConversationValidation, error) {
	ctx, span := validationTracer.Start(ctx, "ValidationService.ValidationStatus")
	defer span.End()

	v, err := s.validations.GetValidation(ctx, telefone)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return &domain.ConversationValidation{Telefone: telefone}, nil
	}
	return v, nil
}

// SaveValidation records a review judgment, keeping at most one row per
// telefone: an existing row is updated, otherwise one is inserted.
func (s *ValidationService) SaveValidation(ctx context.Context, telefone int64, validada bool, observacoes, reviewerID string) error {
	ctx, span := validationTracer.Start(ctx, "ValidationService.SaveValidation")
	defer span.End()
	span.SetAttributes(attribute.Int64("lead.telefone", telefone))

	existing, err := s.validations.GetValidation(ctx, telefone)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	v := &domain.ConversationValidation{
		Telefone:    telefone,
		Validada:    &validada,
		Observacoes: observacoes,
		ValidadoPor: reviewerID,
		ValidadoEm:  &now,
	}

	if existing != nil {
		err = s.validations.UpdateValidation(ctx, v)
	} else {
		err = s.validations.InsertValidation(ctx, v)
	}
	if err != nil {
		return err
	}

	s.logger.Info("validation: judgment saved",
		zap.Int64("telefone", telefone),
		zap.Bool("validada", validada),
		zap.String("reviewer", reviewerID),
	)
	return nil
}
