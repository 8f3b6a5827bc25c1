package service_test

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/viniciusroberto/pluggy-lead-pulse/internal/domain"
	"github.com/viniciusroberto/pluggy-lead-pulse/internal/service"
)

func TestTranscript_CountsBySender(t *testing.T) {
	messages := &fakeMessageStore{messages: []domain.ChatMessage{
		{Telefone: 1, Mensagem: "Olá", TipoMsg: "ia"},
		{Telefone: 1, Mensagem: "Oi, tudo bem?", TipoMsg: "human"},
		{Telefone: 1, Mensagem: "Tudo! Como posso ajudar?", TipoMsg: "ia"},
	}}
	svc := service.NewValidationService(&fakeValidationStore{}, messages, zap.NewNop())

	transcript, err := svc.Transcript(context.Background(), 1)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if transcript.TotalMessages != 3 {
		t.Errorf("expected 3 messages, got %d", transcript.TotalMessages)
	}
	if transcript.IAMessages != 2 || transcript.HumanMessages != 1 {
		t.Errorf("unexpected split: ia=%d human=%d", transcript.IAMessages, transcript.HumanMessages)
	}
}

func TestValidationStatus_UnreviewedIsPendente(t *testing.T) {
	svc := service.NewValidationService(&fakeValidationStore{}, &fakeMessageStore{}, zap.NewNop())

	v, err := svc.ValidationStatus(context.Background(), 42)
	if err != nil {
		t.Fatalf("an unreviewed lead is not an error: %v", err)
	}
	if v.Status() != domain.ValidationPendente {
		t.Errorf("expected pendente, got %s", v.Status())
	}
}

func TestSaveValidation_InsertsWhenAbsent(t *testing.T) {
	store := &fakeValidationStore{}
	svc := service.NewValidationService(store, &fakeMessageStore{}, zap.NewNop())

	if err := svc.SaveValidation(context.Background(), 42, true, "conversa ok", "reviewer-1"); err != nil {
		t.Fatalf("expected save to succeed, got %v", err)
	}
	if store.inserted == nil {
		t.Fatal("expected an insert for a lead without a review row")
	}
	if store.updated != nil {
		t.Error("must not update when no row exists")
	}
	if store.inserted.Validada == nil || !*store.inserted.Validada {
		t.Error("expected validada=true to be recorded")
	}
	if store.inserted.ValidadoPor != "reviewer-1" {
		t.Errorf("expected reviewer to be recorded, got %q", store.inserted.ValidadoPor)
	}
	if store.inserted.ValidadoEm == nil || time.Since(*store.inserted.ValidadoEm) > time.Minute {
		t.Error("expected a recent validado_em timestamp")
	}
}

func TestSaveValidation_UpdatesExistingRow(t *testing.T) {
	existing := &domain.ConversationValidation{ID: 7, Telefone: 42, Validada: boolPtr(true)}
	store := &fakeValidationStore{single: existing}
	svc := service.NewValidationService(store, &fakeMessageStore{}, zap.NewNop())

	if err := svc.SaveValidation(context.Background(), 42, false, "não qualificada", "reviewer-2"); err != nil {
		t.Fatalf("expected save to succeed, got %v", err)
	}
	if store.updated == nil {
		t.Fatal("expected an update for an existing review row")
	}
	if store.inserted != nil {
		t.Error("must not insert a second row for the same telefone")
	}
	if store.updated.Validada == nil || *store.updated.Validada {
		t.Error("expected validada=false to overwrite the previous judgment")
	}
}
