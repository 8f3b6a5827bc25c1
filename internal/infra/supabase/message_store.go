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
// MessageStore implementation — chat_pluggy table
// ============================================================

type chatRow struct {
	ID        int64   `json:"id"`
	Telefone  int64   `json:"telefone"`
	Mensagem  *string `json:"mensagem"`
	Nome      *string `json:"nome"`
	TipoMsg   *string `json:"tipo_msg"`
	CreatedAt *string `json:"created_at"`
	Timestamp *string `json:"timestamp"`
}

func (r chatRow) toDomain() domain.ChatMessage {
	msg := domain.ChatMessage{
		ID:        r.ID,
		Telefone:  r.Telefone,
		Mensagem:  deref(r.Mensagem),
		Nome:      deref(r.Nome),
		TipoMsg:   deref(r.TipoMsg),
		Timestamp: parseTimestamp(r.Timestamp),
	}
	if t := parseTimestamp(r.CreatedAt); t != nil {
		msg.CreatedAt = *t
	}
	return msg
}

// CountMessages batch-counts chat messages for a set of telefones. A single
// counted request does the work; the rows themselves are not needed.
func (c *Client) CountMessages(ctx context.Context, telefones []int64) (int, error) {
	ctx, span := tracer.Start(ctx, "Supabase.CountMessages")
	defer span.End()

	if len(telefones) == 0 {
		return 0, nil
	}

	path := "chat_pluggy?select=id&" + param("telefone", inListInt64(telefones)) + "&limit=1"

	var count int

	_, err := c.cb.Execute(func() (any, error) {
		return nil, resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			_, total, err := c.doGetWithCount(ctx, path)
			if err != nil {
				return err
			}
			if total < 0 {
				total = 0
			}
			count = total
			return nil
		})
	})

	if err != nil {
		return 0, &domain.ErrExternalService{Service: "supabase/chat", Err: err}
	}

	return count, nil
}

// ListMessages returns the full transcript for one telefone in chronological
// order.
func (c *Client) ListMessages(ctx context.Context, telefone int64) ([]domain.ChatMessage, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListMessages")
	defer span.End()

	path := fmt.Sprintf("chat_pluggy?telefone=eq.%d&order=created_at.asc", telefone)

	var messages []domain.ChatMessage

	_, err := c.cb.Execute(func() (any, error) {
		return nil, resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			body, err := c.doRequest(ctx, http.MethodGet, path)
			if err != nil {
				return err
			}

			var rows []chatRow
			if len(body) > 0 {
				if err := json.Unmarshal(body, &rows); err != nil {
					return fmt.Errorf("failed to decode chat messages: %w", err)
				}
			}

			messages = make([]domain.ChatMessage, 0, len(rows))
			for _, r := range rows {
				messages = append(messages, r.toDomain())
			}
			return nil
		})
	})

	if err != nil {
		return nil, &domain.ErrExternalService{Service: "supabase/chat", Err: err}
	}

	return messages, nil
}
