package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"topicrelay/internal/domain"
)

// TicketRepo stores verification tickets under ticket:<id>
type TicketRepo struct {
	kv KVStore
}

// NewTicketRepo creates a new ticket repository
func NewTicketRepo(kv KVStore) *TicketRepo {
	return &TicketRepo{kv: kv}
}

// Create stores a ticket that expires after ttl
func (r *TicketRepo) Create(ctx context.Context, ticket domain.Ticket, ttl time.Duration) error {
	raw, err := json.Marshal(ticket)
	if err != nil {
		return fmt.Errorf("encode ticket: %w", err)
	}
	return r.kv.Put(ctx, ticketKey(ticket.ID), string(raw), ttl)
}

// Get returns ErrNotFound for unknown or expired tickets
func (r *TicketRepo) Get(ctx context.Context, ticketID string) (domain.Ticket, error) {
	raw, err := r.kv.Get(ctx, ticketKey(ticketID))
	if err != nil {
		return domain.Ticket{}, err
	}
	var ticket domain.Ticket
	if err := json.Unmarshal([]byte(raw), &ticket); err != nil {
		return domain.Ticket{}, fmt.Errorf("decode ticket %s: %w", ticketID, err)
	}
	return ticket, nil
}

// Delete removes a ticket
func (r *TicketRepo) Delete(ctx context.Context, ticketID string) error {
	return r.kv.Delete(ctx, ticketKey(ticketID))
}

// All returns every live ticket
func (r *TicketRepo) All(ctx context.Context) ([]domain.Ticket, error) {
	keys, err := r.kv.List(ctx, prefixTicket, DefaultListLimit)
	if err != nil {
		return nil, fmt.Errorf("list tickets: %w", err)
	}

	tickets := make([]domain.Ticket, 0, len(keys))
	for _, key := range keys {
		ticket, err := r.Get(ctx, key[len(prefixTicket):])
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		tickets = append(tickets, ticket)
	}
	return tickets, nil
}

// DeleteOwnedBy removes every ticket owned by userID and returns how many were removed
func (r *TicketRepo) DeleteOwnedBy(ctx context.Context, userID int64) (int, error) {
	tickets, err := r.All(ctx)
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, ticket := range tickets {
		if ticket.UserID != userID {
			continue
		}
		if err := r.Delete(ctx, ticket.ID); err != nil {
			return removed, fmt.Errorf("delete ticket %s: %w", ticket.ID, err)
		}
		removed++
	}
	return removed, nil
}
