package db

import (
	"context"
	"fmt"
)

// Sequencer hands out strictly increasing per-entity sequence numbers backed
// by the entity_counter table. The increment is a single atomic upsert, so
// concurrent creations of the same entity type cannot produce duplicates.
type Sequencer struct {
	q Queryable
}

func NewSequencer(q Queryable) *Sequencer {
	return &Sequencer{q: q}
}

func (s *Sequencer) conn(ctx context.Context) Queryable {
	if tx := TxFromContext(ctx); tx != nil {
		return tx
	}
	return s.q
}

// Next returns the next sequence number for the given entity type.
func (s *Sequencer) Next(ctx context.Context, entity string) (int64, error) {
	var n int64
	err := s.conn(ctx).QueryRow(ctx, `
		INSERT INTO entity_counter (entity, value) VALUES ($1, 1)
		ON CONFLICT (entity) DO UPDATE SET value = entity_counter.value + 1
		RETURNING value`, entity).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("next sequence for %s: %w", entity, err)
	}
	return n, nil
}

// NextFormatted returns the next sequence number rendered with the given
// prefix, e.g. NextFormatted(ctx, "patient", "PAT") -> "PAT-00007".
func (s *Sequencer) NextFormatted(ctx context.Context, entity, prefix string) (string, error) {
	n, err := s.Next(ctx, entity)
	if err != nil {
		return "", err
	}
	return FormatSequence(prefix, n), nil
}

// FormatSequence renders a sequence number in the human-readable form used
// across the system: PREFIX-00001.
func FormatSequence(prefix string, n int64) string {
	return fmt.Sprintf("%s-%05d", prefix, n)
}
