package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	pfirestore "github.com/pxa264/e-shop-sub001/internal/platform/firestore"
	"github.com/pxa264/e-shop-sub001/internal/repositories"
)

const countersCollection = "counters"

type counterDocument struct {
	CurrentValue int64     `firestore:"currentValue"`
	Step         int64     `firestore:"step"`
	UpdatedAt    time.Time `firestore:"updatedAt"`
}

// CounterRepository implements transaction-safe sequence numbers.
type CounterRepository struct {
	provider *pfirestore.Provider
}

// NewCounterRepository constructs a Firestore-backed counter repository.
func NewCounterRepository(provider *pfirestore.Provider) (*CounterRepository, error) {
	if provider == nil {
		return nil, errors.New("counter repository requires firestore provider")
	}
	return &CounterRepository{provider: provider}, nil
}

// Next atomically increments the counter identified by counterID and returns the new value.
func (r *CounterRepository) Next(ctx context.Context, counterID string, step int64) (int64, error) {
	if r == nil || r.provider == nil {
		return 0, errors.New("counter repository not initialised")
	}
	id := strings.TrimSpace(counterID)
	if id == "" {
		return 0, errors.New("counter repository: counter id is required")
	}
	if step <= 0 {
		step = 1
	}

	now := time.Now().UTC()
	var nextValue int64

	err := r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		client, err := r.provider.Client(ctx)
		if err != nil {
			return err
		}
		ref := client.Collection(countersCollection).Doc(id)

		snap, err := tx.Get(ref)
		switch status.Code(err) {
		case codes.NotFound:
			doc := counterDocument{CurrentValue: step, Step: step, UpdatedAt: now}
			if err := tx.Create(ref, doc); err != nil {
				return err
			}
			nextValue = doc.CurrentValue
			return nil
		case codes.OK:
		default:
			return err
		}

		var doc counterDocument
		if err := snap.DataTo(&doc); err != nil {
			return fmt.Errorf("decode counter %s: %w", id, err)
		}

		doc.CurrentValue += step
		doc.Step = step
		doc.UpdatedAt = now

		if err := tx.Set(ref, doc); err != nil {
			return err
		}
		nextValue = doc.CurrentValue
		return nil
	})
	if err != nil {
		return 0, pfirestore.WrapError("counters.next", err)
	}
	return nextValue, nil
}

// Ensure interface compliance.
var _ repositories.CounterRepository = (*CounterRepository)(nil)
