package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	domain "github.com/pxa264/e-shop-sub001/internal/domain"
	pfirestore "github.com/pxa264/e-shop-sub001/internal/platform/firestore"
	"github.com/pxa264/e-shop-sub001/internal/repositories"
)

const addressCollectionPattern = "users/%s/addresses"

// AddressRepository persists user shipping addresses in Firestore.
type AddressRepository struct {
	provider *pfirestore.Provider
}

// NewAddressRepository constructs a Firestore-backed address repository.
func NewAddressRepository(provider *pfirestore.Provider) (*AddressRepository, error) {
	if provider == nil {
		return nil, errors.New("address repository requires firestore provider")
	}
	return &AddressRepository{provider: provider}, nil
}

// List returns all addresses for the user ordered by most recent update.
func (r *AddressRepository) List(ctx context.Context, userID string) ([]domain.Address, error) {
	coll, err := r.collection(ctx, userID)
	if err != nil {
		return nil, err
	}

	iter := coll.OrderBy("updatedAt", firestore.Desc).Documents(ctx)
	defer iter.Stop()

	var results []domain.Address
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, pfirestore.WrapError("addresses.list", err)
		}
		addr, err := decodeAddressDocument(snap)
		if err != nil {
			return nil, err
		}
		results = append(results, addr)
	}
	return results, nil
}

// Get loads a single address document.
func (r *AddressRepository) Get(ctx context.Context, userID string, addressID string) (domain.Address, error) {
	coll, err := r.collection(ctx, userID)
	if err != nil {
		return domain.Address{}, err
	}
	id := strings.TrimSpace(addressID)
	if id == "" {
		return domain.Address{}, errors.New("address repository: address id is required")
	}
	snap, err := coll.Doc(id).Get(ctx)
	if err != nil {
		return domain.Address{}, pfirestore.WrapError("addresses.get", err)
	}
	return decodeAddressDocument(snap)
}

// Upsert creates or updates an address. When the incoming address is marked
// default the other defaults are cleared in the same transaction.
func (r *AddressRepository) Upsert(ctx context.Context, userID string, addressID *string, addr domain.Address) (domain.Address, error) {
	coll, err := r.collection(ctx, userID)
	if err != nil {
		return domain.Address{}, err
	}

	var saved domain.Address
	err = r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		var docRef *firestore.DocumentRef
		if addressID != nil {
			if id := strings.TrimSpace(*addressID); id != "" {
				docRef = coll.Doc(id)
			}
		}
		if docRef == nil {
			docRef = coll.NewDoc()
		}

		var doc addressDocument
		snap, err := tx.Get(docRef)
		switch status.Code(err) {
		case codes.NotFound:
			if addressID != nil {
				return err
			}
		case codes.OK:
			if err := snap.DataTo(&doc); err != nil {
				return fmt.Errorf("decode address %s: %w", snap.Ref.ID, err)
			}
		default:
			return err
		}

		now := time.Now().UTC()
		if doc.CreatedAt.IsZero() {
			doc.CreatedAt = now
		}
		doc.UpdatedAt = now
		doc.Label = strings.TrimSpace(addr.Label)
		doc.Recipient = addr.Recipient
		doc.Line1 = addr.Line1
		doc.Line2 = cloneOptionalString(addr.Line2)
		doc.City = addr.City
		doc.State = cloneOptionalString(addr.State)
		doc.PostalCode = addr.PostalCode
		doc.Country = addr.Country
		doc.Phone = cloneOptionalString(addr.Phone)
		doc.IsDefault = addr.IsDefault

		if doc.IsDefault {
			if err := clearDefaultFlag(tx, coll, docRef.ID); err != nil {
				return err
			}
		}
		if err := tx.Set(docRef, doc); err != nil {
			return err
		}

		saved = doc.toDomain(docRef.ID)
		return nil
	})
	if err != nil {
		return domain.Address{}, pfirestore.WrapError("addresses.upsert", err)
	}
	return saved, nil
}

// Delete removes the specified address document.
func (r *AddressRepository) Delete(ctx context.Context, userID string, addressID string) error {
	coll, err := r.collection(ctx, userID)
	if err != nil {
		return err
	}
	id := strings.TrimSpace(addressID)
	if id == "" {
		return errors.New("address repository: address id is required")
	}
	if _, err := coll.Doc(id).Delete(ctx); err != nil {
		return pfirestore.WrapError("addresses.delete", err)
	}
	return nil
}

// SetDefault marks one address as the default and clears the flag on every
// other address of the same user inside a single transaction.
func (r *AddressRepository) SetDefault(ctx context.Context, userID string, addressID string) (domain.Address, error) {
	coll, err := r.collection(ctx, userID)
	if err != nil {
		return domain.Address{}, err
	}
	id := strings.TrimSpace(addressID)
	if id == "" {
		return domain.Address{}, errors.New("address repository: address id is required")
	}

	var saved domain.Address
	err = r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		docRef := coll.Doc(id)
		snap, err := tx.Get(docRef)
		if err != nil {
			return err
		}
		var doc addressDocument
		if err := snap.DataTo(&doc); err != nil {
			return fmt.Errorf("decode address %s: %w", snap.Ref.ID, err)
		}

		if err := clearDefaultFlag(tx, coll, docRef.ID); err != nil {
			return err
		}

		now := time.Now().UTC()
		doc.IsDefault = true
		doc.UpdatedAt = now
		if err := tx.Update(docRef, []firestore.Update{
			{Path: "isDefault", Value: true},
			{Path: "updatedAt", Value: now},
		}); err != nil {
			return err
		}

		saved = doc.toDomain(docRef.ID)
		return nil
	})
	if err != nil {
		return domain.Address{}, pfirestore.WrapError("addresses.setDefault", err)
	}
	return saved, nil
}

func clearDefaultFlag(tx *firestore.Transaction, coll *firestore.CollectionRef, keepID string) error {
	query := coll.Where("isDefault", "==", true).Limit(10)
	snaps, err := tx.Documents(query).GetAll()
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil
		}
		return err
	}
	for _, snap := range snaps {
		if snap.Ref.ID == keepID {
			continue
		}
		if err := tx.Update(snap.Ref, []firestore.Update{{Path: "isDefault", Value: false}}); err != nil {
			return err
		}
	}
	return nil
}

func (r *AddressRepository) collection(ctx context.Context, userID string) (*firestore.CollectionRef, error) {
	if r == nil || r.provider == nil {
		return nil, errors.New("address repository not initialised")
	}
	uid := strings.TrimSpace(userID)
	if uid == "" {
		return nil, errors.New("address repository: user id is required")
	}
	client, err := r.provider.Client(ctx)
	if err != nil {
		return nil, err
	}
	return client.Collection(fmt.Sprintf(addressCollectionPattern, uid)), nil
}

func decodeAddressDocument(snap *firestore.DocumentSnapshot) (domain.Address, error) {
	var doc addressDocument
	if err := snap.DataTo(&doc); err != nil {
		return domain.Address{}, fmt.Errorf("decode address %s: %w", snap.Ref.ID, err)
	}
	return doc.toDomain(snap.Ref.ID), nil
}

type addressDocument struct {
	Label      string    `firestore:"label,omitempty"`
	Recipient  string    `firestore:"recipient"`
	Line1      string    `firestore:"line1"`
	Line2      *string   `firestore:"line2,omitempty"`
	City       string    `firestore:"city"`
	State      *string   `firestore:"state,omitempty"`
	PostalCode string    `firestore:"postalCode"`
	Country    string    `firestore:"country"`
	Phone      *string   `firestore:"phone,omitempty"`
	IsDefault  bool      `firestore:"isDefault"`
	CreatedAt  time.Time `firestore:"createdAt"`
	UpdatedAt  time.Time `firestore:"updatedAt"`
}

func (d addressDocument) toDomain(id string) domain.Address {
	return domain.Address{
		ID:         id,
		Label:      d.Label,
		Recipient:  d.Recipient,
		Line1:      d.Line1,
		Line2:      cloneOptionalString(d.Line2),
		City:       d.City,
		State:      cloneOptionalString(d.State),
		PostalCode: d.PostalCode,
		Country:    d.Country,
		Phone:      cloneOptionalString(d.Phone),
		IsDefault:  d.IsDefault,
		CreatedAt:  d.CreatedAt,
		UpdatedAt:  d.UpdatedAt,
	}
}

func cloneOptionalString(value *string) *string {
	if value == nil {
		return nil
	}
	cloned := *value
	if strings.TrimSpace(cloned) == "" {
		return nil
	}
	return &cloned
}

// Ensure interface compliance.
var _ repositories.AddressRepository = (*AddressRepository)(nil)
