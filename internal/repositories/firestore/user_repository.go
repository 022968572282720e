package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"

	domain "github.com/pxa264/e-shop-sub001/internal/domain"
	pfirestore "github.com/pxa264/e-shop-sub001/internal/platform/firestore"
	"github.com/pxa264/e-shop-sub001/internal/repositories"
)

const usersCollection = "users"

// UserRepository persists storefront user profiles.
type UserRepository struct {
	provider *pfirestore.Provider
}

// NewUserRepository constructs a Firestore-backed user repository.
func NewUserRepository(provider *pfirestore.Provider) (*UserRepository, error) {
	if provider == nil {
		return nil, errors.New("user repository requires firestore provider")
	}
	return &UserRepository{provider: provider}, nil
}

// FindByID loads the profile document for the given user.
func (r *UserRepository) FindByID(ctx context.Context, userID string) (domain.UserProfile, error) {
	ref, err := r.doc(ctx, userID)
	if err != nil {
		return domain.UserProfile{}, err
	}
	snap, err := ref.Get(ctx)
	if err != nil {
		return domain.UserProfile{}, pfirestore.WrapError("users.findById", err)
	}
	var doc userDocument
	if err := snap.DataTo(&doc); err != nil {
		return domain.UserProfile{}, fmt.Errorf("decode user %s: %w", snap.Ref.ID, err)
	}
	return doc.toDomain(snap.Ref.ID), nil
}

// UpdateProfile merges the mutable profile fields into the user document.
func (r *UserRepository) UpdateProfile(ctx context.Context, profile domain.UserProfile) (domain.UserProfile, error) {
	ref, err := r.doc(ctx, profile.ID)
	if err != nil {
		return domain.UserProfile{}, err
	}

	now := time.Now().UTC()
	payload := map[string]any{
		"displayName": strings.TrimSpace(profile.DisplayName),
		"locale":      strings.TrimSpace(profile.Locale),
		"updatedAt":   now,
	}
	if email := strings.TrimSpace(profile.Email); email != "" {
		payload["email"] = email
	}

	if _, err := ref.Set(ctx, payload, firestore.MergeAll); err != nil {
		return domain.UserProfile{}, pfirestore.WrapError("users.updateProfile", err)
	}
	return r.FindByID(ctx, profile.ID)
}

func (r *UserRepository) doc(ctx context.Context, userID string) (*firestore.DocumentRef, error) {
	if r == nil || r.provider == nil {
		return nil, errors.New("user repository not initialised")
	}
	uid := strings.TrimSpace(userID)
	if uid == "" {
		return nil, errors.New("user repository: user id is required")
	}
	client, err := r.provider.Client(ctx)
	if err != nil {
		return nil, err
	}
	return client.Collection(usersCollection).Doc(uid), nil
}

type userDocument struct {
	DisplayName string    `firestore:"displayName,omitempty"`
	Email       string    `firestore:"email,omitempty"`
	Locale      string    `firestore:"locale,omitempty"`
	CreatedAt   time.Time `firestore:"createdAt"`
	UpdatedAt   time.Time `firestore:"updatedAt"`
}

func (d userDocument) toDomain(id string) domain.UserProfile {
	return domain.UserProfile{
		ID:          id,
		DisplayName: d.DisplayName,
		Email:       d.Email,
		Locale:      d.Locale,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

// Ensure interface compliance.
var _ repositories.UserRepository = (*UserRepository)(nil)
