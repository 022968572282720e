package services

import (
	"context"
	"errors"
	"testing"
	"time"

	domain "github.com/pxa264/e-shop-sub001/internal/domain"
)

type stubUserRepo struct {
	findFn   func(context.Context, string) (domain.UserProfile, error)
	updateFn func(context.Context, domain.UserProfile) (domain.UserProfile, error)
}

func (s *stubUserRepo) FindByID(ctx context.Context, userID string) (domain.UserProfile, error) {
	if s.findFn != nil {
		return s.findFn(ctx, userID)
	}
	return domain.UserProfile{ID: userID}, nil
}

func (s *stubUserRepo) UpdateProfile(ctx context.Context, profile domain.UserProfile) (domain.UserProfile, error) {
	if s.updateFn != nil {
		return s.updateFn(ctx, profile)
	}
	return profile, nil
}

type stubAddressRepo struct {
	listFn       func(context.Context, string) ([]domain.Address, error)
	getFn        func(context.Context, string, string) (domain.Address, error)
	upsertFn     func(context.Context, string, *string, domain.Address) (domain.Address, error)
	deleteFn     func(context.Context, string, string) error
	setDefaultFn func(context.Context, string, string) (domain.Address, error)
}

func (s *stubAddressRepo) List(ctx context.Context, userID string) ([]domain.Address, error) {
	if s.listFn != nil {
		return s.listFn(ctx, userID)
	}
	return nil, nil
}

func (s *stubAddressRepo) Get(ctx context.Context, userID string, addressID string) (domain.Address, error) {
	if s.getFn != nil {
		return s.getFn(ctx, userID, addressID)
	}
	return domain.Address{ID: addressID}, nil
}

func (s *stubAddressRepo) Upsert(ctx context.Context, userID string, addressID *string, addr domain.Address) (domain.Address, error) {
	if s.upsertFn != nil {
		return s.upsertFn(ctx, userID, addressID, addr)
	}
	return addr, nil
}

func (s *stubAddressRepo) Delete(ctx context.Context, userID string, addressID string) error {
	if s.deleteFn != nil {
		return s.deleteFn(ctx, userID, addressID)
	}
	return nil
}

func (s *stubAddressRepo) SetDefault(ctx context.Context, userID string, addressID string) (domain.Address, error) {
	if s.setDefaultFn != nil {
		return s.setDefaultFn(ctx, userID, addressID)
	}
	return domain.Address{ID: addressID, IsDefault: true}, nil
}

type stubWishlistRepo struct {
	listFn   func(context.Context, string, domain.Pagination) (domain.CursorPage[domain.WishlistItem], error)
	putFn    func(context.Context, string, string, time.Time) (bool, error)
	deleteFn func(context.Context, string, string) error
}

func (s *stubWishlistRepo) List(ctx context.Context, userID string, pager domain.Pagination) (domain.CursorPage[domain.WishlistItem], error) {
	if s.listFn != nil {
		return s.listFn(ctx, userID, pager)
	}
	return domain.CursorPage[domain.WishlistItem]{}, nil
}

func (s *stubWishlistRepo) Put(ctx context.Context, userID string, productID string, addedAt time.Time) (bool, error) {
	if s.putFn != nil {
		return s.putFn(ctx, userID, productID, addedAt)
	}
	return true, nil
}

func (s *stubWishlistRepo) Delete(ctx context.Context, userID string, productID string) error {
	if s.deleteFn != nil {
		return s.deleteFn(ctx, userID, productID)
	}
	return nil
}

func newTestUserService(t *testing.T, deps UserServiceDeps) UserService {
	t.Helper()
	if deps.Users == nil {
		deps.Users = &stubUserRepo{}
	}
	if deps.Addresses == nil {
		deps.Addresses = &stubAddressRepo{}
	}
	if deps.Wishlist == nil {
		deps.Wishlist = &stubWishlistRepo{}
	}
	svc, err := NewUserService(deps)
	if err != nil {
		t.Fatalf("NewUserService: %v", err)
	}
	return svc
}

func TestUserServiceUpdateProfileRequiresDisplayName(t *testing.T) {
	svc := newTestUserService(t, UserServiceDeps{})

	_, err := svc.UpdateProfile(context.Background(), UpdateProfileCommand{
		UserID:      "user-1",
		DisplayName: "   ",
	})
	if !errors.Is(err, ErrUserInvalidInput) {
		t.Fatalf("expected ErrUserInvalidInput, got %v", err)
	}
}

func TestUserServiceGetProfileMapsNotFound(t *testing.T) {
	svc := newTestUserService(t, UserServiceDeps{
		Users: &stubUserRepo{
			findFn: func(context.Context, string) (domain.UserProfile, error) {
				return domain.UserProfile{}, repoError{notFound: true}
			},
		},
	})

	_, err := svc.GetProfile(context.Background(), "user-1")
	if !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestUserServiceUpsertAddressValidatesRequiredFields(t *testing.T) {
	svc := newTestUserService(t, UserServiceDeps{})

	_, err := svc.UpsertAddress(context.Background(), UpsertAddressCommand{
		UserID: "user-1",
		Address: domain.Address{
			Recipient: "Tester",
			Line1:     "1-2-3",
		},
	})
	if !errors.Is(err, ErrUserInvalidInput) {
		t.Fatalf("expected ErrUserInvalidInput for missing country, got %v", err)
	}
}

func TestUserServiceDeleteAddressChecksExistence(t *testing.T) {
	deleteCalled := false
	svc := newTestUserService(t, UserServiceDeps{
		Addresses: &stubAddressRepo{
			getFn: func(context.Context, string, string) (domain.Address, error) {
				return domain.Address{}, repoError{notFound: true}
			},
			deleteFn: func(context.Context, string, string) error {
				deleteCalled = true
				return nil
			},
		},
	})

	err := svc.DeleteAddress(context.Background(), "user-1", "addr-1")
	if !errors.Is(err, ErrAddressNotFound) {
		t.Fatalf("expected ErrAddressNotFound, got %v", err)
	}
	if deleteCalled {
		t.Fatal("delete must not run when the address does not exist")
	}
}

func TestUserServiceAddWishlistItemRejectsDuplicate(t *testing.T) {
	svc := newTestUserService(t, UserServiceDeps{
		Wishlist: &stubWishlistRepo{
			putFn: func(context.Context, string, string, time.Time) (bool, error) {
				return false, nil
			},
		},
	})

	_, err := svc.AddWishlistItem(context.Background(), "user-1", "prod-1")
	if !errors.Is(err, ErrWishlistDuplicate) {
		t.Fatalf("expected ErrWishlistDuplicate, got %v", err)
	}
}

func TestUserServiceAddWishlistItemReturnsItem(t *testing.T) {
	now := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	svc := newTestUserService(t, UserServiceDeps{
		Clock: fixedClock(now),
	})

	item, err := svc.AddWishlistItem(context.Background(), "user-1", "prod-1")
	if err != nil {
		t.Fatalf("AddWishlistItem: %v", err)
	}
	if item.ProductID != "prod-1" || !item.AddedAt.Equal(now) {
		t.Fatalf("unexpected item %+v", item)
	}
}

func TestUserServiceListWishlistClampsPageSize(t *testing.T) {
	var captured domain.Pagination
	svc := newTestUserService(t, UserServiceDeps{
		Wishlist: &stubWishlistRepo{
			listFn: func(_ context.Context, _ string, pager domain.Pagination) (domain.CursorPage[domain.WishlistItem], error) {
				captured = pager
				return domain.CursorPage[domain.WishlistItem]{}, nil
			},
		},
	})

	if _, err := svc.ListWishlist(context.Background(), "user-1", domain.Pagination{PageSize: 9999}); err != nil {
		t.Fatalf("ListWishlist: %v", err)
	}
	if captured.PageSize != maxListPageSize {
		t.Fatalf("expected clamped page size %d, got %d", maxListPageSize, captured.PageSize)
	}
}

func TestUserServiceSetDefaultAddressRequiresIDs(t *testing.T) {
	svc := newTestUserService(t, UserServiceDeps{})

	if _, err := svc.SetDefaultAddress(context.Background(), "user-1", ""); !errors.Is(err, ErrUserInvalidInput) {
		t.Fatalf("expected ErrUserInvalidInput, got %v", err)
	}
}
