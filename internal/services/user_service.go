package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	domain "github.com/pxa264/e-shop-sub001/internal/domain"
	"github.com/pxa264/e-shop-sub001/internal/repositories"
)

var (
	// ErrUserInvalidInput signals the caller provided invalid data.
	ErrUserInvalidInput = errors.New("user: invalid input")
	// ErrUserNotFound indicates the profile could not be located.
	ErrUserNotFound = errors.New("user: not found")
	// ErrAddressNotFound indicates the address could not be located.
	ErrAddressNotFound = errors.New("user: address not found")
	// ErrWishlistDuplicate indicates the product is already on the wishlist.
	ErrWishlistDuplicate = errors.New("user: product already on wishlist")
	// ErrWishlistItemNotFound indicates the wishlist item could not be located.
	ErrWishlistItemNotFound = errors.New("user: wishlist item not found")
)

// UserServiceDeps bundles collaborators required to construct the user service.
type UserServiceDeps struct {
	Users     repositories.UserRepository
	Addresses repositories.AddressRepository
	Wishlist  repositories.WishlistRepository
	Clock     func() time.Time
}

type userService struct {
	users     repositories.UserRepository
	addresses repositories.AddressRepository
	wishlist  repositories.WishlistRepository
	clock     func() time.Time
}

// NewUserService wires dependencies into a concrete UserService implementation.
func NewUserService(deps UserServiceDeps) (UserService, error) {
	if deps.Users == nil {
		return nil, errors.New("user service: user repository is required")
	}
	if deps.Addresses == nil {
		return nil, errors.New("user service: address repository is required")
	}
	if deps.Wishlist == nil {
		return nil, errors.New("user service: wishlist repository is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}

	return &userService{
		users:     deps.Users,
		addresses: deps.Addresses,
		wishlist:  deps.Wishlist,
		clock: func() time.Time {
			return clock().UTC()
		},
	}, nil
}

func (s *userService) GetProfile(ctx context.Context, userID string) (domain.UserProfile, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return domain.UserProfile{}, fmt.Errorf("%w: user id is required", ErrUserInvalidInput)
	}
	profile, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return domain.UserProfile{}, s.mapError(err, ErrUserNotFound)
	}
	return profile, nil
}

func (s *userService) UpdateProfile(ctx context.Context, cmd UpdateProfileCommand) (domain.UserProfile, error) {
	userID := strings.TrimSpace(cmd.UserID)
	if userID == "" {
		return domain.UserProfile{}, fmt.Errorf("%w: user id is required", ErrUserInvalidInput)
	}
	if strings.TrimSpace(cmd.DisplayName) == "" {
		return domain.UserProfile{}, fmt.Errorf("%w: display name is required", ErrUserInvalidInput)
	}

	profile, err := s.users.UpdateProfile(ctx, domain.UserProfile{
		ID:          userID,
		DisplayName: strings.TrimSpace(cmd.DisplayName),
		Locale:      strings.TrimSpace(cmd.Locale),
	})
	if err != nil {
		return domain.UserProfile{}, s.mapError(err, ErrUserNotFound)
	}
	return profile, nil
}

func (s *userService) ListAddresses(ctx context.Context, userID string) ([]domain.Address, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrUserInvalidInput)
	}
	addresses, err := s.addresses.List(ctx, userID)
	if err != nil {
		return nil, s.mapError(err, ErrAddressNotFound)
	}
	return addresses, nil
}

func (s *userService) UpsertAddress(ctx context.Context, cmd UpsertAddressCommand) (domain.Address, error) {
	userID := strings.TrimSpace(cmd.UserID)
	if userID == "" {
		return domain.Address{}, fmt.Errorf("%w: user id is required", ErrUserInvalidInput)
	}
	addr := cmd.Address
	if strings.TrimSpace(addr.Recipient) == "" {
		return domain.Address{}, fmt.Errorf("%w: recipient is required", ErrUserInvalidInput)
	}
	if strings.TrimSpace(addr.Line1) == "" {
		return domain.Address{}, fmt.Errorf("%w: address line is required", ErrUserInvalidInput)
	}
	if strings.TrimSpace(addr.Country) == "" {
		return domain.Address{}, fmt.Errorf("%w: country is required", ErrUserInvalidInput)
	}

	saved, err := s.addresses.Upsert(ctx, userID, cmd.AddressID, addr)
	if err != nil {
		return domain.Address{}, s.mapError(err, ErrAddressNotFound)
	}
	return saved, nil
}

func (s *userService) DeleteAddress(ctx context.Context, userID string, addressID string) error {
	userID = strings.TrimSpace(userID)
	addressID = strings.TrimSpace(addressID)
	if userID == "" || addressID == "" {
		return fmt.Errorf("%w: user id and address id are required", ErrUserInvalidInput)
	}

	// Existence check first so a delete of a missing address surfaces 404
	// instead of silently succeeding.
	if _, err := s.addresses.Get(ctx, userID, addressID); err != nil {
		return s.mapError(err, ErrAddressNotFound)
	}
	if err := s.addresses.Delete(ctx, userID, addressID); err != nil {
		return s.mapError(err, ErrAddressNotFound)
	}
	return nil
}

func (s *userService) SetDefaultAddress(ctx context.Context, userID string, addressID string) (domain.Address, error) {
	userID = strings.TrimSpace(userID)
	addressID = strings.TrimSpace(addressID)
	if userID == "" || addressID == "" {
		return domain.Address{}, fmt.Errorf("%w: user id and address id are required", ErrUserInvalidInput)
	}

	addr, err := s.addresses.SetDefault(ctx, userID, addressID)
	if err != nil {
		return domain.Address{}, s.mapError(err, ErrAddressNotFound)
	}
	return addr, nil
}

func (s *userService) ListWishlist(ctx context.Context, userID string, pager domain.Pagination) (domain.CursorPage[domain.WishlistItem], error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return domain.CursorPage[domain.WishlistItem]{}, fmt.Errorf("%w: user id is required", ErrUserInvalidInput)
	}
	if pager.PageSize <= 0 {
		pager.PageSize = defaultListPageSize
	}
	if pager.PageSize > maxListPageSize {
		pager.PageSize = maxListPageSize
	}

	page, err := s.wishlist.List(ctx, userID, pager)
	if err != nil {
		return domain.CursorPage[domain.WishlistItem]{}, s.mapError(err, ErrWishlistItemNotFound)
	}
	return page, nil
}

func (s *userService) AddWishlistItem(ctx context.Context, userID string, productID string) (domain.WishlistItem, error) {
	userID = strings.TrimSpace(userID)
	productID = strings.TrimSpace(productID)
	if userID == "" || productID == "" {
		return domain.WishlistItem{}, fmt.Errorf("%w: user id and product id are required", ErrUserInvalidInput)
	}

	now := s.clock()
	created, err := s.wishlist.Put(ctx, userID, productID, now)
	if err != nil {
		return domain.WishlistItem{}, s.mapError(err, ErrWishlistItemNotFound)
	}
	if !created {
		return domain.WishlistItem{}, fmt.Errorf("%w: %s", ErrWishlistDuplicate, productID)
	}
	return domain.WishlistItem{ProductID: productID, AddedAt: now}, nil
}

func (s *userService) RemoveWishlistItem(ctx context.Context, userID string, productID string) error {
	userID = strings.TrimSpace(userID)
	productID = strings.TrimSpace(productID)
	if userID == "" || productID == "" {
		return fmt.Errorf("%w: user id and product id are required", ErrUserInvalidInput)
	}
	if err := s.wishlist.Delete(ctx, userID, productID); err != nil {
		return s.mapError(err, ErrWishlistItemNotFound)
	}
	return nil
}

func (s *userService) mapError(err error, notFound error) error {
	if err == nil {
		return nil
	}

	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return fmt.Errorf("%w: %v", notFound, err)
		case repoErr.IsConflict():
			return fmt.Errorf("%w: %v", ErrUserInvalidInput, err)
		case repoErr.IsUnavailable():
			return fmt.Errorf("user: repository unavailable: %w", err)
		}
	}
	return err
}
