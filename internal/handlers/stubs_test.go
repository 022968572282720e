package handlers

import (
	"context"
	"errors"

	domain "github.com/pxa264/e-shop-sub001/internal/domain"
	"github.com/pxa264/e-shop-sub001/internal/services"
)

type stubOrderService struct {
	createFn       func(context.Context, services.CreateOrderCommand) (domain.Order, error)
	updateStatusFn func(context.Context, services.UpdateOrderStatusCommand) (domain.Order, error)
	bulkUpdateFn   func(context.Context, services.BulkUpdateOrderStatusCommand) ([]services.BulkUpdateResult, error)
	historyFn      func(context.Context, string) ([]domain.OrderHistoryEntry, error)
	statisticsFn   func(context.Context) (services.OrderStatistics, error)
	statusConfigFn func() []domain.OrderStatusInfo
	cancelFn       func(context.Context, services.CancelOrderCommand) (domain.Order, error)
	getByNumberFn  func(context.Context, string, string) (domain.Order, error)
	deleteFn       func(context.Context, services.DeleteOrderCommand) error
	listByUserFn   func(context.Context, string, services.MyOrdersFilter) (domain.CursorPage[domain.Order], error)
	searchFn       func(context.Context, services.SearchOrdersFilter) (domain.CursorPage[domain.Order], error)
}

func (s *stubOrderService) Create(ctx context.Context, cmd services.CreateOrderCommand) (domain.Order, error) {
	if s.createFn != nil {
		return s.createFn(ctx, cmd)
	}
	return domain.Order{}, errors.New("not implemented")
}

func (s *stubOrderService) UpdateStatus(ctx context.Context, cmd services.UpdateOrderStatusCommand) (domain.Order, error) {
	if s.updateStatusFn != nil {
		return s.updateStatusFn(ctx, cmd)
	}
	return domain.Order{}, errors.New("not implemented")
}

func (s *stubOrderService) BulkUpdateStatus(ctx context.Context, cmd services.BulkUpdateOrderStatusCommand) ([]services.BulkUpdateResult, error) {
	if s.bulkUpdateFn != nil {
		return s.bulkUpdateFn(ctx, cmd)
	}
	return nil, errors.New("not implemented")
}

func (s *stubOrderService) History(ctx context.Context, orderID string) ([]domain.OrderHistoryEntry, error) {
	if s.historyFn != nil {
		return s.historyFn(ctx, orderID)
	}
	return nil, errors.New("not implemented")
}

func (s *stubOrderService) Statistics(ctx context.Context) (services.OrderStatistics, error) {
	if s.statisticsFn != nil {
		return s.statisticsFn(ctx)
	}
	return services.OrderStatistics{}, errors.New("not implemented")
}

func (s *stubOrderService) StatusConfig() []domain.OrderStatusInfo {
	if s.statusConfigFn != nil {
		return s.statusConfigFn()
	}
	return nil
}

func (s *stubOrderService) Cancel(ctx context.Context, cmd services.CancelOrderCommand) (domain.Order, error) {
	if s.cancelFn != nil {
		return s.cancelFn(ctx, cmd)
	}
	return domain.Order{}, errors.New("not implemented")
}

func (s *stubOrderService) GetByNumber(ctx context.Context, userID string, orderNumber string) (domain.Order, error) {
	if s.getByNumberFn != nil {
		return s.getByNumberFn(ctx, userID, orderNumber)
	}
	return domain.Order{}, errors.New("not implemented")
}

func (s *stubOrderService) Delete(ctx context.Context, cmd services.DeleteOrderCommand) error {
	if s.deleteFn != nil {
		return s.deleteFn(ctx, cmd)
	}
	return errors.New("not implemented")
}

func (s *stubOrderService) ListByUser(ctx context.Context, userID string, filter services.MyOrdersFilter) (domain.CursorPage[domain.Order], error) {
	if s.listByUserFn != nil {
		return s.listByUserFn(ctx, userID, filter)
	}
	return domain.CursorPage[domain.Order]{}, errors.New("not implemented")
}

func (s *stubOrderService) Search(ctx context.Context, filter services.SearchOrdersFilter) (domain.CursorPage[domain.Order], error) {
	if s.searchFn != nil {
		return s.searchFn(ctx, filter)
	}
	return domain.CursorPage[domain.Order]{}, errors.New("not implemented")
}

type stubUserService struct {
	getProfileFn    func(context.Context, string) (domain.UserProfile, error)
	updateProfileFn func(context.Context, services.UpdateProfileCommand) (domain.UserProfile, error)
	listAddressesFn func(context.Context, string) ([]domain.Address, error)
	upsertAddressFn func(context.Context, services.UpsertAddressCommand) (domain.Address, error)
	deleteAddressFn func(context.Context, string, string) error
	setDefaultFn    func(context.Context, string, string) (domain.Address, error)
	listWishlistFn  func(context.Context, string, domain.Pagination) (domain.CursorPage[domain.WishlistItem], error)
	addWishlistFn   func(context.Context, string, string) (domain.WishlistItem, error)
	removeFn        func(context.Context, string, string) error
}

func (s *stubUserService) GetProfile(ctx context.Context, userID string) (domain.UserProfile, error) {
	if s.getProfileFn != nil {
		return s.getProfileFn(ctx, userID)
	}
	return domain.UserProfile{ID: userID}, nil
}

func (s *stubUserService) UpdateProfile(ctx context.Context, cmd services.UpdateProfileCommand) (domain.UserProfile, error) {
	if s.updateProfileFn != nil {
		return s.updateProfileFn(ctx, cmd)
	}
	return domain.UserProfile{ID: cmd.UserID, DisplayName: cmd.DisplayName}, nil
}

func (s *stubUserService) ListAddresses(ctx context.Context, userID string) ([]domain.Address, error) {
	if s.listAddressesFn != nil {
		return s.listAddressesFn(ctx, userID)
	}
	return nil, nil
}

func (s *stubUserService) UpsertAddress(ctx context.Context, cmd services.UpsertAddressCommand) (domain.Address, error) {
	if s.upsertAddressFn != nil {
		return s.upsertAddressFn(ctx, cmd)
	}
	return cmd.Address, nil
}

func (s *stubUserService) DeleteAddress(ctx context.Context, userID string, addressID string) error {
	if s.deleteAddressFn != nil {
		return s.deleteAddressFn(ctx, userID, addressID)
	}
	return nil
}

func (s *stubUserService) SetDefaultAddress(ctx context.Context, userID string, addressID string) (domain.Address, error) {
	if s.setDefaultFn != nil {
		return s.setDefaultFn(ctx, userID, addressID)
	}
	return domain.Address{ID: addressID, IsDefault: true}, nil
}

func (s *stubUserService) ListWishlist(ctx context.Context, userID string, pager domain.Pagination) (domain.CursorPage[domain.WishlistItem], error) {
	if s.listWishlistFn != nil {
		return s.listWishlistFn(ctx, userID, pager)
	}
	return domain.CursorPage[domain.WishlistItem]{}, nil
}

func (s *stubUserService) AddWishlistItem(ctx context.Context, userID string, productID string) (domain.WishlistItem, error) {
	if s.addWishlistFn != nil {
		return s.addWishlistFn(ctx, userID, productID)
	}
	return domain.WishlistItem{ProductID: productID}, nil
}

func (s *stubUserService) RemoveWishlistItem(ctx context.Context, userID string, productID string) error {
	if s.removeFn != nil {
		return s.removeFn(ctx, userID, productID)
	}
	return nil
}

type stubAuditService struct {
	recordFn func(context.Context, services.AuditLogRecord)
	listFn   func(context.Context, services.AuditLogFilter) (domain.CursorPage[domain.AuditLogEntry], error)
}

func (s *stubAuditService) Record(ctx context.Context, record services.AuditLogRecord) {
	if s.recordFn != nil {
		s.recordFn(ctx, record)
	}
}

func (s *stubAuditService) List(ctx context.Context, filter services.AuditLogFilter) (domain.CursorPage[domain.AuditLogEntry], error) {
	if s.listFn != nil {
		return s.listFn(ctx, filter)
	}
	return domain.CursorPage[domain.AuditLogEntry]{}, nil
}
