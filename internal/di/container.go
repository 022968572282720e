package di

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/pxa264/e-shop-sub001/internal/platform/config"
	"github.com/pxa264/e-shop-sub001/internal/repositories"
	"github.com/pxa264/e-shop-sub001/internal/services"
)

// Services bundles the service-layer contracts that handlers rely upon.
type Services struct {
	Orders services.OrderService
	Users  services.UserService
	Audit  services.AuditLogService
}

// Deps carries optional collaborators supplied by the composition root.
type Deps struct {
	Events services.OrderEventPublisher
	Logger *zap.Logger
}

// Container wires repositories and services for runtime use.
type Container struct {
	Config       config.Config
	Repositories repositories.Registry
	Services     Services
}

// NewContainer constructs the runtime dependencies. Production wiring provides
// the Firestore-backed registry, while tests can supply stub registries.
func NewContainer(ctx context.Context, cfg config.Config, reg repositories.Registry, deps Deps) (*Container, error) {
	if reg == nil {
		return nil, errors.New("repositories registry is required")
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	svc, err := buildServices(cfg, reg, deps.Events, logger)
	if err != nil {
		return nil, err
	}

	return &Container{
		Config:       cfg,
		Repositories: reg,
		Services:     svc,
	}, nil
}

// Close releases resources such as repository clients.
func (c *Container) Close(ctx context.Context) error {
	if c == nil || c.Repositories == nil {
		return nil
	}
	return c.Repositories.Close(ctx)
}

func buildServices(cfg config.Config, reg repositories.Registry, events services.OrderEventPublisher, logger *zap.Logger) (Services, error) {
	var svc Services

	auditLogger := logger.Named("audit").Sugar()
	auditSvc, err := services.NewAuditLogService(services.AuditLogServiceDeps{
		Repository: reg.AuditLogs(),
		Clock:      time.Now,
		Logger:     auditLogger,
		HashSalt:   cfg.Audit.HashSalt,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build audit log service: %w", err)
	}
	svc.Audit = auditSvc

	orderLogger := logger.Named("orders")
	orderSvc, err := services.NewOrderService(services.OrderServiceDeps{
		Orders:     reg.Orders(),
		History:    reg.OrderHistory(),
		Counters:   reg.Counters(),
		UnitOfWork: reg,
		Audit:      svc.Audit,
		Events:     events,
		Clock:      time.Now,
		Logger: func(ctx context.Context, event string, fields map[string]any) {
			zFields := make([]zap.Field, 0, len(fields)+1)
			zFields = append(zFields, zap.String("event", event))
			for k, v := range fields {
				zFields = append(zFields, zap.Any(k, v))
			}
			orderLogger.Warn("order log", zFields...)
		},
	})
	if err != nil {
		return Services{}, fmt.Errorf("build order service: %w", err)
	}
	svc.Orders = orderSvc

	userSvc, err := services.NewUserService(services.UserServiceDeps{
		Users:     reg.Users(),
		Addresses: reg.Addresses(),
		Wishlist:  reg.Wishlist(),
		Clock:     time.Now,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build user service: %w", err)
	}
	svc.Users = userSvc

	return svc, nil
}
