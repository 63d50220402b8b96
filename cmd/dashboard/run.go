package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/example/orderdesk/gateway"
	"github.com/example/orderdesk/pkg/analytics"
	"github.com/example/orderdesk/pkg/audit"
	"github.com/example/orderdesk/pkg/board"
	"github.com/example/orderdesk/pkg/cart"
	"github.com/example/orderdesk/pkg/catalog"
	"github.com/example/orderdesk/pkg/chat"
	"github.com/example/orderdesk/pkg/client"
	"github.com/example/orderdesk/pkg/config"
	"github.com/example/orderdesk/pkg/discovery"
	"github.com/example/orderdesk/pkg/grpc"
	"github.com/example/orderdesk/pkg/refresh"
	"github.com/example/orderdesk/pkg/repository"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

func run(parent context.Context, cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Service discovery
	var sd *discovery.ServiceDiscovery
	baseURL := cfg.Service.BaseURL
	if cfg.Etcd.Enabled {
		var err error
		sd, err = discovery.NewServiceDiscovery(&cfg.Etcd, logger)
		if err != nil {
			logger.Warn("Failed to connect to etcd, continuing without service discovery", zap.Error(err))
		} else {
			defer sd.Close()
			lookupCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
			baseURL = sd.ResolveURL(lookupCtx, cfg.Service.Name, baseURL)
			cancel()
		}
	}

	svc, err := client.New(baseURL, cfg.Service.Timeout, logger)
	if err != nil {
		return err
	}
	if sd != nil {
		sd.Watch(ctx, cfg.Service.Name, func(instances []*discovery.ServiceInstance) {
			if len(instances) == 0 {
				logger.Warn("No instances registered, keeping current address",
					zap.String("service", cfg.Service.Name),
					zap.String("address", svc.BaseURL()))
				return
			}
			if err := svc.SetBaseURL(instances[0].URL()); err != nil {
				logger.Warn("Ignoring discovered address", zap.Error(err))
				return
			}
			logger.Info("Service address changed", zap.String("address", svc.BaseURL()))
		})
	}

	// Audit trail
	var (
		recorder    audit.Recorder = audit.Nop{}
		auditReader gateway.AuditReader
	)
	if cfg.MongoDB.Enabled {
		mongoRepo, err := repository.NewMongoRepository(&cfg.MongoDB)
		if err != nil {
			logger.Warn("MongoDB connection failed, audit trail disabled", zap.Error(err))
		} else {
			defer func() {
				closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				_ = mongoRepo.Close(closeCtx)
			}()
			if err := mongoRepo.Ping(ctx); err != nil {
				logger.Warn("MongoDB ping failed", zap.Error(err))
			} else {
				logger.Info("MongoDB connected successfully")
			}
			recorder = mongoRepo
			auditReader = mongoRepo
		}
	}

	// Core stores
	catalogStore := catalog.NewStore(svc, recorder, logger)
	boardStore := board.NewStore(svc, recorder, logger)

	var remote analytics.Source
	if cfg.Analytics.UseRemote {
		remote = svc
	}
	analyticsStore := analytics.NewStore(remote, logger)
	unbind := analyticsStore.Bind(boardStore, catalogStore)
	defer unbind()

	// Snapshot cache
	if cfg.Redis.Enabled {
		redisRepo := repository.NewRedisRepository(&cfg.Redis)
		defer redisRepo.Close()

		if err := redisRepo.Ping(ctx); err != nil {
			logger.Warn("Redis connection failed, snapshot cache disabled", zap.Error(err))
		} else {
			logger.Info("Redis connected successfully")
			redisRepo.WarmStart(ctx, catalogStore, boardStore, logger)
			stopMirror := redisRepo.Mirror(catalogStore, boardStore, logger)
			defer stopMirror()
		}
	}

	// Refresh
	scheduler := refresh.New(logger)
	defer scheduler.StopAll()

	catalogTask := scheduler.Start("catalog", catalogStore.RefreshTask(), cfg.Refresh.CatalogInterval)
	ordersTask := scheduler.Start("orders", boardStore.RefreshTask(), cfg.Refresh.OrdersInterval)
	if cfg.Analytics.UseRemote {
		scheduler.Start("analytics", analyticsStore.FetchRemote(), cfg.Refresh.AnalyticsInterval)
	}

	// Chat
	system := actor.NewActorSystem()
	correlator := chat.NewCorrelator(system, svc, logger, chat.WithTimeout(cfg.Chat.Timeout))
	defer correlator.Close()

	// Health
	if cfg.GRPC.Enabled {
		hs := grpc.NewHealthServer(scheduler, cfg.Refresh.UnhealthyAfter, logger)
		go hs.Run(ctx, cfg.Refresh.OrdersInterval)
		go func() {
			if err := hs.Start(cfg.GRPC.Addr()); err != nil {
				logger.Error("Health server error", zap.Error(err))
			}
		}()
		defer hs.Stop()
	}

	// Dashboard API
	gw := gateway.NewGateway(cfg, gateway.Deps{
		Catalog:        catalogStore,
		Board:          boardStore,
		Analytics:      analyticsStore,
		Carts:          cart.NewSessions(),
		Chat:           correlator,
		Stats:          scheduler,
		CatalogRefresh: catalogTask,
		OrdersRefresh:  ordersTask,
		Audit:          auditReader,
	}, logger)
	gw.SetupRoutes()

	gwErr := make(chan error, 1)
	go func() {
		if err := gw.Start(); err != nil {
			gwErr <- err
		}
	}()

	var self *discovery.ServiceInstance
	if sd != nil {
		if host, ok := cfg.Gateway.Advertised(); ok {
			self = &discovery.ServiceInstance{Name: cfg.Gateway.Name, Host: host, Port: cfg.Gateway.Port}
		} else {
			logger.Warn("Skipping etcd registration, set gateway.advertise_host",
				zap.String("host", cfg.Gateway.Host))
		}
	}
	if self != nil {
		if err := sd.Register(ctx, self); err != nil {
			logger.Warn("Failed to register dashboard", zap.Error(err))
		} else {
			logger.Info("Service registered in etcd",
				zap.String("name", self.Name),
				zap.String("address", self.URL()))
		}
	}

	logger.Info("Dashboard started successfully")

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("Received shutdown signal")
	case runErr = <-gwErr:
		logger.Error("Gateway error", zap.Error(runErr))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if self != nil {
		if err := sd.Deregister(shutdownCtx, self); err != nil {
			logger.Error("Failed to deregister dashboard", zap.Error(err))
		}
	}
	if err := gw.Shutdown(shutdownCtx); err != nil {
		logger.Error("Gateway shutdown failed", zap.Error(err))
	}

	logger.Info("Dashboard stopped")
	return runErr
}
