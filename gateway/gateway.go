package gateway

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/example/orderdesk/pkg/analytics"
	"github.com/example/orderdesk/pkg/board"
	"github.com/example/orderdesk/pkg/cart"
	"github.com/example/orderdesk/pkg/catalog"
	"github.com/example/orderdesk/pkg/chat"
	"github.com/example/orderdesk/pkg/client"
	"github.com/example/orderdesk/pkg/config"
	"github.com/example/orderdesk/pkg/refresh"
	"github.com/example/orderdesk/pkg/repository"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const HeaderSessionID = "X-Session-Id"

// Refresher forces an immediate refresh of one task.
type Refresher interface {
	Trigger()
}

type StatsSource interface {
	Stats() []refresh.Stats
}

// AuditReader serves the audit trail endpoint. It is optional.
type AuditReader interface {
	GetAuditLogs(ctx context.Context, entity, entityID string, limit int64) ([]*repository.AuditLog, error)
}

// Deps are the core components the dashboard API exposes.
type Deps struct {
	Catalog   *catalog.Store
	Board     *board.Store
	Analytics *analytics.Store
	Carts     *cart.Sessions
	Chat      *chat.Correlator
	Stats     StatsSource

	CatalogRefresh Refresher
	OrdersRefresh  Refresher

	Audit AuditReader
}

type Gateway struct {
	config *config.Config
	deps   Deps
	logger *zap.Logger
	router *gin.Engine
	server *http.Server
}

func NewGateway(cfg *config.Config, deps Deps, logger *zap.Logger) *Gateway {
	if gin.Mode() != gin.TestMode {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(correlationMiddleware())
	router.Use(loggerMiddleware(logger))

	return &Gateway{
		config: cfg,
		deps:   deps,
		logger: logger,
		router: router,
		server: &http.Server{
			Addr:              cfg.Gateway.Addr(),
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

func (g *Gateway) SetupRoutes() {
	g.router.GET("/health", g.health)

	v1 := g.router.Group("/api/v1")
	{
		menu := v1.Group("/menu")
		{
			menu.GET("", g.listMenu)
			menu.POST("", g.createMenuItem)
			menu.DELETE("/:id", g.deleteMenuItem)
		}

		categories := v1.Group("/categories")
		{
			categories.GET("", g.listCategories)
			categories.POST("", g.createCategory)
		}

		orders := v1.Group("/orders")
		{
			orders.GET("", g.listOrders)
			orders.GET("/:id/transitions", g.orderTransitions)
			orders.PUT("/:id/status", g.updateOrderStatus)
			orders.DELETE("/:id", g.deleteOrder)
		}

		v1.GET("/search", g.search)

		carts := v1.Group("/cart", requireSession())
		{
			carts.GET("", g.getCart)
			carts.POST("/items/:id", g.addCartItem)
			carts.DELETE("/items/:id", g.removeCartItem)
			carts.POST("/checkout", g.checkout)
		}

		v1.GET("/analytics", g.getAnalytics)

		sessions := v1.Group("/chat/sessions")
		{
			sessions.POST("", g.createChatSession)
			sessions.GET("/:id", g.getChatSession)
			sessions.POST("/:id/messages", g.sendChatMessage)
			sessions.DELETE("/:id", g.closeChatSession)
		}

		if g.deps.Audit != nil {
			v1.GET("/audit/:entity/:id", g.auditTrail)
		}
	}
}

func (g *Gateway) Handler() http.Handler {
	return g.router
}

func (g *Gateway) Start() error {
	g.logger.Info("Gateway starting", zap.String("address", g.server.Addr))

	if err := g.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (g *Gateway) Shutdown(ctx context.Context) error {
	return g.server.Shutdown(ctx)
}

func (g *Gateway) trigger(r Refresher) {
	if r != nil {
		r.Trigger()
	}
}

// correlationMiddleware reuses the caller's correlation id or mints one,
// echoes it, and passes it on to service calls made for the request.
func correlationMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		cid := c.GetHeader(client.HeaderCorrelationID)
		if cid == "" {
			cid = uuid.NewString()
		}
		c.Header(client.HeaderCorrelationID, cid)
		c.Request = c.Request.WithContext(client.WithCorrelationID(c.Request.Context(), cid))
		c.Next()
	}
}

func requireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader(HeaderSessionID) == "" {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "missing " + HeaderSessionID + " header"})
			return
		}
		c.Next()
	}
}

func loggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		logger.Info("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("query", query),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("correlation_id", client.CorrelationID(c.Request.Context())),
		)
	}
}
