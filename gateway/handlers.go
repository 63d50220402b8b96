package gateway

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/example/orderdesk/pkg/board"
	"github.com/example/orderdesk/pkg/cart"
	"github.com/example/orderdesk/pkg/models"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// writeError maps core errors onto HTTP statuses.
func (g *Gateway) writeError(c *gin.Context, err error) {
	var (
		ve *models.ValidationError
		se *models.ServiceError
	)
	switch {
	case errors.As(err, &ve):
		c.JSON(http.StatusBadRequest, gin.H{"error": ve.Error(), "field": ve.Field})
	case errors.Is(err, models.ErrSessionNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.As(err, &se):
		g.logger.Warn("Service call failed", zap.String("op", se.Op), zap.Error(err))
		body := gin.H{"error": se.Error()}
		if se.StatusCode != 0 {
			body["service_status"] = se.StatusCode
		}
		c.JSON(http.StatusBadGateway, body)
	default:
		g.logger.Error("Request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func paramID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}

func (g *Gateway) health(c *gin.Context) {
	status, code := "ok", http.StatusOK
	tasks := make([]gin.H, 0)

	if g.deps.Stats != nil {
		for _, st := range g.deps.Stats.Stats() {
			healthy := st.Healthy(g.config.Refresh.UnhealthyAfter)
			if !healthy {
				status, code = "degraded", http.StatusServiceUnavailable
			}
			task := gin.H{
				"name":                 st.Name,
				"healthy":              healthy,
				"ticks":                st.Ticks,
				"skipped":              st.Skipped,
				"failures":             st.Failures,
				"stale":                st.Stale,
				"consecutive_failures": st.ConsecutiveFailures,
			}
			if !st.LastSuccess.IsZero() {
				task["last_success"] = st.LastSuccess
			}
			if st.LastError != nil {
				task["last_error"] = st.LastError.Error()
			}
			tasks = append(tasks, task)
		}
	}

	c.JSON(code, gin.H{"status": status, "tasks": tasks})
}

func (g *Gateway) listMenu(c *gin.Context) {
	snap := g.deps.Catalog.Snapshot()
	_, items := board.Filter(nil, snap.Items(), c.Query("q"))
	c.JSON(http.StatusOK, gin.H{"items": newMenuItems(snap, items), "total": len(items)})
}

func (g *Gateway) createMenuItem(c *gin.Context) {
	var req menuItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	item, err := g.deps.Catalog.CreateItem(c.Request.Context(), models.MenuItemInput{
		Name:        req.Name,
		Category:    req.Category,
		Price:       req.Price,
		Description: req.Description,
	})
	if err != nil {
		g.writeError(c, err)
		return
	}

	g.trigger(g.deps.CatalogRefresh)
	c.JSON(http.StatusCreated, item)
}

func (g *Gateway) deleteMenuItem(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	if err := g.deps.Catalog.DeleteItem(c.Request.Context(), id); err != nil {
		g.writeError(c, err)
		return
	}
	g.trigger(g.deps.CatalogRefresh)
	c.Status(http.StatusNoContent)
}

func (g *Gateway) listCategories(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"categories": g.deps.Catalog.Snapshot().Categories()})
}

func (g *Gateway) createCategory(c *gin.Context) {
	var req categoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	created, err := g.deps.Catalog.CreateCategory(c.Request.Context(), models.Category{Name: req.Name, ImageURL: req.ImageURL})
	if err != nil {
		g.writeError(c, err)
		return
	}
	g.trigger(g.deps.CatalogRefresh)
	c.JSON(http.StatusCreated, created)
}

func (g *Gateway) listOrders(c *gin.Context) {
	orders, _ := board.Filter(g.deps.Board.Snapshot(), nil, c.Query("q"))
	c.JSON(http.StatusOK, gin.H{"orders": newOrders(orders), "total": len(orders)})
}

func (g *Gateway) orderTransitions(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	order, found := g.deps.Board.Order(id)
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "order not on board"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"order_id":      order.ID,
		"status":        order.Status,
		"next_statuses": board.NextStatuses(order.Status),
		"terminal":      board.IsTerminal(order.Status),
	})
}

func (g *Gateway) updateOrderStatus(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	status, ok := models.ParseOrderStatus(req.Status)
	if !ok {
		g.writeError(c, &models.ValidationError{Field: "order_status", Reason: "unknown order status " + strconv.Quote(req.Status)})
		return
	}

	order, err := g.deps.Board.SetStatus(c.Request.Context(), id, status)
	if err != nil {
		g.writeError(c, err)
		return
	}
	g.trigger(g.deps.OrdersRefresh)
	c.JSON(http.StatusOK, order)
}

func (g *Gateway) deleteOrder(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	if err := g.deps.Board.Delete(c.Request.Context(), id); err != nil {
		g.writeError(c, err)
		return
	}
	g.trigger(g.deps.OrdersRefresh)
	c.Status(http.StatusNoContent)
}

func (g *Gateway) search(c *gin.Context) {
	snap := g.deps.Catalog.Snapshot()
	orders, items := board.Filter(g.deps.Board.Snapshot(), snap.Items(), c.Query("q"))
	c.JSON(http.StatusOK, gin.H{
		"orders": newOrders(orders),
		"menu":   newMenuItems(snap, items),
	})
}

func (g *Gateway) getCart(c *gin.Context) {
	ct := g.deps.Carts.Get(c.GetHeader(HeaderSessionID))
	c.JSON(http.StatusOK, newCart(ct, g.deps.Catalog.Snapshot()))
}

func (g *Gateway) addCartItem(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	snap := g.deps.Catalog.Snapshot()
	item, found := snap.Item(id)
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "menu item not found"})
		return
	}

	ct := g.deps.Carts.Update(c.GetHeader(HeaderSessionID), func(ct cart.Cart) cart.Cart { return ct.Add(item) })
	c.JSON(http.StatusOK, newCart(ct, snap))
}

func (g *Gateway) removeCartItem(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	// removal works even when the item has left the catalog
	item := models.MenuItem{ID: id}
	ct := g.deps.Carts.Update(c.GetHeader(HeaderSessionID), func(ct cart.Cart) cart.Cart { return ct.Remove(item) })
	c.JSON(http.StatusOK, newCart(ct, g.deps.Catalog.Snapshot()))
}

func (g *Gateway) checkout(c *gin.Context) {
	var req checkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sessionID := c.GetHeader(HeaderSessionID)
	ct := g.deps.Carts.Take(sessionID)

	order, err := g.deps.Board.Submit(c.Request.Context(), req.Customer, ct.OrderLines())
	if err != nil {
		g.deps.Carts.Restore(sessionID, ct)
		g.writeError(c, err)
		return
	}

	g.trigger(g.deps.OrdersRefresh)
	c.JSON(http.StatusCreated, gin.H{
		"order":           order,
		"estimated_total": ct.Total(g.deps.Catalog.Snapshot()).StringFixed(2),
	})
}

func (g *Gateway) getAnalytics(c *gin.Context) {
	c.JSON(http.StatusOK, newAnalytics(g.deps.Analytics.View()))
}

func (g *Gateway) createChatSession(c *gin.Context) {
	id, err := g.deps.Chat.CreateSession()
	if err != nil {
		g.writeError(c, err)
		return
	}
	turns, err := g.deps.Chat.Transcript(id)
	if err != nil {
		g.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"session_id": id, "turns": turns})
}

func (g *Gateway) getChatSession(c *gin.Context) {
	id := c.Param("id")
	turns, err := g.deps.Chat.Transcript(id)
	if err != nil {
		g.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session_id": id, "turns": turns})
}

func (g *Gateway) sendChatMessage(c *gin.Context) {
	var req chatMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	reply, err := g.deps.Chat.Send(c.Request.Context(), c.Param("id"), req.Message)
	if err != nil {
		g.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reply": reply})
}

func (g *Gateway) closeChatSession(c *gin.Context) {
	if err := g.deps.Chat.CloseSession(c.Param("id")); err != nil {
		g.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (g *Gateway) auditTrail(c *gin.Context) {
	limit, err := strconv.ParseInt(c.DefaultQuery("limit", "50"), 10, 64)
	if err != nil || limit <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
		return
	}

	logs, err := g.deps.Audit.GetAuditLogs(c.Request.Context(), c.Param("entity"), c.Param("id"), limit)
	if err != nil {
		g.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": logs})
}
