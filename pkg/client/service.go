package client

import (
	"context"
	"fmt"
	"net/http"

	"github.com/example/orderdesk/pkg/models"
	"github.com/shopspring/decimal"
)

type menuItemRequest struct {
	Item        string          `json:"item"`
	Category    string          `json:"category"`
	Price       decimal.Decimal `json:"price"`
	Description string          `json:"description"`
}

type createOrderRequest struct {
	UserDetails string             `json:"user_details"`
	Items       []models.OrderLine `json:"items"`
}

type statusRequest struct {
	OrderStatus models.OrderStatus `json:"order_status"`
}

type chatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id"`
}

type chatResponse struct {
	Response string `json:"response"`
	Reply    string `json:"reply"`
}

func (c *Client) ListMenu(ctx context.Context) ([]models.MenuItem, error) {
	var items []models.MenuItem
	if err := c.do(ctx, "list menu", http.MethodGet, "/menu/", nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (c *Client) ListCategories(ctx context.Context) ([]models.Category, error) {
	var categories []models.Category
	if err := c.do(ctx, "list categories", http.MethodGet, "/categories/", nil, &categories); err != nil {
		return nil, err
	}
	return categories, nil
}

func (c *Client) CreateMenuItem(ctx context.Context, in models.MenuItemInput) (models.MenuItem, error) {
	req := menuItemRequest{
		Item:        in.Name,
		Category:    in.Category,
		Price:       in.Price,
		Description: in.Description,
	}
	var item models.MenuItem
	if err := c.do(ctx, "create menu item", http.MethodPost, "/menu/", req, &item); err != nil {
		return models.MenuItem{}, err
	}
	return item, nil
}

func (c *Client) DeleteMenuItem(ctx context.Context, id int64) error {
	return c.do(ctx, "delete menu item", http.MethodDelete, fmt.Sprintf("/menu/%d", id), nil, nil)
}

func (c *Client) CreateCategory(ctx context.Context, cat models.Category) (models.Category, error) {
	var created models.Category
	if err := c.do(ctx, "create category", http.MethodPost, "/categories/", cat, &created); err != nil {
		return models.Category{}, err
	}
	return created, nil
}

func (c *Client) ListOrders(ctx context.Context) ([]models.Order, error) {
	var orders []models.Order
	if err := c.do(ctx, "list orders", http.MethodGet, "/orders/", nil, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func (c *Client) CreateOrder(ctx context.Context, customerRef string, lines []models.OrderLine) (models.Order, error) {
	req := createOrderRequest{UserDetails: customerRef, Items: lines}
	var order models.Order
	if err := c.do(ctx, "create order", http.MethodPost, "/orders/", req, &order); err != nil {
		return models.Order{}, err
	}
	return order, nil
}

func (c *Client) UpdateOrderStatus(ctx context.Context, id int64, status models.OrderStatus) (models.Order, error) {
	var order models.Order
	path := fmt.Sprintf("/orders/%d/status", id)
	if err := c.do(ctx, "update order status", http.MethodPut, path, statusRequest{OrderStatus: status}, &order); err != nil {
		return models.Order{}, err
	}
	return order, nil
}

func (c *Client) DeleteOrder(ctx context.Context, id int64) error {
	return c.do(ctx, "delete order", http.MethodDelete, fmt.Sprintf("/orders/%d", id), nil, nil)
}

func (c *Client) AnalyticsRaw(ctx context.Context) ([]models.ItemIncome, error) {
	var rows []models.ItemIncome
	if err := c.do(ctx, "analytics", http.MethodGet, "/analytics/", nil, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (c *Client) OrderStatistics(ctx context.Context) (models.OrderStatistics, error) {
	var stats models.OrderStatistics
	if err := c.do(ctx, "order statistics", http.MethodGet, "/orders/statistics/", nil, &stats); err != nil {
		return models.OrderStatistics{}, err
	}
	return stats, nil
}

// SendChat posts one message. The backend answers with "response"; older
// deployments used "reply".
func (c *Client) SendChat(ctx context.Context, sessionID, text string) (string, error) {
	var resp chatResponse
	req := chatRequest{Message: text, SessionID: sessionID}
	if err := c.do(ctx, "send chat message", http.MethodPost, "/chat/", req, &resp); err != nil {
		return "", err
	}
	if resp.Response != "" {
		return resp.Response, nil
	}
	return resp.Reply, nil
}
