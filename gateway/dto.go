package gateway

import (
	"time"

	"github.com/example/orderdesk/pkg/analytics"
	"github.com/example/orderdesk/pkg/board"
	"github.com/example/orderdesk/pkg/cart"
	"github.com/example/orderdesk/pkg/catalog"
	"github.com/example/orderdesk/pkg/models"
	"github.com/shopspring/decimal"
)

type menuItemRequest struct {
	Name        string          `json:"item"`
	Category    string          `json:"category"`
	Price       decimal.Decimal `json:"price"`
	Description string          `json:"description"`
}

type categoryRequest struct {
	Name     string `json:"name"`
	ImageURL string `json:"image_url"`
}

type statusRequest struct {
	Status string `json:"order_status" binding:"required"`
}

type checkoutRequest struct {
	Customer string `json:"user_details"`
}

type chatMessageRequest struct {
	Message string `json:"message"`
}

type menuItemResponse struct {
	models.MenuItem
	ImageURL string `json:"image_url"`
}

func newMenuItems(c catalog.Catalog, items []models.MenuItem) []menuItemResponse {
	out := make([]menuItemResponse, len(items))
	for i, it := range items {
		out[i] = menuItemResponse{MenuItem: it, ImageURL: c.ImageFor(it)}
	}
	return out
}

type orderResponse struct {
	models.Order
	NextStatuses []models.OrderStatus `json:"next_statuses"`
}

func newOrders(orders []models.Order) []orderResponse {
	out := make([]orderResponse, len(orders))
	for i, o := range orders {
		out[i] = orderResponse{Order: o, NextStatuses: board.NextStatuses(o.Status)}
	}
	return out
}

type cartLineResponse struct {
	ItemID    int64  `json:"item_id"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	UnitPrice string `json:"unit_price,omitempty"`
	LineTotal string `json:"line_total,omitempty"`
	Available bool   `json:"available"`
}

type cartResponse struct {
	Lines []cartLineResponse `json:"lines"`
	Total string             `json:"total"`
}

func newCart(ct cart.Cart, c catalog.Catalog) cartResponse {
	resp := cartResponse{
		Lines: make([]cartLineResponse, 0, ct.Len()),
		Total: ct.Total(c).StringFixed(2),
	}
	for _, l := range ct.Lines() {
		line := cartLineResponse{ItemID: l.ItemID, Quantity: l.Quantity}
		if it, ok := c.Item(l.ItemID); ok {
			line.Name = it.Name
			line.UnitPrice = it.Price.StringFixed(2)
			line.LineTotal = it.Price.Mul(decimal.NewFromInt(int64(l.Quantity))).StringFixed(2)
			line.Available = true
		}
		resp.Lines = append(resp.Lines, line)
	}
	return resp
}

type itemStatsResponse struct {
	Name         string `json:"name"`
	QuantitySold int    `json:"quantity_sold"`
	Revenue      string `json:"revenue"`
}

type remoteStatsResponse struct {
	Items      []models.ItemIncome    `json:"items"`
	Statistics models.OrderStatistics `json:"statistics"`
	FetchedAt  string                 `json:"fetched_at"`
}

type analyticsResponse struct {
	Items         []itemStatsResponse        `json:"items"`
	StatusCounts  map[models.OrderStatus]int `json:"status_counts"`
	UnknownStatus int                        `json:"unknown_status,omitempty"`
	TotalOrders   int                        `json:"total_orders"`
	TotalRevenue  string                     `json:"total_revenue"`
	Remote        *remoteStatsResponse       `json:"remote,omitempty"`
}

func newAnalytics(v analytics.View) analyticsResponse {
	items := v.Local.Items()
	resp := analyticsResponse{
		Items:         make([]itemStatsResponse, len(items)),
		StatusCounts:  v.Local.StatusCounts,
		UnknownStatus: v.Local.UnknownStatus,
		TotalOrders:   v.Local.TotalOrders,
		TotalRevenue:  v.Local.TotalRevenue().StringFixed(2),
	}
	for i, st := range items {
		resp.Items[i] = itemStatsResponse{Name: st.Name, QuantitySold: st.QuantitySold, Revenue: st.RevenueString()}
	}
	if v.Remote != nil {
		resp.Remote = &remoteStatsResponse{
			Items:      v.Remote.Items,
			Statistics: v.Remote.Statistics,
			FetchedAt:  v.Remote.FetchedAt.Format(time.RFC3339),
		}
	}
	return resp
}
