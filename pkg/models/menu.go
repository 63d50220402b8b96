package models

import "github.com/shopspring/decimal"

type MenuItem struct {
	ID          int64           `json:"id"`
	Name        string          `json:"item"`
	Category    string          `json:"category"`
	Price       decimal.Decimal `json:"price"`
	Description string          `json:"description"`
}

// Category is keyed by name. An empty ImageURL means the image is
// resolved from the keyword table instead.
type Category struct {
	Name     string `json:"name"`
	ImageURL string `json:"image_url,omitempty"`
}

// MenuItemInput is a menu item that has not been assigned an id yet.
type MenuItemInput struct {
	Name        string
	Category    string
	Price       decimal.Decimal
	Description string
}
