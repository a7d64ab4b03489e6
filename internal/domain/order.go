package domain

import "time"

// Item is a single line item of an order.
type Item struct {
	SKU      string `json:"sku"`
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

// OrderLine is the part of an external order contributed by one vendor.
type OrderLine struct {
	OrderID   string
	VendorID  string
	SlotID    int64
	SectorID  int64
	Date      time.Time
	Items     []Item
	Canceled  bool
	UpdatedAt time.Time
}
