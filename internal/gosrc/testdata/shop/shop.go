// Package shop is a small domain used to exercise the Go source provider.
package shop

import "time"

// Status is the lifecycle state of an order.
type Status string

const (
	StatusNew     Status = "new"
	StatusPaid    Status = "paid"
	StatusShipped Status = "shipped"
)

type Priority int

const (
	Low Priority = iota
	High
)

type Cents int64

// Entity carries the identifier shared by stored records.
type Entity[ID any] struct {
	ID ID `json:"id" validate:"required"`
}

// Order is a customer order.
type Order struct {
	Entity[int64]
	// Tags are free-form labels.
	Tags     []string             `json:"tags"`
	Owner    *User                `json:"owner" binding:"required"`
	Status   Status               `json:"status"`
	Priority Priority             `json:"priority,omitempty"`
	Lines    map[string]OrderLine `json:"lines"`
	Total    Cents                `json:"total"` // in cents
	Created  time.Time            `json:"created_at"`
	Payload  []byte               `json:"payload,omitempty"`
	Meta     any                  `json:"meta,omitempty"`
	Internal string               `json:"-"`
	secret   string
}

type User struct {
	Name     string `json:"name" validate:"required,min=1"`
	Account  *Order `json:"account"`
	Password string `json:"password"`
}

type OrderLine struct {
	SKU string `json:"sku"`
	Qty int
}

type Page[T any] struct {
	Content []T   `json:"content"`
	Total   int64 `json:"total"`
}

type Handler interface {
	Serve()
}
