package domain

import (
	"context"
	"errors"
	"strings"
	"time"
)

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Response, error)
	Get(ctx context.Context, id string) (*Response, error)
	List(ctx context.Context, req ListRequest) ([]Response, error)
	Deactivate(ctx context.Context, id string) (*Response, error)

	// ResolveSKU returns the active variant for sku.
	ResolveSKU(ctx context.Context, sku string) (Variant, error)
	// ResolveID returns the variant regardless of its active flag.
	ResolveID(ctx context.Context, id int64) (Variant, error)
}

type CreateRequest struct {
	SKU  string `json:"sku" binding:"required"`
	Name string `json:"name" binding:"required"`
	Kind string `json:"kind" binding:"required,oneof=PRODUCT MATERIAL"`
}

type ListRequest struct {
	Kind   string
	Active *bool
}

type Response struct {
	ID        string    `json:"id"`
	SKU       string    `json:"sku"`
	Name      string    `json:"name"`
	Kind      Kind      `json:"kind"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

var (
	ErrVariantNotFound = errors.New("variant_not_found")
	ErrVariantInactive = errors.New("variant_inactive")
	ErrDuplicateSKU    = errors.New("duplicate_sku")
	ErrInvalidSKU      = errors.New("invalid_sku")
	ErrInvalidName     = errors.New("invalid_name")
	ErrInvalidKind     = errors.New("invalid_kind")
	ErrInvalidID       = errors.New("invalid_id")
)

// NormalizeSKU trims and upper-cases sku.
func NormalizeSKU(sku string) string {
	return strings.ToUpper(strings.TrimSpace(sku))
}
