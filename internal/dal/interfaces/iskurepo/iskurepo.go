package iskurepo

import (
	"context"

	"github.com/corray333/backend-labs/trade/internal/service/models/sku"
)

// ISKURepository is an interface for SKU catalog repository.
type ISKURepository interface {
	Insert(ctx context.Context, s sku.SKU) (sku.SKU, error)
	Get(ctx context.Context, id int64) (sku.SKU, error)
	// GetByCode looks the SKU up by its normalized code.
	GetByCode(ctx context.Context, code string) (sku.SKU, error)
}
