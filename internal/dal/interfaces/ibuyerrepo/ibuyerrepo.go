package ibuyerrepo

import (
	"context"

	"github.com/corray333/backend-labs/trade/internal/service/models/buyer"
)

// IBuyerRepository is an interface for buyer repository.
type IBuyerRepository interface {
	Insert(ctx context.Context, b buyer.Buyer) (buyer.Buyer, error)
	Get(ctx context.Context, id int64) (buyer.Buyer, error)
}
