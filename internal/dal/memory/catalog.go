package memory

import (
	"context"

	"github.com/corray333/backend-labs/trade/internal/errs"
	"github.com/corray333/backend-labs/trade/internal/service/models/buyer"
	"github.com/corray333/backend-labs/trade/internal/service/models/sku"
)

type buyerRepository struct {
	uow *UnitOfWork
}

func (r *buyerRepository) Insert(_ context.Context, b buyer.Buyer) (buyer.Buyer, error) {
	err := r.uow.run(func(t *tables) error {
		b.ID = t.nextID()
		t.buyers[b.ID] = b

		return nil
	})

	return b, err
}

func (r *buyerRepository) Get(_ context.Context, id int64) (buyer.Buyer, error) {
	var b buyer.Buyer
	err := r.uow.run(func(t *tables) error {
		found, ok := t.buyers[id]
		if !ok {
			return errs.NotFound("buyer", id)
		}
		b = found

		return nil
	})

	return b, err
}

type skuRepository struct {
	uow *UnitOfWork
}

func (r *skuRepository) Insert(_ context.Context, s sku.SKU) (sku.SKU, error) {
	s.Code = sku.NormalizeCode(s.Code)
	err := r.uow.run(func(t *tables) error {
		for _, existing := range t.skus {
			if existing.Code == s.Code {
				return errs.ErrDuplicateKey
			}
		}
		s.ID = t.nextID()
		t.skus[s.ID] = s

		return nil
	})

	return s, err
}

func (r *skuRepository) Get(_ context.Context, id int64) (sku.SKU, error) {
	var s sku.SKU
	err := r.uow.run(func(t *tables) error {
		found, ok := t.skus[id]
		if !ok {
			return errs.NotFound("sku", id)
		}
		s = found

		return nil
	})

	return s, err
}

func (r *skuRepository) GetByCode(_ context.Context, code string) (sku.SKU, error) {
	code = sku.NormalizeCode(code)
	var s sku.SKU
	err := r.uow.run(func(t *tables) error {
		for _, existing := range t.skus {
			if existing.Code == code {
				s = existing

				return nil
			}
		}

		return errs.NotFound("sku", code)
	})

	return s, err
}
