// Package inventory manages the school infirmary stock: medical items, their suppliers
// and the transactions moving items in and out.
package inventory

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/trezcool/schoolhealth/core"
	"github.com/trezcool/schoolhealth/core/form"
)

const (
	ItemCollection        = "medical-item"
	SupplierCollection    = "supplier"
	TransactionCollection = "inventory-transaction"
)

var (
	ErrSupplierRequired  = errors.New("an import must name its supplier")
	ErrInsufficientStock = errors.New("not enough items in stock")
	ErrUnknownItem       = errors.New("unknown medical item")
)

type Service struct {
	client core.RESTClient
}

func NewService(client core.RESTClient) *Service {
	return &Service{client: client}
}

func (svc *Service) Items(ctx context.Context) ([]MedicalItem, error) {
	var items []MedicalItem
	if err := svc.client.Get(ctx, "/"+ItemCollection, nil, &items); err != nil {
		return nil, errors.Wrap(err, "listing medical items")
	}
	return items, nil
}

func (svc *Service) Suppliers(ctx context.Context) ([]Supplier, error) {
	var suppliers []Supplier
	if err := svc.client.Get(ctx, "/"+SupplierCollection, nil, &suppliers); err != nil {
		return nil, errors.Wrap(err, "listing suppliers")
	}
	return suppliers, nil
}

func (svc *Service) Transactions(ctx context.Context) ([]Transaction, error) {
	var txs []Transaction
	if err := svc.client.Get(ctx, "/"+TransactionCollection, nil, &txs); err != nil {
		return nil, errors.Wrap(err, "listing inventory transactions")
	}
	return txs, nil
}

// FormData fetches the items and suppliers the transaction form needs, concurrently.
func (svc *Service) FormData(ctx context.Context) (FormData, error) {
	var data FormData
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		data.Items, err = svc.Items(gctx)
		return err
	})
	g.Go(func() (err error) {
		data.Suppliers, err = svc.Suppliers(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return FormData{}, err
	}
	return data, nil
}

func (svc *Service) CreateItem(ctx context.Context, ni NewMedicalItem) (MedicalItem, error) {
	ni.Name = core.CleanString(ni.Name)
	var item MedicalItem
	err := svc.client.Post(ctx, "/"+ItemCollection, ni, &item)
	return item, err
}

func (svc *Service) CreateSupplier(ctx context.Context, ns NewSupplier) (Supplier, error) {
	ns.Name = core.CleanString(ns.Name)
	ns.Email = core.CleanString(ns.Email, true /* lower */)
	var sup Supplier
	err := svc.client.Post(ctx, "/"+SupplierCollection, ns, &sup)
	return sup, err
}

func (svc *Service) CreateTransaction(ctx context.Context, nt NewTransaction) (Transaction, error) {
	var tx Transaction
	err := svc.client.Post(ctx, "/"+TransactionCollection, nt, &tx)
	return tx, err
}

// TransactionChecks returns the rules of the transaction form against the current stock.
func TransactionChecks(data FormData) []form.Check[NewTransaction] {
	return []form.Check[NewTransaction]{
		func(nt NewTransaction) error {
			if nt.Type == TransactionImport && nt.SupplierID == "" {
				return core.NewValidationError(ErrSupplierRequired,
					core.FieldError{Field: "supplier_id", Error: ErrSupplierRequired.Error()})
			}
			return nil
		},
		func(nt NewTransaction) error {
			if nt.Type == TransactionImport {
				return nil
			}
			for _, item := range data.Items {
				if item.ID != nt.ItemID {
					continue
				}
				if nt.Quantity > item.Quantity {
					msg := fmt.Sprintf("%s: only %d %s left", ErrInsufficientStock, item.Quantity, item.Unit)
					return core.NewValidationError(errors.New(msg),
						core.FieldError{Field: "quantity", Error: msg})
				}
				return nil
			}
			return core.NewValidationError(ErrUnknownItem,
				core.FieldError{Field: "medical_item_id", Error: ErrUnknownItem.Error()})
		},
	}
}
