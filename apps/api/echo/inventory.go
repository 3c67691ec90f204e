package echoapi

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/schoolhealth/core/form"
	"github.com/trezcool/schoolhealth/core/inventory"
	"github.com/trezcool/schoolhealth/core/user"
)

type inventoryApi struct {
	s   *server
	svc *inventory.Service
}

func registerInventoryAPI(g *echo.Group, s *server) {
	api := inventoryApi{s: s, svc: s.opts.InventorySvc}
	staff := roleMiddleware(user.RoleNurse, user.RoleAdmin)

	g.GET("/medical-items", api.queryItems, staff)
	g.GET("/medical-items/export", api.exportItems, staff)
	g.POST("/medical-items", api.createItem, staff)

	g.GET("/suppliers", api.querySuppliers, staff)
	g.POST("/suppliers", api.createSupplier, staff)

	g.GET("/inventory-transactions", api.queryTransactions, staff)
	g.GET("/inventory-transactions/form-data", api.transactionFormData, staff)
	g.POST("/inventory-transactions", api.createTransaction, staff)
}

func (api *inventoryApi) queryItems(ctx echo.Context) error {
	return listPage(ctx, api.s.pageSize(), inventory.ItemSorts, api.svc.Items)
}

func (api *inventoryApi) exportItems(ctx echo.Context) error {
	return exportCSV(ctx, "medical-items", inventory.ItemColumns, inventory.ItemSorts, api.svc.Items)
}

func (api *inventoryApi) querySuppliers(ctx echo.Context) error {
	return listPage(ctx, api.s.pageSize(), inventory.SupplierSorts, api.svc.Suppliers)
}

func (api *inventoryApi) queryTransactions(ctx echo.Context) error {
	return listPage(ctx, api.s.pageSize(), inventory.TransactionSorts, api.svc.Transactions)
}

func (api *inventoryApi) transactionFormData(ctx echo.Context) error {
	data, err := api.svc.FormData(ctx.Request().Context())
	if err != nil {
		return err
	}
	return respond(ctx, http.StatusOK, Response{Data: data})
}

func (api *inventoryApi) createItem(ctx echo.Context) error {
	var created inventory.MedicalItem
	f := form.New(inventory.NewMedicalItem{}, func(c context.Context, ni inventory.NewMedicalItem) (err error) {
		created, err = api.svc.CreateItem(c, ni)
		return err
	}, api.s.formConfig("Medical item created successfully.", "/medical-items"))
	return submitForm(ctx, http.StatusCreated, f, nil, &created)
}

func (api *inventoryApi) createSupplier(ctx echo.Context) error {
	var created inventory.Supplier
	f := form.New(inventory.NewSupplier{}, func(c context.Context, ns inventory.NewSupplier) (err error) {
		created, err = api.svc.CreateSupplier(c, ns)
		return err
	}, api.s.formConfig("Supplier created successfully.", "/suppliers"))
	return submitForm(ctx, http.StatusCreated, f, nil, &created)
}

// createTransaction checks the transaction against the current stock before sending it.
func (api *inventoryApi) createTransaction(ctx echo.Context) error {
	data, err := api.svc.FormData(ctx.Request().Context())
	if err != nil {
		return err
	}
	var created inventory.Transaction
	f := form.New(inventory.NewTransaction{}, func(c context.Context, nt inventory.NewTransaction) (err error) {
		created, err = api.svc.CreateTransaction(c, nt)
		return err
	}, api.s.formConfig("Transaction recorded successfully.", "/inventory-transactions"),
		inventory.TransactionChecks(data)...)
	return submitForm(ctx, http.StatusCreated, f, nil, &created)
}
