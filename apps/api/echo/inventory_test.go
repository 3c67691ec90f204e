package echoapi_test

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/schoolhealth/core"
	"github.com/trezcool/schoolhealth/core/inventory"
	"github.com/trezcool/schoolhealth/tests"
)

func stockInventory(backend *testutil.Backend) {
	backend.Handle(http.MethodGet, "/medical-item", testutil.Data([]echo.Map{
		{"id": 1, "name": "Paracetamol", "unit": "box", "quantity": 5},
		{"id": 2, "name": "Bandage", "unit": "roll", "quantity": 40},
	}))
	backend.Handle(http.MethodGet, "/supplier", testutil.Data([]echo.Map{
		{"id": 3, "name": "Pharma Co", "status": inventory.SupplierActive},
	}))
}

func Test_inventoryApi_items(t *testing.T) {
	app, backend, tok := setup(t)
	stockInventory(backend)

	rec := httpTest{path: "/v1/medical-items?status=" + inventory.StockLow, token: tok.nurse}.do(t, app)
	var items []inventory.MedicalItem
	require.NoError(t, json.Unmarshal(decode[httpRes](t, rec).Data, &items))
	require.Len(t, items, 1)
	assert.Equal(t, "Paracetamol", items[0].Name)

	rec = httpTest{path: "/v1/medical-items/export?ordering=-quantity", token: tok.admin}.do(t, app)
	body := rec.Body.String()
	assert.True(t, strings.HasPrefix(body, "\ufeffID,Name,Category,Quantity,Unit,Stock,Expiry"), body)
	assert.Less(t, strings.Index(body, "2,Bandage,,40,roll,AVAILABLE"), strings.Index(body, "1,Paracetamol,,5,box,LOW"))

	rec = httpTest{path: "/v1/suppliers", token: tok.nurse}.do(t, app)
	assert.EqualValues(t, 1, decode[httpRes](t, rec).Page["total_items"])

	httpTest{path: "/v1/medical-items", token: tok.lan, wantCode: http.StatusForbidden}.do(t, app)
}

func Test_inventoryApi_transactionFormData(t *testing.T) {
	app, backend, tok := setup(t)
	stockInventory(backend)

	rec := httpTest{path: "/v1/inventory-transactions/form-data", token: tok.nurse}.do(t, app)
	var data inventory.FormData
	require.NoError(t, json.Unmarshal(decode[httpRes](t, rec).Data, &data))
	assert.Len(t, data.Items, 2)
	require.Len(t, data.Suppliers, 1)
	assert.Equal(t, "Pharma Co", data.Suppliers[0].Name)
}

func Test_inventoryApi_createTransaction(t *testing.T) {
	app, backend, tok := setup(t)
	stockInventory(backend)
	backend.Handle(http.MethodPost, "/inventory-transaction", testutil.Data(echo.Map{"id": 9, "purpose_title": inventory.TransactionUsage}))

	tests := []struct {
		httpTest
		wantField string
	}{
		{
			httpTest: httpTest{
				name: "more than in stock", method: http.MethodPost, path: "/v1/inventory-transactions", token: tok.nurse,
				body:     `{"purpose_title":"USAGE","medical_item_id":"1","quantity":6}`,
				wantCode: http.StatusBadRequest,
			},
			wantField: "quantity",
		},
		{
			httpTest: httpTest{
				name: "import without supplier", method: http.MethodPost, path: "/v1/inventory-transactions", token: tok.nurse,
				body:     `{"purpose_title":"IMPORT","medical_item_id":"1","quantity":50}`,
				wantCode: http.StatusBadRequest,
			},
			wantField: "supplier_id",
		},
		{
			httpTest: httpTest{
				name: "unknown item", method: http.MethodPost, path: "/v1/inventory-transactions", token: tok.nurse,
				body:     `{"purpose_title":"DISPOSAL","medical_item_id":"8","quantity":1}`,
				wantCode: http.StatusBadRequest,
			},
			wantField: "medical_item_id",
		},
		{
			httpTest: httpTest{
				name: "parents cannot", method: http.MethodPost, path: "/v1/inventory-transactions", token: tok.lan,
				body:     `{"purpose_title":"USAGE","medical_item_id":"1","quantity":1}`,
				wantCode: http.StatusForbidden,
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := tt.do(t, app)
			if tt.wantField != "" {
				assert.Contains(t, decode[httpErr](t, rec).Errors, tt.wantField)
			}
		})
	}
	assert.Zero(t, backend.Count(http.MethodPost, "/inventory-transaction"))

	rec := httpTest{
		method: http.MethodPost, path: "/v1/inventory-transactions", token: tok.nurse,
		body:     `{"purpose_title":"USAGE","medical_item_id":"1","quantity":5}`,
		wantCode: http.StatusCreated,
	}.do(t, app)
	res := decode[httpRes](t, rec)
	assert.Equal(t, "/inventory-transactions", res.Redirect)
	assert.Equal(t, []core.Notification{{Level: core.LevelSuccess, Message: "Transaction recorded successfully."}}, res.Notifications)

	var sent []testutil.Request
	for _, req := range backend.Requests() {
		if req.Method == http.MethodPost {
			sent = append(sent, req)
		}
	}
	require.Len(t, sent, 1)
	assert.JSONEq(t, `{"purpose_title":"USAGE","medical_item_id":"1","supplier_id":"","quantity":5,"note":""}`, string(sent[0].Body))
}
