package inventory

import (
	"context"
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/schoolhealth/core"
	logsvc "github.com/trezcool/schoolhealth/services/logger"
	"github.com/trezcool/schoolhealth/services/notify"
	"github.com/trezcool/schoolhealth/services/restapi"
	"github.com/trezcool/schoolhealth/services/session"
	"github.com/trezcool/schoolhealth/tests"
)

func setup(t *testing.T) (*Service, *testutil.Backend) {
	backend := testutil.NewBackend(t)
	client := restapi.NewClient(backend.Config(), session.Static("nurse-token"), notify.NewCollector(), logsvc.NewNop())
	return NewService(client), backend
}

func TestService_FormData(t *testing.T) {
	svc, backend := setup(t)
	backend.Handle(http.MethodGet, "/medical-item", testutil.Data([]echo.Map{
		{"id": 1, "name": "Paracetamol 500mg", "unit": "box", "quantity": 4},
	}))
	backend.Handle(http.MethodGet, "/supplier", testutil.Data([]echo.Map{{"id": 3, "name": "Pharmacity"}}))

	data, err := svc.FormData(context.Background())
	require.NoError(t, err)
	require.Len(t, data.Items, 1)
	require.Len(t, data.Suppliers, 1)
	assert.Equal(t, StockLow, data.Items[0].StatusLabel())

	backend2 := testutil.NewBackend(t)
	backend2.Handle(http.MethodGet, "/medical-item", testutil.Data([]echo.Map{}))
	backend2.Handle(http.MethodGet, "/supplier", testutil.Fail(http.StatusInternalServerError, "boom"))
	svc2 := NewService(restapi.NewClient(backend2.Config(), nil, nil, logsvc.NewNop()))
	_, err = svc2.FormData(context.Background())
	assert.Equal(t, "boom", core.MessageOf(err))
}

func TestTransactionChecks(t *testing.T) {
	data := FormData{Items: []MedicalItem{{ID: "1", Name: "Gauze", Unit: "roll", Quantity: 4}}}

	tests := []struct {
		name    string
		tx      NewTransaction
		wantErr string
	}{
		{name: "import", tx: NewTransaction{Type: TransactionImport, ItemID: "1", SupplierID: "3", Quantity: 100}},
		{name: "import without supplier", tx: NewTransaction{Type: TransactionImport, ItemID: "1", Quantity: 1}, wantErr: "supplier_id: an import must name its supplier"},
		{name: "usage in stock", tx: NewTransaction{Type: TransactionUsage, ItemID: "1", Quantity: 4}},
		{name: "usage over stock", tx: NewTransaction{Type: TransactionUsage, ItemID: "1", Quantity: 5}, wantErr: "quantity: not enough items in stock: only 4 roll left"},
		{name: "unknown item", tx: NewTransaction{Type: TransactionWaste, ItemID: "9", Quantity: 1}, wantErr: "medical_item_id: unknown medical item"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var err error
			for _, check := range TransactionChecks(data) {
				if err = check(tt.tx); err != nil {
					break
				}
			}
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			verr, ok := err.(*core.ValidationError)
			require.True(t, ok, "want a *core.ValidationError, got %T", err)
			require.Len(t, verr.Fields, 1)
			assert.Equal(t, tt.wantErr, verr.Fields[0].Field+": "+verr.Fields[0].Error)
		})
	}
}

func TestStockLevel(t *testing.T) {
	tests := []struct {
		qty  int
		want string
	}{
		{-1, StockOut}, {0, StockOut}, {1, StockLow}, {LowStockThreshold, StockLow}, {LowStockThreshold + 1, StockAvailable},
	}
	for _, tt := range tests {
		if got := StockLevel(tt.qty); got != tt.want {
			t.Errorf("StockLevel(%d) = %v, want %v", tt.qty, got, tt.want)
		}
	}
}
