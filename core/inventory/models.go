package inventory

import (
	"github.com/trezcool/schoolhealth/core"
)

// Medical item stock levels, derived from quantities.
const (
	StockAvailable = "AVAILABLE"
	StockLow       = "LOW"
	StockOut       = "OUT_OF_STOCK"

	LowStockThreshold = 10
)

// Transaction types
const (
	TransactionImport = "IMPORT"
	TransactionExport = "EXPORT"
	TransactionUsage  = "USAGE"
	TransactionWaste  = "DISPOSAL"
)

var TransactionTypes = []string{TransactionImport, TransactionExport, TransactionUsage, TransactionWaste}

// Supplier statuses
const (
	SupplierActive   = "ACTIVE"
	SupplierInactive = "INACTIVE"
)

type MedicalItem struct {
	ID          core.ID   `json:"id"`
	Name        string    `json:"name"`
	Category    string    `json:"category,omitempty"`
	Unit        string    `json:"unit,omitempty"`
	Quantity    int       `json:"quantity"`
	Description string    `json:"description,omitempty"`
	ExpiryDate  core.Time `json:"exp_date"`
	CreatedAt   core.Time `json:"created_at"`
}

func (m MedicalItem) Key() core.ID         { return m.ID }
func (m MedicalItem) SearchText() []string { return []string{m.Name, m.Category, m.Description} }

// StatusLabel is the stock level of the item.
func (m MedicalItem) StatusLabel() string { return StockLevel(m.Quantity) }

// WithStatus returns the item unchanged: the stock level follows the quantity.
func (m MedicalItem) WithStatus(string) MedicalItem { return m }

func StockLevel(qty int) string {
	switch {
	case qty <= 0:
		return StockOut
	case qty <= LowStockThreshold:
		return StockLow
	default:
		return StockAvailable
	}
}

type Supplier struct {
	ID          core.ID `json:"id"`
	Name        string  `json:"name"`
	ContactName string  `json:"contact_name,omitempty"`
	Phone       string  `json:"phone,omitempty"`
	Email       string  `json:"email,omitempty"`
	Address     string  `json:"address,omitempty"`
	Status      string  `json:"status,omitempty"`
}

func (s Supplier) Key() core.ID        { return s.ID }
func (s Supplier) StatusLabel() string { return s.Status }
func (s Supplier) SearchText() []string {
	return []string{s.Name, s.ContactName, s.Phone, s.Email, s.Address}
}

func (s Supplier) WithStatus(status string) Supplier {
	s.Status = status
	return s
}

type Transaction struct {
	ID           core.ID   `json:"id"`
	Type         string    `json:"purpose_title"`
	ItemID       core.ID   `json:"medical_item_id"`
	ItemName     string    `json:"medical_item_name,omitempty"`
	SupplierID   core.ID   `json:"supplier_id,omitempty"`
	SupplierName string    `json:"supplier_name,omitempty"`
	Quantity     int       `json:"quantity"`
	Note         string    `json:"note,omitempty"`
	CreatedAt    core.Time `json:"transaction_date"`
}

func (t Transaction) Key() core.ID         { return t.ID }
func (t Transaction) StatusLabel() string  { return t.Type }
func (t Transaction) SearchText() []string { return []string{t.ItemName, t.SupplierName, t.Note} }

func (t Transaction) WithStatus(typ string) Transaction {
	t.Type = typ
	return t
}

type NewMedicalItem struct {
	Name        string `json:"name" validate:"required,notblank"`
	Category    string `json:"category"`
	Unit        string `json:"unit" validate:"required"`
	Quantity    int    `json:"quantity" validate:"gte=0"`
	Description string `json:"description"`
	ExpiryDate  string `json:"exp_date" validate:"omitempty,datetime=2006-01-02"`
}

type NewSupplier struct {
	Name        string `json:"name" validate:"required,notblank"`
	ContactName string `json:"contact_name"`
	Phone       string `json:"phone" validate:"omitempty,numeric,min=9,max=15"`
	Email       string `json:"email" validate:"omitempty,email"`
	Address     string `json:"address"`
}

type NewTransaction struct {
	Type       string  `json:"purpose_title" validate:"required,oneof=IMPORT EXPORT USAGE DISPOSAL"`
	ItemID     core.ID `json:"medical_item_id" validate:"required"`
	SupplierID core.ID `json:"supplier_id"`
	Quantity   int     `json:"quantity" validate:"required,gt=0"`
	Note       string  `json:"note"`
}

// FormData is what the transaction form offers to pick from.
type FormData struct {
	Items     []MedicalItem `json:"items"`
	Suppliers []Supplier    `json:"suppliers"`
}
