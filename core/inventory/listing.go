package inventory

import (
	"strconv"
	"time"

	"github.com/trezcool/schoolhealth/core/export"
	"github.com/trezcool/schoolhealth/core/listing"
)

var ItemSorts = map[string]listing.Comparator[MedicalItem]{
	"name":     listing.ByString(func(m MedicalItem) string { return m.Name }),
	"quantity": listing.ByInt(func(m MedicalItem) int { return m.Quantity }),
	"exp_date": listing.ByTime(func(m MedicalItem) time.Time { return m.ExpiryDate.Time }),
}

var SupplierSorts = map[string]listing.Comparator[Supplier]{
	"name": listing.ByString(func(s Supplier) string { return s.Name }),
}

var TransactionSorts = map[string]listing.Comparator[Transaction]{
	"transaction_date": listing.ByTime(func(t Transaction) time.Time { return t.CreatedAt.Time }),
	"quantity":         listing.ByInt(func(t Transaction) int { return t.Quantity }),
}

var ItemColumns = []export.Column[MedicalItem]{
	{Header: "ID", Value: func(m MedicalItem) string { return m.ID.String() }},
	{Header: "Name", Value: func(m MedicalItem) string { return m.Name }},
	{Header: "Category", Value: func(m MedicalItem) string { return m.Category }},
	{Header: "Quantity", Value: func(m MedicalItem) string { return strconv.Itoa(m.Quantity) }},
	{Header: "Unit", Value: func(m MedicalItem) string { return m.Unit }},
	{Header: "Stock", Value: func(m MedicalItem) string { return m.StatusLabel() }},
	{Header: "Expiry", Value: func(m MedicalItem) string { return export.FormatTime(m.ExpiryDate.Time) }},
}
