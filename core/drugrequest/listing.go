package drugrequest

import (
	"strconv"
	"time"

	"github.com/trezcool/schoolhealth/core/export"
	"github.com/trezcool/schoolhealth/core/listing"
)

// Sorts are the sort keys of the drug request list.
var Sorts = map[string]listing.Comparator[DrugRequest]{
	"created_at":   listing.ByTime(func(r DrugRequest) time.Time { return r.CreatedAt.Time }),
	"start_date":   listing.ByTime(func(r DrugRequest) time.Time { return r.StartDate.Time }),
	"student_name": listing.ByString(func(r DrugRequest) string { return r.StudentName }),
	"status":       listing.ByString(func(r DrugRequest) string { return r.Status }),
}

var ScheduleSorts = map[string]listing.Comparator[MedicationSchedule]{
	"date":      listing.ByTime(func(s MedicationSchedule) time.Time { return s.Date.Time }),
	"drug_name": listing.ByString(func(s MedicationSchedule) string { return s.DrugName }),
}

var Columns = []export.Column[DrugRequest]{
	{Header: "ID", Value: func(r DrugRequest) string { return r.ID.String() }},
	{Header: "Student", Value: func(r DrugRequest) string { return r.StudentName }},
	{Header: "Parent", Value: func(r DrugRequest) string { return r.ParentName }},
	{Header: "Diagnosis", Value: func(r DrugRequest) string { return r.Diagnosis }},
	{Header: "Drugs", Value: func(r DrugRequest) string { return strconv.Itoa(len(r.Items)) }},
	{Header: "Start", Value: func(r DrugRequest) string { return export.FormatTime(r.StartDate.Time) }},
	{Header: "End", Value: func(r DrugRequest) string { return export.FormatTime(r.EndDate.Time) }},
	{Header: "Status", Value: func(r DrugRequest) string { return r.Status }},
}
