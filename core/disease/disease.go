// Package disease lists the diseases tracked by the infirmary and the students'
// infectious and chronic disease records.
package disease

import (
	"context"
	"net/url"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/schoolhealth/core"
	"github.com/trezcool/schoolhealth/core/listing"
)

// Record kinds, which are also their API collections.
const (
	KindInfectious = "infectious-record"
	KindChronic    = "chronic-record"

	DiseaseCollection = "diseases"
)

// Record statuses
const (
	StatusUnderTreatment = "UNDER_TREATMENT"
	StatusRecovered      = "RECOVERED"
	StatusMonitoring     = "MONITORING"
)

var ErrUnknownKind = errors.New("unknown disease record kind")

func IsKind(kind string) bool {
	return kind == KindInfectious || kind == KindChronic
}

type Disease struct {
	ID          core.ID `json:"id"`
	Name        string  `json:"name"`
	Type        string  `json:"type,omitempty"`
	Description string  `json:"description,omitempty"`
}

func (d Disease) Key() core.ID         { return d.ID }
func (d Disease) StatusLabel() string  { return d.Type }
func (d Disease) SearchText() []string { return []string{d.Name, d.Description} }

func (d Disease) WithStatus(typ string) Disease {
	d.Type = typ
	return d
}

type Record struct {
	ID          core.ID   `json:"id"`
	Kind        string    `json:"kind,omitempty"`
	StudentID   core.ID   `json:"student_id"`
	StudentName string    `json:"student_name,omitempty"`
	ClassName   string    `json:"class_name,omitempty"`
	DiseaseID   core.ID   `json:"disease_id"`
	DiseaseName string    `json:"disease_name,omitempty"`
	Status      string    `json:"status"`
	DetectedAt  core.Time `json:"detect_date"`
	CuredAt     core.Time `json:"cure_date"`
	Note        string    `json:"note,omitempty"`
}

// Key qualifies the id with the kind: both kinds are listed together and their ids overlap.
func (r Record) Key() core.ID        { return core.ID(r.Kind + ":" + r.ID.String()) }
func (r Record) StatusLabel() string { return r.Status }
func (r Record) SearchText() []string {
	return []string{r.StudentName, r.ClassName, r.DiseaseName, r.Note}
}

func (r Record) WithStatus(status string) Record {
	r.Status = status
	return r
}

// ByDisease keeps the records of one disease, all of them when diseaseID is empty.
func ByDisease(records []Record, diseaseID core.ID) []Record {
	if diseaseID == "" {
		return records
	}
	kept := make([]Record, 0, len(records))
	for _, r := range records {
		if r.DiseaseID == diseaseID {
			kept = append(kept, r)
		}
	}
	return kept
}

type Service struct {
	client core.RESTClient
}

func NewService(client core.RESTClient) *Service {
	return &Service{client: client}
}

func (svc *Service) Diseases(ctx context.Context) ([]Disease, error) {
	var diseases []Disease
	if err := svc.client.Get(ctx, "/"+DiseaseCollection, nil, &diseases); err != nil {
		return nil, errors.Wrap(err, "listing diseases")
	}
	return diseases, nil
}

// Records lists the records of one kind, narrowed server-side to a disease when diseaseID is set.
func (svc *Service) Records(ctx context.Context, kind string, diseaseID core.ID) ([]Record, error) {
	if !IsKind(kind) {
		return nil, errors.Wrap(ErrUnknownKind, kind)
	}
	var query url.Values
	if diseaseID != "" {
		query = url.Values{"disease_id": {diseaseID.String()}}
	}
	var records []Record
	if err := svc.client.Get(ctx, "/"+kind, query, &records); err != nil {
		return nil, errors.Wrapf(err, "listing %ss", kind)
	}
	for i := range records {
		records[i].Kind = kind
	}
	// not every endpoint honours the query
	return ByDisease(records, diseaseID), nil
}

// Fetchers returns list fetchers for the given kinds, both kinds when none is given.
func (svc *Service) Fetchers(diseaseID core.ID, kinds ...string) []listing.Fetcher[Record] {
	if len(kinds) == 0 {
		kinds = []string{KindInfectious, KindChronic}
	}
	fetchers := make([]listing.Fetcher[Record], 0, len(kinds))
	for _, kind := range kinds {
		kind := kind
		fetchers = append(fetchers, func(ctx context.Context) ([]Record, error) {
			return svc.Records(ctx, kind, diseaseID)
		})
	}
	return fetchers
}

var RecordSorts = map[string]listing.Comparator[Record]{
	"student_name": listing.ByString(func(r Record) string { return r.StudentName }),
	"disease_name": listing.ByString(func(r Record) string { return r.DiseaseName }),
	"detect_date":  listing.ByTime(func(r Record) time.Time { return r.DetectedAt.Time }),
}
