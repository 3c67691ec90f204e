package vaccination

import (
	"time"

	"github.com/trezcool/schoolhealth/core"
	"github.com/trezcool/schoolhealth/core/status"
)

// Campaign kinds, which are also their API collections.
const (
	KindVaccination = "vaccination-campaign"
	KindCheckup     = "checkup-campaign"
)

// Campaign statuses
const (
	StatusPreparing = "PREPARING"
	StatusOngoing   = "ONGOING"
	StatusDone      = "DONE"
	StatusCancelled = "CANCELLED"
)

// Transition verbs
const (
	VerbStart  = "start"
	VerbFinish = "finish"
	VerbCancel = "cancel"
)

// CampaignMachine is the life cycle shared by vaccination and checkup campaigns.
var CampaignMachine = status.NewMachine().
	Allow(StatusPreparing, VerbStart, StatusOngoing).
	Allow(StatusPreparing, VerbCancel, StatusCancelled).
	Allow(StatusOngoing, VerbFinish, StatusDone).
	Allow(StatusOngoing, VerbCancel, StatusCancelled)

var CampaignMessages = map[string]string{
	VerbStart:  "Campaign started.",
	VerbFinish: "Campaign completed.",
	VerbCancel: "Campaign cancelled.",
}

func IsKind(kind string) bool {
	return kind == KindVaccination || kind == KindCheckup
}

type Vaccine struct {
	ID            core.ID `json:"id"`
	Name          string  `json:"name"`
	Manufacturer  string  `json:"manufacturer,omitempty"`
	Description   string  `json:"description,omitempty"`
	DosesRequired int     `json:"doses_required,omitempty"`
	Disease       string  `json:"disease_name,omitempty"`
}

func (v Vaccine) Key() core.ID         { return v.ID }
func (v Vaccine) StatusLabel() string  { return v.Disease }
func (v Vaccine) SearchText() []string { return []string{v.Name, v.Manufacturer, v.Description} }

// WithStatus returns the vaccine unchanged: vaccines have no status.
func (v Vaccine) WithStatus(string) Vaccine { return v }

type Campaign struct {
	ID          core.ID   `json:"id"`
	Kind        string    `json:"kind,omitempty"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	VaccineID   core.ID   `json:"vaccine_id,omitempty"`
	VaccineName string    `json:"vaccine_name,omitempty"`
	Location    string    `json:"location,omitempty"`
	StartDate   core.Time `json:"start_date"`
	EndDate     core.Time `json:"end_date"`
	Status      string    `json:"status"`
}

func (c Campaign) Key() core.ID        { return c.ID }
func (c Campaign) StatusLabel() string { return c.Status }
func (c Campaign) SearchText() []string {
	return []string{c.Title, c.Description, c.VaccineName, c.Location}
}

func (c Campaign) WithStatus(status string) Campaign {
	c.Status = status
	return c
}

type NewCampaign struct {
	Title       string    `json:"title" validate:"required,notblank"`
	Description string    `json:"description"`
	VaccineID   core.ID   `json:"vaccine_id"`
	Location    string    `json:"location"`
	StartDate   time.Time `json:"start_date" validate:"required"`
	EndDate     time.Time `json:"end_date" validate:"required,gtefield=StartDate"`
}
