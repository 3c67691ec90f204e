package drugrequest

import (
	"time"

	"github.com/trezcool/schoolhealth/core"
	"github.com/trezcool/schoolhealth/core/status"
)

// Drug request statuses
const (
	StatusProcessing = "PROCESSING"
	StatusAccepted   = "ACCEPTED"
	StatusRefused    = "REFUSED"
	StatusCancelled  = "CANCELLED"
	StatusReceived   = "RECEIVED"
	StatusDone       = "DONE"
)

// Transition verbs
const (
	VerbAccept  = "accept"
	VerbRefuse  = "refuse"
	VerbCancel  = "cancel"
	VerbReceive = "receive"
	VerbDone    = "done"
)

// Medication schedule statuses
const (
	SchedulePending = "PENDING"
	ScheduleTaken   = "TAKEN"

	VerbTick   = "tick"
	VerbUntick = "untick"
)

// Machine is the drug request life cycle.
var Machine = status.NewMachine().
	Allow(StatusProcessing, VerbAccept, StatusAccepted).
	Allow(StatusProcessing, VerbRefuse, StatusRefused).
	Allow(StatusProcessing, VerbCancel, StatusCancelled).
	Allow(StatusAccepted, VerbReceive, StatusReceived).
	Allow(StatusReceived, VerbDone, StatusDone)

var Messages = map[string]string{
	VerbAccept:  "Drug request accepted.",
	VerbRefuse:  "Drug request refused.",
	VerbCancel:  "Drug request cancelled.",
	VerbReceive: "Drugs received from the parent.",
	VerbDone:    "Drug request completed.",
}

// ScheduleMachine is the medication schedule life cycle.
var ScheduleMachine = status.NewMachine().
	Allow(SchedulePending, VerbTick, ScheduleTaken).
	Allow(ScheduleTaken, VerbUntick, SchedulePending)

var ScheduleMessages = map[string]string{
	VerbTick:   "Medication marked as taken.",
	VerbUntick: "Medication marked as not taken.",
}

type Item struct {
	DrugName string `json:"drug_name"`
	Dosage   string `json:"dosage"`
	Quantity int    `json:"quantity"`
	Note     string `json:"note"`
}

type DrugRequest struct {
	ID          core.ID   `json:"id"`
	StudentID   core.ID   `json:"student_id,omitempty"`
	StudentName string    `json:"student_name,omitempty"`
	ParentID    core.ID   `json:"parent_id,omitempty"`
	ParentName  string    `json:"parent_name,omitempty"`
	Diagnosis   string    `json:"diagnosis"`
	Note        string    `json:"note,omitempty"`
	Status      string    `json:"status"`
	StartDate   core.Time `json:"start_date"`
	EndDate     core.Time `json:"end_date"`
	Items       []Item    `json:"request_items,omitempty"`
	CreatedAt   core.Time `json:"created_at"`
}

func (r DrugRequest) Key() core.ID         { return r.ID }
func (r DrugRequest) StatusLabel() string  { return r.Status }
func (r DrugRequest) SearchText() []string { return []string{r.Diagnosis, r.StudentName, r.ParentName, r.Note} }

func (r DrugRequest) WithStatus(status string) DrugRequest {
	r.Status = status
	return r
}

// NewDrugRequest is sent by a parent for the selected child.
type NewDrugRequest struct {
	StudentID core.ID   `json:"student_id" validate:"required"`
	Diagnosis string    `json:"diagnosis" validate:"required,notblank"`
	Note      string    `json:"note"`
	StartDate time.Time `json:"start_date" validate:"required"`
	EndDate   time.Time `json:"end_date" validate:"required,gtefield=StartDate"`
	Items     []Item    `json:"request_items" validate:"required,min=1,dive"`
}

type MedicationSchedule struct {
	ID          core.ID   `json:"id"`
	RequestID   core.ID   `json:"request_id,omitempty"`
	StudentName string    `json:"student_name,omitempty"`
	DrugName    string    `json:"drug_name"`
	Dosage      string    `json:"dosage,omitempty"`
	IntakeTime  string    `json:"intake_time,omitempty"`
	Date        core.Time `json:"date"`
	Status      string    `json:"status"`
}

func (s MedicationSchedule) Key() core.ID         { return s.ID }
func (s MedicationSchedule) StatusLabel() string  { return s.Status }
func (s MedicationSchedule) SearchText() []string { return []string{s.StudentName, s.DrugName} }

func (s MedicationSchedule) WithStatus(status string) MedicationSchedule {
	s.Status = status
	return s
}
