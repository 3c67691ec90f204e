// Package drugrequest handles the drugs parents send to the school nurse and the
// medication schedules derived from them.
package drugrequest

import (
	"context"
	"net/url"
	"path"

	"github.com/pkg/errors"

	"github.com/trezcool/schoolhealth/core"
	"github.com/trezcool/schoolhealth/core/status"
)

const (
	Collection         = "send-drug-request"
	ScheduleCollection = "medication-schedule"
)

type Service struct {
	client    core.RESTClient
	requests  *status.Mutator
	schedules *status.Mutator
}

func NewService(client core.RESTClient, notifier core.Notifier) *Service {
	return &Service{
		client:    client,
		requests:  status.NewMutator(client, notifier, Collection, Machine, Messages),
		schedules: status.NewMutator(client, notifier, ScheduleCollection, ScheduleMachine, ScheduleMessages),
	}
}

func (svc *Service) List(ctx context.Context) ([]DrugRequest, error) {
	var reqs []DrugRequest
	if err := svc.client.Get(ctx, "/"+Collection, nil, &reqs); err != nil {
		return nil, errors.Wrap(err, "listing drug requests")
	}
	return reqs, nil
}

func (svc *Service) Get(ctx context.Context, id core.ID) (DrugRequest, error) {
	var req DrugRequest
	err := svc.client.Get(ctx, path.Join("/", Collection, id.PathSegment()), nil, &req)
	return req, err
}

func (svc *Service) Create(ctx context.Context, nr NewDrugRequest) (DrugRequest, error) {
	nr.Diagnosis = core.CleanString(nr.Diagnosis)
	var req DrugRequest
	if err := svc.client.Post(ctx, "/"+Collection, nr, &req); err != nil {
		return DrugRequest{}, err
	}
	return req, nil
}

// Transition applies verb to the request id and commits the new status to target.
func (svc *Service) Transition(ctx context.Context, target status.Target, id core.ID, verb string, onSuccess func(string)) (string, error) {
	return svc.requests.Apply(ctx, target, status.Transition{ID: id, Verb: verb, OnSuccess: onSuccess})
}

// Schedules lists medication schedules, of one request when requestID is set.
func (svc *Service) Schedules(ctx context.Context, requestID core.ID) ([]MedicationSchedule, error) {
	var query url.Values
	if requestID != "" {
		query = url.Values{"request_id": {requestID.String()}}
	}
	var schedules []MedicationSchedule
	if err := svc.client.Get(ctx, "/"+ScheduleCollection, query, &schedules); err != nil {
		return nil, errors.Wrap(err, "listing medication schedules")
	}
	return schedules, nil
}

// Tick marks a scheduled intake as taken.
func (svc *Service) Tick(ctx context.Context, target status.Target, id core.ID) (string, error) {
	return svc.schedules.Apply(ctx, target, status.Transition{ID: id, Verb: VerbTick})
}

// Untick reverts Tick.
func (svc *Service) Untick(ctx context.Context, target status.Target, id core.ID) (string, error) {
	return svc.schedules.Apply(ctx, target, status.Transition{ID: id, Verb: VerbUntick})
}
