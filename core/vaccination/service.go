// Package vaccination manages vaccines and the vaccination and health checkup
// campaigns run at school.
package vaccination

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/schoolhealth/core"
	"github.com/trezcool/schoolhealth/core/form"
	"github.com/trezcool/schoolhealth/core/status"
)

const VaccineCollection = "vaccine"

var (
	ErrUnknownKind     = errors.New("unknown campaign kind")
	ErrVaccineRequired = errors.New("a vaccination campaign needs a vaccine")
)

type Service struct {
	client   core.RESTClient
	mutators map[string]*status.Mutator
}

func NewService(client core.RESTClient, notifier core.Notifier) *Service {
	return &Service{
		client: client,
		mutators: map[string]*status.Mutator{
			KindVaccination: status.NewMutator(client, notifier, KindVaccination, CampaignMachine, CampaignMessages),
			KindCheckup:     status.NewMutator(client, notifier, KindCheckup, CampaignMachine, CampaignMessages),
		},
	}
}

func (svc *Service) Vaccines(ctx context.Context) ([]Vaccine, error) {
	var vaccines []Vaccine
	if err := svc.client.Get(ctx, "/"+VaccineCollection, nil, &vaccines); err != nil {
		return nil, errors.Wrap(err, "listing vaccines")
	}
	return vaccines, nil
}

// Campaigns lists the campaigns of one kind.
func (svc *Service) Campaigns(ctx context.Context, kind string) ([]Campaign, error) {
	if !IsKind(kind) {
		return nil, errors.Wrap(ErrUnknownKind, kind)
	}
	var campaigns []Campaign
	if err := svc.client.Get(ctx, "/"+kind, nil, &campaigns); err != nil {
		return nil, errors.Wrapf(err, "listing %ss", kind)
	}
	for i := range campaigns {
		campaigns[i].Kind = kind
	}
	return campaigns, nil
}

func (svc *Service) CreateCampaign(ctx context.Context, kind string, nc NewCampaign) (Campaign, error) {
	if !IsKind(kind) {
		return Campaign{}, errors.Wrap(ErrUnknownKind, kind)
	}
	nc.Title = core.CleanString(nc.Title)
	var c Campaign
	if err := svc.client.Post(ctx, "/"+kind, nc, &c); err != nil {
		return Campaign{}, err
	}
	c.Kind = kind
	return c, nil
}

// Transition applies verb to a campaign and commits the new status to target.
func (svc *Service) Transition(ctx context.Context, kind string, target status.Target, id core.ID, verb string) (string, error) {
	m, ok := svc.mutators[kind]
	if !ok {
		return "", errors.Wrap(ErrUnknownKind, kind)
	}
	return m.Apply(ctx, target, status.Transition{ID: id, Verb: verb})
}

// CampaignChecks returns the form rules of a campaign kind.
func CampaignChecks(kind string) []form.Check[NewCampaign] {
	if kind != KindVaccination {
		return nil
	}
	return []form.Check[NewCampaign]{
		func(nc NewCampaign) error {
			if nc.VaccineID == "" {
				return core.NewValidationError(ErrVaccineRequired,
					core.FieldError{Field: "vaccine_id", Error: ErrVaccineRequired.Error()})
			}
			return nil
		},
	}
}
