package status

import (
	"context"
	"path"

	"github.com/pkg/errors"

	"github.com/trezcool/schoolhealth/core"
)

// Target is the local state a transition is committed to, typically a listing.Controller.
type Target interface {
	// StatusOf returns the current status of the record, if it is held locally.
	StatusOf(id core.ID) (string, bool)
	// PatchStatus rewrites the status of the record in every array holding it.
	PatchStatus(id core.ID, status string) bool
	SetError(msg string)
}

// Transition is one requested state change.
type Transition struct {
	ID   core.ID
	Verb string
	// Status is the label committed locally on success. Resolved from the machine when empty.
	Status    string
	OnSuccess func(status string)
}

// Mutator performs transitions on one collection: request first, local commit after success.
type Mutator struct {
	client     core.RESTClient
	notifier   core.Notifier
	collection string
	machine    *Machine
	messages   map[string]string // verb -> success message
}

// NewMutator returns a Mutator for collection. machine may be nil, in which case no
// transition is checked locally and every Transition must carry its Status.
func NewMutator(client core.RESTClient, notifier core.Notifier, collection string, machine *Machine, messages map[string]string) *Mutator {
	return &Mutator{
		client:     client,
		notifier:   notifier,
		collection: collection,
		machine:    machine,
		messages:   messages,
	}
}

func (m *Mutator) Machine() *Machine { return m.machine }

// Path returns the endpoint of a transition.
func (m *Mutator) Path(id core.ID, verb string) string {
	return path.Join("/", m.collection, id.PathSegment(), core.EscapeSegment(verb))
}

// Apply issues the transition request and, once it succeeded, patches the record's status
// in target, fires one success notification and calls OnSuccess.
// Any failure, local or remote, leaves target's records untouched, sets its error and fires
// one error notification with the server message (or the error text).
// A transition that is illegal for the locally known status never reaches the network.
func (m *Mutator) Apply(ctx context.Context, target Target, tr Transition) (string, error) {
	to, err := m.resolve(target, tr)
	if err != nil {
		return "", m.fail(ctx, target, err)
	}

	if err := m.client.Patch(ctx, m.Path(tr.ID, tr.Verb), nil, nil); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", m.fail(ctx, target, err)
	}
	// the caller went away while the request was in flight: nothing to commit to
	if ctx.Err() != nil {
		return "", ctx.Err()
	}

	target.PatchStatus(tr.ID, to)
	m.notifier.Notify(ctx, core.LevelSuccess, m.successMessage(tr.Verb))
	if tr.OnSuccess != nil {
		tr.OnSuccess(to)
	}
	return to, nil
}

func (m *Mutator) resolve(target Target, tr Transition) (string, error) {
	to := tr.Status
	if m.machine == nil {
		if to == "" {
			return "", ErrMissingStatusLabel
		}
		return to, nil
	}

	if to == "" {
		var ok bool
		if to, ok = m.machine.Target(tr.Verb); !ok {
			return "", errors.Wrap(ErrUnknownVerb, tr.Verb)
		}
	}
	if from, ok := target.StatusOf(tr.ID); ok && !m.machine.CanTransition(from, to) {
		return "", errors.Wrapf(ErrIllegalTransition, "cannot %s a record that is %s", tr.Verb, from)
	}
	return to, nil
}

func (m *Mutator) fail(ctx context.Context, target Target, err error) error {
	msg := core.MessageOf(err)
	target.SetError(msg)
	m.notifier.Notify(ctx, core.LevelError, msg)
	return err
}

func (m *Mutator) successMessage(verb string) string {
	if msg, ok := m.messages[verb]; ok {
		return msg
	}
	return "Status updated successfully."
}

// Detached is a Target for a single record that is not mirrored in a list.
// The transition is checked locally only when Status is known.
type Detached struct {
	Status string
	Err    string
}

func (d *Detached) StatusOf(core.ID) (string, bool) { return d.Status, d.Status != "" }

func (d *Detached) PatchStatus(_ core.ID, status string) bool {
	d.Status = status
	return true
}

func (d *Detached) SetError(msg string) { d.Err = msg }
