// Package status implements record state transitions: a closed transition table per
// collection and the mutator issuing `PATCH /{collection}/{id}/{verb}` requests.
package status

import (
	"sort"

	"github.com/pkg/errors"
)

var (
	ErrUnknownVerb        = errors.New("unknown transition")
	ErrIllegalTransition  = errors.New("illegal status transition")
	ErrMissingStatusLabel = errors.New("missing target status")
)

// Machine is the transition table of a collection's status label.
// A verb always leads to the same status, from any of its allowed origins.
type Machine struct {
	verbs map[string]string          // verb -> target status
	next  map[string]map[string]bool // status -> allowed next statuses
	all   map[string]struct{}
}

func NewMachine() *Machine {
	return &Machine{
		verbs: make(map[string]string),
		next:  make(map[string]map[string]bool),
		all:   make(map[string]struct{}),
	}
}

// Allow declares that verb moves a record from `from` to `to`.
func (m *Machine) Allow(from, verb, to string) *Machine {
	m.verbs[verb] = to
	if m.next[from] == nil {
		m.next[from] = make(map[string]bool)
	}
	m.next[from][to] = true
	m.all[from] = struct{}{}
	m.all[to] = struct{}{}
	return m
}

// Target returns the status verb leads to.
func (m *Machine) Target(verb string) (string, bool) {
	to, ok := m.verbs[verb]
	return to, ok
}

func (m *Machine) CanTransition(from, to string) bool {
	return m.next[from][to]
}

// Next returns the statuses reachable from `from`, sorted.
func (m *Machine) Next(from string) []string {
	next := make([]string, 0, len(m.next[from]))
	for to := range m.next[from] {
		next = append(next, to)
	}
	sort.Strings(next)
	return next
}

// Verbs returns the verbs applicable to a record in status `from`, sorted.
func (m *Machine) Verbs(from string) []string {
	verbs := make([]string, 0, len(m.verbs))
	for verb, to := range m.verbs {
		if m.next[from][to] {
			verbs = append(verbs, verb)
		}
	}
	sort.Strings(verbs)
	return verbs
}

// Statuses returns every status known to the machine, sorted.
func (m *Machine) Statuses() []string {
	all := make([]string, 0, len(m.all))
	for s := range m.all {
		all = append(all, s)
	}
	sort.Strings(all)
	return all
}

// Check resolves verb for a record in status `from`.
func (m *Machine) Check(from, verb string) (string, error) {
	to, ok := m.Target(verb)
	if !ok {
		return "", errors.Wrap(ErrUnknownVerb, verb)
	}
	if !m.CanTransition(from, to) {
		return "", errors.Wrapf(ErrIllegalTransition, "cannot %s a record that is %s", verb, from)
	}
	return to, nil
}
