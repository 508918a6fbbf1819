// Package statemachine declares the legal status transitions per domain.
//
// Transitions are indexed by action: for each status a machine lists the
// actions that are legal from it and the status each one leads to. Anything
// not listed is illegal.
package statemachine

import (
	"fmt"
	"sort"

	"github.com/bosun-marine/bosun-engine/pkg/apperrors"
)

// Machine is the transition table of one domain.
type Machine struct {
	Domain   string
	Initial  string
	Statuses []string
	// Terminal statuses permit only actions listed in Reversals.
	Terminal    []string
	Reversals   []string
	Transitions map[string]map[string]string // status -> action -> next status
}

// IsTerminal returns true if status is terminal.
func (m *Machine) IsTerminal(status string) bool {
	for _, s := range m.Terminal {
		if s == status {
			return true
		}
	}
	return false
}

// IsReversal returns true if actionID may leave a terminal status.
func (m *Machine) IsReversal(actionID string) bool {
	for _, a := range m.Reversals {
		if a == actionID {
			return true
		}
	}
	return false
}

// Next returns the status reached by performing actionID from current.
func (m *Machine) Next(current, actionID string) (string, bool) {
	actions, ok := m.Transitions[current]
	if !ok {
		return "", false
	}
	next, ok := actions[actionID]
	return next, ok
}

// Legal returns the sorted action ids permitted from status.
func (m *Machine) Legal(status string) []string {
	actions := m.Transitions[status]
	out := make([]string, 0, len(actions))
	for id := range actions {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func (m *Machine) validate() error {
	known := make(map[string]bool, len(m.Statuses))
	for _, s := range m.Statuses {
		known[s] = true
	}
	if !known[m.Initial] {
		return fmt.Errorf("%s: initial status %q is not declared", m.Domain, m.Initial)
	}
	for _, s := range m.Terminal {
		if !known[s] {
			return fmt.Errorf("%s: terminal status %q is not declared", m.Domain, s)
		}
	}
	for from, actions := range m.Transitions {
		if !known[from] {
			return fmt.Errorf("%s: transition from undeclared status %q", m.Domain, from)
		}
		for action, to := range actions {
			if !known[to] {
				return fmt.Errorf("%s: action %q leads to undeclared status %q", m.Domain, action, to)
			}
			if m.IsTerminal(from) && !m.IsReversal(action) {
				return fmt.Errorf("%s: terminal status %q permits non-reversal action %q", m.Domain, from, action)
			}
		}
	}
	return nil
}

// Set holds one machine per domain.
type Set struct {
	machines map[string]*Machine
}

// NewSet validates and indexes the given machines.
func NewSet(machines ...*Machine) (*Set, error) {
	s := &Set{machines: make(map[string]*Machine, len(machines))}
	for _, m := range machines {
		if err := m.validate(); err != nil {
			return nil, err
		}
		if _, exists := s.machines[m.Domain]; exists {
			return nil, fmt.Errorf("duplicate state machine for domain %q", m.Domain)
		}
		s.machines[m.Domain] = m
	}
	return s, nil
}

// Machine returns the machine for domain, if one is declared.
func (s *Set) Machine(domain string) (*Machine, bool) {
	m, ok := s.machines[domain]
	return m, ok
}

// Domains returns the sorted domain tags that have a machine.
func (s *Set) Domains() []string {
	out := make([]string, 0, len(s.machines))
	for d := range s.machines {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}

// CanTransition checks whether actionID is legal from current in domain and
// returns the resulting status. Domains without a machine accept any action
// and report the current status unchanged.
func (s *Set) CanTransition(domain, current, actionID string) (string, error) {
	m, ok := s.machines[domain]
	if !ok {
		return current, nil
	}
	next, ok := m.Next(current, actionID)
	if !ok {
		return "", apperrors.InvalidTransition(current, actionID)
	}
	return next, nil
}

// IsLegal is CanTransition without the error value.
func (s *Set) IsLegal(domain, current, actionID string) bool {
	_, err := s.CanTransition(domain, current, actionID)
	return err == nil
}
