// Package rules holds the transition-legality table and the per-role
// visibility policy. Both are compiled once at process start into an
// immutable Ruleset and injected into the engine and transport layers;
// nothing in this package mutates after Compile returns.
package rules

import (
	"sort"

	"github.com/mediaops/callsheet/model"
)

// Ruleset answers the two gating questions of the pipeline: may this role
// move an item from one status to another, and which statuses may this role's
// listings contain. The administrator role bypasses the transition table (any
// edge except out of a terminal status) and sees every status.
type Ruleset struct {
	initial     model.Status
	terminal    map[model.Status]struct{}
	transitions map[model.Role]map[model.Status]map[model.Status]struct{}
	visibility  map[model.Role]map[model.Status]struct{}
}

// InitialStatus returns the status newly created items start in.
func (r *Ruleset) InitialStatus() model.Status {
	return r.initial
}

// IsTerminal reports whether a status admits no further transitions for
// non-administrators (and, for administrators, no outgoing transitions at all).
func (r *Ruleset) IsTerminal(status model.Status) bool {
	_, ok := r.terminal[status]
	return ok
}

// Allows reports whether the role may move an item from one status to
// another. Absence of a configured edge means the transition is denied.
func (r *Ruleset) Allows(role model.Role, from, to model.Status) bool {
	if r.IsTerminal(from) {
		return false
	}
	if role.IsAdmin() {
		return true
	}
	targets, ok := r.transitions[role][from]
	if !ok {
		return false
	}
	_, ok = targets[to]
	return ok
}

// AllowedTargets returns the statuses the role may move an item in the given
// status to, sorted for stable presentation. Administrators get every
// non-source status except when the source is terminal.
func (r *Ruleset) AllowedTargets(role model.Role, from model.Status) []model.Status {
	if r.IsTerminal(from) {
		return nil
	}
	if role.IsAdmin() {
		var targets []model.Status
		for _, s := range model.AllStatuses() {
			if s != from {
				targets = append(targets, s)
			}
		}
		return targets
	}
	set, ok := r.transitions[role][from]
	if !ok {
		return nil
	}
	targets := make([]model.Status, 0, len(set))
	for s := range set {
		targets = append(targets, s)
	}
	sort.Slice(targets, func(i, j int) bool { return targets[i] < targets[j] })
	return targets
}

// Visible reports whether the role's item listings may contain the status.
func (r *Ruleset) Visible(role model.Role, status model.Status) bool {
	if role.IsAdmin() {
		return true
	}
	_, ok := r.visibility[role][status]
	return ok
}

// VisibleStatuses returns the role's visibility set in pipeline order.
func (r *Ruleset) VisibleStatuses(role model.Role) []model.Status {
	if role.IsAdmin() {
		return model.AllStatuses()
	}
	set := r.visibility[role]
	visible := make([]model.Status, 0, len(set))
	for _, s := range model.AllStatuses() {
		if _, ok := set[s]; ok {
			visible = append(visible, s)
		}
	}
	return visible
}
