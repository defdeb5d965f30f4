package rules

import (
	"errors"
	"fmt"

	"github.com/mediaops/callsheet/model"
)

var (
	// ErrInitialStatusRequired indicates the ruleset declares no initial status.
	ErrInitialStatusRequired = errors.New("rules: initial status required")
	// ErrUnknownStatus indicates a ruleset entry references a status outside the closed enumeration.
	ErrUnknownStatus = errors.New("rules: unknown status")
	// ErrUnknownRole indicates a ruleset entry references a role outside the closed enumeration.
	ErrUnknownRole = errors.New("rules: unknown role")
	// ErrAdminEntry indicates the ruleset configures the admin role explicitly.
	// Admin behavior is policy (full bypass), never configuration.
	ErrAdminEntry = errors.New("rules: admin must not appear in the ruleset")
	// ErrTerminalOutgoing indicates a terminal status has configured outgoing edges.
	ErrTerminalOutgoing = errors.New("rules: terminal status has outgoing transitions")
	// ErrInitialTerminal indicates the initial status is configured as terminal.
	ErrInitialTerminal = errors.New("rules: initial status cannot be terminal")
)

// File is the serialized shape of a ruleset, as read from YAML.
type File struct {
	InitialStatus    string                         `yaml:"initial_status"`
	TerminalStatuses []string                       `yaml:"terminal_statuses"`
	Transitions      map[string]map[string][]string `yaml:"transitions"`
	Visibility       map[string][]string            `yaml:"visibility"`
}

// Compile validates a ruleset file and converts it into an immutable Ruleset.
func Compile(f File) (*Ruleset, error) {
	initial, ok := model.ParseStatus(f.InitialStatus)
	if !ok {
		if f.InitialStatus == "" {
			return nil, ErrInitialStatusRequired
		}
		return nil, fmt.Errorf("%w: initial_status %q", ErrUnknownStatus, f.InitialStatus)
	}

	terminal := make(map[model.Status]struct{}, len(f.TerminalStatuses))
	for _, raw := range f.TerminalStatuses {
		status, ok := model.ParseStatus(raw)
		if !ok {
			return nil, fmt.Errorf("%w: terminal status %q", ErrUnknownStatus, raw)
		}
		terminal[status] = struct{}{}
	}
	if _, ok := terminal[initial]; ok {
		return nil, fmt.Errorf("%w: %s", ErrInitialTerminal, initial)
	}

	transitions, err := compileTransitions(f.Transitions, terminal)
	if err != nil {
		return nil, err
	}

	visibility, err := compileVisibility(f.Visibility)
	if err != nil {
		return nil, err
	}

	return &Ruleset{
		initial:     initial,
		terminal:    terminal,
		transitions: transitions,
		visibility:  visibility,
	}, nil
}

// MustCompile is Compile for rulesets known good at build time; it panics on
// error and exists for the built-in default ruleset and tests.
func MustCompile(f File) *Ruleset {
	rs, err := Compile(f)
	if err != nil {
		panic(err)
	}
	return rs
}

func compileTransitions(
	raw map[string]map[string][]string,
	terminal map[model.Status]struct{},
) (map[model.Role]map[model.Status]map[model.Status]struct{}, error) {
	result := make(map[model.Role]map[model.Status]map[model.Status]struct{}, len(raw))

	for roleRaw, edges := range raw {
		role, ok := model.ParseRole(roleRaw)
		if !ok {
			return nil, fmt.Errorf("%w: transitions role %q", ErrUnknownRole, roleRaw)
		}
		if role.IsAdmin() {
			return nil, fmt.Errorf("%w: transitions", ErrAdminEntry)
		}

		byFrom := make(map[model.Status]map[model.Status]struct{}, len(edges))
		for fromRaw, targets := range edges {
			from, ok := model.ParseStatus(fromRaw)
			if !ok {
				return nil, fmt.Errorf("%w: %s transitions from %q", ErrUnknownStatus, role, fromRaw)
			}
			if _, isTerminal := terminal[from]; isTerminal {
				return nil, fmt.Errorf("%w: %s from %s", ErrTerminalOutgoing, role, from)
			}

			set := make(map[model.Status]struct{}, len(targets))
			for _, toRaw := range targets {
				to, ok := model.ParseStatus(toRaw)
				if !ok {
					return nil, fmt.Errorf("%w: %s transition %s -> %q", ErrUnknownStatus, role, from, toRaw)
				}
				set[to] = struct{}{}
			}
			byFrom[from] = set
		}
		result[role] = byFrom
	}

	return result, nil
}

func compileVisibility(raw map[string][]string) (map[model.Role]map[model.Status]struct{}, error) {
	result := make(map[model.Role]map[model.Status]struct{}, len(raw))

	for roleRaw, statuses := range raw {
		role, ok := model.ParseRole(roleRaw)
		if !ok {
			return nil, fmt.Errorf("%w: visibility role %q", ErrUnknownRole, roleRaw)
		}
		if role.IsAdmin() {
			return nil, fmt.Errorf("%w: visibility", ErrAdminEntry)
		}

		set := make(map[model.Status]struct{}, len(statuses))
		for _, statusRaw := range statuses {
			status, ok := model.ParseStatus(statusRaw)
			if !ok {
				return nil, fmt.Errorf("%w: %s visibility %q", ErrUnknownStatus, role, statusRaw)
			}
			set[status] = struct{}{}
		}
		result[role] = set
	}

	return result, nil
}
