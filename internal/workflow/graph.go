// Package workflow interprets ticket-detail transition graphs: it validates a
// requested status against the graph, applies the edge's stock effects and
// settles the parent ticket status.
package workflow

import (
	"errors"
	"fmt"
	"sort"

	invdomain "github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/inventory/domain"
)

// Status is a ticket-detail status within one domain graph.
type Status string

var (
	ErrIllegalTransition = errors.New("illegal_transition")
	ErrReasonRequired    = errors.New("reason_required")
	ErrDetailNotFound    = errors.New("detail_not_found")
	ErrTicketNotFound    = errors.New("ticket_not_found")
	ErrInvalidGraph      = errors.New("invalid_graph")
)

// IllegalTransitionError reports a requested status that is not a direct
// successor of the current one.
type IllegalTransitionError struct {
	Domain    string
	Current   Status
	Requested Status
}

func (e *IllegalTransitionError) Error() string {
	return fmt.Sprintf("%s: illegal transition %s -> %s", e.Domain, e.Current, e.Requested)
}

func (e *IllegalTransitionError) Unwrap() error {
	return ErrIllegalTransition
}

// Effect is one stock operation run when an edge is taken.
type Effect struct {
	Operation invdomain.Operation
	Source    invdomain.SourceType
}

type Edge struct {
	From    Status
	To      Status
	Effects []Effect
}

// Definition declares a domain's transition graph as data.
type Definition struct {
	Domain        string
	ReferenceType string
	Initial       Status
	Cancelled     Status
	// Success lists the detail statuses that count as done for rollup.
	Success    []Status
	InProgress TicketStatus
	Edges      []Edge
}

type Graph struct {
	def      Definition
	edges    map[Status]map[Status][]Effect
	statuses []Status
	terminal map[Status]bool
	success  map[Status]bool
}

// NewGraph validates def and adds an effect-free cancel edge from every
// non-terminal status that does not declare one.
func NewGraph(def Definition) (*Graph, error) {
	if def.Domain == "" || def.Initial == "" || def.Cancelled == "" {
		return nil, fmt.Errorf("%w: domain, initial and cancelled status are required", ErrInvalidGraph)
	}

	if def.InProgress == "" {
		def.InProgress = TicketInProgress
	}
	g := &Graph{
		def:      def,
		edges:    make(map[Status]map[Status][]Effect),
		terminal: make(map[Status]bool),
		success:  make(map[Status]bool),
	}
	seen := map[Status]bool{def.Initial: true, def.Cancelled: true}
	forward := map[Status]bool{}

	for _, e := range def.Edges {
		if e.From == "" || e.To == "" || e.From == e.To {
			return nil, fmt.Errorf("%w: edge %q -> %q", ErrInvalidGraph, e.From, e.To)
		}
		if e.From == def.Cancelled {
			return nil, fmt.Errorf("%w: %s is terminal", ErrInvalidGraph, def.Cancelled)
		}
		for _, eff := range e.Effects {
			if _, ok := eff.Operation.Steps(); !ok {
				return nil, fmt.Errorf("%w: unknown operation %q", ErrInvalidGraph, eff.Operation)
			}
		}
		if _, dup := g.edges[e.From][e.To]; dup {
			return nil, fmt.Errorf("%w: duplicate edge %s -> %s", ErrInvalidGraph, e.From, e.To)
		}
		if g.edges[e.From] == nil {
			g.edges[e.From] = make(map[Status][]Effect)
		}
		g.edges[e.From][e.To] = e.Effects
		seen[e.From], seen[e.To] = true, true
		if e.To != def.Cancelled {
			forward[e.From] = true
		}
	}

	for s := range seen {
		g.statuses = append(g.statuses, s)
		if !forward[s] {
			g.terminal[s] = true
			continue
		}
		if _, ok := g.edges[s][def.Cancelled]; !ok {
			g.edges[s][def.Cancelled] = nil
		}
	}
	for s := range seen {
		if g.terminal[s] && len(g.edges[s]) > 0 {
			return nil, fmt.Errorf("%w: %s only leads to %s", ErrInvalidGraph, s, def.Cancelled)
		}
	}
	sort.Slice(g.statuses, func(i, j int) bool { return g.statuses[i] < g.statuses[j] })

	for _, s := range def.Success {
		if !seen[s] {
			return nil, fmt.Errorf("%w: unknown success status %s", ErrInvalidGraph, s)
		}
		g.success[s] = true
	}
	return g, nil
}

// MustGraph is NewGraph for package-level graph declarations.
func MustGraph(def Definition) *Graph {
	g, err := NewGraph(def)
	if err != nil {
		panic(err)
	}
	return g
}

func (g *Graph) Domain() string        { return g.def.Domain }
func (g *Graph) ReferenceType() string { return g.def.ReferenceType }
func (g *Graph) Initial() Status       { return g.def.Initial }
func (g *Graph) Cancelled() Status     { return g.def.Cancelled }

// Statuses returns every status of the graph in lexical order.
func (g *Graph) Statuses() []Status {
	return append([]Status(nil), g.statuses...)
}

func (g *Graph) Valid(s Status) bool {
	for _, known := range g.statuses {
		if known == s {
			return true
		}
	}
	return false
}

func (g *Graph) IsTerminal(s Status) bool {
	return g.terminal[s]
}

// Successors lists the statuses reachable from s in one step.
func (g *Graph) Successors(s Status) []Status {
	out := make([]Status, 0, len(g.edges[s]))
	for to := range g.edges[s] {
		out = append(out, to)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Next returns the effects of moving from current to requested.
func (g *Graph) Next(current, requested Status) ([]Effect, error) {
	effects, ok := g.edges[current][requested]
	if !ok {
		return nil, &IllegalTransitionError{Domain: g.def.Domain, Current: current, Requested: requested}
	}
	return effects, nil
}
