package domain

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrNodeOutOfRange = errors.New("flow edge references unknown node")
	ErrEdgeWeight     = errors.New("flow edge weight must be positive")
)

type FlowNode struct {
	Name string `json:"name"`
}

// FlowEdge moves Value from node index Source to node index Target.
type FlowEdge struct {
	Source int             `json:"source"`
	Target int             `json:"target"`
	Value  decimal.Decimal `json:"value"`
}

// MarshalJSON writes the weight as a JSON number; charting clients expect
// numeric link values.
func (e FlowEdge) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Source int         `json:"source"`
		Target int         `json:"target"`
		Value  json.Number `json:"value"`
	}{e.Source, e.Target, json.Number(e.Value.String())})
}

// FlowGraph is a weighted directed multigraph of fund movement. It carries
// data for visualization only: cycles and disconnected nodes are allowed.
type FlowGraph struct {
	Nodes []FlowNode `json:"nodes"`
	Links []FlowEdge `json:"links"`
}

// NewFlowGraph builds a graph from node labels and edges. Every edge must
// reference a valid node index and carry a positive weight.
func NewFlowGraph(labels []string, edges []FlowEdge) (*FlowGraph, error) {
	g := &FlowGraph{
		Nodes: make([]FlowNode, len(labels)),
		Links: make([]FlowEdge, 0, len(edges)),
	}
	for i, l := range labels {
		g.Nodes[i] = FlowNode{Name: l}
	}
	for i, e := range edges {
		if e.Source < 0 || e.Source >= len(labels) {
			return nil, fmt.Errorf("%w: edge %d source %d (nodes: %d)", ErrNodeOutOfRange, i, e.Source, len(labels))
		}
		if e.Target < 0 || e.Target >= len(labels) {
			return nil, fmt.Errorf("%w: edge %d target %d (nodes: %d)", ErrNodeOutOfRange, i, e.Target, len(labels))
		}
		if !e.Value.IsPositive() {
			return nil, fmt.Errorf("%w: edge %d value %s", ErrEdgeWeight, i, e.Value)
		}
		g.Links = append(g.Links, e)
	}
	return g, nil
}

// MustFlowGraph is NewFlowGraph for seed data; a bad edge means the dataset
// is corrupt, so it panics.
func MustFlowGraph(labels []string, edges []FlowEdge) *FlowGraph {
	g, err := NewFlowGraph(labels, edges)
	if err != nil {
		panic(err)
	}
	return g
}

// Outflow sums the weights leaving node idx.
func (g *FlowGraph) Outflow(idx int) decimal.Decimal {
	total := decimal.Zero
	for _, e := range g.Links {
		if e.Source == idx {
			total = total.Add(e.Value)
		}
	}
	return total
}

// Inflow sums the weights entering node idx.
func (g *FlowGraph) Inflow(idx int) decimal.Decimal {
	total := decimal.Zero
	for _, e := range g.Links {
		if e.Target == idx {
			total = total.Add(e.Value)
		}
	}
	return total
}
