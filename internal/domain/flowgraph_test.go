package domain

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func edge(src, dst int, v string) FlowEdge {
	return FlowEdge{Source: src, Target: dst, Value: decimal.RequireFromString(v)}
}

func TestNewFlowGraph(t *testing.T) {
	g, err := NewFlowGraph(
		[]string{"A", "B", "Wallet"},
		[]FlowEdge{edge(0, 2, "8"), edge(1, 2, "7.4"), edge(2, 0, "1")},
	)
	require.NoError(t, err)
	assert.Len(t, g.Nodes, 3)
	assert.Len(t, g.Links, 3)
	assert.True(t, g.Inflow(2).Equal(decimal.RequireFromString("15.4")))
	assert.True(t, g.Outflow(2).Equal(decimal.NewFromInt(1)))
}

func TestNewFlowGraphRejectsBadEdges(t *testing.T) {
	tests := []struct {
		name string
		e    FlowEdge
		want error
	}{
		{"source out of range", edge(3, 0, "1"), ErrNodeOutOfRange},
		{"negative target", edge(0, -1, "1"), ErrNodeOutOfRange},
		{"zero weight", edge(0, 1, "0"), ErrEdgeWeight},
		{"negative weight", edge(0, 1, "-2"), ErrEdgeWeight},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewFlowGraph([]string{"A", "B", "C"}, []FlowEdge{tt.e})
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestMustFlowGraphPanics(t *testing.T) {
	assert.Panics(t, func() {
		MustFlowGraph([]string{"A"}, []FlowEdge{edge(0, 1, "1")})
	})
}

func TestFlowGraphJSON(t *testing.T) {
	g := MustFlowGraph([]string{"A", "B"}, []FlowEdge{edge(0, 1, "9.1"), edge(0, 1, "3")})
	b, err := json.Marshal(g)
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"nodes":[{"name":"A"},{"name":"B"}],"links":[{"source":0,"target":1,"value":9.1},{"source":0,"target":1,"value":3}]}`,
		string(b))
}
