package pipeline

import (
	"context"
	"fmt"

	"ai-finance-assistant-be/pkg/llm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	NodeGenerator  = "Generator"
	NodeExecutor   = "Executor"
	NodeSummarizer = "Summarizer"

	End = "__end__"

	maxSteps = 16
)

var tracer = otel.Tracer("ai-finance-assistant/pipeline")

// Emit receives content deltas produced inside a node.
type Emit func(delta string) error

// NodeFunc is one step of the graph.
type NodeFunc func(ctx context.Context, state State, emit Emit) (State, error)

// BranchFunc picks the next node from the state a node produced.
type BranchFunc func(state State) string

// Graph is a small state machine: named nodes, static edges and
// conditional edges. Deltas are only forwarded from streaming nodes.
type Graph struct {
	start     string
	nodes     map[string]NodeFunc
	edges     map[string]string
	branches  map[string]BranchFunc
	streaming map[string]bool
}

func NewGraph() *Graph {
	return &Graph{
		nodes:     make(map[string]NodeFunc),
		edges:     make(map[string]string),
		branches:  make(map[string]BranchFunc),
		streaming: make(map[string]bool),
	}
}

func (g *Graph) AddNode(name string, fn NodeFunc) *Graph {
	g.nodes[name] = fn
	return g
}

func (g *Graph) SetStart(name string) *Graph {
	g.start = name
	return g
}

func (g *Graph) AddEdge(from, to string) *Graph {
	g.edges[from] = to
	return g
}

func (g *Graph) AddConditionalEdge(from string, branch BranchFunc) *Graph {
	g.branches[from] = branch
	return g
}

// StreamFrom marks the nodes whose deltas reach the caller.
func (g *Graph) StreamFrom(names ...string) *Graph {
	for _, n := range names {
		g.streaming[n] = true
	}
	return g
}

// Validate checks that the start node and every static edge target exist.
func (g *Graph) Validate() error {
	if _, ok := g.nodes[g.start]; !ok {
		return fmt.Errorf("graph: unknown start node %q", g.start)
	}
	for from, to := range g.edges {
		if _, ok := g.nodes[from]; !ok {
			return fmt.Errorf("graph: edge from unknown node %q", from)
		}
		if _, ok := g.nodes[to]; !ok && to != End {
			return fmt.Errorf("graph: edge to unknown node %q", to)
		}
	}
	for from := range g.branches {
		if _, ok := g.nodes[from]; !ok {
			return fmt.Errorf("graph: branch from unknown node %q", from)
		}
	}
	return nil
}

// Run executes the graph from the start node until End. The returned state
// is the last state produced, also on error.
func (g *Graph) Run(ctx context.Context, state State, onDelta llm.StreamHandler) (State, error) {
	if err := g.Validate(); err != nil {
		return state, err
	}

	ctx, span := tracer.Start(ctx, "pipeline.Run",
		trace.WithAttributes(attribute.Int("pipeline.node_count", len(g.nodes))),
	)
	defer span.End()

	current := g.start
	for step := 0; current != End; step++ {
		if step >= maxSteps {
			err := fmt.Errorf("graph: exceeded %d steps", maxSteps)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return state, err
		}
		if err := ctx.Err(); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "context canceled")
			return state, err
		}

		next, err := g.runNode(ctx, current, state, onDelta)
		state = next
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return state, err
		}

		current, err = g.next(current, state)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return state, err
		}
	}

	span.SetStatus(codes.Ok, "")
	return state, nil
}

func (g *Graph) runNode(ctx context.Context, name string, state State, onDelta llm.StreamHandler) (State, error) {
	ctx, span := tracer.Start(ctx, name, trace.WithAttributes(attribute.String("pipeline.node", name)))
	defer span.End()

	emit := func(string) error { return nil }
	if g.streaming[name] && onDelta != nil {
		emit = func(delta string) error { return onDelta(delta) }
	}

	out, err := g.nodes[name](ctx, state, emit)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return out, err
	}
	span.SetStatus(codes.Ok, "")
	return out, nil
}

func (g *Graph) next(current string, state State) (string, error) {
	if branch, ok := g.branches[current]; ok {
		target := branch(state)
		if _, known := g.nodes[target]; !known && target != End {
			return "", fmt.Errorf("graph: branch from %q chose unknown node %q", current, target)
		}
		return target, nil
	}
	if to, ok := g.edges[current]; ok {
		return to, nil
	}
	return "", fmt.Errorf("graph: node %q has no outgoing edge", current)
}
