package graph

import (
	"errors"
	"fmt"
	"sort"

	"github.com/dominikbraun/graph"
	"github.com/mvp-joe/codebrain/internal/knowledge"
)

var (
	// ErrFunctionNotFound indicates a query named a function absent from the knowledge base.
	ErrFunctionNotFound = errors.New("function not found")
	// ErrNoPath indicates that no call chain connects two functions.
	ErrNoPath = errors.New("no call path")
)

// Query defaults and limits
const (
	DefaultDepth = 1
	MaxDepth     = 10
)

// Result is one function reached by a traversal.
type Result struct {
	Function *knowledge.FunctionEntity `json:"function"`
	Depth    int                       `json:"depth"`
}

// CallGraph answers call-graph queries over a finished knowledge base.
//
// Edges point from caller to callee and come from the called_by lists, so only
// resolved calls appear. Repeated calls collapse into a single edge.
type CallGraph struct {
	graph graph.Graph[string, *knowledge.FunctionEntity]

	// Adjacency in first-seen order, used for deterministic traversal output.
	callers map[string][]string
	callees map[string][]string
}

// New builds the call graph of kb.
func New(kb *knowledge.KnowledgeBase) (*CallGraph, error) {
	cg := &CallGraph{
		graph:   graph.New(func(fn *knowledge.FunctionEntity) string { return fn.Name }, graph.Directed(), graph.Weighted()),
		callers: make(map[string][]string),
		callees: make(map[string][]string),
	}

	names := make([]string, 0, len(kb.Functions))
	for name := range kb.Functions {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if err := cg.graph.AddVertex(kb.Functions[name]); err != nil {
			return nil, fmt.Errorf("failed to add function %s: %w", name, err)
		}
	}

	for _, callee := range names {
		for _, caller := range kb.Functions[callee].CalledBy {
			if _, ok := kb.Functions[caller]; !ok {
				// Callers missing from the function map still get a vertex.
				if err := cg.graph.AddVertex(&knowledge.FunctionEntity{Name: caller}); err != nil && !errors.Is(err, graph.ErrVertexAlreadyExists) {
					return nil, fmt.Errorf("failed to add caller %s: %w", caller, err)
				}
			}

			err := cg.graph.AddEdge(caller, callee, graph.EdgeWeight(1))
			if errors.Is(err, graph.ErrEdgeAlreadyExists) {
				continue
			}
			if err != nil {
				return nil, fmt.Errorf("failed to add call %s -> %s: %w", caller, callee, err)
			}
			cg.callers[callee] = append(cg.callers[callee], caller)
			cg.callees[caller] = append(cg.callees[caller], callee)
		}
	}

	return cg, nil
}

// Function returns the entity named name.
func (cg *CallGraph) Function(name string) (*knowledge.FunctionEntity, error) {
	fn, err := cg.graph.Vertex(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrFunctionNotFound, name)
	}
	return fn, nil
}

// Callers returns the functions that call target, transitively up to depth.
// Each function is reported once, at the shallowest depth it was reached.
func (cg *CallGraph) Callers(target string, depth int) ([]Result, error) {
	return cg.traverse(target, depth, cg.callers)
}

// Callees returns the functions target calls, transitively up to depth.
func (cg *CallGraph) Callees(target string, depth int) ([]Result, error) {
	return cg.traverse(target, depth, cg.callees)
}

// traverse is a breadth-first walk over adj, so the first visit is the shallowest.
func (cg *CallGraph) traverse(target string, depth int, adj map[string][]string) ([]Result, error) {
	if _, err := cg.Function(target); err != nil {
		return nil, err
	}
	depth = clampDepth(depth)

	results := []Result{}
	visited := map[string]bool{target: true}
	frontier := []string{target}

	for level := 1; level <= depth && len(frontier) > 0; level++ {
		var next []string
		for _, id := range frontier {
			for _, neighbour := range adj[id] {
				if visited[neighbour] {
					continue
				}
				visited[neighbour] = true
				fn, err := cg.graph.Vertex(neighbour)
				if err != nil {
					continue
				}
				results = append(results, Result{Function: fn, Depth: level})
				next = append(next, neighbour)
			}
		}
		frontier = next
	}

	return results, nil
}

// ShortestPath returns the shortest call chain from one function to another,
// both endpoints included.
func (cg *CallGraph) ShortestPath(from, to string) ([]string, error) {
	if _, err := cg.Function(from); err != nil {
		return nil, err
	}
	if _, err := cg.Function(to); err != nil {
		return nil, err
	}

	path, err := graph.ShortestPath(cg.graph, from, to)
	if err != nil {
		if errors.Is(err, graph.ErrTargetNotReachable) {
			return nil, fmt.Errorf("%w: %s -> %s", ErrNoPath, from, to)
		}
		return nil, fmt.Errorf("failed to compute path: %w", err)
	}
	return path, nil
}

// Cycles returns groups of mutually recursive functions. A function that calls
// itself directly forms a group of one. Groups are sorted internally and by
// their first member.
func (cg *CallGraph) Cycles() ([][]string, error) {
	components, err := graph.StronglyConnectedComponents(cg.graph)
	if err != nil {
		return nil, fmt.Errorf("failed to compute strongly connected components: %w", err)
	}

	cycles := [][]string{}
	for _, component := range components {
		if len(component) == 1 {
			if _, err := cg.graph.Edge(component[0], component[0]); err != nil {
				continue
			}
		}
		sorted := append([]string(nil), component...)
		sort.Strings(sorted)
		cycles = append(cycles, sorted)
	}

	sort.Slice(cycles, func(i, j int) bool {
		return cycles[i][0] < cycles[j][0]
	})
	return cycles, nil
}

func clampDepth(depth int) int {
	if depth <= 0 {
		return DefaultDepth
	}
	if depth > MaxDepth {
		return MaxDepth
	}
	return depth
}
