// Package storage provides the storage engine interface and implementations
// backing the graph backends: a labeled-property-graph model over a
// pluggable Engine, with BadgerDB and in-memory implementations.
//
// Design Principles:
//   - Testability through dependency injection
//   - Thread-safe implementations
//   - Property graph model (labeled property graph)
//
// Example Usage:
//
//	// Create storage engine
//	engine := storage.NewMemoryEngine()
//	defer engine.Close()
//
//	// Create nodes
//	node := &storage.Node{
//		ID:     storage.NodeID("user-123"),
//		Labels: []string{"User", "Person"},
//		Properties: map[string]any{
//			"name":  "Alice",
//			"email": "alice@example.com",
//		},
//		CreatedAt: time.Now(),
//	}
//	engine.CreateNode(node)
//
//	// Create relationships
//	edge := &storage.Edge{
//		ID:        storage.EdgeID("follows-1"),
//		StartNode: storage.NodeID("user-123"),
//		EndNode:   storage.NodeID("user-456"),
//		Type:      "FOLLOWS",
//		CreatedAt: time.Now(),
//	}
//	engine.CreateEdge(edge)
package storage

import (
	"context"
	"errors"
	"time"
)

// Common errors
var (
	ErrNotFound         = errors.New("not found")
	ErrAlreadyExists    = errors.New("already exists")
	ErrInvalidID        = errors.New("invalid id")
	ErrInvalidData      = errors.New("invalid data")
	ErrInvalidEdge      = errors.New("invalid edge: start or end node not found")
	ErrStorageClosed    = errors.New("storage closed")
	ErrIterationStopped = errors.New("iteration stopped") // Sentinel to stop streaming early
)

// NodeID is a strongly-typed unique identifier for graph nodes.
//
// Using a custom type provides:
//   - Type safety (can't accidentally use EdgeID where NodeID is expected)
//   - Clear API semantics
//   - Future extensibility (could add methods)
//
// Example:
//
//	id := storage.NodeID("user-123")
//	node, err := engine.GetNode(id)
type NodeID string

// EdgeID is a strongly-typed unique identifier for graph edges (relationships).
//
// Similar to NodeID, provides type safety and API clarity.
//
// Example:
//
//	id := storage.EdgeID("follows-456")
//	edge, err := engine.GetEdge(id)
type EdgeID string

// Node represents a graph node (vertex) in the labeled property graph.
//
// Nodes are the fundamental entities in the graph: a mirror table row, a
// document revision, or any other noun-typed record this package is asked
// to hold.
//
// Example:
//
//	node := &storage.Node{
//		ID:     storage.NodeID("user-alice"),
//		Labels: []string{"Person", "User"},
//		Properties: map[string]any{
//			"name":     "Alice Johnson",
//			"age":      30,
//			"email":    "alice@example.com",
//			"verified": true,
//		},
//		CreatedAt: time.Now(),
//	}
//	engine.CreateNode(node)
//
// Thread Safety:
//
//	Node structs are NOT thread-safe. The storage engine handles concurrency.
type Node struct {
	ID         NodeID         `json:"id"`
	Labels     []string       `json:"labels"`
	Properties map[string]any `json:"properties"`

	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

// Edge represents a directed graph relationship (arc) between two nodes.
//
// Edges are directed connections that link nodes together, representing
// relationships like "Alice KNOWS Bob" or "Element OWNS Element".
//
// Example:
//
//	edge := &storage.Edge{
//		ID:         storage.EdgeID("friendship-123"),
//		StartNode:  storage.NodeID("alice"),
//		EndNode:    storage.NodeID("bob"),
//		Type:       "KNOWS",
//		Properties: map[string]any{
//			"since": "2020-01-15",
//		},
//		CreatedAt: time.Now(),
//	}
//	engine.CreateEdge(edge)
//
// Thread Safety:
//
//	Edge structs are NOT thread-safe. The storage engine handles concurrency.
type Edge struct {
	ID         EdgeID         `json:"id"`
	StartNode  NodeID         `json:"startNode"`
	EndNode    NodeID         `json:"endNode"`
	Type       string         `json:"type"`
	Properties map[string]any `json:"properties"`

	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

// Engine defines the storage engine interface for graph database operations.
//
// All Engine implementations MUST be:
//   - Thread-safe: Safe for concurrent access from multiple goroutines
//   - ACID-like: Operations are atomic within their scope
//   - Idempotent where appropriate: CreateNode fails if ID exists
//
// The interface provides standard graph database operations:
//   - CRUD for nodes and edges
//   - Label-based queries
//   - Graph traversal (outgoing/incoming edges)
//   - Bulk operations for import/export
//   - Statistics
//
// Implementations:
//   - MemoryEngine: in-memory storage for testing
//   - BadgerEngine: persistent disk storage
//
// Example Usage:
//
//	var engine storage.Engine
//	engine = storage.NewMemoryEngine()
//	defer engine.Close()
//
//	node := &storage.Node{
//		ID:     "n1",
//		Labels: []string{"Person"},
//		Properties: map[string]any{"name": "Alice"},
//	}
//	if err := engine.CreateNode(node); err != nil {
//		log.Fatal(err)
//	}
//
//	people, _ := engine.GetNodesByLabel("Person")
//	fmt.Printf("Found %d people\n", len(people))
//
//	outgoing, _ := engine.GetOutgoingEdges("n1")
//	for _, edge := range outgoing {
//		fmt.Printf("%s -> %s [%s]\n", edge.StartNode, edge.EndNode, edge.Type)
//	}
type Engine interface {
	// Node operations
	CreateNode(node *Node) error
	GetNode(id NodeID) (*Node, error)
	UpdateNode(node *Node) error
	DeleteNode(id NodeID) error

	// Edge operations
	CreateEdge(edge *Edge) error
	GetEdge(id EdgeID) (*Edge, error)
	UpdateEdge(edge *Edge) error
	DeleteEdge(id EdgeID) error

	// Query operations
	GetNodesByLabel(label string) ([]*Node, error)
	GetOutgoingEdges(nodeID NodeID) ([]*Edge, error)
	GetIncomingEdges(nodeID NodeID) ([]*Edge, error)
	GetEdgesBetween(startID, endID NodeID) ([]*Edge, error)
	GetEdgeBetween(startID, endID NodeID, edgeType string) *Edge
	AllNodes() ([]*Node, error)
	AllEdges() ([]*Edge, error)
	GetAllNodes() []*Node

	// Degree operations (for graph algorithms)
	GetInDegree(nodeID NodeID) int
	GetOutDegree(nodeID NodeID) int

	// Schema operations
	GetSchema() *SchemaManager

	// Bulk operations (for import)
	BulkCreateNodes(nodes []*Node) error
	BulkCreateEdges(edges []*Edge) error

	// Lifecycle
	Close() error

	// Stats
	NodeCount() (int64, error)
	EdgeCount() (int64, error)
}

// =============================================================================
// STREAMING INTERFACE
// =============================================================================

// StreamingEngine extends Engine with streaming iteration support.
// This is optional - engines that don't support streaming will use
// the default AllNodes/AllEdges with chunked processing.
type StreamingEngine interface {
	Engine

	// StreamNodes iterates over all nodes without loading all into memory.
	// The callback is called for each node. Return an error to stop iteration.
	// Returns nil on successful completion, context.Canceled on cancellation.
	StreamNodes(ctx context.Context, fn func(node *Node) error) error

	// StreamEdges iterates over all edges without loading all into memory.
	StreamEdges(ctx context.Context, fn func(edge *Edge) error) error

	// StreamNodeChunks iterates over nodes in chunks for batch processing.
	// More efficient than StreamNodes when processing in batches.
	StreamNodeChunks(ctx context.Context, chunkSize int, fn func(nodes []*Node) error) error
}

// NodeVisitor is a function called for each node during streaming.
type NodeVisitor func(node *Node) error

// EdgeVisitor is a function called for each edge during streaming.
type EdgeVisitor func(edge *Edge) error

// StreamNodesWithFallback provides streaming iteration with fallback.
// If the engine supports StreamingEngine, it uses that.
// Otherwise, it loads all nodes and passes them to fn one at a time.
// chunkSize is not used on either path.
func StreamNodesWithFallback(ctx context.Context, engine Engine, chunkSize int, fn NodeVisitor) error {
	// Try streaming interface first
	if streamer, ok := engine.(StreamingEngine); ok {
		return streamer.StreamNodes(ctx, fn)
	}

	// Fallback: load all, then release each node after fn to allow GC
	nodes, err := engine.AllNodes()
	if err != nil {
		return err
	}

	for i, node := range nodes {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := fn(node); err != nil {
			return err
		}

		// Nil out the reference to allow GC
		nodes[i] = nil
	}

	return nil
}

// StreamEdgesWithFallback provides streaming iteration with fallback.
func StreamEdgesWithFallback(ctx context.Context, engine Engine, chunkSize int, fn EdgeVisitor) error {
	// Try streaming interface first
	if streamer, ok := engine.(StreamingEngine); ok {
		return streamer.StreamEdges(ctx, fn)
	}

	// Fallback: load all, then pass them to fn one at a time
	edges, err := engine.AllEdges()
	if err != nil {
		return err
	}

	for i, edge := range edges {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := fn(edge); err != nil {
			return err
		}

		// Nil out the reference to allow GC
		edges[i] = nil
	}

	return nil
}

// CountNodesWithLabel counts nodes with a specific label using streaming.
func CountNodesWithLabel(ctx context.Context, engine Engine, label string) (int64, error) {
	var count int64

	err := StreamNodesWithFallback(ctx, engine, 1000, func(node *Node) error {
		for _, l := range node.Labels {
			if l == label {
				count++
				break
			}
		}
		return nil
	})

	return count, err
}

// CollectLabels collects all unique labels using streaming.
func CollectLabels(ctx context.Context, engine Engine) ([]string, error) {
	labelSet := make(map[string]struct{})

	err := StreamNodesWithFallback(ctx, engine, 1000, func(node *Node) error {
		for _, l := range node.Labels {
			labelSet[l] = struct{}{}
		}
		return nil
	})

	if err != nil {
		return nil, err
	}

	labels := make([]string, 0, len(labelSet))
	for l := range labelSet {
		labels = append(labels, l)
	}
	return labels, nil
}

// CollectEdgeTypes collects all unique edge types using streaming.
func CollectEdgeTypes(ctx context.Context, engine Engine) ([]string, error) {
	typeSet := make(map[string]struct{})

	err := StreamEdgesWithFallback(ctx, engine, 1000, func(edge *Edge) error {
		typeSet[edge.Type] = struct{}{}
		return nil
	})

	if err != nil {
		return nil, err
	}

	types := make([]string, 0, len(typeSet))
	for t := range typeSet {
		types = append(types, t)
	}
	return types, nil
}
