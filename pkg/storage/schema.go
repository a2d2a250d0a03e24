// Package storage schema management for constraints and indexes.
//
// This file implements Neo4j-compatible schema management including:
//   - Unique constraints
//   - Property indexes
//
// Schema definitions are stored in memory and enforced during node operations.
package storage

import (
	"fmt"
	"sync"
)

// ConstraintType represents the type of constraint.
type ConstraintType string

const (
	ConstraintUnique  ConstraintType = "UNIQUE"
	ConstraintNodeKey ConstraintType = "NODE_KEY"
	ConstraintExists  ConstraintType = "EXISTS"
)

// Constraint represents a Neo4j-compatible schema constraint.
type Constraint struct {
	Name       string
	Type       ConstraintType
	Label      string
	Properties []string
}

// SchemaManager manages database schema including constraints and indexes.
type SchemaManager struct {
	mu sync.RWMutex

	// Constraints
	uniqueConstraints map[string]*UniqueConstraint // key: "Label:property"
	constraints       map[string]Constraint        // key: constraint name, stores all constraint types

	// Indexes
	propertyIndexes map[string]*PropertyIndex // key: "Label:property" (single property)
}

// NewSchemaManager creates a new schema manager with empty constraint and index collections.
//
// The schema manager provides thread-safe management of database schema including:
//   - Unique constraints (enforce uniqueness on properties)
//   - Node key / existence constraints (recorded, not yet enforced)
//   - Property indexes (speed up lookups by property value)
//
// Returns:
//   - *SchemaManager ready for use
//
// Thread Safety:
//
//	All methods are thread-safe for concurrent access.
func NewSchemaManager() *SchemaManager {
	return &SchemaManager{
		uniqueConstraints: make(map[string]*UniqueConstraint),
		constraints:       make(map[string]Constraint),
		propertyIndexes:   make(map[string]*PropertyIndex),
	}
}

// UniqueConstraint represents a unique constraint on a label and property.
type UniqueConstraint struct {
	Name     string
	Label    string
	Property string
	values   map[interface{}]NodeID // Track unique values
	mu       sync.RWMutex
}

// PropertyIndex represents a property index for faster lookups.
type PropertyIndex struct {
	Name       string
	Label      string
	Properties []string
	values     map[interface{}][]NodeID // Property value -> node IDs
	mu         sync.RWMutex
}

// AddUniqueConstraint adds a unique constraint.
func (sm *SchemaManager) AddUniqueConstraint(name, label, property string) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	key := fmt.Sprintf("%s:%s", label, property)
	if _, exists := sm.uniqueConstraints[key]; exists {
		// Constraint already exists - this is fine with IF NOT EXISTS
		return nil
	}

	sm.uniqueConstraints[key] = &UniqueConstraint{
		Name:     name,
		Label:    label,
		Property: property,
		values:   make(map[interface{}]NodeID),
	}

	return nil
}

// CheckUniqueConstraint checks if a value violates a unique constraint.
// Returns error if constraint is violated.
func (sm *SchemaManager) CheckUniqueConstraint(label, property string, value interface{}, excludeNode NodeID) error {
	sm.mu.RLock()
	key := fmt.Sprintf("%s:%s", label, property)
	constraint, exists := sm.uniqueConstraints[key]
	sm.mu.RUnlock()

	if !exists {
		return nil // No constraint
	}

	constraint.mu.RLock()
	defer constraint.mu.RUnlock()

	if existingNode, found := constraint.values[value]; found {
		if existingNode != excludeNode {
			return fmt.Errorf("Node(%s) already exists with %s = %v", label, property, value)
		}
	}

	return nil
}

// RegisterUniqueValue registers a value for a unique constraint.
func (sm *SchemaManager) RegisterUniqueValue(label, property string, value interface{}, nodeID NodeID) {
	sm.mu.RLock()
	key := fmt.Sprintf("%s:%s", label, property)
	constraint, exists := sm.uniqueConstraints[key]
	sm.mu.RUnlock()

	if !exists {
		return
	}

	constraint.mu.Lock()
	constraint.values[value] = nodeID
	constraint.mu.Unlock()
}

// UnregisterUniqueValue removes a value from a unique constraint.
func (sm *SchemaManager) UnregisterUniqueValue(label, property string, value interface{}) {
	sm.mu.RLock()
	key := fmt.Sprintf("%s:%s", label, property)
	constraint, exists := sm.uniqueConstraints[key]
	sm.mu.RUnlock()

	if !exists {
		return
	}

	constraint.mu.Lock()
	delete(constraint.values, value)
	constraint.mu.Unlock()
}

// AddPropertyIndex adds a property index.
func (sm *SchemaManager) AddPropertyIndex(name, label string, properties []string) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	key := fmt.Sprintf("%s:%s", label, properties[0]) // Use first property as key
	if _, exists := sm.propertyIndexes[key]; exists {
		return nil // Already exists
	}

	sm.propertyIndexes[key] = &PropertyIndex{
		Name:       name,
		Label:      label,
		Properties: properties,
		values:     make(map[interface{}][]NodeID),
	}

	return nil
}

// GetConstraints returns all unique constraints.
func (sm *SchemaManager) GetConstraints() []UniqueConstraint {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	constraints := make([]UniqueConstraint, 0, len(sm.uniqueConstraints))
	for _, c := range sm.uniqueConstraints {
		constraints = append(constraints, UniqueConstraint{
			Name:     c.Name,
			Label:    c.Label,
			Property: c.Property,
		})
	}

	return constraints
}

// GetConstraintsForLabels returns all constraints for given labels.
// Returns constraints from the constraints map, preserving their original types.
func (sm *SchemaManager) GetConstraintsForLabels(labels []string) []Constraint {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	result := make([]Constraint, 0)

	// Get constraints from the constraints map (preserves original type)
	for _, c := range sm.constraints {
		for _, label := range labels {
			if c.Label == label {
				result = append(result, c)
				break
			}
		}
	}

	return result
}

// AddConstraint adds a constraint to the schema.
// Stores constraint in both the constraints map and uniqueConstraints (for backward compatibility).
func (sm *SchemaManager) AddConstraint(c Constraint) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	// Store in the constraints map (preserves type)
	if _, exists := sm.constraints[c.Name]; !exists {
		sm.constraints[c.Name] = c
	}

	// For UNIQUE constraints, also add to legacy uniqueConstraints map
	if c.Type == ConstraintUnique && len(c.Properties) == 1 {
		key := fmt.Sprintf("%s:%s", c.Label, c.Properties[0])
		if _, exists := sm.uniqueConstraints[key]; !exists {
			sm.uniqueConstraints[key] = &UniqueConstraint{
				Name:     c.Name,
				Label:    c.Label,
				Property: c.Properties[0],
				values:   make(map[interface{}]NodeID),
			}
		}
	}

	return nil
}

// GetIndexes returns all indexes.
func (sm *SchemaManager) GetIndexes() []interface{} {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	indexes := make([]interface{}, 0)

	for _, idx := range sm.propertyIndexes {
		indexes = append(indexes, map[string]interface{}{
			"name":       idx.Name,
			"type":       "PROPERTY",
			"label":      idx.Label,
			"properties": idx.Properties,
		})
	}

	return indexes
}

// GetPropertyIndex returns a property index by label and property.
func (sm *SchemaManager) GetPropertyIndex(label, property string) (*PropertyIndex, bool) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	key := fmt.Sprintf("%s:%s", label, property)
	idx, exists := sm.propertyIndexes[key]
	return idx, exists
}

// PropertyIndexInsert adds a node to a property index.
func (sm *SchemaManager) PropertyIndexInsert(label, property string, nodeID NodeID, value interface{}) error {
	sm.mu.Lock()
	idx, exists := sm.propertyIndexes[fmt.Sprintf("%s:%s", label, property)]
	sm.mu.Unlock()

	if !exists {
		return fmt.Errorf("property index %s:%s not found", label, property)
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.values == nil {
		idx.values = make(map[interface{}][]NodeID)
	}

	idx.values[value] = append(idx.values[value], nodeID)
	return nil
}

// PropertyIndexDelete removes a node from a property index.
func (sm *SchemaManager) PropertyIndexDelete(label, property string, nodeID NodeID, value interface{}) error {
	sm.mu.Lock()
	idx, exists := sm.propertyIndexes[fmt.Sprintf("%s:%s", label, property)]
	sm.mu.Unlock()

	if !exists {
		return nil // Not indexed
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	if ids, ok := idx.values[value]; ok {
		newIDs := make([]NodeID, 0, len(ids)-1)
		for _, id := range ids {
			if id != nodeID {
				newIDs = append(newIDs, id)
			}
		}
		if len(newIDs) > 0 {
			idx.values[value] = newIDs
		} else {
			delete(idx.values, value)
		}
	}
	return nil
}

// PropertyIndexLookup looks up node IDs by property value using an index.
// Returns nil if no index exists for the label/property.
func (sm *SchemaManager) PropertyIndexLookup(label, property string, value interface{}) []NodeID {
	sm.mu.RLock()
	idx, exists := sm.propertyIndexes[fmt.Sprintf("%s:%s", label, property)]
	sm.mu.RUnlock()

	if !exists {
		return nil
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if ids, ok := idx.values[value]; ok {
		// Return a copy to avoid mutation
		result := make([]NodeID, len(ids))
		copy(result, ids)
		return result
	}
	return nil
}

// IndexStats represents statistics about an index.
type IndexStats struct {
	Name         string   `json:"name"`
	Type         string   `json:"type"`
	Label        string   `json:"label"`
	Property     string   `json:"property,omitempty"`
	Properties   []string `json:"properties,omitempty"`
	TotalEntries int64    `json:"totalEntries"`
	UniqueValues int64    `json:"uniqueValues"`
	Selectivity  float64  `json:"selectivity"` // uniqueValues / totalEntries
}

// GetIndexStats returns statistics for all indexes.
func (sm *SchemaManager) GetIndexStats() []IndexStats {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	var stats []IndexStats

	for _, idx := range sm.propertyIndexes {
		idx.mu.RLock()
		totalEntries := int64(0)
		for _, ids := range idx.values {
			totalEntries += int64(len(ids))
		}
		uniqueValues := int64(len(idx.values))
		selectivity := float64(0)
		if totalEntries > 0 {
			selectivity = float64(uniqueValues) / float64(totalEntries)
		}
		idx.mu.RUnlock()

		prop := ""
		if len(idx.Properties) > 0 {
			prop = idx.Properties[0]
		}

		stats = append(stats, IndexStats{
			Name:         idx.Name,
			Type:         "PROPERTY",
			Label:        idx.Label,
			Property:     prop,
			Properties:   idx.Properties,
			TotalEntries: totalEntries,
			UniqueValues: uniqueValues,
			Selectivity:  selectivity,
		})
	}

	return stats
}
