package achem

import (
	"errors"
	"fmt"
	"slices"
	"sync"
)

// EnvironmentID is a unique identifier for an environment
type EnvironmentID string

var (
	ErrEnvironmentExists   = errors.New("environment already exists")
	ErrEnvironmentNotFound = errors.New("environment does not exist")
)

// EnvironmentManager manages multiple environments, each isolated from others
type EnvironmentManager struct {
	mu           sync.RWMutex
	environments map[EnvironmentID]*Environment
}

// NewEnvironmentManager creates a new environment manager
func NewEnvironmentManager() *EnvironmentManager {
	return &EnvironmentManager{
		environments: make(map[EnvironmentID]*Environment),
	}
}

// CreateEnvironment creates a new, empty environment with the given ID and schema
// Returns an error if an environment with that ID already exists
func (em *EnvironmentManager) CreateEnvironment(id EnvironmentID, schema *Schema) (*Environment, error) {
	env := NewEnvironment(schema)
	if err := em.AddEnvironment(id, env); err != nil {
		return nil, err
	}
	return env, nil
}

// AddEnvironment registers an already built environment under id
func (em *EnvironmentManager) AddEnvironment(id EnvironmentID, env *Environment) error {
	em.mu.Lock()
	defer em.mu.Unlock()

	if _, exists := em.environments[id]; exists {
		return fmt.Errorf("%w: %s", ErrEnvironmentExists, id)
	}

	env.SetEnvironmentID(id)
	em.environments[id] = env
	return nil
}

// GetEnvironment retrieves an environment by ID
// Returns the environment and a boolean indicating if it was found
func (em *EnvironmentManager) GetEnvironment(id EnvironmentID) (*Environment, bool) {
	em.mu.RLock()
	defer em.mu.RUnlock()

	env, exists := em.environments[id]
	return env, exists
}

// DeleteEnvironment stops and removes an environment by ID
// Returns an error if the environment doesn't exist
func (em *EnvironmentManager) DeleteEnvironment(id EnvironmentID) error {
	em.mu.Lock()
	defer em.mu.Unlock()

	env, exists := em.environments[id]
	if !exists {
		return fmt.Errorf("%w: %s", ErrEnvironmentNotFound, id)
	}

	env.Stop()
	delete(em.environments, id)
	return nil
}

// ReplaceEnvironment stops the environment registered under id, if any, and
// registers env in its place
func (em *EnvironmentManager) ReplaceEnvironment(id EnvironmentID, env *Environment) {
	em.mu.Lock()
	defer em.mu.Unlock()

	if old, exists := em.environments[id]; exists {
		old.Stop()
	}
	env.SetEnvironmentID(id)
	em.environments[id] = env
}

// ListEnvironments returns all environment IDs, sorted
func (em *EnvironmentManager) ListEnvironments() []EnvironmentID {
	em.mu.RLock()
	defer em.mu.RUnlock()

	ids := make([]EnvironmentID, 0, len(em.environments))
	for id := range em.environments {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// UpdateEnvironmentSchema replaces the schema of an existing environment
// while keeping all of its cells and molecule counts
func (em *EnvironmentManager) UpdateEnvironmentSchema(id EnvironmentID, schema *Schema) error {
	env, exists := em.GetEnvironment(id)
	if !exists {
		return fmt.Errorf("%w: %s", ErrEnvironmentNotFound, id)
	}
	return env.UpdateSchema(schema)
}

// StopAll stops every running environment
func (em *EnvironmentManager) StopAll() {
	em.mu.RLock()
	defer em.mu.RUnlock()
	for _, env := range em.environments {
		env.Stop()
	}
}
