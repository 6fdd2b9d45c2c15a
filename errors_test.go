package agentos

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCycleErrorMessage(t *testing.T) {
	err := &CycleError{Path: []string{"a", "b", "c", "a"}}
	assert.Equal(t, "circular dependency detected: a -> b -> c -> a", err.Error())
	assert.ErrorIs(t, err, ErrCircularDependency)
}

func TestMissingDependencyErrorMessage(t *testing.T) {
	err := &MissingDependencyError{Module: "web", Missing: "db"}
	assert.Equal(t, `module "web" depends on non-existent module "db"`, err.Error())
	assert.ErrorIs(t, err, ErrMissingDependency)
}

func TestBootAbortedErrorMessage(t *testing.T) {
	err := &BootAbortedError{
		Module:       "kernel",
		Phase:        "init",
		Cause:        errors.New("out of memory"),
		Started:      []string{"logging"},
		NotAttempted: []string{"web", "tasks"},
	}
	assert.Contains(t, err.Error(), `core module "kernel" failed during init`)
	assert.Contains(t, err.Error(), "started: [logging]")
	assert.Contains(t, err.Error(), "not attempted: [web, tasks]")
	assert.ErrorIs(t, err, ErrBootAborted)
}

func TestValidationErrorAggregates(t *testing.T) {
	err := &ValidationError{Mismatches: []Mismatch{
		{Module: "kernel", Field: "version", Want: "2.0.0", Got: "1.0.0"},
		{Module: "auth", Field: "dependencies", Want: "[kernel]", Got: "[]"},
	}}
	assert.Contains(t, err.Error(), `kernel: version manifest="2.0.0" runtime="1.0.0"`)
	assert.Contains(t, err.Error(), "auth: dependencies")
	assert.ErrorIs(t, err, ErrValidationFailed)
}

func TestSentinelWrapping(t *testing.T) {
	wrapped := fmt.Errorf("%w: auth", ErrFactoryMissing)
	assert.ErrorIs(t, wrapped, ErrFactoryMissing)

	var cycleErr *CycleError
	err := fmt.Errorf("failed to resolve dependencies: %w", &CycleError{Path: []string{"a", "a"}})
	assert.ErrorAs(t, err, &cycleErr)
	assert.ErrorIs(t, err, ErrCircularDependency)
}
