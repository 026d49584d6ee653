package registry

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"crop-dashboard/internal/common/validation"
)

//go:embed activities.json
var defaultRegistry []byte

var (
	defaultOnce sync.Once
	defaultReg  *ActivityRegistry
	defaultErr  error
)

// Default returns the registry compiled into the binary.
func Default() (*ActivityRegistry, error) {
	defaultOnce.Do(func() {
		defaultReg, defaultErr = Parse(defaultRegistry)
	})
	return defaultReg, defaultErr
}

// MustDefault is Default for package-level initialisation.
func MustDefault() *ActivityRegistry {
	reg, err := Default()
	if err != nil {
		panic(fmt.Sprintf("embedded activity registry: %v", err))
	}
	return reg
}

func LoadRegistry(path string) (*ActivityRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

func Parse(data []byte) (*ActivityRegistry, error) {
	var reg ActivityRegistry
	if err := json.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("parse registry: %w", err)
	}
	return &reg, nil
}

// Find looks an activity up by task type.
func (r *ActivityRegistry) Find(taskType string) (*Activity, bool) {
	for i := range r.Activities {
		if r.Activities[i].TaskType == taskType {
			return &r.Activities[i], true
		}
	}
	return nil, false
}

// Validator compiles the input schema of taskType.
func (r *ActivityRegistry) Validator(taskType string) (*validation.Validator, error) {
	act, ok := r.Find(taskType)
	if !ok {
		return nil, fmt.Errorf("activity %q not registered", taskType)
	}
	return validation.NewValidator(act.InputSchema)
}

// Check verifies task types are unique and every input schema compiles.
func (r *ActivityRegistry) Check() []error {
	var errs []error
	seen := make(map[string]bool)
	for _, act := range r.Activities {
		if act.TaskType == "" {
			errs = append(errs, fmt.Errorf("activity %q has no taskType", act.ID))
			continue
		}
		if seen[act.TaskType] {
			errs = append(errs, fmt.Errorf("duplicate taskType %q", act.TaskType))
		}
		seen[act.TaskType] = true
		if _, err := validation.NewValidator(act.InputSchema); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", act.TaskType, err))
		}
	}
	return errs
}
