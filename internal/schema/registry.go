package schema

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"

	"github.com/evchart/evchart/internal/domain"
)

//go:embed definitions.json
var defaultDefinitions []byte

// DefinitionLoadError reports a malformed or inconsistent module definition
// source. It is fatal at process start: ingestion must not run until the
// definitions resolve.
type DefinitionLoadError struct {
	Reason string
	Err    error
}

func (e *DefinitionLoadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("module definitions: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("module definitions: %s", e.Reason)
}

func (e *DefinitionLoadError) Unwrap() error { return e.Err }

// Registry indexes every ModuleSchema by module id and by canonical table
// name. Loaded once per cold start and read-only afterward, so concurrent
// reads across ingestion attempts need no synchronization.
type Registry struct {
	byID    map[int]*domain.ModuleSchema
	byTable map[string]*domain.ModuleSchema
	ordered []*domain.ModuleSchema
}

type definitionsDoc struct {
	Modules []domain.ModuleSchema `json:"modules"`
}

// Load parses a declarative definitions document into a Registry. Loading the
// same source twice yields functionally identical registries.
func Load(src []byte) (*Registry, error) {
	var doc definitionsDoc
	if err := json.Unmarshal(src, &doc); err != nil {
		return nil, &DefinitionLoadError{Reason: "invalid document", Err: err}
	}
	if len(doc.Modules) == 0 {
		return nil, &DefinitionLoadError{Reason: "document defines no modules"}
	}

	reg := &Registry{
		byID:    make(map[int]*domain.ModuleSchema, len(doc.Modules)),
		byTable: make(map[string]*domain.ModuleSchema, len(doc.Modules)),
	}

	for i := range doc.Modules {
		ms := &doc.Modules[i]
		if err := validateSchema(ms); err != nil {
			return nil, err
		}
		if _, dup := reg.byID[ms.ModuleID]; dup {
			return nil, &DefinitionLoadError{Reason: fmt.Sprintf("duplicate module id %d", ms.ModuleID)}
		}
		if _, dup := reg.byTable[ms.TableName]; dup {
			return nil, &DefinitionLoadError{Reason: fmt.Sprintf("duplicate table name %q", ms.TableName)}
		}
		reg.byID[ms.ModuleID] = ms
		reg.byTable[ms.TableName] = ms
		reg.ordered = append(reg.ordered, ms)
	}

	return reg, nil
}

// LoadDefault builds a Registry from the definitions document compiled into
// the binary.
func LoadDefault() (*Registry, error) {
	return Load(defaultDefinitions)
}

func validateSchema(ms *domain.ModuleSchema) error {
	if ms.TableName == "" {
		return &DefinitionLoadError{Reason: fmt.Sprintf("module %d has no table name", ms.ModuleID)}
	}
	if len(ms.Fields) == 0 {
		return &DefinitionLoadError{Reason: fmt.Sprintf("module %d (%s) defines no fields", ms.ModuleID, ms.TableName)}
	}

	seen := make(map[string]struct{}, len(ms.Fields))
	for _, f := range ms.Fields {
		if f.Name == "" {
			return &DefinitionLoadError{Reason: fmt.Sprintf("module %d has an unnamed field", ms.ModuleID)}
		}
		if _, ok := domain.KnownDataTypes[f.Type]; !ok {
			return &DefinitionLoadError{Reason: fmt.Sprintf("field %s.%s has unknown datatype %q", ms.TableName, f.Name, f.Type)}
		}
		if f.Type == domain.DataTypeCategorical && len(f.AllowedValues) == 0 {
			return &DefinitionLoadError{Reason: fmt.Sprintf("categorical field %s.%s has no allowed values", ms.TableName, f.Name)}
		}
		if f.Pattern != "" {
			if _, err := regexp.Compile(f.Pattern); err != nil {
				return &DefinitionLoadError{Reason: fmt.Sprintf("field %s.%s has invalid pattern", ms.TableName, f.Name), Err: err}
			}
		}
		if _, dup := seen[f.Name]; dup {
			return &DefinitionLoadError{Reason: fmt.Sprintf("module %d declares field %s twice", ms.ModuleID, f.Name)}
		}
		seen[f.Name] = struct{}{}
	}

	for _, key := range ms.UniqueKey {
		if _, ok := seen[key]; !ok {
			return &DefinitionLoadError{Reason: fmt.Sprintf("unique key column %s.%s is not a defined field", ms.TableName, key)}
		}
	}

	return nil
}

// Get resolves a schema by either numeric module id or canonical table name.
// Both identifiers resolve to the same *ModuleSchema instance.
func (r *Registry) Get(identifier string) (*domain.ModuleSchema, bool) {
	if id, err := strconv.Atoi(identifier); err == nil {
		return r.ByID(id)
	}
	return r.ByTable(identifier)
}

// ByID resolves a schema by module id.
func (r *Registry) ByID(moduleID int) (*domain.ModuleSchema, bool) {
	ms, ok := r.byID[moduleID]
	return ms, ok
}

// ByTable resolves a schema by canonical table name.
func (r *Registry) ByTable(tableName string) (*domain.ModuleSchema, bool) {
	ms, ok := r.byTable[tableName]
	return ms, ok
}

// All returns every schema in document order.
func (r *Registry) All() []*domain.ModuleSchema {
	out := make([]*domain.ModuleSchema, len(r.ordered))
	copy(out, r.ordered)
	return out
}
