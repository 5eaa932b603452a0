package validation

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/evchart/evchart/internal/domain"
)

// keySeparator joins unique-key cell values into a lookup token. Unit
// separator so composite values cannot collide with real cell content.
const keySeparator = "\x1f"

// KeyLookup finds already-persisted rows that collide with candidate
// unique-key tuples. One batched call per validation pass; the returned map
// is keyed by the joined tuple and holds the conflicting upload id.
type KeyLookup interface {
	FindExistingKeys(ctx context.Context, tableName string, keyColumns []string, tuples [][]string, uploadID string) (map[string]string, error)
}

// Result is the outcome of validating one batch.
type Result struct {
	IsCompliant     bool
	Conditions      []domain.Condition
	TotalRecords    int
	ValidRecords    int
	RejectedRecords int

	// NoDataRows carries business-rule "nothing to report" marks forward to
	// the transform stage. Nil when no active rule produces them.
	NoDataRows map[int]bool
}

// Engine applies a module schema, the field validators, and the module's
// business rules across an entire batch. It is not fail-fast: every row and
// column is checked so the error report shows the complete problem set.
type Engine struct {
	keys     KeyLookup
	stations StationLookup
}

// NewEngine builds an engine over the given storage lookups. Either may be
// nil, which disables the corresponding check (used by tests and dry runs).
func NewEngine(keys KeyLookup, stations StationLookup) *Engine {
	return &Engine{keys: keys, stations: stations}
}

// Validate checks a parsed table against the module schema under the active
// flag set. Conditions are returned in deterministic order: file-level first,
// then row-major and column-major. Validation failures are data, never
// errors; the error return covers storage lookups only.
func (e *Engine) Validate(ctx context.Context, ms *domain.ModuleSchema, table domain.Table, upload domain.Upload, flags domain.FlagSet) (Result, error) {
	result := Result{TotalRecords: len(table.Rows)}

	if len(table.Rows) == 0 {
		result.Conditions = []domain.Condition{{
			Code:        CodeCSVEmpty.String(),
			Description: CodeCSVEmpty.Format(nil),
		}}
		return result, nil
	}

	var conditions []domain.Condition

	// Column presence.
	for _, required := range ms.RequiredColumns() {
		if !table.HasHeader(required) {
			conditions = append(conditions, fileCondition(CodeMissingRequiredColumn, required))
		}
	}
	if !ms.SkipUnknownColumns {
		flagged := make(map[string]struct{})
		for _, header := range table.Headers {
			if _, ok := ms.Field(header); ok {
				continue
			}
			if _, done := flagged[header]; done {
				continue
			}
			flagged[header] = struct{}{}
			conditions = append(conditions, fileCondition(CodeUnknownColumn, header))
		}
	}

	// Duplicate headers: reported once, validated against the last occurrence.
	for _, dup := range table.DuplicateHeaders() {
		conditions = append(conditions, fileCondition(CodeDuplicateColumn, dup))
	}

	// Business rules, in declared order, before the generic cell pass so
	// their exemptions take effect.
	exemptRows := make(map[int]bool)
	exemptCells := make(map[int]map[string]bool)
	for _, rule := range ModuleRules(ms.ModuleID) {
		if !flags.Enabled(rule.Flag) {
			continue
		}
		out, err := rule.Apply(ctx, RuleInput{
			Schema:   ms,
			Table:    table,
			Upload:   upload,
			Flags:    flags,
			Stations: e.stations,
		})
		if err != nil {
			return Result{}, fmt.Errorf("rule %s: %w", rule.Name, err)
		}
		conditions = append(conditions, out.Conditions...)
		for row := range out.ExemptRows {
			exemptRows[row] = true
		}
		for row, cols := range out.ExemptCells {
			if exemptCells[row] == nil {
				exemptCells[row] = make(map[string]bool, len(cols))
			}
			for col := range cols {
				exemptCells[row][col] = true
			}
		}
		if out.NoDataRows != nil {
			if result.NoDataRows == nil {
				result.NoDataRows = make(map[int]bool)
			}
			for row := range out.NoDataRows {
				result.NoDataRows[row] = true
			}
		}
	}

	// Per-cell validation, row-major. Duplicate headers resolve to the last
	// occurrence, so earlier occurrences are skipped.
	lastIndex := make(map[string]int, len(table.Headers))
	for i, h := range table.Headers {
		lastIndex[h] = i
	}
	for row := range table.Rows {
		for col, header := range table.Headers {
			if lastIndex[header] != col {
				continue
			}
			def, ok := ms.Field(header)
			if !ok {
				continue
			}
			raw := table.Cell(row, col)
			if raw == "" {
				if exemptRows[row] || exemptCells[row][header] {
					continue
				}
			}
			if _, failure := ValidateCell(rawCell(table, row, col), def); failure != nil {
				r := row
				conditions = append(conditions, domain.Condition{
					Row:         &r,
					Column:      header,
					Code:        failure.Code.String(),
					Description: failure.Code.Format(failure.Args),
				})
			}
		}
	}

	// Uniqueness within the batch and against persisted data. Rows whose
	// entire key tuple is blank are excluded; module 2 owns blank-row
	// semantics.
	if ms.HasUniqueKey() {
		uniqueConds, err := e.checkUniqueness(ctx, ms, table, upload.UploadID)
		if err != nil {
			return Result{}, err
		}
		conditions = append(conditions, uniqueConds...)
	}

	orderConditions(conditions, table)

	rejected := make(map[int]struct{})
	for _, c := range conditions {
		if c.Row != nil {
			rejected[*c.Row] = struct{}{}
		}
	}

	result.Conditions = conditions
	result.RejectedRecords = len(rejected)
	result.ValidRecords = result.TotalRecords - result.RejectedRecords
	result.IsCompliant = len(conditions) == 0
	return result, nil
}

func (e *Engine) checkUniqueness(ctx context.Context, ms *domain.ModuleSchema, table domain.Table, uploadID string) ([]domain.Condition, error) {
	var conditions []domain.Condition

	type keyed struct {
		row   int
		token string
		tuple []string
	}
	var candidates []keyed
	for row := range table.Rows {
		tuple := make([]string, len(ms.UniqueKey))
		blank := true
		for i, col := range ms.UniqueKey {
			tuple[i] = table.Value(row, col)
			if tuple[i] != "" {
				blank = false
			}
		}
		if blank {
			continue
		}
		candidates = append(candidates, keyed{row: row, token: strings.Join(tuple, keySeparator), tuple: tuple})
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	seen := make(map[string]struct{}, len(candidates))
	for _, c := range candidates {
		if _, dup := seen[c.token]; dup {
			r := c.row
			conditions = append(conditions, domain.Condition{
				Row:  &r,
				Code: CodeDuplicateRecordInSameUpload.String(),
				Description: CodeDuplicateRecordInSameUpload.Format(Args{
					"fields": ms.UniqueKeyLabel(),
				}),
			})
			continue
		}
		seen[c.token] = struct{}{}
	}

	if e.keys == nil {
		return conditions, nil
	}

	tuples := make([][]string, 0, len(seen))
	appended := make(map[string]struct{}, len(seen))
	for _, c := range candidates {
		if _, done := appended[c.token]; done {
			continue
		}
		appended[c.token] = struct{}{}
		tuples = append(tuples, c.tuple)
	}

	existing, err := e.keys.FindExistingKeys(ctx, ms.TableName, ms.UniqueKey, tuples, uploadID)
	if err != nil {
		return nil, fmt.Errorf("duplicate key lookup for %s: %w", ms.TableName, err)
	}
	if len(existing) == 0 {
		return conditions, nil
	}

	for _, c := range candidates {
		conflict, found := existing[c.token]
		if !found {
			continue
		}
		r := c.row
		conditions = append(conditions, domain.Condition{
			Row:  &r,
			Code: CodeDuplicateRecordInSystem.String(),
			Description: CodeDuplicateRecordInSystem.Format(Args{
				"fields":    ms.UniqueKeyLabel(),
				"upload_id": conflict,
			}),
		})
	}

	return conditions, nil
}

// rawCell returns the untrimmed cell so the validators can distinguish a
// whitespace-only value from a truly empty one.
func rawCell(table domain.Table, row, col int) string {
	if col < 0 || col >= len(table.Rows[row]) {
		return ""
	}
	return table.Rows[row][col]
}

func fileCondition(code Code, column string) domain.Condition {
	return domain.Condition{
		Column:      column,
		Code:        code.String(),
		Description: code.Format(Args{"column_name": column}),
	}
}

// orderConditions sorts into the deterministic report order: file-level
// conditions first in emission order, then row-level conditions row-major and
// by header position within a row.
func orderConditions(conditions []domain.Condition, table domain.Table) {
	position := make(map[string]int, len(table.Headers))
	for i, h := range table.Headers {
		if _, ok := position[h]; !ok {
			position[h] = i
		}
	}
	colPos := func(c domain.Condition) int {
		if c.Column == "" {
			return -1
		}
		if p, ok := position[c.Column]; ok {
			return p
		}
		return len(table.Headers)
	}
	sort.SliceStable(conditions, func(i, j int) bool {
		a, b := conditions[i], conditions[j]
		switch {
		case a.Row == nil && b.Row == nil:
			return false
		case a.Row == nil:
			return true
		case b.Row == nil:
			return false
		case *a.Row != *b.Row:
			return *a.Row < *b.Row
		default:
			return colPos(a) < colPos(b)
		}
	})
}
