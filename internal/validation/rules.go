package validation

import (
	"context"
	"fmt"
	"time"

	"github.com/evchart/evchart/internal/domain"
)

// StationLookup resolves operational dates for registered stations. The
// module 3 uptime rule issues exactly one call per validation pass, covering
// every distinct (station, network provider) pair it needs.
type StationLookup interface {
	OperationalDates(ctx context.Context, keys []domain.StationKey) (map[domain.StationKey]time.Time, error)
}

// RuleInput is everything a business rule may consult. Rules are pure with
// respect to it apart from the batched station lookup.
type RuleInput struct {
	Schema   *domain.ModuleSchema
	Table    domain.Table
	Upload   domain.Upload
	Flags    domain.FlagSet
	Stations StationLookup
}

// RuleResult is the outcome of one rule: extra conditions, plus exemptions
// the generic engine honors during its required-field pass.
type RuleResult struct {
	Conditions []domain.Condition

	// ExemptRows excludes whole rows from required-field checks (module 2
	// valid empty rows).
	ExemptRows map[int]bool

	// ExemptCells excludes single (row, column) pairs from required-field
	// checks.
	ExemptCells map[int]map[string]bool

	// NoDataRows marks rows the transform stage flags as intentional
	// "nothing to report" submissions.
	NoDataRows map[int]bool
}

// Rule pairs a feature flag with the function it gates. Each module owns an
// explicit ordered list; the engine filters by the active flag set and
// applies matches in declared order.
type Rule struct {
	Flag  domain.FeatureFlag
	Name  string
	Apply func(ctx context.Context, in RuleInput) (RuleResult, error)
}

// module9CapitalColumns is the configurable "capital/install" field set that
// may be collectively blank on a module 9 row.
var module9CapitalColumns = []string{
	"real_property_cost_total",
	"equipment_cost_total",
	"installation_cost_total",
	"other_cost_total",
	"der_equipment_cost",
	"der_installation_cost",
}

var moduleRules = map[int][]Rule{
	2: {
		{Flag: domain.FlagModule2EmptySessions, Name: "empty_session_rows", Apply: module2EmptySessions},
	},
	3: {
		{Flag: domain.FlagModule3Uptime, Name: "uptime_required_after_one_year", Apply: module3UptimeRequired},
	},
	4: {
		{Flag: domain.FlagModule4Outages, Name: "outage_id_duration_pairing", Apply: module4OutagePairing},
	},
	9: {
		{Flag: domain.FlagModule9CapitalCosts, Name: "collectively_blank_capital_costs", Apply: module9CollectiveBlank},
	},
}

// ModuleRules returns the declared rule list for a module. Modules without
// rules behave exactly like the generic engine.
func ModuleRules(moduleID int) []Rule {
	return moduleRules[moduleID]
}

// module2EmptySessions accepts a fully blank charging-session row as a valid
// "no session reported" row. A row qualifies when session_id is blank, every
// other column is blank, and it is the only such row in the batch; further
// blank rows duplicate the first. Partially filled rows fall through to the
// generic required-field checks.
func module2EmptySessions(_ context.Context, in RuleInput) (RuleResult, error) {
	result := RuleResult{
		ExemptRows: make(map[int]bool),
		NoDataRows: make(map[int]bool),
	}

	sessionCol := in.Table.ColumnIndex("session_id")
	if sessionCol < 0 {
		return result, nil
	}

	seenBlank := false
	for row := range in.Table.Rows {
		if in.Table.Cell(row, sessionCol) != "" || !in.Table.RowBlank(row) {
			continue
		}
		result.ExemptRows[row] = true
		if seenBlank {
			r := row
			result.Conditions = append(result.Conditions, domain.Condition{
				Row:    &r,
				Column: "session_id",
				Code:   CodeDuplicateRecordInSameUpload.String(),
				Description: CodeDuplicateRecordInSameUpload.Format(Args{
					"fields": "session_id",
				}),
			})
			continue
		}
		seenBlank = true
		result.NoDataRows[row] = true
	}

	return result, nil
}

// module3UptimeRequired rejects blank uptime for any port whose station went
// operational more than one year before the reporting window start.
func module3UptimeRequired(ctx context.Context, in RuleInput) (RuleResult, error) {
	var result RuleResult

	uptimeCol := in.Table.ColumnIndex("uptime_pct")
	if uptimeCol < 0 || in.Stations == nil {
		return result, nil
	}

	type candidate struct {
		row int
		key domain.StationKey
	}
	var candidates []candidate
	distinct := make(map[domain.StationKey]struct{})

	for row := range in.Table.Rows {
		if in.Table.Cell(row, uptimeCol) != "" {
			continue
		}
		key := domain.StationKey{
			StationID:       in.Table.Value(row, "station_id"),
			NetworkProvider: in.Table.Value(row, "network_provider"),
		}
		if key.StationID == "" {
			continue
		}
		candidates = append(candidates, candidate{row: row, key: key})
		distinct[key] = struct{}{}
	}
	if len(candidates) == 0 {
		return result, nil
	}

	keys := make([]domain.StationKey, 0, len(distinct))
	for key := range distinct {
		keys = append(keys, key)
	}
	dates, err := in.Stations.OperationalDates(ctx, keys)
	if err != nil {
		return result, fmt.Errorf("station operational date lookup: %w", err)
	}

	cutoff := in.Upload.ReportingPeriodStart().AddDate(-1, 0, 0)
	for _, c := range candidates {
		operational, ok := dates[c.key]
		if !ok || !operational.Before(cutoff) {
			continue
		}
		r := c.row
		result.Conditions = append(result.Conditions, domain.Condition{
			Row:    &r,
			Column: "uptime_pct",
			Code:   CodeModule3UptimeRequired.String(),
			Description: CodeModule3UptimeRequired.Format(Args{
				"station_id":       c.key.StationID,
				"network_provider": c.key.NetworkProvider,
			}),
		})
	}

	return result, nil
}

// module4OutagePairing requires outage_id and outage_duration_min to be both
// present or both absent; exactly one blank yields a missing-value condition
// for the blank column.
func module4OutagePairing(_ context.Context, in RuleInput) (RuleResult, error) {
	var result RuleResult

	idCol := in.Table.ColumnIndex("outage_id")
	durationCol := in.Table.ColumnIndex("outage_duration_min")
	if idCol < 0 && durationCol < 0 {
		return result, nil
	}

	for row := range in.Table.Rows {
		id := in.Table.Cell(row, idCol)
		duration := in.Table.Cell(row, durationCol)
		if (id == "") == (duration == "") {
			continue
		}
		blank := "outage_id"
		if duration == "" {
			blank = "outage_duration_min"
		}
		r := row
		result.Conditions = append(result.Conditions, domain.Condition{
			Row:    &r,
			Column: blank,
			Code:   CodeMissingValueRequiredColumn.String(),
			Description: CodeMissingValueRequiredColumn.Format(Args{
				"column_name": blank,
			}),
		})
	}

	return result, nil
}

// module9CollectiveBlank accepts a capital-cost row with every capital/install
// field blank as "no data reported". Columns absent from the upload count as
// blank. Partial blankness yields one missing-value condition per blank
// capital field.
func module9CollectiveBlank(_ context.Context, in RuleInput) (RuleResult, error) {
	result := RuleResult{
		ExemptCells: make(map[int]map[string]bool),
		NoDataRows:  make(map[int]bool),
	}

	for row := range in.Table.Rows {
		var blank []string
		filled := 0
		for _, col := range module9CapitalColumns {
			if in.Table.Value(row, col) == "" {
				blank = append(blank, col)
			} else {
				filled++
			}
		}

		if filled == 0 {
			cells := make(map[string]bool, len(module9CapitalColumns))
			for _, col := range module9CapitalColumns {
				cells[col] = true
			}
			result.ExemptCells[row] = cells
			result.NoDataRows[row] = true
			continue
		}

		for _, col := range blank {
			r := row
			result.Conditions = append(result.Conditions, domain.Condition{
				Row:    &r,
				Column: col,
				Code:   CodeMissingValueRequiredColumn.String(),
				Description: CodeMissingValueRequiredColumn.Format(Args{
					"column_name": col,
				}),
			})
		}
	}

	return result, nil
}
