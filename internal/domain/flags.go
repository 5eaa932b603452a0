package domain

// FeatureFlag identifies an externally supplied toggle controlling which
// optional validation rules and transforms run for an ingestion.
type FeatureFlag string

const (
	FlagModule2EmptySessions FeatureFlag = "MODULE_2_EMPTY_SESSIONS"
	FlagModule3Uptime        FeatureFlag = "MODULE_3_UPTIME"
	FlagModule4Outages       FeatureFlag = "MODULE_4_OUTAGES"
	FlagModule5Nulls         FeatureFlag = "MODULE_5_NULLS"
	FlagAsyncJSONModule5     FeatureFlag = "ASYNC_JSON_MODULE_5"
	FlagModule9CapitalCosts  FeatureFlag = "MODULE_9_CAPITAL_COSTS"
	FlagJSONUploads          FeatureFlag = "JSON_UPLOADS"
)

// FlagSet is the set of enabled flags for one ingestion. It is a pure input:
// the core never mutates or caches it.
type FlagSet map[FeatureFlag]struct{}

// NewFlagSet builds a set from the given flags.
func NewFlagSet(flags ...FeatureFlag) FlagSet {
	set := make(FlagSet, len(flags))
	for _, f := range flags {
		set[f] = struct{}{}
	}
	return set
}

// Enabled reports whether a flag is active.
func (s FlagSet) Enabled(flag FeatureFlag) bool {
	_, ok := s[flag]
	return ok
}
