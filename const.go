package clob

const (
	// EngineVersion is the current version of the matching engine
	EngineVersion = "v1.0.0"

	// SnapshotSchemaVersion is the current version of the snapshot schema
	// Increment this when the snapshot format changes in a backward-incompatible way
	SnapshotSchemaVersion = 1

	// FeeDenominator is the unit of fee rates: rates are expressed in parts
	// per million of quote notional.
	FeeDenominator = 1_000_000
)
