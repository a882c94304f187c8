package snapshot

const TriggerCardSchemaVersion = "triggercard.v1"

// TriggerCard is the compact audit record the TriggerCardLogger appends to
// its JSONL file at most once per logger-cadence tick.
type TriggerCard struct {
	SchemaVersion string   `json:"schema_version"`
	RunID         string   `json:"run_id"`
	TSUnixMS      int64    `json:"ts_unix_ms"`
	SnapshotID    int64    `json:"snapshot_id"`
	Ready         bool     `json:"ready"`
	ReadyReasons  []string `json:"ready_reasons"`
}

// NewTriggerCard builds a TriggerCard from a just-published Snapshot.
func NewTriggerCard(s *Snapshot) TriggerCard {
	return TriggerCard{
		SchemaVersion: TriggerCardSchemaVersion,
		RunID:         s.RunID,
		TSUnixMS:      s.CycleStartWallMS,
		SnapshotID:    s.SnapshotID,
		Ready:         s.Ready,
		ReadyReasons:  s.ReadyReasons,
	}
}
