package domain

import "time"

// ExperimentKind identifies how an experiment varies its inputs.
type ExperimentKind string

const (
	ExperimentKindComparison      ExperimentKind = "comparison"
	ExperimentKindVMScaling       ExperimentKind = "vm_scaling"
	ExperimentKindPercentileSweep ExperimentKind = "percentile_sweep"
	ExperimentKindTopologySweep   ExperimentKind = "topology_sweep"
)

// ExperimentRun is the stored outcome of one experiment.
type ExperimentRun struct {
	ID          string         `json:"id" cbor:"id"`
	Name        string         `json:"name" cbor:"name"`
	Kind        ExperimentKind `json:"kind" cbor:"kind"`
	Fingerprint string         `json:"fingerprint" cbor:"fingerprint"`
	Rows        []RunRow       `json:"rows" cbor:"rows"`
	CreatedAt   time.Time      `json:"created_at" cbor:"created_at"`
}

// RunRow is one algorithm execution inside an experiment.
type RunRow struct {
	Label       string  `json:"label" cbor:"label"`
	Algorithm   string  `json:"algorithm" cbor:"algorithm"`
	Hosts       int     `json:"hosts" cbor:"hosts"`
	VMs         int     `json:"vms" cbor:"vms"`
	Topology    string  `json:"topology" cbor:"topology"`
	Percentile  float64 `json:"percentile" cbor:"percentile"`
	TrafficCost float64 `json:"traffic_cost" cbor:"traffic_cost"`
	ActiveHosts int     `json:"active_hosts" cbor:"active_hosts"`
	Unplaced    int     `json:"unplaced" cbor:"unplaced"`
	// DeltaPercent compares this row to the experiment's baseline row.
	DeltaPercent float64 `json:"delta_percent" cbor:"delta_percent"`
}

// Clone returns a deep copy of the run.
func (r *ExperimentRun) Clone() *ExperimentRun {
	out := *r
	out.Rows = make([]RunRow, len(r.Rows))
	copy(out.Rows, r.Rows)
	return &out
}
