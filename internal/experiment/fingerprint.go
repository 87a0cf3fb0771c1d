package experiment

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
	"github.com/fxamacker/cbor/v2"

	"github.com/limiquantix/placesim/internal/consolidation"
	"github.com/limiquantix/placesim/internal/workload"
)

var canonical cbor.EncMode

func init() {
	var err error
	canonical, err = cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
}

type fingerprintInput struct {
	Spec          Spec                 `cbor:"spec"`
	Workload      workload.Config      `cbor:"workload"`
	Consolidation consolidation.Config `cbor:"consolidation"`
}

// Fingerprint identifies an experiment by everything that affects its rows.
// The inputs are encoded as canonical CBOR and hashed with xxhash.
func Fingerprint(spec Spec, wl workload.Config, cc consolidation.Config) (string, error) {
	data, err := canonical.Marshal(fingerprintInput{Spec: spec, Workload: wl, Consolidation: cc})
	if err != nil {
		return "", fmt.Errorf("failed to encode fingerprint input: %w", err)
	}
	return fmt.Sprintf("experiment:%016x", xxhash.Sum64(data)), nil
}
