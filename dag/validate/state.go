package validate

// Protocol limits (spec §3.1, §4.5.1, §5).
const (
	SMax   = 5_000_000 // S_MAX: max serialized unit size in bytes.
	AMax   = 16        // A_MAX: max authors.
	MMax   = 128       // M_MAX: max messages.
	PMax   = 16        // P_MAX: max parents.
	NConf  = 1000       // N_CONF: conflict-query bound.
	WCount = 12         // W: witness-list size.
)

// Params bundles the deployment-tunable inputs SPEC_FULL §6.4 surfaces as
// CLI flags/env vars rather than hardcoded constants (Open Question 2:
// witness-list lock cutover is a deployment parameter).
type Params struct {
	MaxUnitLength      int
	MaxComplexity      int
	WitnessListLockMCI int64
	IsCatchupMode      bool
}

// DefaultParams mirrors spec §6.4's defaults.
func DefaultParams() Params {
	return Params{
		MaxUnitLength: SMax,
		MaxComplexity: 100,
	}
}
