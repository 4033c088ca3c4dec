package validate

import (
	"context"

	"witnessdag.dev/core/dag"
	"witnessdag.dev/core/storage"
)

// resolveWitnessList is phase 3 (spec §4.5.1): either witness_list_unit
// references a stable unit declaring exactly W witnesses, or witnesses is
// inline of length W — inline is only legal before params.WitnessListLockMCI
// (Open Question 2, SPEC_FULL §6.4 "--witness-list-lock-mci").
func resolveWitnessList(ctx context.Context, r storage.Reader, u *dag.Unit, horizonMCI int64, params Params) ([]string, error) {
	if u.WitnessListUnit != "" {
		props, ok, err := r.ReadUnitProps(ctx, u.WitnessListUnit)
		if err != nil {
			return nil, err
		}
		if !ok || !props.IsStable {
			return nil, &dag.Error{Code: dag.ErrMalformed, Msg: "witness_list_unit is not a stable unit"}
		}
		if len(props.Witnesses) != WCount {
			return nil, &dag.Error{Code: dag.ErrMalformed, Msg: "witness_list_unit does not declare exactly W witnesses"}
		}
		return props.Witnesses, nil
	}
	if len(u.Witnesses) != WCount {
		return nil, &dag.Error{Code: dag.ErrMalformed, Msg: "inline witnesses must be exactly W entries"}
	}
	if params.WitnessListLockMCI > 0 && horizonMCI >= params.WitnessListLockMCI {
		return nil, &dag.Error{Code: dag.ErrMalformed, Msg: "inline witness list not allowed after witness-list-lock-mci"}
	}
	return u.Witnesses, nil
}
