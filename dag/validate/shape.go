package validate

import (
	"fmt"
	"sort"

	"witnessdag.dev/core/crypto"
	"witnessdag.dev/core/dag"
)

// checkShape is phase 1 (spec §4.5.1): parse success is assumed (the caller
// already has a *dag.Unit), size within MaxUnitLength, counts within
// A_MAX/M_MAX/P_MAX, parents sorted bytewise ascending and unique, and the
// declared unit id matches the recomputed hash.
func checkShape(p crypto.Provider, u *dag.Unit, params Params) error {
	if len(u.Authors) == 0 || len(u.Authors) > AMax {
		return shapeErr(fmt.Sprintf("authors count %d out of range [1,%d]", len(u.Authors), AMax))
	}
	if len(u.Messages) > MMax {
		return shapeErr(fmt.Sprintf("messages count %d exceeds M_MAX=%d", len(u.Messages), MMax))
	}
	if len(u.Parents) == 0 || len(u.Parents) > PMax {
		return shapeErr(fmt.Sprintf("parents count %d out of range [1,%d]", len(u.Parents), PMax))
	}
	for i := 1; i < len(u.Parents); i++ {
		if u.Parents[i] <= u.Parents[i-1] {
			return shapeErr("parent_units not sorted bytewise ascending or contains duplicates")
		}
	}
	if !sort.StringsAreSorted(u.Parents) {
		return shapeErr("parent_units not sorted")
	}
	for _, parent := range u.Parents {
		if u.UnitID != "" && parent == u.UnitID {
			return shapeErr("unit lists itself as a parent")
		}
	}

	preimage, err := dag.Canonicalize(u.HashPreimage(false))
	if err != nil {
		return shapeErr(fmt.Sprintf("unit does not canonicalize: %v", err))
	}
	if len(preimage) > params.MaxUnitLength {
		return shapeErr(fmt.Sprintf("serialized size %d exceeds MAX_UNIT_LENGTH=%d", len(preimage), params.MaxUnitLength))
	}
	computedID, err := u.DeriveUnitID(p)
	if err != nil {
		return shapeErr(fmt.Sprintf("cannot derive unit id: %v", err))
	}
	if u.UnitID != "" && computedID != u.UnitID {
		return shapeErr("declared unit id does not match recomputed hash")
	}
	return nil
}

func shapeErr(msg string) *dag.Error {
	return &dag.Error{Code: dag.ErrMalformed, Msg: msg}
}
