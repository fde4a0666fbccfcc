package state

import (
	"fmt"

	"github.com/holiman/uint256"
)

// StakeShift is the fixed-point shift of stored stake units:
// value = units << StakeShift.
const StakeShift = 8

var stakeMask = new(uint256.Int).SetUint64(1<<StakeShift - 1)

// Scale converts a value to stake units. Values that would lose their low
// bits, or whose units do not fit 64 bits, are rejected.
func Scale(value *uint256.Int) (units uint64, err error) {
	if value == nil {
		return 0, nil
	}
	if !new(uint256.Int).And(value, stakeMask).IsZero() {
		return 0, fmt.Errorf("%w: %v is not a multiple of %d", ErrStakeNotRepresentable, value, 1<<StakeShift)
	}
	u := new(uint256.Int).Rsh(value, StakeShift)
	if !u.IsUint64() {
		return 0, fmt.Errorf("%w: %v too large", ErrStakeNotRepresentable, value)
	}
	return u.Uint64(), nil
}

func Unscale(units uint64) *uint256.Int {
	return new(uint256.Int).Lsh(uint256.NewInt(units), StakeShift)
}

// roundUpUnits rounds v up to the next multiple of the unit size.
func roundUpUnits(v *uint256.Int) (*uint256.Int, bool) {
	if new(uint256.Int).And(v, stakeMask).IsZero() {
		return v.Clone(), false
	}
	r := new(uint256.Int).Rsh(v, StakeShift)
	r.Lsh(r, StakeShift)
	return r.AddOverflow(r, uint256.NewInt(1<<StakeShift))
}
