package common

import (
	"errors"
	"math/big"

	"github.com/holiman/uint256"
)

// YieldPrecision scales the global yield index so sub-unit rewards survive
// integer division.
const YieldPrecision = 1_000_000_000_000

var (
	errNegativeOperand    = errors.New("fixedpoint: negative operand")
	errDivisionByZero     = errors.New("fixedpoint: division by zero")
	errArithmeticOverflow = errors.New("fixedpoint: 256-bit overflow")
)

// PrecisionBig returns a fresh copy of YieldPrecision.
func PrecisionBig() *big.Int { return big.NewInt(YieldPrecision) }

// MulDivFloor returns floor(a*b/d) computed with a 512-bit intermediate
// product. Operands must be non-negative and fit in 256 bits; nil counts as 0.
func MulDivFloor(a, b, d *big.Int) (*big.Int, error) {
	if d == nil || d.Sign() == 0 {
		return nil, errDivisionByZero
	}
	x, err := toUint256(a)
	if err != nil {
		return nil, err
	}
	y, err := toUint256(b)
	if err != nil {
		return nil, err
	}
	z, err := toUint256(d)
	if err != nil {
		return nil, err
	}
	result, overflow := new(uint256.Int).MulDivOverflow(x, y, z)
	if overflow {
		return nil, errArithmeticOverflow
	}
	return result.ToBig(), nil
}

// Accrued returns floor(balance*index/YieldPrecision).
func Accrued(balance, index *big.Int) (*big.Int, error) {
	return MulDivFloor(balance, index, PrecisionBig())
}

// MulDivCeil returns ceil(a*b/d) under the same operand rules as MulDivFloor.
func MulDivCeil(a, b, d *big.Int) (*big.Int, error) {
	q, err := MulDivFloor(a, b, d)
	if err != nil {
		return nil, err
	}
	rem := new(big.Int).Mod(new(big.Int).Mul(ZeroIfNil(a), ZeroIfNil(b)), d)
	if rem.Sign() == 0 {
		return q, nil
	}
	return CheckedAdd(q, big.NewInt(1))
}

// AccruedCeil returns ceil(balance*index/YieldPrecision).
func AccruedCeil(balance, index *big.Int) (*big.Int, error) {
	return MulDivCeil(balance, index, PrecisionBig())
}

// IndexDelta returns floor(reward*YieldPrecision/supply).
func IndexDelta(reward, supply *big.Int) (*big.Int, error) {
	return MulDivFloor(reward, PrecisionBig(), supply)
}

// CheckedAdd returns a+b, rejecting results outside 256 bits.
func CheckedAdd(a, b *big.Int) (*big.Int, error) {
	sum := new(big.Int).Add(ZeroIfNil(a), ZeroIfNil(b))
	if _, err := toUint256(sum); err != nil {
		return nil, err
	}
	return sum, nil
}

// ZeroIfNil returns v or a fresh zero.
func ZeroIfNil(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return v
}

// CloneBig returns a copy of v, treating nil as zero.
func CloneBig(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}

// Positive reports whether v is non-nil and strictly greater than zero.
func Positive(v *big.Int) bool {
	return v != nil && v.Sign() > 0
}

func toUint256(v *big.Int) (*uint256.Int, error) {
	if v == nil {
		return new(uint256.Int), nil
	}
	if v.Sign() < 0 {
		return nil, errNegativeOperand
	}
	out, overflow := uint256.FromBig(v)
	if overflow {
		return nil, errArithmeticOverflow
	}
	return out, nil
}
