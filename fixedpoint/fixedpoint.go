// (c) 2024-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package fixedpoint provides the deterministic integer math primitives used
// throughout the lending core. Two fixed point scales are in play: 7 digits
// for token amounts and percentages, 14 digits for emission indexes.
//
// All operands are expected to fit in 128 bits. Products of two such values
// fit in 256 bits, so multiplication followed by division is exact and
// overflow free for the protocol's century scale horizons.
package fixedpoint

import "github.com/holiman/uint256"

var one = uint256.NewInt(1)

// MulFloor returns floor(x * y / denom).
func MulFloor(x, y, denom *uint256.Int) *uint256.Int {
	z := new(uint256.Int).Mul(x, y)
	return z.Div(z, denom)
}

// MulCeil returns ceil(x * y / denom).
func MulCeil(x, y, denom *uint256.Int) *uint256.Int {
	z := new(uint256.Int).Mul(x, y)
	r := new(uint256.Int)
	z.DivMod(z, denom, r)
	if !r.IsZero() {
		z.Add(z, one)
	}
	return z
}

// DivFloor returns floor(x * scalar / y), the fixed point quotient of x and y
// at the precision of scalar.
func DivFloor(x, y, scalar *uint256.Int) *uint256.Int {
	z := new(uint256.Int).Mul(x, scalar)
	return z.Div(z, y)
}

// DivCeil returns ceil(x * scalar / y).
func DivCeil(x, y, scalar *uint256.Int) *uint256.Int {
	z := new(uint256.Int).Mul(x, scalar)
	r := new(uint256.Int)
	z.DivMod(z, y, r)
	if !r.IsZero() {
		z.Add(z, one)
	}
	return z
}

// SubClamp returns x - y, clamped at zero when y exceeds x.
func SubClamp(x, y *uint256.Int) *uint256.Int {
	if y.Cmp(x) >= 0 {
		return new(uint256.Int)
	}
	return new(uint256.Int).Sub(x, y)
}

// Min returns the smaller of x and y. The result aliases one of the
// arguments; copy before mutating.
func Min(x, y *uint256.Int) *uint256.Int {
	if x.Cmp(y) <= 0 {
		return x
	}
	return y
}
