//
// Copyright (c) 2024 - for information on the respective copyright owner
// see the NOTICE file and/or the repository https://github.com/NillionNetwork/tinybio.
//
// SPDX-License-Identifier: Apache-2.0
//
package vector

import (
	"errors"
	"math"
)

// FractionalBits is the number of fractional bits retained when a descriptor
// is placed on the fixed-point grid. Coordinates of masks and tokens live on
// the same grid, so sums and differences of protocol values are exact in
// float64 arithmetic.
const FractionalBits = 16

// Scale is the fixed-point scaling factor, 2^FractionalBits.
const Scale = 1 << FractionalBits

// ErrLengthMismatch is returned when vectors of different lengths are
// combined, or when a protocol value disagrees with the length fixed during
// preprocessing.
var ErrLengthMismatch = errors.New("length mismatch")

// Vector is an ordered sequence of coordinates, e.g. a biometric descriptor.
type Vector []float64

// Quantize returns a copy of v with every coordinate rounded to the nearest
// multiple of 1/Scale.
func Quantize(v Vector) Vector {
	q := make(Vector, len(v))
	for i, c := range v {
		q[i] = math.Round(c*Scale) / Scale
	}
	return q
}

// Clone returns an independent copy of v.
func Clone(v Vector) Vector {
	c := make(Vector, len(v))
	copy(c, v)
	return c
}

// Add returns the elementwise sum a + b.
func Add(a, b Vector) (Vector, error) {
	if len(a) != len(b) {
		return nil, ErrLengthMismatch
	}
	s := make(Vector, len(a))
	for i := range a {
		s[i] = a[i] + b[i]
	}
	return s, nil
}

// Sub returns the elementwise difference a - b.
func Sub(a, b Vector) (Vector, error) {
	if len(a) != len(b) {
		return nil, ErrLengthMismatch
	}
	d := make(Vector, len(a))
	for i := range a {
		d[i] = a[i] - b[i]
	}
	return d, nil
}

// Dot returns the inner product of a and b.
func Dot(a, b Vector) (float64, error) {
	if len(a) != len(b) {
		return 0, ErrLengthMismatch
	}
	var s float64
	for i := range a {
		s += a[i] * b[i]
	}
	return s, nil
}

// SquaredDistance returns the squared Euclidean distance between a and b.
func SquaredDistance(a, b Vector) (float64, error) {
	d, err := Sub(a, b)
	if err != nil {
		return 0, err
	}
	return Dot(d, d)
}
