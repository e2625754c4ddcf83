//
// Copyright (c) 2024 - for information on the respective copyright owner
// see the NOTICE file and/or the repository https://github.com/NillionNetwork/tinybio.
//
// SPDX-License-Identifier: Apache-2.0
//
// Package reveal implements the verifier boundary: combining all nodes'
// shares into the plaintext squared distance. The result is the protocol's
// intentionally disclosed output and carries no further secrecy obligation.
package reveal

import (
	"fmt"

	"github.com/NillionNetwork/tinybio/pkg/types"
)

// Reveal sums the shares of a matched (registration, authentication) session
// pair. It requires exactly one share per node of the batch; the sum is
// commutative, so share order does not matter. Independent runs may differ
// by a small floating-point epsilon.
func Reveal(shares []types.Share) (float64, error) {
	if len(shares) == 0 {
		return 0, fmt.Errorf("no shares supplied: %w", types.ErrInsufficientNodes)
	}
	first := shares[0]
	covered := map[int]bool{}
	var sum float64
	for _, s := range shares {
		if s.BatchID != first.BatchID || s.RegistrationID != first.RegistrationID ||
			s.AuthenticationID != first.AuthenticationID || s.NodeCount != first.NodeCount {
			return 0, fmt.Errorf("shares from unrelated session pairs: %w", types.ErrSessionMismatch)
		}
		if s.NodeIndex < 0 || s.NodeIndex >= first.NodeCount {
			return 0, fmt.Errorf("node index %d outside batch of %d: %w", s.NodeIndex, first.NodeCount, types.ErrSessionMismatch)
		}
		if covered[s.NodeIndex] {
			return 0, fmt.Errorf("two shares from node index %d: %w", s.NodeIndex, types.ErrSessionMismatch)
		}
		covered[s.NodeIndex] = true
		sum += s.Value
	}
	if len(covered) != first.NodeCount {
		return 0, fmt.Errorf("shares from %d of %d nodes: %w", len(covered), first.NodeCount, types.ErrInsufficientNodes)
	}
	// An exact zero distance can come out marginally negative after the
	// masks cancel in floating point.
	if sum < 0 {
		sum = 0
	}
	return sum, nil
}
