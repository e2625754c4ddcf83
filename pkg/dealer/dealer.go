//
// Copyright (c) 2024 - for information on the respective copyright owner
// see the NOTICE file and/or the repository https://github.com/NillionNetwork/tinybio.
//
// SPDX-License-Identifier: Apache-2.0
//
package dealer

import (
	"fmt"
	"math/rand"

	"github.com/NillionNetwork/tinybio/pkg/types"
	"github.com/NillionNetwork/tinybio/pkg/vector"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// maskBits is the number of random bits in a single mask coordinate. Mask
// coordinates are multiples of 1/vector.Scale below 2^(maskBits-FractionalBits),
// which keeps all products computed during the online phase within the exact
// range of float64.
const maskBits = 26

// correctionBits bounds the magnitude of a blinded correction share.
const correctionBits = 57

// Material is the correlated secret randomness one node receives during the
// offline phase. It supports exactly one (registration, authentication)
// session pair.
type Material struct {
	// BatchID identifies the preprocessing batch. All material generated by
	// one Seed call carries the same BatchID; the online phase validates it
	// on every token and share.
	BatchID   uuid.UUID
	NodeIndex int
	NodeCount int
	Length    int
	// Registration and Authentication are this node's mask vectors for the
	// two session purposes.
	Registration   vector.Vector
	Authentication vector.Vector
	// Correction is this node's additive share of the cross term
	// ||sum_j(r_j - a_j)||^2. The shares of all nodes in the batch sum to
	// that value exactly.
	Correction float64
}

// Receiver is the part of a node the dealer interacts with.
type Receiver interface {
	Install(m Material)
}

// Dealer simulates the offline preprocessing phase among a set of nodes.
//
// The random generator is injected so that deployments choose their own
// seeding strategy and tests are deterministic; the dealer never touches
// process-global randomness.
type Dealer struct {
	rng    *rand.Rand
	logger *zap.SugaredLogger
}

// NewDealer returns a new dealer drawing from the given random generator.
func NewDealer(rng *rand.Rand, logger *zap.SugaredLogger) *Dealer {
	return &Dealer{rng: rng, logger: logger}
}

// Seed generates one atomic batch of correlated material for descriptor
// vectors of the given length and installs it into every node. Material for
// the whole batch is generated before any node is touched, so a validation
// failure leaves all nodes unchanged. Installing into an already seeded node
// resets that node's session state.
func (d *Dealer) Seed(nodes []Receiver, length int) (uuid.UUID, error) {
	if len(nodes) < 2 {
		return uuid.Nil, fmt.Errorf("a batch requires at least two nodes, got %d: %w", len(nodes), types.ErrInsufficientNodes)
	}
	if length <= 0 {
		return uuid.Nil, fmt.Errorf("descriptor length must be positive, got %d: %w", length, vector.ErrLengthMismatch)
	}
	batchID := uuid.New()
	count := len(nodes)
	materials := make([]Material, count)
	crossed := make(vector.Vector, length)
	for i := range nodes {
		registration := d.maskVector(length)
		authentication := d.maskVector(length)
		for c := 0; c < length; c++ {
			crossed[c] += registration[c] - authentication[c]
		}
		materials[i] = Material{
			BatchID:        batchID,
			NodeIndex:      i,
			NodeCount:      count,
			Length:         length,
			Registration:   registration,
			Authentication: authentication,
		}
	}
	// Split the cross term into additive shares. The first N-1 shares are
	// uniform; the last one absorbs the remainder.
	crossTerm, err := vector.Dot(crossed, crossed)
	if err != nil {
		return uuid.Nil, err
	}
	remainder := crossTerm
	for i := 0; i < count-1; i++ {
		share := d.correctionShare()
		materials[i].Correction = share
		remainder -= share
	}
	materials[count-1].Correction = remainder
	for i, n := range nodes {
		n.Install(materials[i])
	}
	d.logger.Debugw("Seeded preprocessing batch", "batchID", batchID, "nodes", count, "length", length)
	return batchID, nil
}

// maskVector draws a uniform mask vector on the fixed-point grid.
func (d *Dealer) maskVector(length int) vector.Vector {
	v := make(vector.Vector, length)
	for i := range v {
		v[i] = float64(d.rng.Int63n(1<<maskBits)) / vector.Scale
	}
	return v
}

// correctionShare draws a uniform share with 32 fractional bits, so that the
// remainder share cancels against the others without rounding.
func (d *Dealer) correctionShare() float64 {
	units := d.rng.Int63n(1<<correctionBits) - 1<<(correctionBits-1)
	return float64(units) / (vector.Scale * vector.Scale)
}
