//
// Copyright (c) 2024 - for information on the respective copyright owner
// see the NOTICE file and/or the repository https://github.com/NillionNetwork/tinybio.
//
// SPDX-License-Identifier: Apache-2.0
//
package node

import (
	"fmt"
	"sync"

	"github.com/NillionNetwork/tinybio/pkg/dealer"
	"github.com/NillionNetwork/tinybio/pkg/types"
	"github.com/NillionNetwork/tinybio/pkg/vector"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Node is a long-lived protocol participant. It owns the preprocessing
// material installed by the dealer and answers mask requests and
// authentication calls without ever seeing a plaintext descriptor.
//
// All state is guarded by a single mutex so that one process can host
// several logical nodes or serve concurrent sessions for the same node.
type Node struct {
	id     uuid.UUID
	logger *zap.SugaredLogger

	mux      sync.Mutex
	material *dealer.Material
	issued   map[types.Purpose]uuid.UUID
	consumed bool
}

// NewNode returns a new node without preprocessing material. The node is not
// usable until a dealer installed material into it.
func NewNode(logger *zap.SugaredLogger) *Node {
	return &Node{
		id:     uuid.New(),
		logger: logger,
		issued: map[types.Purpose]uuid.UUID{},
	}
}

// ID returns the node's identity.
func (n *Node) ID() uuid.UUID {
	return n.id
}

// Install replaces the node's preprocessing material and resets all session
// bookkeeping. Called by the dealer during the offline phase.
func (n *Node) Install(m dealer.Material) {
	n.mux.Lock()
	defer n.mux.Unlock()
	n.material = &m
	n.issued = map[types.Purpose]uuid.UUID{}
	n.consumed = false
	n.logger.Debugw("Installed preprocessing material", "node", n.id, "batchID", m.BatchID, "index", m.NodeIndex)
}

// Masks returns this node's blinding vector for the given request.
//
// Each purpose is served for a single session per preprocessing batch:
// repeating the call with the same session is idempotent, a second distinct
// session for the same purpose fails with ErrReuse. Lengths other than the
// one fixed during preprocessing fail with ErrLengthMismatch.
func (n *Node) Masks(r types.Request) (types.Mask, error) {
	n.mux.Lock()
	defer n.mux.Unlock()
	if n.material == nil {
		return types.Mask{}, fmt.Errorf("node %s holds no preprocessing material", n.id)
	}
	if r.Length != n.material.Length {
		return types.Mask{}, fmt.Errorf("request length %d, preprocessed length %d: %w", r.Length, n.material.Length, vector.ErrLengthMismatch)
	}
	coordinates, err := n.maskFor(r.Purpose)
	if err != nil {
		return types.Mask{}, err
	}
	if bound, ok := n.issued[r.Purpose]; ok && bound != r.SessionID {
		return types.Mask{}, fmt.Errorf("%s masks already bound to session %s: %w", r.Purpose, bound, types.ErrReuse)
	}
	n.issued[r.Purpose] = r.SessionID
	return types.Mask{
		Purpose:     r.Purpose,
		SessionID:   r.SessionID,
		BatchID:     n.material.BatchID,
		NodeIndex:   n.material.NodeIndex,
		NodeCount:   n.material.NodeCount,
		Coordinates: vector.Clone(coordinates),
	}, nil
}

// Authenticate computes this node's additive contribution to the squared
// distance between the descriptors hidden inside the two tokens.
//
// Both tokens must stem from the node's own preprocessing batch and from the
// sessions this node issued masks for; the material is consumed by the call.
func (n *Node) Authenticate(registration, authentication types.Token) (types.Share, error) {
	n.mux.Lock()
	defer n.mux.Unlock()
	if n.material == nil {
		return types.Share{}, fmt.Errorf("node %s holds no preprocessing material", n.id)
	}
	if registration.Purpose != types.Registration || authentication.Purpose != types.Authentication {
		return types.Share{}, fmt.Errorf("token purposes %s/%s: %w", registration.Purpose, authentication.Purpose, types.ErrSessionMismatch)
	}
	if registration.BatchID != n.material.BatchID || authentication.BatchID != n.material.BatchID {
		return types.Share{}, fmt.Errorf("tokens from a foreign preprocessing batch: %w", types.ErrSessionMismatch)
	}
	if len(registration.Coordinates) != n.material.Length || len(authentication.Coordinates) != n.material.Length {
		return types.Share{}, fmt.Errorf("token length differs from preprocessed length %d: %w", n.material.Length, vector.ErrLengthMismatch)
	}
	if bound, ok := n.issued[types.Registration]; !ok || bound != registration.SessionID {
		return types.Share{}, fmt.Errorf("no masks issued for registration session %s: %w", registration.SessionID, types.ErrSessionMismatch)
	}
	if bound, ok := n.issued[types.Authentication]; !ok || bound != authentication.SessionID {
		return types.Share{}, fmt.Errorf("no masks issued for authentication session %s: %w", authentication.SessionID, types.ErrSessionMismatch)
	}
	if n.consumed {
		return types.Share{}, fmt.Errorf("node %s: %w", n.id, types.ErrReuse)
	}
	value, err := n.shareValue(registration, authentication)
	if err != nil {
		return types.Share{}, err
	}
	n.consumed = true
	n.logger.Debugw("Computed share", "node", n.id, "batchID", n.material.BatchID)
	return types.Share{
		BatchID:          n.material.BatchID,
		RegistrationID:   registration.SessionID,
		AuthenticationID: authentication.SessionID,
		NodeIndex:        n.material.NodeIndex,
		NodeCount:        n.material.NodeCount,
		Value:            value,
	}, nil
}

// shareValue evaluates the node's summand of the telescoping identity
//
//	||d1-d2||^2 = ||t1-t2||^2 - 2 (t1-t2) . sum_j(r_j-a_j) + ||sum_j(r_j-a_j)||^2
//
// with the public first term split evenly across the batch, the middle term
// built from this node's own masks and the last term covered by the dealer's
// correction shares.
func (n *Node) shareValue(registration, authentication types.Token) (float64, error) {
	diff, err := vector.Sub(registration.Coordinates, authentication.Coordinates)
	if err != nil {
		return 0, err
	}
	unmask, err := vector.Sub(n.material.Registration, n.material.Authentication)
	if err != nil {
		return 0, err
	}
	public, err := vector.Dot(diff, diff)
	if err != nil {
		return 0, err
	}
	cross, err := vector.Dot(diff, unmask)
	if err != nil {
		return 0, err
	}
	return public/float64(n.material.NodeCount) - 2*cross + n.material.Correction, nil
}

// maskFor selects the mask vector matching the request purpose.
func (n *Node) maskFor(p types.Purpose) (vector.Vector, error) {
	switch p {
	case types.Registration:
		return n.material.Registration, nil
	case types.Authentication:
		return n.material.Authentication, nil
	}
	return nil, fmt.Errorf("unknown purpose %q: %w", p, types.ErrSessionMismatch)
}
