//
// Copyright (c) 2024 - for information on the respective copyright owner
// see the NOTICE file and/or the repository https://github.com/NillionNetwork/tinybio.
//
// SPDX-License-Identifier: Apache-2.0
//
// Package client implements the party that owns a plaintext descriptor: it
// issues session requests towards the nodes and folds the returned masks
// into publicly shareable tokens. The descriptor itself never crosses the
// package boundary in the clear.
package client

import (
	"fmt"

	"github.com/NillionNetwork/tinybio/pkg/types"
	"github.com/NillionNetwork/tinybio/pkg/vector"
	"github.com/google/uuid"
)

// RegistrationRequest opens a fresh registration session for the descriptor.
// Only the descriptor's length enters the request; the values stay with the
// caller for the later token construction.
func RegistrationRequest(descriptor vector.Vector) (types.Request, error) {
	return newRequest(types.Registration, descriptor)
}

// AuthenticationRequest opens a fresh authentication session for the
// descriptor.
func AuthenticationRequest(descriptor vector.Vector) (types.Request, error) {
	return newRequest(types.Authentication, descriptor)
}

func newRequest(purpose types.Purpose, descriptor vector.Vector) (types.Request, error) {
	if len(descriptor) == 0 {
		return types.Request{}, fmt.Errorf("empty descriptor: %w", vector.ErrLengthMismatch)
	}
	return types.Request{
		Purpose:   purpose,
		SessionID: uuid.New(),
		Length:    len(descriptor),
	}, nil
}

// RegistrationToken blinds the descriptor with the full node set's
// registration masks.
func RegistrationToken(masks []types.Mask, descriptor vector.Vector) (types.Token, error) {
	return buildToken(types.Registration, masks, descriptor)
}

// AuthenticationToken blinds the descriptor with the full node set's
// authentication masks.
func AuthenticationToken(masks []types.Mask, descriptor vector.Vector) (types.Token, error) {
	return buildToken(types.Authentication, masks, descriptor)
}

// buildToken sums the quantized descriptor and one mask per node of the
// batch. As long as a single node's mask remains unknown to an observer, the
// token reveals nothing about the descriptor beyond its length.
func buildToken(purpose types.Purpose, masks []types.Mask, descriptor vector.Vector) (types.Token, error) {
	if len(masks) == 0 {
		return types.Token{}, fmt.Errorf("no masks supplied: %w", types.ErrInsufficientNodes)
	}
	sessionID := masks[0].SessionID
	batchID := masks[0].BatchID
	nodeCount := masks[0].NodeCount
	covered := map[int]bool{}
	coordinates := vector.Quantize(descriptor)
	for _, m := range masks {
		if m.Purpose != purpose {
			return types.Token{}, fmt.Errorf("%s mask in a %s token: %w", m.Purpose, purpose, types.ErrSessionMismatch)
		}
		if m.SessionID != sessionID || m.BatchID != batchID || m.NodeCount != nodeCount {
			return types.Token{}, fmt.Errorf("masks from unrelated sessions: %w", types.ErrSessionMismatch)
		}
		if m.NodeIndex < 0 || m.NodeIndex >= nodeCount {
			return types.Token{}, fmt.Errorf("node index %d outside batch of %d: %w", m.NodeIndex, nodeCount, types.ErrSessionMismatch)
		}
		if len(m.Coordinates) != len(descriptor) {
			return types.Token{}, fmt.Errorf("mask length %d, descriptor length %d: %w", len(m.Coordinates), len(descriptor), vector.ErrLengthMismatch)
		}
		if covered[m.NodeIndex] {
			return types.Token{}, fmt.Errorf("two masks from node index %d: %w", m.NodeIndex, types.ErrSessionMismatch)
		}
		covered[m.NodeIndex] = true
		summed, err := vector.Add(coordinates, m.Coordinates)
		if err != nil {
			return types.Token{}, err
		}
		coordinates = summed
	}
	if len(covered) != nodeCount {
		return types.Token{}, fmt.Errorf("masks from %d of %d nodes: %w", len(covered), nodeCount, types.ErrInsufficientNodes)
	}
	return types.Token{
		Purpose:     purpose,
		SessionID:   sessionID,
		BatchID:     batchID,
		Coordinates: coordinates,
	}, nil
}
