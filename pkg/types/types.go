//
// Copyright (c) 2024 - for information on the respective copyright owner
// see the NOTICE file and/or the repository https://github.com/NillionNetwork/tinybio.
//
// SPDX-License-Identifier: Apache-2.0
//
package types

import (
	"errors"
	"time"

	"github.com/NillionNetwork/tinybio/pkg/vector"
	"github.com/google/uuid"
)

var (
	// ErrSessionMismatch is returned when masks, tokens or shares from
	// unrelated sessions or node sets are combined.
	ErrSessionMismatch = errors.New("session mismatch")
	// ErrInsufficientNodes is returned when fewer than the full node set
	// contributed to an operation.
	ErrInsufficientNodes = errors.New("insufficient nodes")
	// ErrReuse is returned when single-use preprocessing material or masks
	// are consumed a second time.
	ErrReuse = errors.New("preprocessing material already consumed")
)

// Purpose tags a session as belonging to a registration or an authentication
// workflow.
type Purpose string

const (
	// Registration marks the session that enrolls a descriptor.
	Registration Purpose = "REGISTRATION"
	// Authentication marks the session that matches against an enrolled
	// descriptor.
	Authentication Purpose = "AUTHENTICATION"
)

// Request names a protocol session. It carries only the descriptor's length,
// never its values, so nodes contacted for masks learn nothing about the
// descriptor itself.
type Request struct {
	Purpose   Purpose
	SessionID uuid.UUID
	Length    int
}

// Mask is a single node's blinding contribution for one session. It is
// secret between the issuing node and the requesting client until folded
// into a token.
type Mask struct {
	Purpose     Purpose
	SessionID   uuid.UUID
	BatchID     uuid.UUID
	NodeIndex   int
	NodeCount   int
	Coordinates vector.Vector
}

// Token is a publicly shareable blinded descriptor: the elementwise sum of
// the quantized descriptor and all nodes' masks for one session. BatchID
// links the token to the preprocessing batch whose masks were folded in.
type Token struct {
	Purpose     Purpose
	SessionID   uuid.UUID
	BatchID     uuid.UUID
	Coordinates vector.Vector
}

// Share is one node's additive contribution to the squared distance between
// the descriptors behind a (registration, authentication) token pair.
type Share struct {
	BatchID          uuid.UUID
	RegistrationID   uuid.UUID
	AuthenticationID uuid.UUID
	NodeIndex        int
	NodeCount        int
	Value            float64
}

// Config is the deployment configuration as read from disk.
type Config struct {
	NodeCount      int       `json:"nodeCount" valid:"required"`
	VectorLength   int       `json:"vectorLength" valid:"required"`
	Seed           int64     `json:"seed"`
	BusSize        int       `json:"busSize"`
	StateTimeout   string    `json:"stateTimeout"`
	Registration   []float64 `json:"registration"`
	Authentication []float64 `json:"authentication"`
}

// TypedConfig reflects Config, but it contains the real property types.
type TypedConfig struct {
	NodeCount      int
	VectorLength   int
	Seed           int64
	BusSize        int
	StateTimeout   time.Duration
	Registration   vector.Vector
	Authentication vector.Vector
}
