//
// Copyright (c) 2024 - for information on the respective copyright owner
// see the NOTICE file and/or the repository https://github.com/NillionNetwork/tinybio.
//
// SPDX-License-Identifier: Apache-2.0
//
// Package integration wires the dealer, a set of in-process nodes, the
// client and the verifier together over a message bus. It stands in for the
// external transport of a real deployment and drives one full protocol run
// end to end.
package integration

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/NillionNetwork/tinybio/pkg/client"
	"github.com/NillionNetwork/tinybio/pkg/dealer"
	"github.com/NillionNetwork/tinybio/pkg/node"
	"github.com/NillionNetwork/tinybio/pkg/reveal"
	"github.com/NillionNetwork/tinybio/pkg/session"
	"github.com/NillionNetwork/tinybio/pkg/types"
	"github.com/NillionNetwork/tinybio/pkg/vector"
	mb "github.com/vardius/message-bus"
	"go.uber.org/zap"
)

// Topics carrying the protocol messages on the bus.
const (
	TopicMaskRequest = "protocol.maskRequest"
	TopicMask        = "protocol.mask"
	TopicTokenPair   = "protocol.tokenPair"
	TopicShare       = "protocol.share"
)

const (
	defaultBusSize = 16
	defaultTimeout = 10 * time.Second
)

// Orchestrator owns the bus and the parties of an in-process deployment.
type Orchestrator struct {
	bus       mb.MessageBus
	dealer    *dealer.Dealer
	nodes     []*node.Node
	receivers []dealer.Receiver
	logger    *zap.SugaredLogger
	timeout   time.Duration

	mux    sync.Mutex
	masks  chan types.Mask
	shares chan types.Share
}

// NewOrchestrator creates the nodes, subscribes them to the bus and returns
// an orchestrator ready to run session pairs.
func NewOrchestrator(conf *types.TypedConfig, logger *zap.SugaredLogger) (*Orchestrator, error) {
	if conf.NodeCount < 2 {
		return nil, fmt.Errorf("a deployment requires at least two nodes, got %d: %w", conf.NodeCount, types.ErrInsufficientNodes)
	}
	busSize := conf.BusSize
	if busSize <= 0 {
		busSize = defaultBusSize
	}
	timeout := conf.StateTimeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	o := &Orchestrator{
		bus:     mb.New(busSize),
		dealer:  dealer.NewDealer(rand.New(rand.NewSource(conf.Seed)), logger),
		logger:  logger,
		timeout: timeout,
		masks:   make(chan types.Mask, busSize*4),
		shares:  make(chan types.Share, busSize*4),
	}
	for i := 0; i < conf.NodeCount; i++ {
		n := node.NewNode(logger)
		o.nodes = append(o.nodes, n)
		o.receivers = append(o.receivers, n)
		if err := o.subscribeNode(n); err != nil {
			return nil, err
		}
	}
	if err := o.bus.Subscribe(TopicMask, func(m types.Mask) { o.masks <- m }); err != nil {
		return nil, err
	}
	if err := o.bus.Subscribe(TopicShare, func(s types.Share) { o.shares <- s }); err != nil {
		return nil, err
	}
	return o, nil
}

// subscribeNode attaches one node's service boundary to the bus: mask
// requests in, masks out; token pairs in, shares out.
func (o *Orchestrator) subscribeNode(n *node.Node) error {
	err := o.bus.Subscribe(TopicMaskRequest, func(r types.Request) {
		mask, err := n.Masks(r)
		if err != nil {
			o.logger.Errorf("Node %s rejected mask request: %v", n.ID(), err)
			return
		}
		o.bus.Publish(TopicMask, mask)
	})
	if err != nil {
		return err
	}
	return o.bus.Subscribe(TopicTokenPair, func(registration, authentication types.Token) {
		share, err := n.Authenticate(registration, authentication)
		if err != nil {
			o.logger.Errorf("Node %s rejected token pair: %v", n.ID(), err)
			return
		}
		o.bus.Publish(TopicShare, share)
	})
}

// Nodes returns the participating nodes.
func (o *Orchestrator) Nodes() []*node.Node {
	return o.nodes
}

// Run executes one full session pair: preprocessing, both blinded sessions,
// per-node share computation and the final reveal. It returns the squared
// distance between the two descriptors.
func (o *Orchestrator) Run(registration, authentication vector.Vector) (float64, error) {
	o.mux.Lock()
	defer o.mux.Unlock()
	if len(registration) != len(authentication) {
		return 0, fmt.Errorf("descriptor lengths %d and %d: %w", len(registration), len(authentication), vector.ErrLengthMismatch)
	}
	if _, err := o.dealer.Seed(o.receivers, len(registration)); err != nil {
		return 0, err
	}
	tracker := session.NewTracker(len(o.nodes), o.logger)
	registrationToken, err := o.blind(tracker, types.Registration, registration)
	if err != nil {
		return 0, err
	}
	authenticationToken, err := o.blind(tracker, types.Authentication, authentication)
	if err != nil {
		return 0, err
	}
	o.bus.Publish(TopicTokenPair, registrationToken, authenticationToken)
	shares, err := o.collectShares(tracker, registrationToken, authenticationToken)
	if err != nil {
		return 0, err
	}
	if err := tracker.Advance(session.Reveal); err != nil {
		return 0, err
	}
	result, err := reveal.Reveal(shares)
	if err != nil {
		return 0, err
	}
	o.logger.Infow("Revealed session pair", "registration", registrationToken.SessionID,
		"authentication", authenticationToken.SessionID, "distance", result)
	return result, nil
}

// blind runs one session: request, mask collection, token construction.
func (o *Orchestrator) blind(tracker *session.Tracker, purpose types.Purpose, descriptor vector.Vector) (types.Token, error) {
	var request types.Request
	var err error
	switch purpose {
	case types.Registration:
		request, err = client.RegistrationRequest(descriptor)
	default:
		request, err = client.AuthenticationRequest(descriptor)
	}
	if err != nil {
		return types.Token{}, err
	}
	if err := tracker.Advance(session.IssueRequest); err != nil {
		return types.Token{}, err
	}
	o.bus.Publish(TopicMaskRequest, request)
	masks, err := o.collectMasks(request)
	if err != nil {
		return types.Token{}, err
	}
	if err := tracker.Advance(session.CollectMasks); err != nil {
		return types.Token{}, err
	}
	var token types.Token
	switch purpose {
	case types.Registration:
		token, err = client.RegistrationToken(masks, descriptor)
	default:
		token, err = client.AuthenticationToken(masks, descriptor)
	}
	if err != nil {
		return types.Token{}, err
	}
	if err := tracker.Advance(session.BuildToken); err != nil {
		return types.Token{}, err
	}
	return token, nil
}

// collectMasks gathers one mask per node for the request's session.
func (o *Orchestrator) collectMasks(request types.Request) ([]types.Mask, error) {
	var masks []types.Mask
	deadline := time.After(o.timeout)
	for len(masks) < len(o.nodes) {
		select {
		case m := <-o.masks:
			if m.SessionID != request.SessionID {
				// Stale message from an earlier run.
				continue
			}
			masks = append(masks, m)
		case <-deadline:
			return nil, fmt.Errorf("timed out with %d of %d masks for session %s", len(masks), len(o.nodes), request.SessionID)
		}
	}
	return masks, nil
}

// collectShares gathers one share per node for the token pair.
func (o *Orchestrator) collectShares(tracker *session.Tracker, registration, authentication types.Token) ([]types.Share, error) {
	var shares []types.Share
	deadline := time.After(o.timeout)
	for len(shares) < len(o.nodes) {
		select {
		case s := <-o.shares:
			if s.RegistrationID != registration.SessionID || s.AuthenticationID != authentication.SessionID {
				continue
			}
			shares = append(shares, s)
			if err := tracker.Advance(session.ComputeShare); err != nil {
				return nil, err
			}
		case <-deadline:
			return nil, fmt.Errorf("timed out with %d of %d shares", len(shares), len(o.nodes))
		}
	}
	return shares, nil
}
