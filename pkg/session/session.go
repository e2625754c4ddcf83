//
// Copyright (c) 2024 - for information on the respective copyright owner
// see the NOTICE file and/or the repository https://github.com/NillionNetwork/tinybio.
//
// SPDX-License-Identifier: Apache-2.0
//
// Package session tracks the lifecycle of one (registration, authentication)
// session pair. Every step of the online phase advances a small state
// machine; steps arriving out of order are rejected instead of silently
// tolerated.
package session

import (
	"fmt"

	"go.uber.org/zap"
)

// States of a session pair.
const (
	Preprocessed   = "Preprocessed"
	RequestIssued  = "RequestIssued"
	MasksCollected = "MasksCollected"
	TokenBuilt     = "TokenBuilt"
	SharesComputed = "SharesComputed"
	Revealed       = "Revealed"
)

// Events advancing a session pair.
const (
	IssueRequest = "IssueRequest"
	CollectMasks = "CollectMasks"
	BuildToken   = "BuildToken"
	ComputeShare = "ComputeShare"
	Reveal       = "Reveal"
)

// TransitionID is a tuple of external event and source state.
type TransitionID struct {
	Event, Source string
}

// Guard decides whether a transition applies given the tracker's counters.
type Guard func(t *Tracker) error

// Transition defines a transition between session states.
type Transition struct {
	ID              TransitionID
	Event, Src, Dst string
	Guard           Guard
}

// WhenIn specifies the source state of the transition.
func WhenIn(state string) *Transition {
	return &Transition{Src: state}
}

// GotEvent specifies the triggering event for the transition.
func (i *Transition) GotEvent(event string) *Transition {
	i.Event = event
	i.ID = TransitionID{
		Event:  event,
		Source: i.Src,
	}
	return i
}

// GoTo specifies the destination state.
func (i *Transition) GoTo(dst string) *Transition {
	i.Dst = dst
	return i
}

// Stay forces the transition to stay in the source state.
func (i *Transition) Stay() *Transition {
	i.Dst = i.Src
	return i
}

// If attaches a guard to the transition.
func (i *Transition) If(g Guard) *Transition {
	i.Guard = g
	return i
}

// Tracker is the state machine of a single session pair. Both tokens must be
// built before any share is computed, and all of the batch's shares must be
// in before the reveal.
type Tracker struct {
	current     string
	tokens      int
	shares      int
	nodeCount   int
	transitions map[TransitionID]*Transition
	logger      *zap.SugaredLogger
}

// NewTracker returns a tracker in the Preprocessed state for a batch of the
// given node count.
func NewTracker(nodeCount int, logger *zap.SugaredLogger) *Tracker {
	t := &Tracker{
		current:   Preprocessed,
		nodeCount: nodeCount,
		logger:    logger,
	}
	transitions := []*Transition{
		WhenIn(Preprocessed).GotEvent(IssueRequest).GoTo(RequestIssued),
		WhenIn(RequestIssued).GotEvent(CollectMasks).GoTo(MasksCollected),
		WhenIn(MasksCollected).GotEvent(BuildToken).GoTo(TokenBuilt).If(tokensOutstanding),
		WhenIn(TokenBuilt).GotEvent(IssueRequest).GoTo(RequestIssued).If(tokensOutstanding),
		WhenIn(TokenBuilt).GotEvent(ComputeShare).GoTo(SharesComputed).If(bothTokensBuilt),
		WhenIn(SharesComputed).GotEvent(ComputeShare).Stay().If(sharesOutstanding),
		WhenIn(SharesComputed).GotEvent(Reveal).GoTo(Revealed).If(allSharesIn),
	}
	t.transitions = map[TransitionID]*Transition{}
	for _, tr := range transitions {
		t.transitions[tr.ID] = tr
	}
	return t
}

// Current returns the current state of the session pair.
func (t *Tracker) Current() string {
	return t.current
}

// Tokens returns the number of tokens built so far.
func (t *Tracker) Tokens() int {
	return t.tokens
}

// Shares returns the number of shares computed so far.
func (t *Tracker) Shares() int {
	return t.shares
}

// Advance applies the event to the session pair. It returns an error if the
// event is not legal in the current state.
func (t *Tracker) Advance(event string) error {
	tr, ok := t.transitions[TransitionID{Event: event, Source: t.current}]
	if !ok {
		return fmt.Errorf("event %q is not allowed in session state %q", event, t.current)
	}
	if tr.Guard != nil {
		if err := tr.Guard(t); err != nil {
			return err
		}
	}
	switch event {
	case BuildToken:
		t.tokens++
	case ComputeShare:
		t.shares++
	}
	t.current = tr.Dst
	t.logger.Debugf("Session transition %q -> %q on %q", tr.Src, t.current, event)
	return nil
}

func tokensOutstanding(t *Tracker) error {
	if t.tokens >= 2 {
		return fmt.Errorf("both tokens of the session pair exist already")
	}
	return nil
}

func bothTokensBuilt(t *Tracker) error {
	if t.tokens < 2 {
		return fmt.Errorf("share computation requires both tokens, built %d", t.tokens)
	}
	return nil
}

func sharesOutstanding(t *Tracker) error {
	if t.shares >= t.nodeCount {
		return fmt.Errorf("all %d shares of the batch exist already", t.nodeCount)
	}
	return nil
}

func allSharesIn(t *Tracker) error {
	if t.shares < t.nodeCount {
		return fmt.Errorf("reveal requires %d shares, computed %d", t.nodeCount, t.shares)
	}
	return nil
}
