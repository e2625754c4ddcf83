//
// Copyright (c) 2024 - for information on the respective copyright owner
// see the NOTICE file and/or the repository https://github.com/NillionNetwork/tinybio.
//
// SPDX-License-Identifier: Apache-2.0
//
package session_test

import (
	"github.com/NillionNetwork/tinybio/pkg/session"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"
)

var _ = Describe("Session", func() {

	var logger = zap.NewNop().Sugar()

	It("builds transitions", func() {
		transition := session.WhenIn(session.Preprocessed).GotEvent(session.IssueRequest).GoTo(session.RequestIssued)
		Expect(transition.Src).To(Equal(session.Preprocessed))
		Expect(transition.Event).To(Equal(session.IssueRequest))
		Expect(transition.Dst).To(Equal(session.RequestIssued))
	})

	Context("when events arrive in protocol order", func() {
		It("walks the session pair to Revealed", func() {
			tracker := session.NewTracker(3, logger)
			Expect(tracker.Current()).To(Equal(session.Preprocessed))
			order := []string{
				session.IssueRequest, session.CollectMasks, session.BuildToken,
				session.IssueRequest, session.CollectMasks, session.BuildToken,
				session.ComputeShare, session.ComputeShare, session.ComputeShare,
				session.Reveal,
			}
			for _, event := range order {
				Expect(tracker.Advance(event)).To(Succeed())
			}
			Expect(tracker.Current()).To(Equal(session.Revealed))
			Expect(tracker.Tokens()).To(Equal(2))
			Expect(tracker.Shares()).To(Equal(3))
		})
	})

	Context("when events deviate from the protocol order", func() {
		It("rejects building a token before masks are collected", func() {
			tracker := session.NewTracker(2, logger)
			Expect(tracker.Advance(session.IssueRequest)).To(Succeed())
			Expect(tracker.Advance(session.BuildToken)).NotTo(Succeed())
		})

		It("rejects share computation before both tokens exist", func() {
			tracker := session.NewTracker(2, logger)
			for _, event := range []string{session.IssueRequest, session.CollectMasks, session.BuildToken} {
				Expect(tracker.Advance(event)).To(Succeed())
			}
			Expect(tracker.Advance(session.ComputeShare)).NotTo(Succeed())
		})

		It("rejects a third session for one pair", func() {
			tracker := session.NewTracker(2, logger)
			order := []string{
				session.IssueRequest, session.CollectMasks, session.BuildToken,
				session.IssueRequest, session.CollectMasks, session.BuildToken,
			}
			for _, event := range order {
				Expect(tracker.Advance(event)).To(Succeed())
			}
			Expect(tracker.Advance(session.IssueRequest)).NotTo(Succeed())
		})

		It("rejects the reveal before all shares are in", func() {
			tracker := session.NewTracker(3, logger)
			order := []string{
				session.IssueRequest, session.CollectMasks, session.BuildToken,
				session.IssueRequest, session.CollectMasks, session.BuildToken,
				session.ComputeShare,
			}
			for _, event := range order {
				Expect(tracker.Advance(event)).To(Succeed())
			}
			Expect(tracker.Advance(session.Reveal)).NotTo(Succeed())
		})

		It("rejects surplus shares", func() {
			tracker := session.NewTracker(2, logger)
			order := []string{
				session.IssueRequest, session.CollectMasks, session.BuildToken,
				session.IssueRequest, session.CollectMasks, session.BuildToken,
				session.ComputeShare, session.ComputeShare,
			}
			for _, event := range order {
				Expect(tracker.Advance(event)).To(Succeed())
			}
			Expect(tracker.Advance(session.ComputeShare)).NotTo(Succeed())
		})

		It("rejects any event after the reveal", func() {
			tracker := session.NewTracker(2, logger)
			order := []string{
				session.IssueRequest, session.CollectMasks, session.BuildToken,
				session.IssueRequest, session.CollectMasks, session.BuildToken,
				session.ComputeShare, session.ComputeShare, session.Reveal,
			}
			for _, event := range order {
				Expect(tracker.Advance(event)).To(Succeed())
			}
			Expect(tracker.Current()).To(Equal(session.Revealed))
			Expect(tracker.Advance(session.IssueRequest)).NotTo(Succeed())
		})
	})
})
