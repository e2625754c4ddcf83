//
// Copyright (c) 2024 - for information on the respective copyright owner
// see the NOTICE file and/or the repository https://github.com/NillionNetwork/tinybio.
//
// SPDX-License-Identifier: Apache-2.0
//
package client_test

import (
	"github.com/NillionNetwork/tinybio/pkg/client"
	"github.com/NillionNetwork/tinybio/pkg/types"
	"github.com/NillionNetwork/tinybio/pkg/vector"
	"github.com/google/uuid"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

// maskSet fabricates a consistent full set of masks for one session.
func maskSet(purpose types.Purpose, count, length int) []types.Mask {
	sessionID := uuid.New()
	batchID := uuid.New()
	masks := make([]types.Mask, count)
	for i := range masks {
		coordinates := make(vector.Vector, length)
		for c := range coordinates {
			coordinates[c] = float64(i+1) + float64(c)*0.25
		}
		masks[i] = types.Mask{
			Purpose:     purpose,
			SessionID:   sessionID,
			BatchID:     batchID,
			NodeIndex:   i,
			NodeCount:   count,
			Coordinates: coordinates,
		}
	}
	return masks
}

var _ = Describe("Client", func() {

	descriptor := vector.Vector{0.5, 0.25, 0.75}

	Context("when issuing requests", func() {
		It("carries purpose and length but no coordinates", func() {
			request, err := client.RegistrationRequest(descriptor)
			Expect(err).NotTo(HaveOccurred())
			Expect(request.Purpose).To(Equal(types.Registration))
			Expect(request.Length).To(Equal(3))
		})
		It("generates a fresh session identifier per request", func() {
			first, err := client.AuthenticationRequest(descriptor)
			Expect(err).NotTo(HaveOccurred())
			second, err := client.AuthenticationRequest(descriptor)
			Expect(err).NotTo(HaveOccurred())
			Expect(first.SessionID).NotTo(Equal(second.SessionID))
			Expect(first.Purpose).To(Equal(types.Authentication))
		})
		It("rejects an empty descriptor", func() {
			_, err := client.RegistrationRequest(vector.Vector{})
			Expect(err).To(MatchError(vector.ErrLengthMismatch))
		})
	})

	Context("when building tokens", func() {
		It("sums the quantized descriptor and all masks", func() {
			masks := maskSet(types.Registration, 2, 3)
			token, err := client.RegistrationToken(masks, descriptor)
			Expect(err).NotTo(HaveOccurred())
			Expect(token.Purpose).To(Equal(types.Registration))
			Expect(token.SessionID).To(Equal(masks[0].SessionID))
			Expect(token.BatchID).To(Equal(masks[0].BatchID))
			expected := vector.Quantize(descriptor)
			for _, m := range masks {
				var err error
				expected, err = vector.Add(expected, m.Coordinates)
				Expect(err).NotTo(HaveOccurred())
			}
			Expect(token.Coordinates).To(Equal(expected))
		})

		It("requires at least one mask", func() {
			_, err := client.RegistrationToken(nil, descriptor)
			Expect(err).To(MatchError(types.ErrInsufficientNodes))
		})

		It("requires the full node set", func() {
			masks := maskSet(types.Registration, 3, 3)
			_, err := client.RegistrationToken(masks[:2], descriptor)
			Expect(err).To(MatchError(types.ErrInsufficientNodes))
		})

		It("rejects duplicate contributions from one node", func() {
			masks := maskSet(types.Registration, 2, 3)
			_, err := client.RegistrationToken([]types.Mask{masks[0], masks[0]}, descriptor)
			Expect(err).To(MatchError(types.ErrSessionMismatch))
		})

		It("rejects masks from different sessions", func() {
			masks := maskSet(types.Registration, 2, 3)
			other := maskSet(types.Registration, 2, 3)
			_, err := client.RegistrationToken([]types.Mask{masks[0], other[1]}, descriptor)
			Expect(err).To(MatchError(types.ErrSessionMismatch))
		})

		It("rejects masks of the wrong purpose", func() {
			masks := maskSet(types.Authentication, 2, 3)
			_, err := client.RegistrationToken(masks, descriptor)
			Expect(err).To(MatchError(types.ErrSessionMismatch))
		})

		It("rejects masks whose length differs from the descriptor", func() {
			masks := maskSet(types.Registration, 2, 4)
			_, err := client.RegistrationToken(masks, descriptor)
			Expect(err).To(MatchError(vector.ErrLengthMismatch))
		})
	})
})
