package qdrant

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/papercomputeco/chronicle/pkg/logger"
	"github.com/papercomputeco/chronicle/pkg/vector"
)

var _ = Describe("Driver", func() {
	Describe("NewDriver", func() {
		It("requires a target", func() {
			_, err := NewDriver(Config{}, logger.Nop())
			Expect(err).To(MatchError(vector.ErrConfig))
		})

		It("rejects a malformed port", func() {
			_, err := NewDriver(Config{Target: "localhost:abc"}, logger.Nop())
			Expect(err).To(MatchError(vector.ErrConfig))
		})
	})

	Describe("splitTarget", func() {
		DescribeTable("parses targets",
			func(target, host string, port int) {
				h, p, err := splitTarget(target)
				Expect(err).NotTo(HaveOccurred())
				Expect(h).To(Equal(host))
				Expect(p).To(Equal(port))
			},
			Entry("bare host", "qdrant", "qdrant", DefaultPort),
			Entry("host and port", "qdrant:7000", "qdrant", 7000),
			Entry("url", "http://localhost:6334/", "localhost", 6334),
		)
	})

	Describe("pointID", func() {
		It("passes UUID record IDs through", func() {
			id := uuid.NewString()
			Expect(pointID(id).GetUuid()).To(Equal(id))
		})

		It("maps other IDs to a stable UUID", func() {
			a := pointID("record-1").GetUuid()
			Expect(pointID("record-1").GetUuid()).To(Equal(a))
			Expect(pointID("record-2").GetUuid()).NotTo(Equal(a))
			_, err := uuid.Parse(a)
			Expect(err).NotTo(HaveOccurred())
		})
	})

	Describe("payload conversion", func() {
		It("round-trips a point payload into a hit", func() {
			p := vector.Point{
				ID: "record-1",
				Payload: vector.Payload{
					OwnerID: "u1",
					Title:   "Title",
					Body:    "Body",
					Tags:    []string{"a", "b"},
				},
			}

			hit := toHit(pointID(p.ID), 0.75, qdrant.NewValueMap(toPayload(p)))
			Expect(hit.ID).To(Equal("record-1"))
			Expect(hit.Score).To(BeNumerically("==", 0.75))
			Expect(hit.Source).To(Equal(vector.SourceVector))
			Expect(hit.Payload).To(Equal(p.Payload))
		})

		It("falls back to the point ID when the payload lacks a record ID", func() {
			hit := toHit(qdrant.NewIDNum(42), 0.5, nil)
			Expect(hit.ID).To(Equal("42"))
		})
	})

	Describe("classify", func() {
		DescribeTable("maps errors onto the vector taxonomy",
			func(err error, want error) {
				Expect(classify(err, vector.ErrQuery, "op")).To(MatchError(want))
			},
			Entry("unavailable", status.Error(codes.Unavailable, "down"), vector.ErrUnreachable),
			Entry("deadline", fmt.Errorf("x: %w", context.DeadlineExceeded), vector.ErrUnreachable),
			Entry("unauthenticated", status.Error(codes.Unauthenticated, "key"), vector.ErrConfig),
			Entry("invalid argument", status.Error(codes.InvalidArgument, "bad"), vector.ErrQuery),
			Entry("plain error", errors.New("boom"), vector.ErrQuery),
		)
	})

	Describe("Delete", func() {
		It("reports any delete failure as unreachable", func() {
			d, err := NewDriver(Config{Target: "127.0.0.1:1"}, logger.Nop())
			Expect(err).NotTo(HaveOccurred())
			DeferCleanup(d.Close)

			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			err = d.Delete(ctx, "rec-1")
			Expect(err).To(MatchError(vector.ErrUnreachable))
			Expect(err).NotTo(MatchError(vector.ErrRejected))
		})
	})

	Describe("against a live server", Ordered, func() {
		var (
			d   *Driver
			ctx context.Context
		)

		BeforeAll(func() {
			target := os.Getenv("CHRONICLE_TEST_QDRANT_TARGET")
			if target == "" {
				Skip("CHRONICLE_TEST_QDRANT_TARGET not set")
			}

			ctx = context.Background()
			var err error
			d, err = NewDriver(Config{
				Target:     target,
				Collection: "chronicle_test_" + uuid.NewString()[:8],
				Dimensions: 4,
			}, logger.Nop())
			Expect(err).NotTo(HaveOccurred())
			Expect(d.EnsureCollection(ctx)).To(Succeed())
			Expect(d.EnsureCollection(ctx)).To(Succeed())

			DeferCleanup(func() {
				_ = d.client.DeleteCollection(ctx, d.collection)
				d.Close()
			})
		})

		It("filters queries by owner", func() {
			mine := uuid.NewString()
			Expect(d.Upsert(ctx, vector.Point{ID: mine, Vector: []float32{1, 0, 0, 0}, Payload: vector.Payload{OwnerID: "u1", Title: "mine"}})).To(Succeed())
			Expect(d.Upsert(ctx, vector.Point{ID: uuid.NewString(), Vector: []float32{1, 0, 0, 0}, Payload: vector.Payload{OwnerID: "u2"}})).To(Succeed())

			hits, err := d.Query(ctx, []float32{1, 0, 0, 0}, "u1", 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(hits).To(HaveLen(1))
			Expect(hits[0].ID).To(Equal(mine))

			Expect(d.Delete(ctx, mine)).To(Succeed())
			hits, err = d.Query(ctx, []float32{1, 0, 0, 0}, "u1", 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(hits).To(BeEmpty())
		})

		It("rejects vectors of the wrong dimension", func() {
			err := d.Upsert(ctx, vector.Point{ID: uuid.NewString(), Vector: []float32{1, 0}})
			Expect(err).To(MatchError(vector.ErrRejected))
		})
	})
})
