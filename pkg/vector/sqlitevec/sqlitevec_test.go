package sqlitevec_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/chronicle/pkg/logger"
	"github.com/papercomputeco/chronicle/pkg/vector"
	"github.com/papercomputeco/chronicle/pkg/vector/sqlitevec"
)

var _ = Describe("Driver", func() {
	Describe("NewDriver", func() {
		It("should return an error when DBPath is empty", func() {
			_, err := sqlitevec.NewDriver(sqlitevec.Config{Dimensions: 4}, logger.Nop())
			Expect(err).To(MatchError(vector.ErrConfig))
			Expect(err.Error()).To(ContainSubstring("database path is required"))
		})

		It("should error when dimension not specified", func() {
			_, err := sqlitevec.NewDriver(sqlitevec.Config{DBPath: ":memory:"}, logger.Nop())
			Expect(err).To(MatchError(vector.ErrConfig))
		})

		It("should create a driver with an in-memory database", func() {
			driver, err := sqlitevec.NewDriver(sqlitevec.Config{DBPath: ":memory:", Dimensions: 4}, logger.Nop())
			Expect(err).NotTo(HaveOccurred())
			Expect(driver.Close()).To(Succeed())
		})
	})

	Describe("operations", func() {
		var (
			driver *sqlitevec.Driver
			ctx    context.Context
		)

		point := func(id, owner string, vec ...float32) vector.Point {
			return vector.Point{
				ID:      id,
				Vector:  vec,
				Payload: vector.Payload{OwnerID: owner, Title: "title " + id, Body: "body " + id, Tags: []string{"t"}},
			}
		}

		BeforeEach(func() {
			ctx = context.Background()
			var err error
			driver, err = sqlitevec.NewDriver(sqlitevec.Config{DBPath: ":memory:", Dimensions: 4}, logger.Nop())
			Expect(err).NotTo(HaveOccurred())
			Expect(driver.EnsureCollection(ctx)).To(Succeed())
			DeferCleanup(driver.Close)
		})

		It("creates the collection idempotently", func() {
			Expect(driver.EnsureCollection(ctx)).To(Succeed())
		})

		It("returns the owner's nearest neighbours by descending similarity", func() {
			Expect(driver.Upsert(ctx, point("far", "u1", 0, 1, 0, 0))).To(Succeed())
			Expect(driver.Upsert(ctx, point("near", "u1", 1, 0.1, 0, 0))).To(Succeed())
			Expect(driver.Upsert(ctx, point("other", "u2", 1, 0, 0, 0))).To(Succeed())

			hits, err := driver.Query(ctx, []float32{1, 0, 0, 0}, "u1", 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(hits).To(HaveLen(2))
			Expect(hits[0].ID).To(Equal("near"))
			Expect(hits[1].ID).To(Equal("far"))
			Expect(hits[0].Score).To(BeNumerically(">", hits[1].Score))
			Expect(hits[0].Payload).To(Equal(vector.Payload{OwnerID: "u1", Title: "title near", Body: "body near", Tags: []string{"t"}}))
			Expect(hits[0].Source).To(Equal(vector.SourceVector))
		})

		It("honors the limit", func() {
			Expect(driver.Upsert(ctx, point("a", "u1", 1, 0, 0, 0))).To(Succeed())
			Expect(driver.Upsert(ctx, point("b", "u1", 0, 1, 0, 0))).To(Succeed())

			hits, err := driver.Query(ctx, []float32{1, 0, 0, 0}, "u1", 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(hits).To(HaveLen(1))
			Expect(hits[0].ID).To(Equal("a"))
		})

		It("overwrites an existing point", func() {
			Expect(driver.Upsert(ctx, point("a", "u1", 1, 0, 0, 0))).To(Succeed())
			updated := point("a", "u1", 0, 0, 1, 0)
			updated.Payload.Title = "updated"
			Expect(driver.Upsert(ctx, updated)).To(Succeed())

			hits, err := driver.Query(ctx, []float32{0, 0, 1, 0}, "u1", 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(hits).To(HaveLen(1))
			Expect(hits[0].Payload.Title).To(Equal("updated"))
			Expect(hits[0].Score).To(BeNumerically("~", 1.0, 1e-4))
		})

		It("rejects vectors of the wrong dimension", func() {
			Expect(driver.Upsert(ctx, point("a", "u1", 1, 0))).To(MatchError(vector.ErrRejected))
		})

		It("deletes points and tolerates missing ones", func() {
			Expect(driver.Upsert(ctx, point("a", "u1", 1, 0, 0, 0))).To(Succeed())
			Expect(driver.Delete(ctx, "a")).To(Succeed())
			Expect(driver.Delete(ctx, "a")).To(Succeed())

			hits, err := driver.Query(ctx, []float32{1, 0, 0, 0}, "u1", 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(hits).To(BeEmpty())
		})

		It("reports a closed database as unreachable", func() {
			Expect(driver.Close()).To(Succeed())
			_, err := driver.Query(ctx, []float32{1, 0, 0, 0}, "u1", 10)
			Expect(err).To(MatchError(vector.ErrUnreachable))
		})
	})
})
