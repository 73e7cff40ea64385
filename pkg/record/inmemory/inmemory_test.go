package inmemory_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/chronicle/pkg/record"
	"github.com/papercomputeco/chronicle/pkg/record/inmemory"
)

var _ = Describe("Driver", func() {
	var (
		driver *inmemory.Driver
		ctx    context.Context
	)

	BeforeEach(func() {
		driver = inmemory.NewDriver()
		ctx = context.Background()
	})

	Describe("Insert", func() {
		It("assigns an ID and creation time", func() {
			stored, err := driver.Insert(ctx, &record.Record{OwnerID: "u1", Title: "t", Body: "b"})
			Expect(err).NotTo(HaveOccurred())
			Expect(stored.ID).NotTo(BeEmpty())
			Expect(stored.CreatedAt).NotTo(BeZero())
			Expect(driver.Count()).To(Equal(1))
		})

		It("keeps a copy independent of the caller", func() {
			in := &record.Record{OwnerID: "u1", Title: "t", Body: "b", Tags: []string{"a"}}
			stored, err := driver.Insert(ctx, in)
			Expect(err).NotTo(HaveOccurred())

			in.Tags[0] = "mutated"
			got, err := driver.FindByID(ctx, stored.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Tags).To(Equal([]string{"a"}))
		})

		It("rejects a nil record", func() {
			_, err := driver.Insert(ctx, nil)
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("FindByID", func() {
		It("returns NotFoundError for unknown IDs", func() {
			_, err := driver.FindByID(ctx, "missing")
			Expect(err).To(MatchError(record.ErrNotFoundOrUnauthorized))
		})
	})

	Describe("FindByOwner", func() {
		base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

		BeforeEach(func() {
			for i, title := range []string{"oldest", "middle", "newest"} {
				_, err := driver.Insert(ctx, &record.Record{
					OwnerID:   "u1",
					Title:     title,
					Body:      "body",
					Tags:      []string{"tag-" + title},
					CreatedAt: base.Add(time.Duration(i) * time.Hour),
				})
				Expect(err).NotTo(HaveOccurred())
			}
			_, err := driver.Insert(ctx, &record.Record{OwnerID: "u2", Title: "someone else", Body: "body"})
			Expect(err).NotTo(HaveOccurred())
		})

		It("returns only the owner's records newest first", func() {
			recs, err := driver.FindByOwner(ctx, "u1", record.Filter{})
			Expect(err).NotTo(HaveOccurred())
			Expect(recs).To(HaveLen(3))
			Expect(recs[0].Title).To(Equal("newest"))
			Expect(recs[2].Title).To(Equal("oldest"))
		})

		It("applies the limit after ordering", func() {
			recs, err := driver.FindByOwner(ctx, "u1", record.Filter{Limit: 2})
			Expect(err).NotTo(HaveOccurred())
			Expect(recs).To(HaveLen(2))
			Expect(recs[0].Title).To(Equal("newest"))
			Expect(recs[1].Title).To(Equal("middle"))
		})

		It("filters by the query predicate", func() {
			recs, err := driver.FindByOwner(ctx, "u1", record.Filter{Query: "MIDDLE"})
			Expect(err).NotTo(HaveOccurred())
			Expect(recs).To(HaveLen(1))

			recs, err = driver.FindByOwner(ctx, "u1", record.Filter{Query: "tag-oldest", MatchTags: true})
			Expect(err).NotTo(HaveOccurred())
			Expect(recs).To(HaveLen(1))
			Expect(recs[0].Title).To(Equal("oldest"))
		})

		It("folds non-ASCII letters in the query predicate", func() {
			_, err := driver.Insert(ctx, &record.Record{OwnerID: "u1", Title: "ÉTÉ Deployment", Body: "b"})
			Expect(err).NotTo(HaveOccurred())

			recs, err := driver.FindByOwner(ctx, "u1", record.Filter{Query: "été"})
			Expect(err).NotTo(HaveOccurred())
			Expect(recs).To(HaveLen(1))
		})

		It("breaks CreatedAt ties by newest insertion", func() {
			d := inmemory.NewDriver()
			for _, title := range []string{"first", "second"} {
				_, err := d.Insert(ctx, &record.Record{OwnerID: "u", Title: title, CreatedAt: base})
				Expect(err).NotTo(HaveOccurred())
			}

			recs, err := d.FindByOwner(ctx, "u", record.Filter{})
			Expect(err).NotTo(HaveOccurred())
			Expect(recs[0].Title).To(Equal("second"))
		})
	})

	Describe("DeleteByID", func() {
		It("removes the record", func() {
			stored, err := driver.Insert(ctx, &record.Record{OwnerID: "u1", Title: "t", Body: "b"})
			Expect(err).NotTo(HaveOccurred())

			Expect(driver.DeleteByID(ctx, stored.ID)).To(Succeed())
			Expect(driver.Count()).To(Equal(0))

			_, err = driver.FindByID(ctx, stored.ID)
			Expect(err).To(MatchError(record.ErrNotFoundOrUnauthorized))
		})

		It("returns NotFoundError for unknown IDs", func() {
			Expect(driver.DeleteByID(ctx, "missing")).To(MatchError(record.ErrNotFoundOrUnauthorized))
		})
	})
})
