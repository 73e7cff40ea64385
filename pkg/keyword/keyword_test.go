package keyword_test

import (
	"context"
	"fmt"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/chronicle/pkg/keyword"
	"github.com/papercomputeco/chronicle/pkg/logger"
	"github.com/papercomputeco/chronicle/pkg/record"
	"github.com/papercomputeco/chronicle/pkg/record/inmemory"
	"github.com/papercomputeco/chronicle/pkg/record/sqlite"
	"github.com/papercomputeco/chronicle/pkg/vector"
)

var _ = Describe("Searcher", func() {
	var (
		ctx      context.Context
		store    *inmemory.Driver
		searcher *keyword.Searcher
	)

	BeforeEach(func() {
		ctx = context.Background()
		store = inmemory.NewDriver()
		searcher = keyword.NewSearcher(store, logger.Nop())
	})

	It("returns the owner's matching record with score 1.0", func() {
		stored, err := store.Insert(ctx, &record.Record{
			OwnerID: "u1",
			Title:   "Release notes",
			Body:    "The deployment steps are in the runbook",
			Tags:    []string{"ops"},
		})
		Expect(err).NotTo(HaveOccurred())
		_, err = store.Insert(ctx, &record.Record{OwnerID: "u2", Title: "deployment", Body: "not yours"})
		Expect(err).NotTo(HaveOccurred())

		hits, err := searcher.Search(ctx, "deployment", "u1", 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(hits).To(HaveLen(1))
		Expect(hits[0].ID).To(Equal(stored.ID))
		Expect(hits[0].Score).To(BeNumerically("==", 1.0))
		Expect(hits[0].Source).To(Equal(vector.SourceKeyword))
		Expect(hits[0].Payload.Tags).To(Equal([]string{"ops"}))
	})

	It("matches exact tags", func() {
		_, err := store.Insert(ctx, &record.Record{OwnerID: "u1", Title: "t", Body: "b", Tags: []string{"golang"}})
		Expect(err).NotTo(HaveOccurred())

		hits, err := searcher.Search(ctx, "golang", "u1", 10)
		Expect(err).NotTo(HaveOccurred())
		Expect(hits).To(HaveLen(1))
	})

	It("orders by recency and defaults the limit to 10", func() {
		base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
		for i := range 15 {
			_, err := store.Insert(ctx, &record.Record{
				OwnerID:   "u1",
				Title:     fmt.Sprintf("note %02d", i),
				Body:      "common",
				CreatedAt: base.Add(time.Duration(i) * time.Minute),
			})
			Expect(err).NotTo(HaveOccurred())
		}

		hits, err := searcher.Search(ctx, "common", "u1", 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(hits).To(HaveLen(keyword.DefaultLimit))
		Expect(hits[0].Payload.Title).To(Equal("note 14"))
	})

	It("returns an empty slice when nothing matches", func() {
		hits, err := searcher.Search(ctx, "nothing", "u1", 10)
		Expect(err).NotTo(HaveOccurred())
		Expect(hits).To(BeEmpty())
	})

	It("propagates store failures as ErrStoreUnreachable", func() {
		s, err := sqlite.NewDriver(ctx, ":memory:")
		Expect(err).NotTo(HaveOccurred())
		Expect(s.Close()).To(Succeed())

		_, err = keyword.NewSearcher(s, logger.Nop()).Search(ctx, "x", "u1", 10)
		Expect(err).To(MatchError(record.ErrStoreUnreachable))
	})
})
