package postgres_test

import (
	"context"
	"os"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/chronicle/pkg/record"
	"github.com/papercomputeco/chronicle/pkg/record/postgres"
)

var _ = Describe("Driver", func() {
	var (
		driver *postgres.Driver
		ctx    context.Context
	)

	BeforeEach(func() {
		dsn := os.Getenv("CHRONICLE_TEST_POSTGRES_DSN")
		if dsn == "" {
			Skip("CHRONICLE_TEST_POSTGRES_DSN not set")
		}

		ctx = context.Background()
		var err error
		driver, err = postgres.NewDriver(ctx, dsn)
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(func() {
			_, _ = driver.DB.ExecContext(ctx, `DELETE FROM records WHERE owner_id LIKE 'pgtest-%'`)
			driver.Close()
		})
	})

	It("inserts, filters and deletes", func() {
		stored, err := driver.Insert(ctx, &record.Record{
			OwnerID: "pgtest-u1",
			Title:   "Postgres Title",
			Body:    "body",
			Tags:    []string{"db"},
		})
		Expect(err).NotTo(HaveOccurred())

		recs, err := driver.FindByOwner(ctx, "pgtest-u1", record.Filter{Query: "postgres"})
		Expect(err).NotTo(HaveOccurred())
		Expect(recs).To(HaveLen(1))

		recs, err = driver.FindByOwner(ctx, "pgtest-u1", record.Filter{Query: "db", MatchTags: true})
		Expect(err).NotTo(HaveOccurred())
		Expect(recs).To(HaveLen(1))

		Expect(driver.DeleteByID(ctx, stored.ID)).To(Succeed())
		Expect(driver.DeleteByID(ctx, stored.ID)).To(MatchError(record.ErrNotFoundOrUnauthorized))
	})

	It("matches non-ASCII titles case-insensitively", func() {
		_, err := driver.Insert(ctx, &record.Record{OwnerID: "pgtest-u2", Title: "ÉTÉ Deployment", Body: "body"})
		Expect(err).NotTo(HaveOccurred())

		recs, err := driver.FindByOwner(ctx, "pgtest-u2", record.Filter{Query: "été"})
		Expect(err).NotTo(HaveOccurred())
		Expect(recs).To(HaveLen(1))
	})

	It("fails to connect to an unreachable server", func() {
		_, err := postgres.NewDriver(ctx, "postgres://nobody@127.0.0.1:1/none?sslmode=disable&connect_timeout=1")
		Expect(err).To(HaveOccurred())
	})
})
