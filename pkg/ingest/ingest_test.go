package ingest_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/chronicle/pkg/ingest"
	"github.com/papercomputeco/chronicle/pkg/logger"
)

type fetchFunc func(ctx context.Context, rawURL string) (string, error)

func (f fetchFunc) Fetch(ctx context.Context, rawURL string) (string, error) { return f(ctx, rawURL) }

var _ = Describe("FetchAll", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
	})

	It("returns an empty string for no links", func() {
		Expect(ingest.FetchAll(ctx, nil, nil, 4, logger.Nop())).To(BeEmpty())
	})

	It("joins successes in link order and skips failures", func() {
		f := fetchFunc(func(_ context.Context, u string) (string, error) {
			switch u {
			case "a":
				time.Sleep(20 * time.Millisecond)
				return "first", nil
			case "b":
				return "", errors.New("unreachable")
			default:
				return "third", nil
			}
		})

		Expect(ingest.FetchAll(ctx, f, []string{"a", "b", "c"}, 4, logger.Nop())).To(Equal("first\n\nthird"))
	})

	It("proceeds with empty text when every link fails", func() {
		f := fetchFunc(func(context.Context, string) (string, error) {
			return "", errors.New("down")
		})
		Expect(ingest.FetchAll(ctx, f, []string{"a", "b"}, 2, logger.Nop())).To(BeEmpty())
	})

	It("bounds concurrency", func() {
		var (
			mu       sync.Mutex
			inFlight int
			peak     int
		)
		f := fetchFunc(func(context.Context, string) (string, error) {
			mu.Lock()
			inFlight++
			peak = max(peak, inFlight)
			mu.Unlock()

			time.Sleep(10 * time.Millisecond)

			mu.Lock()
			inFlight--
			mu.Unlock()
			return "x", nil
		})

		ingest.FetchAll(ctx, f, []string{"1", "2", "3", "4", "5", "6"}, 2, logger.Nop())
		Expect(peak).To(BeNumerically("<=", 2))
	})

	It("keeps fetching the rest when one link is unreachable", func() {
		var served atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			served.Add(1)
			_, _ = w.Write([]byte("<p>reachable content</p>"))
		}))
		defer server.Close()

		f := ingest.NewHTTPFetcher(ingest.HTTPFetcherConfig{Timeout: time.Second})
		text := ingest.FetchAll(ctx, f, []string{"http://127.0.0.1:1/unreachable", server.URL}, 2, logger.Nop())
		Expect(text).To(Equal("reachable content"))
		Expect(served.Load()).To(Equal(int32(1)))
	})
})
