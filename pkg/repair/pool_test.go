package repair_test

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/chronicle/pkg/logger"
	"github.com/papercomputeco/chronicle/pkg/repair"
	testutils "github.com/papercomputeco/chronicle/pkg/utils/test"
	"github.com/papercomputeco/chronicle/pkg/vector"
)

// blockingDriver blocks every Delete until release is closed.
type blockingDriver struct {
	*testutils.MockVectorDriver
	started atomic.Int32
	release chan struct{}
}

func (b *blockingDriver) Delete(ctx context.Context, id string) error {
	b.started.Add(1)
	<-b.release
	return b.MockVectorDriver.Delete(ctx, id)
}

var _ = Describe("Pool", func() {
	var driver *testutils.MockVectorDriver

	BeforeEach(func() {
		driver = testutils.NewMockVectorDriver()
	})

	It("requires a driver", func() {
		_, err := repair.NewPool(&repair.Config{Logger: logger.Nop()})
		Expect(err).To(HaveOccurred())
	})

	It("deletes enqueued points and drains on Close", func() {
		p, err := repair.NewPool(&repair.Config{Driver: driver, Logger: logger.Nop()})
		Expect(err).NotTo(HaveOccurred())

		Expect(p.Enqueue("stale-1")).To(BeTrue())
		Expect(p.Enqueue("stale-2")).To(BeTrue())
		p.Close()

		Expect(driver.DeletedIDs()).To(ConsistOf("stale-1", "stale-2"))
	})

	It("retries unreachable deletes with bounded backoff", func() {
		driver.FailDelete = true
		p, err := repair.NewPool(&repair.Config{
			Driver:     driver,
			NumWorkers: 1,
			MaxRetries: 2,
			BaseDelay:  time.Millisecond,
			Logger:     logger.Nop(),
		})
		Expect(err).NotTo(HaveOccurred())

		Expect(p.Enqueue("stale-1")).To(BeTrue())
		p.Close()

		Expect(driver.DeletedIDs()).To(Equal([]string{"stale-1", "stale-1", "stale-1"}))
	})

	It("does not retry semantic rejections", func() {
		rejecting := &rejectingDriver{MockVectorDriver: driver}
		p, err := repair.NewPool(&repair.Config{
			Driver:     rejecting,
			NumWorkers: 1,
			BaseDelay:  time.Millisecond,
			Logger:     logger.Nop(),
		})
		Expect(err).NotTo(HaveOccurred())

		Expect(p.Enqueue("stale-1")).To(BeTrue())
		p.Close()

		Expect(rejecting.calls.Load()).To(Equal(int32(1)))
	})

	It("drops jobs when the queue is full", func() {
		blocking := &blockingDriver{MockVectorDriver: driver, release: make(chan struct{})}
		p, err := repair.NewPool(&repair.Config{
			Driver:     blocking,
			NumWorkers: 1,
			QueueSize:  1,
			Logger:     logger.Nop(),
		})
		Expect(err).NotTo(HaveOccurred())

		Expect(p.Enqueue("a")).To(BeTrue())
		Eventually(blocking.started.Load).Should(Equal(int32(1)))

		Expect(p.Enqueue("b")).To(BeTrue())
		Expect(p.Enqueue("c")).To(BeFalse())

		close(blocking.release)
		p.Close()
		Expect(driver.DeletedIDs()).To(ConsistOf("a", "b"))
	})

	It("rejects jobs after Close and tolerates a second Close", func() {
		p, err := repair.NewPool(&repair.Config{Driver: driver, Logger: logger.Nop()})
		Expect(err).NotTo(HaveOccurred())

		p.Close()
		Expect(p.Enqueue("late")).To(BeFalse())
		p.Close()
	})
})

type rejectingDriver struct {
	*testutils.MockVectorDriver
	calls atomic.Int32
}

func (r *rejectingDriver) Delete(context.Context, string) error {
	r.calls.Add(1)
	return vector.Wrap(vector.ErrRejected, "delete", errors.New("bad id"))
}
