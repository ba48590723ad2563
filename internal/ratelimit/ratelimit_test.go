package ratelimit_test

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/redis/go-redis/v9"

	"dom360.app/sdrbot/internal/ratelimit"
)

type fakeCounter struct {
	count   int64
	incrErr error
	expires map[string]time.Duration
	expErr  error
}

func newFakeCounter() *fakeCounter {
	return &fakeCounter{expires: map[string]time.Duration{}}
}

func (f *fakeCounter) Incr(ctx context.Context, key string) *redis.IntCmd {
	if f.incrErr != nil {
		cmd := redis.NewIntCmd(ctx)
		cmd.SetErr(f.incrErr)
		return cmd
	}
	f.count++
	return redis.NewIntResult(f.count, nil)
}

func (f *fakeCounter) Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd {
	if f.expErr != nil {
		cmd := redis.NewBoolCmd(ctx)
		cmd.SetErr(f.expErr)
		return cmd
	}
	f.expires[key] = expiration
	return redis.NewBoolResult(true, nil)
}

var _ = Describe("Limiter", func() {
	var (
		counter *fakeCounter
		limiter *ratelimit.Limiter
		ctx     context.Context
	)

	BeforeEach(func() {
		counter = newFakeCounter()
		limiter = ratelimit.NewLimiter(counter)
		ctx = context.Background()
	})

	It("admits exactly limit requests within one window", func() {
		admitted := 0
		for i := 0; i < 5; i++ {
			if ok, _ := limiter.Admit(ctx, "rl:ip:1.2.3.4", 3, time.Minute); ok {
				admitted++
			}
		}
		Expect(admitted).To(Equal(3))
	})

	It("sets the window expiry only on the first hit", func() {
		limiter.Admit(ctx, "rl:ip:1.2.3.4", 3, time.Minute)
		limiter.Admit(ctx, "rl:ip:1.2.3.4", 3, time.Minute)
		Expect(counter.expires).To(HaveLen(1))
		Expect(counter.expires["rl:ip:1.2.3.4"]).To(Equal(time.Minute))
	})

	It("reports the remaining allowance", func() {
		_, remaining := limiter.Admit(ctx, "rl:ip:1.2.3.4", 3, time.Minute)
		Expect(remaining).To(Equal(2))

		limiter.Admit(ctx, "rl:ip:1.2.3.4", 3, time.Minute)
		limiter.Admit(ctx, "rl:ip:1.2.3.4", 3, time.Minute)
		_, remaining = limiter.Admit(ctx, "rl:ip:1.2.3.4", 3, time.Minute)
		Expect(remaining).To(Equal(0))
	})

	It("fails open when the store is unreachable", func() {
		counter.incrErr = errors.New("connection refused")
		ok, remaining := limiter.Admit(ctx, "rl:ip:1.2.3.4", 3, time.Minute)
		Expect(ok).To(BeTrue())
		Expect(remaining).To(Equal(3))
	})

	It("still admits when the expiry call fails", func() {
		counter.expErr = errors.New("connection reset")
		ok, _ := limiter.Admit(ctx, "rl:ip:1.2.3.4", 3, time.Minute)
		Expect(ok).To(BeTrue())
	})
})
