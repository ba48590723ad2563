package webhook_test

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/redis/go-redis/v9"

	"dom360.app/sdrbot/core/config"
	"dom360.app/sdrbot/internal/http/handler/webhook"
	"dom360.app/sdrbot/internal/idempotency"
	"dom360.app/sdrbot/internal/model"
	"dom360.app/sdrbot/internal/ratelimit"
	"dom360.app/sdrbot/internal/service"
	"dom360.app/sdrbot/internal/signature"
)

const testSecret = "topsecret"

func sign(body []byte) string {
	mac := hmac.New(sha256.New, []byte(testSecret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// fakeRedis backs both the limiter and the dedupe store in-memory.
type fakeRedis struct {
	counts  map[string]int64
	markers map[string]struct{}
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{counts: map[string]int64{}, markers: map[string]struct{}{}}
}

func (f *fakeRedis) Incr(ctx context.Context, key string) *redis.IntCmd {
	f.counts[key]++
	return redis.NewIntResult(f.counts[key], nil)
}

func (f *fakeRedis) Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd {
	return redis.NewBoolResult(true, nil)
}

func (f *fakeRedis) SetNX(ctx context.Context, key string, value any, expiration time.Duration) *redis.BoolCmd {
	if _, ok := f.markers[key]; ok {
		return redis.NewBoolResult(false, nil)
	}
	f.markers[key] = struct{}{}
	return redis.NewBoolResult(true, nil)
}

type fakeConversationService struct {
	processed []model.WebhookEvent
	err       error
}

func (f *fakeConversationService) Process(ctx context.Context, ev model.WebhookEvent, dedupeKey string) (*service.ProcessResult, error) {
	f.processed = append(f.processed, ev)
	if f.err != nil {
		return nil, f.err
	}
	return &service.ProcessResult{Reply: "ok"}, nil
}

var _ = Describe("ChatwootWebhookHandler", func() {
	var (
		router *gin.Engine
		store  *fakeRedis
		svc    *fakeConversationService
	)

	newRouter := func(cfg config.WebhookConfig) {
		gin.SetMode(gin.TestMode)
		router = gin.New()
		h := webhook.NewChatwootWebhookHandler(
			signature.NewVerifier(cfg.SharedSecret),
			ratelimit.NewLimiter(store),
			idempotency.NewStore(store),
			svc,
			cfg,
		)
		router.POST("/api/v1/webhooks/chatwoot", h.HandleEvent)
	}

	post := func(body []byte, headers map[string]string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/chatwoot", bytes.NewBuffer(body))
		req.Header.Set("Content-Type", "application/json")
		for k, v := range headers {
			req.Header.Set(k, v)
		}
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	payload := func() []byte {
		body, _ := json.Marshal(map[string]any{
			"event":        "message_created",
			"account":      map[string]any{"id": 1},
			"conversation": map[string]any{"id": 42},
			"message": map[string]any{
				"id":           7,
				"content":      "Maria Lopes",
				"message_type": "incoming",
				"created_at":   "2026-08-31T12:00:00Z",
			},
		})
		return body
	}

	BeforeEach(func() {
		store = newFakeRedis()
		svc = &fakeConversationService{}
		newRouter(config.WebhookConfig{
			SharedSecret:   testSecret,
			IdempotencyTTL: 5 * time.Minute,
			RateLimit:      60,
			RateWindow:     time.Minute,
		})
	})

	It("accepts a signed delivery and processes it", func() {
		body := payload()
		w := post(body, map[string]string{"X-Chatwoot-Signature": sign(body)})

		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(w.Body.String()).To(ContainSubstring(`"ok":true`))
		Expect(svc.processed).To(HaveLen(1))
		Expect(svc.processed[0].Content).To(Equal("Maria Lopes"))
	})

	It("rejects a bad signature without touching anything", func() {
		body := payload()
		w := post(body, map[string]string{"X-Chatwoot-Signature": "deadbeef"})

		Expect(w.Code).To(Equal(http.StatusUnauthorized))
		Expect(svc.processed).To(BeEmpty())
		Expect(store.markers).To(BeEmpty())
	})

	It("rejects everything when no secret is configured", func() {
		newRouter(config.WebhookConfig{
			SharedSecret:   "",
			IdempotencyTTL: 5 * time.Minute,
			RateLimit:      60,
			RateWindow:     time.Minute,
		})
		body := payload()
		w := post(body, map[string]string{"X-Chatwoot-Signature": sign(body)})
		Expect(w.Code).To(Equal(http.StatusUnauthorized))
	})

	It("suppresses a duplicate delivery", func() {
		body := payload()
		headers := map[string]string{"X-Chatwoot-Signature": sign(body)}

		first := post(body, headers)
		second := post(body, headers)

		Expect(first.Code).To(Equal(http.StatusOK))
		Expect(second.Code).To(Equal(http.StatusOK))
		Expect(second.Body.String()).To(ContainSubstring(`"duplicate":true`))
		Expect(svc.processed).To(HaveLen(1))
	})

	It("dedupes on the explicit event id header when present", func() {
		body := payload()
		headers := map[string]string{
			"X-Chatwoot-Signature": sign(body),
			"X-Chatwoot-Event-Id":  "evt-123",
		}
		post(body, headers)
		Expect(store.markers).To(HaveKey("dedupe:cw:evt-123"))
	})

	It("returns 429 past the rate limit", func() {
		newRouter(config.WebhookConfig{
			SharedSecret:   testSecret,
			IdempotencyTTL: 5 * time.Minute,
			RateLimit:      2,
			RateWindow:     time.Minute,
		})
		body := payload()
		headers := map[string]string{"X-Chatwoot-Signature": sign(body)}

		post(body, headers)
		// Second delivery is a duplicate but still counts against the window.
		post(body, headers)
		third := post(body, headers)

		Expect(third.Code).To(Equal(http.StatusTooManyRequests))
		Expect(svc.processed).To(HaveLen(1))
	})

	It("acknowledges a malformed body without processing", func() {
		body := []byte("not json")
		w := post(body, map[string]string{"X-Chatwoot-Signature": sign(body)})

		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(w.Body.String()).To(ContainSubstring(`"ignored":true`))
		Expect(svc.processed).To(BeEmpty())
	})

	It("ignores unsupported event types", func() {
		body, _ := json.Marshal(map[string]any{
			"event":        "conversation_resolved",
			"account":      map[string]any{"id": 1},
			"conversation": map[string]any{"id": 42},
		})
		w := post(body, map[string]string{"X-Chatwoot-Signature": sign(body)})

		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(w.Body.String()).To(ContainSubstring("unsupported event"))
		Expect(svc.processed).To(BeEmpty())
	})

	It("ignores the bot's own outgoing messages", func() {
		body, _ := json.Marshal(map[string]any{
			"event":        "message_created",
			"account":      map[string]any{"id": 1},
			"conversation": map[string]any{"id": 42},
			"message": map[string]any{
				"id":           8,
				"content":      "Olá!",
				"message_type": "outgoing",
				"created_at":   "2026-08-31T12:00:01Z",
			},
		})
		w := post(body, map[string]string{"X-Chatwoot-Signature": sign(body)})

		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(w.Body.String()).To(ContainSubstring("outgoing"))
		Expect(svc.processed).To(BeEmpty())
	})

	It("returns 200 even when processing fails downstream", func() {
		svc.err = context.DeadlineExceeded
		body := payload()
		w := post(body, map[string]string{"X-Chatwoot-Signature": sign(body)})

		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(w.Body.String()).To(ContainSubstring(`"ok":true`))
	})
})
