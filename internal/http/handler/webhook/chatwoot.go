package webhook

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"dom360.app/sdrbot/core/config"
	"dom360.app/sdrbot/internal/http/dto"
	"dom360.app/sdrbot/internal/idempotency"
	"dom360.app/sdrbot/internal/ratelimit"
	"dom360.app/sdrbot/internal/service"
	"dom360.app/sdrbot/internal/signature"
)

const (
	signatureHeader = "X-Chatwoot-Signature"
	eventIDHeader   = "X-Chatwoot-Event-Id"

	dedupePrefix       = "dedupe:cw:"
	rateBucketIPPrefix = "rl:ip:"
)

// ChatwootWebhookHandler is the single ingress for Chatwoot deliveries. The
// admission order is fixed: rate limit, signature, shape, idempotency,
// event filter, then processing. The sender only ever sees 200, 401 or 429;
// downstream trouble is our problem, not Chatwoot's.
type ChatwootWebhookHandler struct {
	verifier *signature.Verifier
	limiter  *ratelimit.Limiter
	dedupe   *idempotency.Store
	service  service.ConversationService
	cfg      config.WebhookConfig
}

func NewChatwootWebhookHandler(
	verifier *signature.Verifier,
	limiter *ratelimit.Limiter,
	dedupe *idempotency.Store,
	svc service.ConversationService,
	cfg config.WebhookConfig,
) *ChatwootWebhookHandler {
	return &ChatwootWebhookHandler{
		verifier: verifier,
		limiter:  limiter,
		dedupe:   dedupe,
		service:  svc,
		cfg:      cfg,
	}
}

func (h *ChatwootWebhookHandler) HandleEvent(c *gin.Context) {
	ctx := c.Request.Context()

	allowed, remaining := h.limiter.Admit(ctx, rateBucketIPPrefix+c.ClientIP(), h.cfg.RateLimit, h.cfg.RateWindow)
	if !allowed {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded", "remaining": remaining})
		return
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		// Can't verify what we couldn't read.
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid signature"})
		return
	}

	if !h.verifier.Verify(body, c.GetHeader(signatureHeader)) {
		slog.WarnContext(ctx, "rejected webhook with bad signature", "remote_ip", c.ClientIP())
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid signature"})
		return
	}

	var payload dto.ChatwootWebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		// Authenticated but unusable: acknowledge so Chatwoot stops retrying
		// a body that will never parse.
		slog.WarnContext(ctx, "ignoring malformed webhook payload", "error", err)
		c.JSON(http.StatusOK, dto.WebhookAck{OK: true, Ignored: true, Reason: "malformed payload"})
		return
	}

	ev, err := payload.ToEvent(c.GetHeader(eventIDHeader))
	if err != nil {
		slog.WarnContext(ctx, "ignoring structurally incomplete webhook payload", "error", err)
		c.JSON(http.StatusOK, dto.WebhookAck{OK: true, Ignored: true, Reason: "incomplete payload"})
		return
	}

	dedupeKey := dedupePrefix + ev.DeliveryID()
	if !h.dedupe.AdmitOnce(ctx, dedupeKey, h.cfg.IdempotencyTTL) {
		slog.InfoContext(ctx, "suppressed duplicate delivery",
			"dedupe_key", dedupeKey,
			"event_type", string(ev.Type),
		)
		c.JSON(http.StatusOK, dto.WebhookAck{OK: true, Duplicate: true})
		return
	}

	if !ev.Type.Accepted() {
		c.JSON(http.StatusOK, dto.WebhookAck{OK: true, Ignored: true, Reason: "unsupported event"})
		return
	}
	if ev.Outgoing() {
		c.JSON(http.StatusOK, dto.WebhookAck{OK: true, Ignored: true, Reason: "outgoing message"})
		return
	}

	if _, err := h.service.Process(ctx, ev, dedupeKey); err != nil {
		// The delivery was admitted and the marker is set; retrying from the
		// sender's side would be suppressed anyway, so acknowledge.
		slog.ErrorContext(ctx, "failed to process webhook event",
			"error", err,
			"account_id", ev.AccountID,
			"conversation_id", ev.ConversationID,
			"event_type", string(ev.Type),
		)
	}

	c.JSON(http.StatusOK, dto.WebhookAck{OK: true})
}
