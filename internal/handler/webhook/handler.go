// Package webhook terminates the WhatsApp Cloud API webhook. It verifies the
// subscription handshake, authenticates deliveries, normalizes messages into
// events and hands them to the conversation engine.
package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/bookabot/internal/config"
	"github.com/jwalitptl/bookabot/internal/messenger"
	"github.com/jwalitptl/bookabot/internal/model"
	"github.com/jwalitptl/bookabot/internal/repository"
	"github.com/jwalitptl/bookabot/internal/service/conversation"
	"github.com/jwalitptl/bookabot/pkg/metrics"
)

const msgUnsupportedType = "I can only process text messages and interactive selections for now. How can I help you book an appointment?"

const processTimeout = 30 * time.Second

type Handler struct {
	engine    *conversation.Engine
	customers repository.CustomerRepository
	audit     repository.MessageLogRepository
	sender    messenger.Messenger
	metrics   *metrics.Metrics

	verifyToken string
	appSecret   string
}

func NewHandler(engine *conversation.Engine, customers repository.CustomerRepository, audit repository.MessageLogRepository, sender messenger.Messenger, cfg config.WhatsAppConfig, m *metrics.Metrics) *Handler {
	return &Handler{
		engine:      engine,
		customers:   customers,
		audit:       audit,
		sender:      sender,
		metrics:     m,
		verifyToken: cfg.VerifyToken,
		appSecret:   cfg.AppSecret,
	}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	webhook := r.Group("/webhook")
	{
		webhook.GET("", h.Verify)
		webhook.POST("", h.Receive)
	}
}

// Verify answers the provider's subscription handshake by echoing the
// challenge when the verify token matches.
func (h *Handler) Verify(c *gin.Context) {
	mode := c.Query("hub.mode")
	token := c.Query("hub.verify_token")
	challenge := c.Query("hub.challenge")

	if mode == "subscribe" && token == h.verifyToken {
		c.String(http.StatusOK, challenge)
		return
	}
	c.JSON(http.StatusForbidden, gin.H{"error": "verification failed"})
}

// Receive accepts a webhook delivery. The provider retries non-2xx responses,
// so the body is acknowledged as soon as it is authenticated and parseable;
// processing continues off the request goroutine.
func (h *Handler) Receive(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read body"})
		return
	}

	if !h.verifySignature(c.GetHeader("X-Hub-Signature-256"), body) {
		c.JSON(http.StatusForbidden, gin.H{"error": "invalid signature"})
		return
	}

	var payload notificationPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		if h.metrics != nil {
			h.metrics.EventsRejected.Inc()
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed payload"})
		return
	}

	go h.process(&payload)

	c.JSON(http.StatusOK, gin.H{"status": "received"})
}

// verifySignature checks the HMAC-SHA256 of the raw body against the
// X-Hub-Signature-256 header. Deliveries pass unchecked when no app secret is
// configured.
func (h *Handler) verifySignature(header string, body []byte) bool {
	if h.appSecret == "" {
		return true
	}

	provided, ok := strings.CutPrefix(header, "sha256=")
	if !ok {
		return false
	}

	mac := hmac.New(sha256.New, []byte(h.appSecret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(provided), []byte(expected))
}

func (h *Handler) process(payload *notificationPayload) {
	ctx, cancel := context.WithTimeout(context.Background(), processTimeout)
	defer cancel()

	for _, ent := range payload.Entry {
		for _, ch := range ent.Changes {
			names := contactNames(ch.Value.Contacts)
			for i := range ch.Value.Messages {
				h.handleMessage(ctx, &ch.Value.Messages[i], names)
			}
			for i := range ch.Value.Statuses {
				h.handleStatus(ctx, &ch.Value.Statuses[i])
			}
		}
	}
}

func (h *Handler) handleMessage(ctx context.Context, msg *message, names map[string]string) {
	customer, err := h.customers.GetOrCreate(ctx, msg.From, displayName(msg.From, names))
	if err != nil {
		log.Error().Err(err).Str("from", msg.From).Msg("failed to resolve customer")
		if h.metrics != nil {
			h.metrics.EventsRejected.Inc()
		}
		return
	}

	event, content := normalize(msg)
	h.logInbound(ctx, msg, customer.ID, content)

	if event == nil {
		// Media, locations, reactions and other unhandled types get a
		// polite pointer back to the supported flow.
		if _, err := h.sender.SendText(ctx, msg.From, msgUnsupportedType); err != nil {
			log.Warn().Err(err).Str("to", msg.From).Msg("failed to send unsupported-type reply")
		}
		return
	}
	if err := event.Validate(); err != nil {
		log.Warn().Err(err).Str("message_id", msg.ID).Msg("dropping invalid event")
		if h.metrics != nil {
			h.metrics.EventsRejected.Inc()
		}
		return
	}

	h.engine.HandleEvent(ctx, customer, event)
}

func (h *Handler) handleStatus(ctx context.Context, st *status) {
	raw, _ := json.Marshal(st)
	entry := &model.MessageLogEntry{
		ProviderMessageID: st.ID,
		Direction:         model.MessageDirectionOutboundStatus,
		Timestamp:         parseTimestamp(st.Timestamp),
		Content:           st.Status,
		RawPayload:        raw,
	}
	if err := h.audit.Append(ctx, entry); err != nil {
		log.Warn().Err(err).Str("message_id", st.ID).Msg("failed to log status update")
	}
}

func (h *Handler) logInbound(ctx context.Context, msg *message, customerID uuid.UUID, content string) {
	raw, _ := json.Marshal(msg)
	entry := &model.MessageLogEntry{
		ProviderMessageID: msg.ID,
		Direction:         model.MessageDirectionInbound,
		CustomerID:        &customerID,
		Timestamp:         parseTimestamp(msg.Timestamp),
		Content:           content,
		RawPayload:        raw,
	}
	if err := h.audit.Append(ctx, entry); err != nil {
		log.Warn().Err(err).Str("message_id", msg.ID).Msg("failed to log inbound message")
	}
}

// normalize flattens a provider message into an event, or nil for types the
// dialogue does not handle. The returned content string is what goes into the
// audit trail.
func normalize(msg *message) (*model.InboundEvent, string) {
	base := model.InboundEvent{
		From:      msg.From,
		MessageID: msg.ID,
		Timestamp: parseTimestamp(msg.Timestamp),
	}

	switch msg.Type {
	case "text":
		if msg.Text == nil {
			return nil, ""
		}
		base.Type = model.EventText
		base.Text = msg.Text.Body
		return &base, msg.Text.Body

	case "interactive":
		if msg.Interactive == nil {
			return nil, ""
		}
		switch {
		case msg.Interactive.ButtonReply != nil:
			base.Type = model.EventButtonReply
			base.ReplyID = msg.Interactive.ButtonReply.ID
			base.ReplyTitle = msg.Interactive.ButtonReply.Title
		case msg.Interactive.ListReply != nil:
			base.Type = model.EventListReply
			base.ReplyID = msg.Interactive.ListReply.ID
			base.ReplyTitle = msg.Interactive.ListReply.Title
		default:
			return nil, ""
		}
		return &base, base.ReplyID
	}

	return nil, msg.Type
}

func contactNames(contacts []contact) map[string]string {
	if len(contacts) == 0 {
		return nil
	}
	names := make(map[string]string, len(contacts))
	for _, ct := range contacts {
		if ct.Profile.Name != "" {
			names[ct.WaID] = ct.Profile.Name
		}
	}
	return names
}

// displayName prefers the profile name from the delivery, falling back to a
// placeholder built from the last digits of the phone number.
func displayName(phone string, names map[string]string) string {
	if name, ok := names[phone]; ok {
		return name
	}
	suffix := phone
	if len(suffix) > 4 {
		suffix = suffix[len(suffix)-4:]
	}
	return "User_" + suffix
}

func parseTimestamp(raw string) time.Time {
	secs, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Now()
	}
	return time.Unix(secs, 0)
}
