package agent

import (
	"errors"
	"fmt"
	"time"

	"github.com/jurepetric/avatard/internal/policy"
	"github.com/jurepetric/avatard/internal/protocol"
	"github.com/jurepetric/avatard/internal/realtime"
	"github.com/jurepetric/avatard/internal/reliability"
)

// onData is registered against the room's data channel. Each packet is
// handled as an independent unit of work so a slow backend call never blocks
// the read loop or the monitor tick.
func (o *Orchestrator) onData(sender string, payload []byte) {
	go o.handlePacket(sender, payload)
}

func (o *Orchestrator) countMessage(outcome string) {
	if o.metrics != nil {
		o.metrics.DataMessages.WithLabelValues(outcome).Inc()
	}
}

func (o *Orchestrator) handlePacket(sender string, payload []byte) {
	msg, err := protocol.ParseDataMessage(payload)
	if err != nil {
		redacted, _ := policy.RedactPII(string(payload))
		o.logger.Error("discarding data packet",
			"sender", sender, "payload", redacted, "error", err)
		o.countMessage("malformed")
		return
	}

	if !msg.IsUserMessage() {
		o.logger.Info("data message received",
			"sender", sender, "type", string(msg.Type))
		o.countMessage("ignored")
		return
	}

	redacted, _ := policy.RedactPII(msg.Content)
	o.logger.Info("user message received", "sender", sender, "content", redacted)

	start := time.Now()
	err = o.adapter.GenerateReply(o.runCtx, msg.Content)
	if err == nil {
		if o.metrics != nil {
			o.metrics.ObserveReplyLatency(time.Since(start))
		}
		o.countMessage("replied")
		return
	}

	var replyErr *realtime.ReplyError
	transient := false
	if errors.As(err, &replyErr) {
		transient = reliability.IsRetryableReplyCode(replyErr.Code)
		if o.metrics != nil {
			o.metrics.ProviderErrors.WithLabelValues("realtime", replyErr.Code).Inc()
		}
	}
	o.logger.Warn("reply with explicit instructions failed, trying fallback",
		"sender", sender, "transient", transient, "error", err)

	if err := o.fallbackReply(msg.Content); err != nil {
		o.logger.Error("fallback reply failed", "sender", sender, "error", err)
		o.countMessage("failed")
		return
	}
	o.countMessage("fallback")
}

// fallbackReply retries a rejected user message by overwriting the agent's
// ambient instructions with the message content, generating a bare reply,
// and restoring the saved instructions on every exit path. The agent mutex
// serializes concurrent fallbacks so two calls can never corrupt each
// other's saved value.
func (o *Orchestrator) fallbackReply(content string) error {
	o.agent.mu.Lock()
	defer o.agent.mu.Unlock()

	saved := o.agent.instructions
	o.agent.instructions = content
	defer func() {
		o.agent.instructions = saved
		if err := o.adapter.UpdateInstructions(o.runCtx, saved); err != nil {
			o.logger.Warn("restoring agent instructions failed", "error", err)
		}
	}()

	if err := o.adapter.UpdateInstructions(o.runCtx, content); err != nil {
		return fmt.Errorf("push fallback instructions: %w", err)
	}
	if err := o.adapter.GenerateReply(o.runCtx, ""); err != nil {
		return fmt.Errorf("fallback reply: %w", err)
	}
	return nil
}
