package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"

	"marketplace-chat/internal/infrastructure/push/port"
)

// WebhookSender posts notifications as JSON to the push gateway. 5xx and
// transport errors are retried with exponential backoff; 4xx are final.
type WebhookSender struct {
	url        string
	client     *http.Client
	maxRetries uint64
	newBackOff func() backoff.BackOff
	log        logrus.FieldLogger
}

func NewWebhookSender(url string, maxRetries uint64, log logrus.FieldLogger) *WebhookSender {
	return &WebhookSender{
		url:        url,
		client:     &http.Client{Timeout: 10 * time.Second},
		maxRetries: maxRetries,
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 200 * time.Millisecond
			b.MaxElapsedTime = 30 * time.Second
			return b
		},
		log: log,
	}
}

var _ port.Sender = (*WebhookSender)(nil)

func (w *WebhookSender) Send(ctx context.Context, n port.Notification) error {
	body, err := json.Marshal(n)
	if err != nil {
		return backoff.Permanent(err)
	}

	attempt := 0
	op := func() error {
		attempt++
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := w.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		_, _ = io.Copy(io.Discard, resp.Body)

		switch {
		case resp.StatusCode < 300:
			return nil
		case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
			return fmt.Errorf("push: gateway returned %d", resp.StatusCode)
		default:
			return backoff.Permanent(fmt.Errorf("push: gateway rejected notification with %d", resp.StatusCode))
		}
	}

	b := backoff.WithContext(backoff.WithMaxRetries(w.newBackOff(), w.maxRetries), ctx)
	err = backoff.RetryNotify(op, b, func(err error, wait time.Duration) {
		w.log.WithFields(logrus.Fields{
			"function": "Send",
			"user_id":  n.UserID,
			"attempt":  attempt,
			"wait":     wait.String(),
		}).WithError(err).Warn("push delivery failed, retrying")
	})
	return err
}

// LogSender only logs notifications. It is used when no push gateway is
// configured so development setups still exercise the notify path.
type LogSender struct {
	log logrus.FieldLogger
}

func NewLogSender(log logrus.FieldLogger) *LogSender {
	return &LogSender{log: log}
}

var _ port.Sender = (*LogSender)(nil)

func (l *LogSender) Send(_ context.Context, n port.Notification) error {
	l.log.WithFields(logrus.Fields{
		"user_id":         n.UserID,
		"conversation_id": n.ConversationID,
		"message_id":      n.MessageID,
	}).Info("push notification (no gateway configured)")
	return nil
}
