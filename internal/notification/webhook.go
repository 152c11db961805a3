package notification

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// WebhookForwarder envia cada notificação como JSON para uma URL externa
type WebhookForwarder struct {
	client *resty.Client
	url    string
	wg     sync.WaitGroup
}

// NewWebhookForwarder cria uma nova instância de WebhookForwarder
func NewWebhookForwarder(url string, timeout time.Duration) *WebhookForwarder {
	return &WebhookForwarder{
		client: resty.New().SetTimeout(timeout),
		url:    url,
	}
}

// Forward posts n in the background. Failures are only logged.
func (f *WebhookForwarder) Forward(ctx context.Context, n Notification) {
	// desacopla do ciclo de vida da requisição, mantendo o trace
	bg := trace.ContextWithSpanContext(context.Background(), trace.SpanContextFromContext(ctx))

	headers := make(map[string]string)
	otel.GetTextMapPropagator().Inject(bg, propagation.MapCarrier(headers))

	f.wg.Add(1)
	go func() {
		defer f.wg.Done()
		resp, err := f.client.R().
			SetContext(bg).
			SetHeaders(headers).
			SetBody(n).
			Post(f.url)
		if err != nil {
			slog.ErrorContext(bg, "❌ webhook delivery failed", "notification_id", n.ID, "error", err)
			return
		}
		if resp.IsError() {
			slog.ErrorContext(bg, "❌ webhook rejected notification", "notification_id", n.ID, "status", resp.StatusCode())
			return
		}
		slog.DebugContext(bg, "webhook delivered", "notification_id", n.ID)
	}()
}

// Wait blocks until in-flight deliveries finish.
func (f *WebhookForwarder) Wait() {
	f.wg.Wait()
}
