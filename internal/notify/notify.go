// Package notify delivers spot lines and reports to outbound channels and
// pub/sub topics. Delivery is best effort: failures are logged and counted,
// never returned to the ingestion path.
package notify

import (
	"context"
	"log/slog"

	"github.com/couchcryptid/activation-spot-service/internal/domain"
	"github.com/couchcryptid/activation-spot-service/internal/observability"
)

// Channel is an outbound message surface such as a chat or social feed.
type Channel interface {
	Name() string
	// MaxLen is the longest message the channel accepts, in characters.
	MaxLen() int
	// Post sends text, as a reply to replyTo when it is non-empty, and
	// returns the id of the new message.
	Post(ctx context.Context, replyTo, text string) (string, error)
}

// Publisher sends a message to a pub/sub topic.
type Publisher interface {
	Publish(ctx context.Context, topic, key, text string) error
}

// Notifier fans spots and reports out to every configured channel.
type Notifier struct {
	channels  []Channel
	publisher Publisher
	logger    *slog.Logger
	metrics   *observability.Metrics
}

// New creates a Notifier. A nil publisher disables topic routing.
func New(channels []Channel, publisher Publisher, logger *slog.Logger, metrics *observability.Metrics) *Notifier {
	return &Notifier{
		channels:  channels,
		publisher: publisher,
		logger:    logger,
		metrics:   metrics,
	}
}

// Spot delivers one accepted spot. Channels receive it only when the
// program's post filter admits the reference; topics by their own patterns.
func (n *Notifier) Spot(ctx context.Context, p *domain.Program, s domain.Spot, localName string) {
	line := s.NotificationLine(localName)

	if p.ShouldNotify(s.Reference) {
		for _, ch := range n.channels {
			_, err := ch.Post(ctx, "", truncate(line, ch.MaxLen()))
			n.record(ch.Name(), err, "program", p.Name, "spot_id", s.SourceID)
		}
	}

	if n.publisher == nil {
		return
	}
	for _, route := range p.Topics {
		if !route.Matches(s.Reference) {
			continue
		}
		err := n.publisher.Publish(ctx, route.Topic, s.Callsign, line)
		n.record("topic:"+route.Topic, err, "program", p.Name, "spot_id", s.SourceID)
	}
}

// Report posts a multi-line report to every channel as a reply thread.
func (n *Notifier) Report(ctx context.Context, text string) {
	for _, ch := range n.channels {
		_, err := Thread(ctx, ch, "", text)
		n.record(ch.Name(), err)
	}
}

func (n *Notifier) record(channel string, err error, attrs ...any) {
	if err != nil {
		n.metrics.Notifications.WithLabelValues(channel, "error").Inc()
		n.logger.Warn("notification failed", append([]any{"channel", channel, "error", err}, attrs...)...)
		return
	}
	n.metrics.Notifications.WithLabelValues(channel, "success").Inc()
}
