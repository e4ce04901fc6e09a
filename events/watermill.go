package events

import (
	"encoding/json"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// WatermillSink publishes events to a watermill Publisher, letting them fan
// out to any number of subscribers.
type WatermillSink struct {
	publisher message.Publisher
	topic     string
}

// NewWatermillSink creates a sink publishing to the given publisher and topic.
func NewWatermillSink(publisher message.Publisher, topic string) *WatermillSink {
	return &WatermillSink{publisher: publisher, topic: topic}
}

// Publish serializes the event to JSON and sends it as a watermill message.
func (w *WatermillSink) Publish(event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return errors.Wrap(err, "marshaling event")
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	if err := w.publisher.Publish(w.topic, msg); err != nil {
		return errors.Wrap(err, "publishing event")
	}

	log.Trace().Str("topic", w.topic).Str("kind", string(event.Kind)).Msg("published event")
	return nil
}

var _ Sink = (*WatermillSink)(nil)
