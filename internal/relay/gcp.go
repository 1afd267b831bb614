package relay

import (
	"context"

	gcppubsub "cloud.google.com/go/pubsub/v2"
)

// Topics is satisfied by *pubsub.Client.
type Topics interface {
	Publisher(topic string) *gcppubsub.Publisher
}

// GCPPublishers adapts a Pub/Sub client to the relay's publisher lookup.
func GCPPublishers(topics Topics) func(string) Publisher {
	return func(topic string) Publisher {
		p := topics.Publisher(topic)
		if p == nil {
			return nil
		}
		return gcpPublisher{p}
	}
}

type gcpPublisher struct {
	p *gcppubsub.Publisher
}

func (g gcpPublisher) Publish(ctx context.Context, msg *gcppubsub.Message) Result {
	return g.p.Publish(ctx, msg)
}
