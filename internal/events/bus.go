package events

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/components/cqrs"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

var marshaler = cqrs.JSONMarshaler{
	GenerateName: cqrs.StructName,
}

// NewPubSub returns the in-process transport shared by the bus and the router.
func NewPubSub(logger watermill.LoggerAdapter) *gochannel.GoChannel {
	//nolint:exhaustruct
	return gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer: 64, //nolint:gomnd
	}, logger)
}

type Bus struct {
	bus *cqrs.EventBus
}

func NewBus(publisher message.Publisher, wl watermill.LoggerAdapter) (*Bus, error) {
	//nolint:exhaustruct
	bus, err := cqrs.NewEventBusWithConfig(publisher, cqrs.EventBusConfig{
		GeneratePublishTopic: func(params cqrs.GenerateEventPublishTopicParams) (string, error) {
			return params.EventName, nil
		},
		Marshaler: marshaler,
		Logger:    wl,
	})
	if err != nil {
		return nil, fmt.Errorf("creating event bus: %w", err)
	}

	return &Bus{bus: bus}, nil
}

func (b *Bus) Publish(ctx context.Context, event any) error {
	if err := b.bus.Publish(ctx, event); err != nil {
		return fmt.Errorf("publishing %s: %w", marshaler.Name(event), err)
	}

	return nil
}
