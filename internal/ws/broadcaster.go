package ws

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog"

	"rollup-dashboard/internal/channels"
	"rollup-dashboard/internal/logging"
)

// Broadcaster drains the pipeline channels and fans each frame out to the
// hub. Frames are encoded once per broadcast, not once per client.
type Broadcaster struct {
	hub   *Hub
	chans *channels.Channels
	log   zerolog.Logger
}

// NewBroadcaster creates a broadcaster over the given hub and channels.
func NewBroadcaster(hub *Hub, chans *channels.Channels) *Broadcaster {
	return &Broadcaster{
		hub:   hub,
		chans: chans,
		log:   logging.Component("broadcaster"),
	}
}

// Run pumps frames until ctx is cancelled or the channels close.
func (b *Broadcaster) Run(ctx context.Context) {
	b.log.Info().Msg("starting broadcaster")
	for {
		select {
		case <-ctx.Done():
			b.log.Info().Msg("stopping broadcaster")
			return

		case update, ok := <-b.chans.ChartUpdates:
			if !ok {
				return
			}
			b.broadcast(update)

		case update, ok := <-b.chans.QualityUpdates:
			if !ok {
				return
			}
			b.broadcast(update)
		}
	}
}

func (b *Broadcaster) broadcast(frame any) {
	if b.hub.Count() == 0 {
		return
	}
	data, err := json.Marshal(frame)
	if err != nil {
		b.log.Error().Err(err).Msg("failed to encode frame")
		return
	}
	b.hub.Broadcast(data)
}
