// Package channels wires the pipeline: the coordinator publishes chart and
// quality updates here and the WebSocket broadcaster drains them.
package channels

import (
	"fmt"
	"os"
	"strconv"

	"rollup-dashboard/models"
)

// Channels holds the communication channels between pipeline stages.
type Channels struct {
	ChartUpdates   chan models.ChartUpdate
	QualityUpdates chan models.QualityUpdate
}

// New creates the channels with their default buffer sizes. Buffers can be
// overridden per channel with CHANNEL_BUFFER_<Name> environment variables.
func New() *Channels {
	return &Channels{
		ChartUpdates:   make(chan models.ChartUpdate, bufferSize("ChartUpdates", 200)),
		QualityUpdates: make(chan models.QualityUpdate, bufferSize("QualityUpdates", 50)),
	}
}

// Close closes all channels. Call only after every producer has stopped.
func (c *Channels) Close() {
	close(c.ChartUpdates)
	close(c.QualityUpdates)
}

func bufferSize(channelName string, fallback int) int {
	if envVal := os.Getenv(fmt.Sprintf("CHANNEL_BUFFER_%s", channelName)); envVal != "" {
		if size, err := strconv.Atoi(envVal); err == nil && size > 0 {
			return size
		}
	}
	return fallback
}
