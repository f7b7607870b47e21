package main

import (
	"github.com/rs/zerolog"

	"github.com/clinicportal/clinic/internal/platform/events"
)

// openBus picks the event bus from NATS_URL: empty runs in-process,
// "embedded" starts a private NATS server, anything else is dialled.
func openBus(url string, logger zerolog.Logger) (events.Bus, func(), error) {
	switch url {
	case "":
		bus := events.NewMemoryBus()
		logger.Info().Msg("using in-process event bus")
		return bus, func() { bus.Close() }, nil
	case "embedded":
		srv, err := events.StartEmbedded(logger)
		if err != nil {
			return nil, nil, err
		}
		bus, err := events.Connect(srv.ClientURL(), logger)
		if err != nil {
			srv.Shutdown()
			return nil, nil, err
		}
		return bus, func() {
			bus.Close()
			srv.Shutdown()
		}, nil
	}
	bus, err := events.Connect(url, logger)
	if err != nil {
		return nil, nil, err
	}
	logger.Info().Str("url", url).Msg("connected to nats")
	return bus, func() { bus.Close() }, nil
}
