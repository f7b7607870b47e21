package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// SubjectPrefix namespaces clinic events on the NATS server.
const SubjectPrefix = "clinic.events."

// QueueGroup makes replicas of the server share deliveries instead of
// each handling every event.
const QueueGroup = "clinic-fanout"

var ErrClosed = errors.New("event bus closed")

type NATSBus struct {
	nc     *nats.Conn
	logger zerolog.Logger
}

// Connect dials url and wraps the connection in a NATSBus.
func Connect(url string, logger zerolog.Logger) (*NATSBus, error) {
	nc, err := nats.Connect(url,
		nats.Name("clinic-server"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn().Err(err).Msg("nats disconnected")
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info().Str("url", c.ConnectedUrl()).Msg("nats reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats %s: %w", url, err)
	}
	return NewNATSBus(nc, logger), nil
}

func NewNATSBus(nc *nats.Conn, logger zerolog.Logger) *NATSBus {
	return &NATSBus{nc: nc, logger: logger.With().Str("component", "event-bus").Logger()}
}

func Subject(t Type) string {
	return SubjectPrefix + string(t)
}

func (b *NATSBus) Publish(_ context.Context, e Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode event %s: %w", e.ID, err)
	}
	if err := b.nc.Publish(Subject(e.Type), data); err != nil {
		if errors.Is(err, nats.ErrConnectionClosed) {
			return ErrClosed
		}
		return fmt.Errorf("publish %s: %w", e.Type, err)
	}
	return nil
}

func (b *NATSBus) Subscribe(ctx context.Context, h Handler) error {
	sub, err := b.nc.QueueSubscribe(SubjectPrefix+">", QueueGroup, func(m *nats.Msg) {
		var e Event
		if err := json.Unmarshal(m.Data, &e); err != nil {
			b.logger.Error().Err(err).Str("subject", m.Subject).Msg("dropping malformed event")
			return
		}
		h(ctx, e)
	})
	if err != nil {
		return fmt.Errorf("subscribe %s>: %w", SubjectPrefix, err)
	}

	go func() {
		<-ctx.Done()
		if err := sub.Unsubscribe(); err != nil && !errors.Is(err, nats.ErrConnectionClosed) {
			b.logger.Warn().Err(err).Msg("unsubscribe failed")
		}
	}()
	return nil
}

// Flush round-trips to the server so earlier publishes have been processed.
func (b *NATSBus) Flush() error {
	return b.nc.Flush()
}

func (b *NATSBus) Close() error {
	if b.nc.IsClosed() {
		return nil
	}
	return b.nc.Drain()
}

// EmbeddedServer runs a NATS server inside the process for single-node
// deployments and tests.
type EmbeddedServer struct {
	ns *server.Server
}

func StartEmbedded(logger zerolog.Logger) (*EmbeddedServer, error) {
	ns, err := server.NewServer(&server.Options{
		Host:   "127.0.0.1",
		Port:   -1,
		NoSigs: true,
		NoLog:  true,
	})
	if err != nil {
		return nil, fmt.Errorf("create embedded nats: %w", err)
	}
	ns.Start()
	if !ns.ReadyForConnections(10 * time.Second) {
		ns.Shutdown()
		return nil, errors.New("embedded nats not ready after 10s")
	}
	logger.Info().Str("url", ns.ClientURL()).Msg("embedded nats started")
	return &EmbeddedServer{ns: ns}, nil
}

func (s *EmbeddedServer) ClientURL() string {
	return s.ns.ClientURL()
}

func (s *EmbeddedServer) Shutdown() {
	s.ns.Shutdown()
	s.ns.WaitForShutdown()
}
