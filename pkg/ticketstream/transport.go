package ticketstream

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	rstream "github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/supportchat/pkg/supportbot"
	"github.com/go-go-golems/supportchat/pkg/tickets"
)

// Transport publishes filed tickets and hands them to subscribers. It is the
// supportbot.TicketSink of the predictor service.
type Transport struct {
	pub    message.Publisher
	sub    message.Subscriber
	client *redis.Client
}

var _ supportbot.TicketSink = &Transport{}

// Build returns a Redis Streams transport when s.Enabled is set and an
// in-memory one otherwise.
func Build(s Settings) (*Transport, error) {
	logger := NewWatermillLogger(log.Logger)
	if !s.Enabled {
		// Publishing waits for the consumer's ack, so a filed ticket is
		// stored by the time FileTicket returns.
		ch := gochannel.NewGoChannel(gochannel.Config{
			OutputChannelBuffer:            64,
			BlockPublishUntilSubscriberAck: true,
		}, logger)
		return &Transport{pub: ch, sub: ch}, nil
	}

	client := redis.NewClient(&redis.Options{Addr: s.Addr})
	marshaler := rstream.DefaultMarshallerUnmarshaller{}

	pub, err := rstream.NewPublisher(rstream.PublisherConfig{
		Client:     client,
		Marshaller: marshaler,
	}, logger)
	if err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "redis stream publisher")
	}

	sub, err := rstream.NewSubscriber(rstream.SubscriberConfig{
		Client:        client,
		Unmarshaller:  marshaler,
		ConsumerGroup: s.Group,
		Consumer:      s.Consumer,
	}, logger)
	if err != nil {
		_ = pub.Close()
		_ = client.Close()
		return nil, errors.Wrap(err, "redis stream subscriber")
	}

	return &Transport{pub: pub, sub: sub, client: client}, nil
}

// NewTransport wraps an existing publisher/subscriber pair.
func NewTransport(pub message.Publisher, sub message.Subscriber) *Transport {
	return &Transport{pub: pub, sub: sub}
}

func (t *Transport) FileTicket(ctx context.Context, tk tickets.Ticket) error {
	payload, err := json.Marshal(tk)
	if err != nil {
		return errors.Wrap(err, "marshal ticket")
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set("intent", tk.Intent)
	msg.SetContext(ctx)
	if err := t.pub.Publish(Topic, msg); err != nil {
		return errors.Wrap(err, "publish ticket")
	}
	return nil
}

// Subscribe must be called before tickets are filed when the transport is
// in-memory: the go channel drops messages nobody listens to.
func (t *Transport) Subscribe(ctx context.Context) (<-chan *message.Message, error) {
	msgs, err := t.sub.Subscribe(ctx, Topic)
	if err != nil {
		return nil, errors.Wrap(err, "subscribe tickets")
	}
	return msgs, nil
}

// EnsureGroup creates the consumer group at the start of the stream if it
// does not exist yet, so tickets filed before the first subscription are kept.
func (t *Transport) EnsureGroup(ctx context.Context, group string) error {
	if t.client == nil {
		return nil
	}
	err := t.client.XGroupCreateMkStream(ctx, Topic, group, "0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return errors.Wrap(err, "create consumer group")
	}
	return nil
}

func (t *Transport) Close() error {
	var firstErr error
	if err := t.pub.Close(); err != nil {
		firstErr = err
	}
	if t.sub != nil && any(t.sub) != any(t.pub) {
		if err := t.sub.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if t.client != nil {
		if err := t.client.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// nackDelay spaces out redeliveries of a ticket the store rejected.
var nackDelay = 250 * time.Millisecond

// maxStoreAttempts bounds how often one ticket is offered to the store before
// it is acked and dropped.
const maxStoreAttempts = 5

// StoreTickets appends every ticket arriving on msgs to store until ctx is
// done or msgs is closed. Undecodable payloads are acked and dropped. Store
// failures are nacked after nackDelay, up to maxStoreAttempts times per ticket.
func StoreTickets(ctx context.Context, msgs <-chan *message.Message, store tickets.Store) error {
	attempts := map[string]int{}
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			var tk tickets.Ticket
			if err := json.Unmarshal(msg.Payload, &tk); err != nil {
				log.Error().Err(err).Str("message_id", msg.UUID).Msg("ticketstream: dropping undecodable ticket")
				msg.Ack()
				continue
			}
			if err := store.Append(ctx, tk); err != nil {
				attempts[msg.UUID]++
				n := attempts[msg.UUID]
				if n >= maxStoreAttempts {
					log.Error().Err(err).Str("ticket_id", tk.ID).Int("attempts", n).Msg("ticketstream: giving up on ticket")
					delete(attempts, msg.UUID)
					msg.Ack()
					continue
				}
				log.Warn().Err(err).Str("ticket_id", tk.ID).Int("attempts", n).Msg("ticketstream: storing ticket failed, will retry")
				select {
				case <-time.After(nackDelay):
				case <-ctx.Done():
				}
				msg.Nack()
				continue
			}
			delete(attempts, msg.UUID)
			log.Debug().Str("ticket_id", tk.ID).Str("intent", tk.Intent).Msg("ticketstream: ticket stored")
			msg.Ack()
		}
	}
}
