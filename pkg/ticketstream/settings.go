package ticketstream

import (
	"github.com/go-go-golems/glazed/pkg/cmds/fields"
	"github.com/go-go-golems/glazed/pkg/cmds/schema"
)

// Topic carries filed tickets as JSON payloads.
const Topic = "support.tickets"

// SectionSlug is the glazed section holding the transport flags.
const SectionSlug = "redis"

// Settings holds the ticket transport configuration. When Enabled is false
// tickets travel over an in-process channel.
type Settings struct {
	Enabled  bool   `glazed:"redis-enabled" glazed.default:"false" glazed.help:"Carry tickets over Redis Streams instead of in-process"`
	Addr     string `glazed:"redis-addr" glazed.default:"localhost:6379" glazed.help:"Redis address host:port"`
	Group    string `glazed:"redis-group" glazed.default:"supportchat-tickets" glazed.help:"Redis consumer group of the ticket store"`
	Consumer string `glazed:"redis-consumer" glazed.default:"ticket-store-1" glazed.help:"Redis consumer name of the ticket store"`
}

func DefaultSettings() Settings {
	return Settings{
		Enabled:  false,
		Addr:     "localhost:6379",
		Group:    "supportchat-tickets",
		Consumer: "ticket-store-1",
	}
}

// NewSection returns the glazed section for the ticket transport flags.
func NewSection() (schema.Section, error) {
	d := DefaultSettings()
	return schema.NewSection(
		SectionSlug,
		"Redis Streams transport for filed tickets",
		schema.WithFields(
			fields.New("redis-enabled", fields.TypeBool, fields.WithDefault(d.Enabled),
				fields.WithHelp("Carry tickets over Redis Streams instead of in-process")),
			fields.New("redis-addr", fields.TypeString, fields.WithDefault(d.Addr),
				fields.WithHelp("Redis address host:port")),
			fields.New("redis-group", fields.TypeString, fields.WithDefault(d.Group),
				fields.WithHelp("Redis consumer group of the ticket store")),
			fields.New("redis-consumer", fields.TypeString, fields.WithDefault(d.Consumer),
				fields.WithHelp("Redis consumer name of the ticket store")),
		),
	)
}
