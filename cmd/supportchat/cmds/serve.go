package cmds

import (
	"context"

	"github.com/go-go-golems/glazed/pkg/cmds"
	"github.com/go-go-golems/glazed/pkg/cmds/fields"
	"github.com/go-go-golems/glazed/pkg/cmds/values"

	"github.com/go-go-golems/supportchat/pkg/server"
	"github.com/go-go-golems/supportchat/pkg/supportbot"
	"github.com/go-go-golems/supportchat/pkg/tickets"
	"github.com/go-go-golems/supportchat/pkg/ticketstream"
)

const defaultDBPath = "supportchat.db"

type ServeCommand struct {
	*cmds.CommandDescription
}

type ServeSettings struct {
	Addr      string  `glazed:"addr"`
	DB        string  `glazed:"db"`
	Threshold float64 `glazed:"threshold"`
}

var _ cmds.BareCommand = &ServeCommand{}

func NewServeCommand() (*ServeCommand, error) {
	redisSection, err := ticketstream.NewSection()
	if err != nil {
		return nil, err
	}
	return &ServeCommand{
		CommandDescription: cmds.NewCommandDescription(
			"serve",
			cmds.WithShort("Run the predictor service the chat widget talks to"),
			cmds.WithFlags(
				fields.New(
					"addr",
					fields.TypeString,
					fields.WithDefault(":5000"),
					fields.WithHelp("HTTP listen address"),
				),
				fields.New(
					"db",
					fields.TypeString,
					fields.WithDefault(defaultDBPath),
					fields.WithHelp("SQLite database holding filed tickets"),
				),
				fields.New(
					"threshold",
					fields.TypeFloat,
					fields.WithDefault(0.4),
					fields.WithHelp("Classifier confidence below which keyword fallback is used"),
				),
			),
			cmds.WithSections(redisSection),
		),
	}, nil
}

func openStore(path string) (*tickets.SQLiteStore, error) {
	dsn, err := tickets.SQLiteDSNForFile(path)
	if err != nil {
		return nil, err
	}
	return tickets.NewSQLiteStore(dsn)
}

func (c *ServeCommand) Run(ctx context.Context, parsed *values.Values) error {
	s := &ServeSettings{}
	if err := parsed.DecodeSectionInto(values.DefaultSlug, s); err != nil {
		return err
	}
	rs := ticketstream.DefaultSettings()
	if err := parsed.DecodeSectionInto(ticketstream.SectionSlug, &rs); err != nil {
		return err
	}
	return serve(ctx, s, rs)
}

func serve(ctx context.Context, s *ServeSettings, rs ticketstream.Settings) error {
	store, err := openStore(s.DB)
	if err != nil {
		return err
	}
	transport, err := ticketstream.Build(rs)
	if err != nil {
		_ = store.Close()
		return err
	}

	bot := supportbot.New(
		supportbot.WithTicketSink(transport),
		supportbot.WithThreshold(s.Threshold),
	)

	var opts []server.Option
	if rs.Enabled {
		opts = append(opts, server.WithConsumerGroup(rs.Group))
	}
	srv, err := server.New(s.Addr, bot, transport, store, opts...)
	if err != nil {
		_ = transport.Close()
		_ = store.Close()
		return err
	}
	return srv.Run(ctx)
}
