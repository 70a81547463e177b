package cmds

import (
	"context"
	"sort"
	"strings"

	"github.com/go-go-golems/glazed/pkg/cli"
	"github.com/go-go-golems/glazed/pkg/cmds"
	"github.com/go-go-golems/glazed/pkg/cmds/fields"
	"github.com/go-go-golems/glazed/pkg/cmds/values"
	"github.com/go-go-golems/glazed/pkg/middlewares"
	"github.com/go-go-golems/glazed/pkg/settings"
	"github.com/go-go-golems/glazed/pkg/types"
	"github.com/spf13/cobra"

	"github.com/go-go-golems/supportchat/pkg/tickets"
)

func NewTicketsCommand() (*cobra.Command, error) {
	ticketsCmd := &cobra.Command{
		Use:   "tickets",
		Short: "Inspect tickets filed by the support bot",
	}

	listCmd, err := NewTicketsListCommand()
	if err != nil {
		return nil, err
	}
	exportCmd, err := NewTicketsExportCommand()
	if err != nil {
		return nil, err
	}

	cobraListCmd, err := cli.BuildCobraCommand(listCmd)
	if err != nil {
		return nil, err
	}
	cobraExportCmd, err := cli.BuildCobraCommand(exportCmd)
	if err != nil {
		return nil, err
	}
	ticketsCmd.AddCommand(cobraListCmd, cobraExportCmd)
	return ticketsCmd, nil
}

type TicketsListCommand struct {
	*cmds.CommandDescription
}

type TicketsListSettings struct {
	DB     string `glazed:"db"`
	Intent string `glazed:"intent"`
	Limit  int    `glazed:"limit"`
}

var _ cmds.GlazeCommand = &TicketsListCommand{}

func NewTicketsListCommand() (*TicketsListCommand, error) {
	glazedLayer, err := settings.NewGlazedSection()
	if err != nil {
		return nil, err
	}
	commandSettingsLayer, err := cli.NewCommandSettingsSection()
	if err != nil {
		return nil, err
	}

	desc := cmds.NewCommandDescription(
		"list",
		cmds.WithShort("List filed tickets"),
		cmds.WithLong("List tickets in filing order, one row per ticket with one column per slot."),
		cmds.WithFlags(
			fields.New(
				"db",
				fields.TypeString,
				fields.WithDefault(defaultDBPath),
				fields.WithHelp("SQLite database holding filed tickets"),
			),
			fields.New(
				"intent",
				fields.TypeString,
				fields.WithDefault(""),
				fields.WithHelp("Only tickets of this base intent"),
			),
			fields.New(
				"limit",
				fields.TypeInteger,
				fields.WithDefault(0),
				fields.WithHelp("Limit number of tickets (0 = no limit)"),
			),
		),
		cmds.WithSections(glazedLayer, commandSettingsLayer),
	)
	return &TicketsListCommand{CommandDescription: desc}, nil
}

func (c *TicketsListCommand) RunIntoGlazeProcessor(
	ctx context.Context,
	parsedLayers *values.Values,
	gp middlewares.Processor,
) error {
	s := &TicketsListSettings{}
	if err := parsedLayers.DecodeSectionInto(values.DefaultSlug, s); err != nil {
		return err
	}
	store, err := openStore(s.DB)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	return listTickets(ctx, store, s, gp)
}

type rowSink interface {
	AddRow(ctx context.Context, row types.Row) error
}

func listTickets(ctx context.Context, store tickets.Store, s *TicketsListSettings, gp rowSink) error {
	ts, err := store.List(ctx, strings.TrimSpace(s.Intent), s.Limit)
	if err != nil {
		return err
	}
	for _, t := range ts {
		if err := gp.AddRow(ctx, ticketRow(t)); err != nil {
			return err
		}
	}
	return nil
}

// ticketRow flattens a ticket; slots become columns of their own.
func ticketRow(t tickets.Ticket) types.Row {
	row := types.NewRow(
		types.MRP("id", t.ID),
		types.MRP("intent", t.Intent),
		types.MRP("base_intent", t.BaseIntent()),
		types.MRP("created_at", t.CreatedAt.Format("2006-01-02 15:04:05")),
	)
	for _, name := range sortedSlotNames(t.Slots) {
		row.Set(name, t.Slots[name])
	}
	return row
}

func sortedSlotNames(slots map[string]string) []string {
	names := make([]string, 0, len(slots))
	for k := range slots {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

type TicketsExportCommand struct {
	*cmds.CommandDescription
}

type TicketsExportSettings struct {
	DB   string `glazed:"db"`
	XLSX string `glazed:"xlsx"`
}

var _ cmds.BareCommand = &TicketsExportCommand{}

func NewTicketsExportCommand() (*TicketsExportCommand, error) {
	return &TicketsExportCommand{
		CommandDescription: cmds.NewCommandDescription(
			"export",
			cmds.WithShort("Export filed tickets to a spreadsheet, one sheet per intent"),
			cmds.WithFlags(
				fields.New(
					"db",
					fields.TypeString,
					fields.WithDefault(defaultDBPath),
					fields.WithHelp("SQLite database holding filed tickets"),
				),
				fields.New(
					"xlsx",
					fields.TypeString,
					fields.WithDefault("support_logs.xlsx"),
					fields.WithHelp("Spreadsheet to write"),
				),
			),
		),
	}, nil
}

func (c *TicketsExportCommand) Run(ctx context.Context, parsedLayers *values.Values) error {
	s := &TicketsExportSettings{}
	if err := parsedLayers.DecodeSectionInto(values.DefaultSlug, s); err != nil {
		return err
	}
	return exportTickets(ctx, s)
}

func exportTickets(ctx context.Context, s *TicketsExportSettings) error {
	store, err := openStore(s.DB)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	ts, err := store.List(ctx, "", 0)
	if err != nil {
		return err
	}
	return tickets.ExportXLSX(s.XLSX, ts)
}
