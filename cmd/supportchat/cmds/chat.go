package cmds

import (
	"os"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/go-go-golems/supportchat/pkg/chat"
	"github.com/go-go-golems/supportchat/pkg/config"
	"github.com/go-go-golems/supportchat/pkg/predictor"
	"github.com/go-go-golems/supportchat/pkg/ui"
)

func NewChatCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Open the support chat widget",
		Long: "Open the support chat widget on the terminal. When stdout is not a terminal, " +
			"every stdin line is sent as a message and the exchange is printed.",
		Args: cobra.NoArgs,
		RunE: runChat,
	}
	cmd.Flags().String("predictor-endpoint", "", "Predictor URL (default "+predictor.DefaultEndpoint+")")
	cmd.Flags().String("widget-config", "", "YAML file with the widget configuration")
	cmd.Flags().Bool("markdown", false, "Render bot replies as markdown")
	cmd.Flags().Bool("line-mode", false, "Read messages from stdin instead of opening the widget")
	cobra.CheckErr(viper.BindPFlag("predictor-endpoint", cmd.Flags().Lookup("predictor-endpoint")))
	return cmd
}

// loadWidgetConfig layers defaults, the YAML file and the viper key, in that
// order.
func loadWidgetConfig(path string) (config.Config, error) {
	cfg := config.Default()
	if path != "" {
		var err error
		cfg, err = config.LoadFile(path)
		if err != nil {
			return config.Config{}, err
		}
	}
	cfg = cfg.WithEndpoint(viper.GetString("predictor-endpoint"))
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func runChat(cmd *cobra.Command, _ []string) error {
	path, _ := cmd.Flags().GetString("widget-config")
	markdown, _ := cmd.Flags().GetBool("markdown")
	lineMode, _ := cmd.Flags().GetBool("line-mode")

	cfg, err := loadWidgetConfig(path)
	if err != nil {
		return err
	}
	log.Debug().Str("endpoint", cfg.PredictorEndpoint).Msg("predictor endpoint")

	session := chat.NewSession(predictor.New(cfg.PredictorEndpoint))
	ctx := cmd.Context()

	if lineMode || !isatty.IsTerminal(os.Stdout.Fd()) {
		return ui.RunLines(ctx, session, cmd.InOrStdin(), cmd.OutOrStdout())
	}

	// The widget owns the terminal; logs only go to an explicit log file.
	if viper.GetString("log-file") == "" {
		log.Logger = zerolog.Nop()
	}
	return ui.Run(ctx, session, ui.WithMarkdown(markdown))
}
