package main

import (
	"context"

	clay "github.com/go-go-golems/clay/pkg"
	"github.com/go-go-golems/glazed/pkg/cli"
	"github.com/spf13/cobra"

	"github.com/go-go-golems/supportchat/cmd/supportchat/cmds"
)

var rootCmd = &cobra.Command{
	Use:   "supportchat",
	Short: "supportchat is a customer support chat widget and its predictor service",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// reinitialize the logger because we can now parse --log-level and co
		// from the command line flag
		err := clay.InitLogger()
		cobra.CheckErr(err)
	},
}

func main() {
	err := clay.InitViper("supportchat", rootCmd)
	cobra.CheckErr(err)
	err = clay.InitLogger()
	cobra.CheckErr(err)

	rootCmd.AddCommand(cmds.NewChatCommand())

	serveCmd, err := cmds.NewServeCommand()
	cobra.CheckErr(err)
	cobraServeCmd, err := cli.BuildCobraCommand(serveCmd)
	cobra.CheckErr(err)
	rootCmd.AddCommand(cobraServeCmd)

	ticketsCmd, err := cmds.NewTicketsCommand()
	cobra.CheckErr(err)
	rootCmd.AddCommand(ticketsCmd)

	cobra.CheckErr(rootCmd.ExecuteContext(context.Background()))
}
