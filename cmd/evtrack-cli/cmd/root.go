package cmd

import (
	"fmt"
	"os"

	"evtrack-backend/lib/configutil"
	"evtrack-backend/lib/runlog"
	"evtrack-backend/services/automation"

	"github.com/spf13/cobra"
)

type Config struct {
	Evtrack automation.Config `json:"evtrack"`
	Runlog  runlog.Config     `json:"runlog"`
}

var config Config

var rootCmd = &cobra.Command{
	Use:   "evtrack-cli",
	Short: "evtrack-cli drives EVTrack automation workflows from a terminal.",
}

func Execute() {
	var err error
	config, err = configutil.ReadRecursively[Config]("config.json5")
	if err != nil {
		fmt.Fprintln(os.Stderr, "could not find a config.json5:", err)
		os.Exit(1)
	}

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
