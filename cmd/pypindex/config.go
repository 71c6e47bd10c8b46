package main

import (
	"github.com/spf13/cobra"

	"github.com/pypindex/pypindex/config"
)

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	configFile, _ := cmd.Flags().GetString("config")

	var files []string
	if configFile != "" {
		files = []string{configFile}
	}

	return config.Load(files, cmd.Flags())
}
