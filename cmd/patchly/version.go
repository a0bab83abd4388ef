package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hutomosaktikartiko/patchly/pkg/patchly"
)

var versionCommand = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Args:  cobra.NoArgs,
	RunE: func(*cobra.Command, []string) error {
		fmt.Println(patchly.Version)
		return nil
	},
}
