package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/moss"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of moss",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("moss version %s\n", strings.TrimSpace(moss.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
