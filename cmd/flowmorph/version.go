package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// version is set at build time via ldflags:
//
//	go build -ldflags "-X main.version=v1.0.0" ./cmd/flowmorph/
var version = "dev"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the flowmorph version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version)
	},
}
