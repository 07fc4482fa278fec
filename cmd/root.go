package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/luma/lumen/cmd/gen"
	"github.com/luma/lumen/internal/meta"
)

var rootCmd = &cobra.Command{
	Use:   "lumen",
	Short: "lumen is a RESP3 client toolkit",
	Long: `lumen is a RESP3 client toolkit

It ships a pipelined client library for Redis compatible servers and a
couple of small utilities built on top of it.
`,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print build information",
	Run: func(cmd *cobra.Command, args []string) {
		info := meta.GetInfo()
		fmt.Printf("lumen %s (%s, %s, %s)\n",
			info.Version, info.Build, info.Platform, info.GoVersion)
	},
}

func init() {
	rootCmd.AddCommand(ProxyCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(gen.RootCmd)
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
