package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/extrun/extrun/internal/version"
)

// CreateVersionCmd creates the version command.
func CreateVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version and build information",
		Run: func(_ *cobra.Command, _ []string) {
			info := version.Get()
			fmt.Printf("extrun %s (%s, built %s, %s)\n",
				info.Version, info.GitCommit, info.BuildDate, info.Platform)
		},
	}
}
