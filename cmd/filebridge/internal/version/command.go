package version

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/purpleshop/filebridge/cmd/filebridge/internal"
)

func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Printf("filebridge %s\n", internal.FormatVersion())
			build, goVer := internal.FormatBuildInfo()
			if build != "" {
				fmt.Printf("  built: %s\n", build)
			}
			fmt.Printf("  go: %s\n", goVer)
		},
	}
}
