// Filebridge - Discord file relay and share-link gateway

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/purpleshop/filebridge/cmd/filebridge/internal"
	"github.com/purpleshop/filebridge/cmd/filebridge/internal/gateway"
	"github.com/purpleshop/filebridge/cmd/filebridge/internal/onboard"
	"github.com/purpleshop/filebridge/cmd/filebridge/internal/version"
)

func NewFilebridgeCommand() *cobra.Command {
	short := fmt.Sprintf("%s filebridge - File relay and share-link gateway v%s\n\n", internal.Logo, internal.GetVersion())

	cmd := &cobra.Command{
		Use:     "filebridge",
		Short:   short,
		Example: "filebridge gateway",
	}

	cmd.AddCommand(
		onboard.NewOnboardCommand(),
		gateway.NewGatewayCommand(),
		version.NewVersionCommand(),
	)

	return cmd
}

func main() {
	cmd := NewFilebridgeCommand()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
