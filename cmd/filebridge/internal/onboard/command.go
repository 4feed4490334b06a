package onboard

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/purpleshop/filebridge/cmd/filebridge/internal"
	"github.com/purpleshop/filebridge/pkg/config"
)

func NewOnboardCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "onboard",
		Short: "Write a starter config file",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return onboardCmd(force)
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing config file")

	return cmd
}

func onboardCmd(force bool) error {
	path := internal.GetConfigPath()

	if _, err := os.Stat(path); err == nil && !force {
		fmt.Printf("Config already exists at %s (use --force to overwrite)\n", path)
		return nil
	}

	if err := config.SaveConfig(path, config.DefaultConfig()); err != nil {
		return fmt.Errorf("error writing config: %w", err)
	}

	fmt.Printf("✓ Config written to %s\n", path)
	fmt.Println("\nNext steps:")
	fmt.Println("  1. Set DISCORD_TOKEN in your environment (or discord.token in the config)")
	fmt.Println("  2. Fill in discord.guild_id and discord.storage_channel_id")
	fmt.Println("  3. Run: filebridge gateway")

	return nil
}
