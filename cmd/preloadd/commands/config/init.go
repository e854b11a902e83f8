package config

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/localix/preloadd/internal/cli/prompt"
	"github.com/localix/preloadd/pkg/config"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a sample configuration file",
	Long: `Create a sample configuration file with a freshly generated API secret.

Examples:
  # Create at the default location
  preloadd config init

  # Create at a custom location
  preloadd config init --config /etc/preloadd/config.yaml

  # Overwrite an existing file without asking
  preloadd config init --force`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "Overwrite an existing file without asking")
}

func runInit(cmd *cobra.Command, args []string) error {
	path := configPath(cmd)
	if path == "" {
		path = config.GetDefaultConfigPath()
	}

	force := initForce
	if _, err := os.Stat(path); err == nil && !force {
		ok, err := prompt.ConfirmWithForce(fmt.Sprintf("Overwrite %s?", path), false)
		if err != nil {
			if prompt.IsAborted(err) {
				fmt.Println("\nAborted.")
				return nil
			}
			return err
		}
		if !ok {
			fmt.Println("Aborted.")
			return nil
		}
		force = true
	}

	if err := config.InitConfigToPath(path, force); err != nil {
		return fmt.Errorf("failed to initialize config: %w", err)
	}

	fmt.Printf("Configuration file created at: %s\n", path)
	fmt.Println("\nNext steps:")
	fmt.Println("  1. Set backend.http.base_url (or switch the backend) and list your resources")
	fmt.Println("  2. Start the daemon with: preloadd start")
	fmt.Printf("  3. Or specify the config explicitly: preloadd start --config %s\n", path)
	return nil
}
