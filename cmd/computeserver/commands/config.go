package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/SyntheticEdelweiss/ClientServerExample/pkg/config"
)

var configForce bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage server configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a default configuration file",
	Long: `Write a commented default configuration file.

Without --config the file is created at the default location
($XDG_CONFIG_HOME/computeserver/config.yaml). An existing file is left
untouched unless --force is given.`,
	RunE: runConfigInit,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Long: `Print the configuration the server would start with, after applying
defaults, as YAML.`,
	RunE: runConfigShow,
}

func init() {
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "overwrite an existing config file")

	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := GetConfigFile()

	if path != "" {
		if err := config.InitConfigToPath(path, configForce); err != nil {
			return err
		}
	} else {
		created, err := config.InitConfig(configForce)
		if err != nil {
			return err
		}
		path = created
	}

	fmt.Printf("Configuration written to %s\n", path)
	fmt.Println()
	fmt.Println("Next steps:")
	fmt.Println("  1. Add a user:      computeserver user add <username>")
	fmt.Println("  2. Start the server: computeserver start")
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(GetConfigFile())
	if err != nil {
		return err
	}

	out, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to render config: %w", err)
	}

	fmt.Printf("# source: %s\n", getConfigSource(GetConfigFile()))
	fmt.Print(string(out))
	return nil
}
