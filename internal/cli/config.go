package cli

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage CLI configuration",
	}

	cmd.AddCommand(newConfigInitCmd())
	cmd.AddCommand(newConfigSetCmd())
	cmd.AddCommand(newConfigGetCmd())
	cmd.AddCommand(newConfigListCmd())

	return cmd
}

func promptInput(prompt string) string {
	fmt.Print(prompt)
	reader := bufio.NewReader(os.Stdin)
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func newConfigInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Interactive first-time setup",
		RunE: func(cmd *cobra.Command, args []string) error {
			url := promptInput("Enter server URL [http://localhost:8080]: ")
			if url == "" {
				url = "http://localhost:8080"
			}

			format := promptInput("Default output format (table/json/yaml) [table]: ")
			if format == "" {
				format = "table"
			}

			viper.Set("server_url", url)
			viper.Set("output", format)

			path, err := writeConfig()
			if err != nil {
				return err
			}

			fmt.Printf("Configuration saved to %s\n", path)
			return nil
		},
	}
}

func newConfigSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			viper.Set(args[0], args[1])
			if _, err := writeConfig(); err != nil {
				return err
			}
			fmt.Printf("Set %s = %s\n", args[0], args[1])
			return nil
		},
	}
}

func newConfigGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Get a configuration value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			val := viper.Get(args[0])
			if val == nil {
				fmt.Printf("%s: (not set)\n", args[0])
			} else {
				fmt.Printf("%s: %v\n", args[0], val)
			}
			return nil
		},
	}
}

func newConfigListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Show all configuration values",
		RunE: func(cmd *cobra.Command, args []string) error {
			settings := viper.AllSettings()
			keys := make([]string, 0, len(settings))
			for k := range settings {
				keys = append(keys, k)
			}
			sort.Strings(keys)

			for _, key := range keys {
				if key == "api_key" {
					fmt.Printf("%s: (set)\n", key)
					continue
				}
				fmt.Printf("%s: %v\n", key, settings[key])
			}
			return nil
		},
	}
}

func writeConfig() (string, error) {
	dir, err := configDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	path := filepath.Join(dir, "config.yaml")
	if err := viper.WriteConfigAs(path); err != nil {
		return "", fmt.Errorf("failed to write config: %w", err)
	}
	return path, nil
}
