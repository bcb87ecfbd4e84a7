package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pratik-mahalle/ratewatch/pkg/client"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile      string
	outputFormat string
	serverURL    string
	apiClient    *client.Client
)

var rootCmd = &cobra.Command{
	Use:   "ratewatch",
	Short: "RateWatch CLI - adaptive rate-limit monitoring for social platforms",
	Long: `RateWatch CLI provides command-line access to the RateWatch engine
for inspecting platform activity levels, rate-limit usage, compliance results,
alerts and the monitoring job queue, and for operator actions such as
triggering checks, reporting spam flags and resuming stopped platforms.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Config commands work without a server
		if cmd.Name() == "config" || (cmd.Parent() != nil && cmd.Parent().Name() == "config") {
			return nil
		}
		return initClient()
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default $HOME/.ratewatch/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "table", "output format: table, json, yaml")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "server URL (overrides config)")

	_ = viper.BindPFlag("output", rootCmd.PersistentFlags().Lookup("output"))
	_ = viper.BindPFlag("server_url", rootCmd.PersistentFlags().Lookup("server"))

	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newStatusCmd())
	rootCmd.AddCommand(newPlatformCmd())
	rootCmd.AddCommand(newScheduleCmd())
	rootCmd.AddCommand(newAlertCmd())
	rootCmd.AddCommand(newComplianceCmd())
	rootCmd.AddCommand(newJobCmd())
}

func configDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".ratewatch"), nil
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		dir, err := configDir()
		if err != nil {
			fmt.Fprintln(os.Stderr, "Error:", err)
			return
		}
		_ = os.MkdirAll(dir, 0700)
		viper.AddConfigPath(dir)
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("RATEWATCH")
	viper.AutomaticEnv()

	viper.SetDefault("server_url", "http://localhost:8080")
	viper.SetDefault("output", "table")

	_ = viper.ReadInConfig()
}

func initClient() error {
	url := viper.GetString("server_url")
	if serverURL != "" {
		url = serverURL
	}

	apiClient = client.NewClient(client.Config{
		BaseURL: url,
		APIKey:  viper.GetString("api_key"),
	})
	return nil
}

func getOutputFormat() string {
	if outputFormat != "" && outputFormat != "table" {
		return outputFormat
	}
	return viper.GetString("output")
}
