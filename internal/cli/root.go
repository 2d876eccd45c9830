package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const toolName = "servicer-feed"

var (
	version = "dev"
	rootCmd = &cobra.Command{
		Use:   toolName,
		Short: "Ingests servicer feed files from FTPS into raw landing tables",
	}
)

func Execute() {
	rootCmd.Version = version
	rootCmd.Flags().BoolP("help", "h", false, fmt.Sprintf("Help for %s", toolName))
	rootCmd.Flags().BoolP("version", "v", false, fmt.Sprintf("Version for %s", toolName))
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func bindFlagAndEnvVar(cmd *cobra.Command, flagName string, defaultValue interface{}, usageText, envKey string) {
	switch val := defaultValue.(type) {
	case string:
		cmd.Flags().String(flagName, val, usageText)
	case int:
		cmd.Flags().Int(flagName, val, usageText)
	case bool:
		cmd.Flags().Bool(flagName, val, usageText)
	}
	viper.BindPFlag(flagName, cmd.Flag(flagName))
	if envKey != "" {
		viper.BindEnv(flagName, envKey)
	}
}
