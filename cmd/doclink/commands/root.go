package commands

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "doclink",
	Short: "Batch hyperlink maintenance for word-processing documents",
	Long: `doclink processes .docx documents in bulk: it resolves every hyperlink
against the authoritative lookup service, rewrites stale URLs and display
text, applies configured text replacements, and cleans up formatting, all
under a backup/validate/rollback safety envelope.`,
	SilenceUsage:  true,
	SilenceErrors: false,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initViper)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.config/doclink/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error, off)")
	rootCmd.PersistentFlags().String("api-base-url", "", "resolver endpoint (empty runs in simulation mode)")

	viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("api.base_url", rootCmd.PersistentFlags().Lookup("api-base-url"))
}

func initViper() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}
	viper.SetEnvPrefix("DOCLINK")
	viper.AutomaticEnv()
	viper.ReadInConfig()
}
