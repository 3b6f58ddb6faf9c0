package cmd

import (
	"log"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"salaryestimator/config"
)

const (
	app = "salary-estimator"
)

var (
	// Used for flags.
	cfgFile string
	envFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "salary-estimator predicts a yearly salary from a job profile",
		// Usage on runtime errors hides the actual message.
		SilenceUsage: true,
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is salary-estimator.yaml in current directory)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "a dotenv file loaded before the environment is read")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")
	rootCmd.PersistentFlags().StringP("artifacts", "a", "", "directory holding manifest.yaml and the exported model artifacts")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	viper.BindPFlag("artifacts", rootCmd.PersistentFlags().Lookup("artifacts"))
}

func initConfig() {
	// version and options need no config.
	if versionCmd.CalledAs() != "" || optionsCmd.CalledAs() != "" {
		return
	}

	// We can't proceed if the config file parsed with error.
	if err := config.Read(viper.GetViper(), cfgFile, envFile); err != nil {
		log.Fatal(err)
	}
}

func getConfig() (*config.Config, error) {
	return config.Get(viper.GetViper())
}
