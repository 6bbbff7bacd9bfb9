// Command lbk manages the local mirror of the game translation catalog.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Version is set via ldflags during build
var Version = "dev"

var (
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   "lbk",
		Short: "Local catalog mirror for game translations",
		Long: `lbk keeps a local, searchable mirror of the translation catalog.
It syncs the approved catalog into an embedded database, applies live
updates pushed by the catalog service, and answers queries offline.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: XDG config dir)")
	rootCmd.PersistentFlags().String("db", "", "catalog database file (default: XDG data dir)")
	rootCmd.PersistentFlags().String("api-url", "", "catalog API base URL")
	rootCmd.PersistentFlags().String("realtime-url", "", "catalog realtime WebSocket URL")

	_ = viper.BindPFlag("db", rootCmd.PersistentFlags().Lookup("db"))
	_ = viper.BindPFlag("api_url", rootCmd.PersistentFlags().Lookup("api-url"))
	_ = viper.BindPFlag("realtime_url", rootCmd.PersistentFlags().Lookup("realtime-url"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(filepath.Join(xdg.ConfigHome, "lbk"))
		viper.AddConfigPath(".")
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("LBK")
	viper.AutomaticEnv()

	// Missing config file is fine; flags and env cover everything.
	_ = viper.ReadInConfig()
}

// dbPath resolves the database location: flag/env/config first, then the
// XDG data directory.
func dbPath() string {
	if path := viper.GetString("db"); path != "" {
		return path
	}
	return filepath.Join(xdg.DataHome, "lbk", "catalog.db")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
