package main

import (
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	envFile string
)

var rootCmd = &cobra.Command{
	Use:   "sigrelay",
	Short: "Socket.IO signaling relay with rooms",
	Long: `sigrelay lets peers find each other through named rooms and relays
opaque messages between them, to single sessions, to rooms or to everyone.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "YAML config file")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded into the environment if present")

	rootCmd.AddCommand(serveCmd, versionCmd)
}
