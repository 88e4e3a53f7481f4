package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	apiFlag   string
	loginFlag string
	rootCmd   = &cobra.Command{
		Use:   "smsctl",
		Short: "CLI client for the SMS archive REST API",
	}
)

func main() {
	rootCmd.PersistentFlags().StringVarP(&apiFlag, "api", "a", "http://localhost:8080", "Archive service base URL")
	rootCmd.PersistentFlags().StringVarP(&loginFlag, "login", "l", "", "Owner login (required)")
	_ = rootCmd.MarkPersistentFlagRequired("login")

	getCmd := &cobra.Command{
		Use:   "get",
		Short: "Fetch archived messages",
		RunE: func(cmd *cobra.Command, args []string) error {
			deviceID, _ := cmd.Flags().GetString("device")
			limit, _ := cmd.Flags().GetInt("limit")
			raw, _ := cmd.Flags().GetBool("raw")
			return runGetMessages(newClient(), deviceID, limit, raw, os.Stdout)
		},
	}
	getCmd.Flags().StringP("device", "d", "", "Restrict to one device ID")
	getCmd.Flags().IntP("limit", "n", 30, "Maximum number of messages")
	getCmd.Flags().Bool("raw", false, "Disable the owner's filter rules")
	rootCmd.AddCommand(getCmd)

	devicesCmd := &cobra.Command{
		Use:   "devices",
		Short: "List device IDs seen in the archive",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGetDevices(newClient(), os.Stdout)
		},
	}
	rootCmd.AddCommand(devicesCmd)

	exportCmd := &cobra.Command{
		Use:   "export-filters",
		Short: "Export filter rules as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExportFilters(newClient(), os.Stdout)
		},
	}
	rootCmd.AddCommand(exportCmd)

	importCmd := &cobra.Command{
		Use:   "import-filters <file>",
		Short: "Import filter rules from a JSON export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImportFilters(newClient(), args[0], os.Stdout)
		},
	}
	rootCmd.AddCommand(importCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
