package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// buildDeviceCmd lets the operator point this envoy installation at a
// device already paired with `engine device add`, persisting the triple
// to the local config file so `envoy chat` doesn't need the flags every
// call.
func buildDeviceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "device",
		Short: "Configure this envoy installation's paired device",
	}
	cmd.AddCommand(buildDeviceSetCmd())
	return cmd
}

func buildDeviceSetCmd() *cobra.Command {
	var (
		configPath string
		serverURL  string
		deviceID   int64
		deviceKey  string
	)

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Save the server URL and device credentials used by future chat calls",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := configPath
			if path == "" {
				path = defaultConfigPath()
			}
			cfg, err := loadEnvoyConfig(path)
			if err != nil {
				return err
			}
			if serverURL != "" {
				cfg.ServerURL = serverURL
			}
			if deviceID != 0 {
				cfg.DeviceID = deviceID
			}
			if deviceKey != "" {
				cfg.DeviceKey = deviceKey
			}
			if err := saveEnvoyConfig(path, cfg); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "saved config to %s\n", path)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to envoy's config file (default ~/.config/artificer/envoy.yaml)")
	cmd.Flags().StringVar(&serverURL, "server", "", "Base URL of the Artificer engine")
	cmd.Flags().Int64Var(&deviceID, "device-id", 0, "device_id returned by 'engine device add'")
	cmd.Flags().StringVar(&deviceKey, "device-key", "", "device_key returned by 'engine device add'")
	return cmd
}
