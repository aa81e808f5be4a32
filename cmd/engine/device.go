package main

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/artificer-ai/artificer/internal/store"
)

// buildDeviceCmd creates the "device" command group, used to pair an envoy
// client before its first chat request: the engine authenticates every
// chat and remote-tool-execute call by comparing (device_id, device_key).
func buildDeviceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "device",
		Short: "Manage paired envoy devices",
	}
	cmd.AddCommand(buildDeviceAddCmd())
	return cmd
}

func buildDeviceAddCmd() *cobra.Command {
	var (
		configPath string
		dbPath     string
	)

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Register a new device and print its device_key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			path := dbPath
			if path == "" {
				path = cfg.Database.Path
			}
			st, err := store.Open(path)
			if err != nil {
				return fmt.Errorf("device add: %w", err)
			}
			defer st.Close()

			key, err := randomDeviceKey()
			if err != nil {
				return fmt.Errorf("device add: generate key: %w", err)
			}
			d, err := st.CreateDevice(cmd.Context(), args[0], key)
			if err != nil {
				return fmt.Errorf("device add: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "device_id=%d device_key=%s\n", d.ID, d.DeviceKey)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to YAML configuration file")
	cmd.Flags().StringVarP(&dbPath, "database", "d", "", "Path to the sqlite database file (overrides config)")
	return cmd
}

func randomDeviceKey() (string, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
