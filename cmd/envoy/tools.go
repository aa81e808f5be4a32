package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/artificer-ai/artificer/internal/tools"
)

// toolExecuteRequest is the wire body the engine's remote executor POSTs
// to this device's /tools/execute endpoint.
type toolExecuteRequest struct {
	DeviceID  int64           `json:"device_id"`
	DeviceKey string          `json:"device_key"`
	ToolName  string          `json:"tool_name"`
	Arguments json.RawMessage `json:"arguments"`
}

type toolExecuteResponse struct {
	Result string `json:"result"`
}

// toolServer executes Client-location tools on this device. Requests are
// authenticated by comparing the caller's (device_id, device_key) to the
// credentials this envoy was paired with; a mismatch is a 401.
type toolServer struct {
	deviceID  int64
	deviceKey string
	fs        tools.FileSmith
}

func (s *toolServer) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/tools/execute", s.handleExecute)
	return mux
}

func (s *toolServer) handleExecute(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req toolExecuteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.DeviceID != s.deviceID || req.DeviceKey != s.deviceKey {
		http.Error(w, "device credentials do not match", http.StatusUnauthorized)
		return
	}

	var (
		result string
		err    error
	)
	switch req.ToolName {
	case tools.ToolFileSmithReadFile:
		result, err = s.fs.ReadFile(r.Context(), req.Arguments)
	case tools.ToolFileSmithWriteFile:
		result, err = s.fs.WriteFile(r.Context(), req.Arguments)
	case tools.ToolFileSmithListDirectory:
		result, err = s.fs.ListDirectory(r.Context(), req.Arguments)
	default:
		http.Error(w, fmt.Sprintf("unknown tool: %s", req.ToolName), http.StatusNotFound)
		return
	}
	if err != nil {
		// Same contract as the engine's local executor: tool failures are
		// result text the model can read, not transport errors.
		result = "Error: " + err.Error()
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(toolExecuteResponse{Result: result})
}

// buildServeToolsCmd serves this device's client-side tools to the engine:
// the engine's executor dispatches Client-location tool calls (FileSmith)
// to <this device>/tools/execute while a chat turn runs.
func buildServeToolsCmd() *cobra.Command {
	var (
		configPath string
		listen     string
		root       string
		deviceID   int64
		deviceKey  string
	)

	cmd := &cobra.Command{
		Use:   "serve-tools",
		Short: "Serve this device's client-side tools to the engine",
		Long: `Listen for the engine's remote tool-execution calls and run them on this
device. The engine POSTs {device_id, device_key, tool_name, arguments} to
/tools/execute; requests whose credentials don't match this envoy's paired
device are rejected with 401. File access is sandboxed under --root.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := configPath
			if path == "" {
				path = defaultConfigPath()
			}
			cfg, err := loadEnvoyConfig(path)
			if err != nil {
				return err
			}
			if deviceID != 0 {
				cfg.DeviceID = deviceID
			}
			if deviceKey != "" {
				cfg.DeviceKey = deviceKey
			}
			if cfg.DeviceKey == "" {
				return fmt.Errorf("no device key configured; run 'envoy device set' first")
			}

			srv := &toolServer{
				deviceID:  cfg.DeviceID,
				deviceKey: cfg.DeviceKey,
				fs:        tools.FileSmith{Root: root},
			}
			server := &http.Server{
				Addr:              listen,
				Handler:           srv.handler(),
				ReadHeaderTimeout: 5 * time.Second,
			}
			fmt.Fprintf(cmd.OutOrStdout(), "serving tools on %s (root %s)\n", listen, root)
			return server.ListenAndServe()
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to envoy's config file")
	cmd.Flags().StringVar(&listen, "listen", "127.0.0.1:8081", "Address to listen on")
	cmd.Flags().StringVar(&root, "root", ".", "Directory FileSmith access is sandboxed under")
	cmd.Flags().Int64Var(&deviceID, "device-id", 0, "device_id (overrides config)")
	cmd.Flags().StringVar(&deviceKey, "device-key", "", "device_key (overrides config)")

	return cmd
}
