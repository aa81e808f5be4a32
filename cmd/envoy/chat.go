package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/artificer-ai/artificer/internal/models"
)

type chatRequestBody struct {
	DeviceID       int64  `json:"device_id"`
	DeviceKey      string `json:"device_key"`
	ConversationID int64  `json:"conversation_id,omitempty"`
	Message        string `json:"message"`
	RequestID      string `json:"request_id,omitempty"`
}

// buildChatCmd posts a single message to the engine's /chat entry point and
// renders the SSE progress feed to the terminal until a done or error event
// closes the stream. TTY rendering stays line-oriented rather than a full
// redraw loop.
func buildChatCmd() *cobra.Command {
	var (
		configPath     string
		serverURL      string
		deviceID       int64
		deviceKey      string
		conversationID int64
	)

	cmd := &cobra.Command{
		Use:   "chat <message>",
		Short: "Send a message to the Artificer engine and stream its response",
		Args:  cobra.ExactArgs(1),
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
			if cfg.DeviceKey == "" {
				return fmt.Errorf("no device key configured; run 'envoy device set --device-id <id> --device-key <key>' first")
			}

			return runChat(cmd, cfg, conversationID, args[0])
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to envoy's config file")
	cmd.Flags().StringVar(&serverURL, "server", "", "Base URL of the Artificer engine (overrides config)")
	cmd.Flags().Int64Var(&deviceID, "device-id", 0, "device_id (overrides config)")
	cmd.Flags().StringVar(&deviceKey, "device-key", "", "device_key (overrides config)")
	cmd.Flags().Int64Var(&conversationID, "conversation", 0, "Existing conversation_id to continue, 0 to start a new one")

	return cmd
}

func runChat(cmd *cobra.Command, cfg *envoyConfig, conversationID int64, message string) error {
	body := chatRequestBody{
		DeviceID:       cfg.DeviceID,
		DeviceKey:      cfg.DeviceKey,
		ConversationID: conversationID,
		Message:        message,
		RequestID:      uuid.NewString(),
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("envoy chat: %w", err)
	}

	url := strings.TrimRight(cfg.ServerURL, "/") + "/chat"
	req, err := http.NewRequestWithContext(cmd.Context(), http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("envoy chat: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")

	client := &http.Client{Timeout: 10 * time.Minute}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("envoy chat: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var buf bytes.Buffer
		_, _ = buf.ReadFrom(resp.Body)
		return fmt.Errorf("envoy chat: server returned %s: %s", resp.Status, buf.String())
	}

	out := cmd.OutOrStdout()
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Text()
		data, ok := strings.CutPrefix(line, "data: ")
		if !ok {
			continue
		}

		var event models.ChatEvent
		if err := json.Unmarshal([]byte(data), &event); err != nil {
			fmt.Fprintf(out, "[envoy] malformed event: %v\n", err)
			continue
		}

		switch event.Type {
		case models.EventTaskSwitch:
			fmt.Fprintf(out, "\n[switched to %s]\n", event.Task)
		case models.EventToolCall:
			fmt.Fprintf(out, "[calling %s]\n", event.ToolName)
		case models.EventToolResult:
			marker := ""
			if event.Truncated {
				marker = " (truncated)"
			}
			fmt.Fprintf(out, "[%s result%s] %s\n", event.ToolName, marker, event.Content)
		case models.EventStreamChunk:
			fmt.Fprint(out, event.Content)
		case models.EventDone:
			fmt.Fprintln(out)
			if event.ConversationID != 0 {
				fmt.Fprintf(out, "[conversation %d]\n", event.ConversationID)
			}
			return nil
		case models.EventError:
			fmt.Fprintln(out)
			return fmt.Errorf("engine reported an error: %s", event.Message)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("envoy chat: reading stream: %w", err)
	}
	return nil
}
