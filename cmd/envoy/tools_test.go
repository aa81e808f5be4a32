package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/artificer-ai/artificer/internal/tools"
)

func newToolServer(t *testing.T) (*toolServer, string) {
	t.Helper()
	root := t.TempDir()
	return &toolServer{
		deviceID:  7,
		deviceKey: "secret",
		fs:        tools.FileSmith{Root: root},
	}, root
}

func postExecute(t *testing.T, handler http.Handler, req toolExecuteRequest) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/tools/execute", bytes.NewReader(body)))
	return rec
}

func TestServeToolsRejectsMismatchedCredentials(t *testing.T) {
	srv, _ := newToolServer(t)
	rec := postExecute(t, srv.handler(), toolExecuteRequest{
		DeviceID: 7, DeviceKey: "wrong", ToolName: tools.ToolFileSmithReadFile,
	})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestServeToolsUnknownToolIs404(t *testing.T) {
	srv, _ := newToolServer(t)
	rec := postExecute(t, srv.handler(), toolExecuteRequest{
		DeviceID: 7, DeviceKey: "secret", ToolName: "no_such_tool",
	})
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestServeToolsReadFileRoundTrip(t *testing.T) {
	srv, root := newToolServer(t)
	if err := os.WriteFile(filepath.Join(root, "a.txt"), []byte("contents"), 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	args, _ := json.Marshal(map[string]string{"path": "a.txt"})
	rec := postExecute(t, srv.handler(), toolExecuteRequest{
		DeviceID: 7, DeviceKey: "secret", ToolName: tools.ToolFileSmithReadFile, Arguments: args,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body: %s)", rec.Code, rec.Body.String())
	}
	var resp toolExecuteResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Result != "contents" {
		t.Errorf("result = %q, want the file contents", resp.Result)
	}
}

func TestServeToolsHandlerErrorIsResultText(t *testing.T) {
	srv, _ := newToolServer(t)
	args, _ := json.Marshal(map[string]string{"path": "missing.txt"})
	rec := postExecute(t, srv.handler(), toolExecuteRequest{
		DeviceID: 7, DeviceKey: "secret", ToolName: tools.ToolFileSmithReadFile, Arguments: args,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp toolExecuteResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Result) < 6 || resp.Result[:6] != "Error:" {
		t.Errorf("result = %q, want an Error: prefix for a failed tool", resp.Result)
	}
}
