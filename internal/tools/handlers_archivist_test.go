package tools

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

type fakeMemoryReader struct {
	rows    []MemoryRow
	err     error
	gotID   int64
	gotLike string
}

func (f *fakeMemoryReader) QueryMemory(ctx context.Context, deviceID int64, keyLike string) ([]MemoryRow, error) {
	f.gotID = deviceID
	f.gotLike = keyLike
	return f.rows, f.err
}

func TestArchivistQueryMemoryDefaultsPattern(t *testing.T) {
	reader := &fakeMemoryReader{rows: []MemoryRow{{Key: "city", Value: "Boston", Kind: "fact", Confidence: 0.9}}}
	a := Archivist{Reader: reader, DeviceID: 1}

	out, err := a.QueryMemory(context.Background(), json.RawMessage(`{}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reader.gotLike != "%" {
		t.Errorf("key_like = %q, want %%", reader.gotLike)
	}
	if reader.gotID != 1 {
		t.Errorf("device id = %d, want 1", reader.gotID)
	}
	if !strings.Contains(out, "Boston") {
		t.Errorf("output %q missing expected memory", out)
	}
}

func TestArchivistQueryMemoryUsesContextDevice(t *testing.T) {
	reader := &fakeMemoryReader{}
	a := Archivist{Reader: reader, DeviceID: 1}

	ctx := WithDevice(context.Background(), 42, "other-key")
	args, _ := json.Marshal(queryMemoryArgs{KeyLike: "loc_%"})
	if _, err := a.QueryMemory(ctx, args); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reader.gotID != 42 {
		t.Errorf("device id = %d, want 42 from context", reader.gotID)
	}
	if reader.gotLike != "loc_%" {
		t.Errorf("key_like = %q, want loc_%%", reader.gotLike)
	}
}

func TestArchivistQueryMemoryPropagatesReaderError(t *testing.T) {
	reader := &fakeMemoryReader{err: errors.New("db unavailable")}
	a := Archivist{Reader: reader}

	if _, err := a.QueryMemory(context.Background(), json.RawMessage(`{}`)); err == nil {
		t.Fatal("expected an error when the reader fails")
	}
}

func TestArchivistQueryMemoryRejectsMalformedArgs(t *testing.T) {
	a := Archivist{Reader: &fakeMemoryReader{}}
	if _, err := a.QueryMemory(context.Background(), json.RawMessage(`not json`)); err == nil {
		t.Fatal("expected an error for malformed args")
	}
}
