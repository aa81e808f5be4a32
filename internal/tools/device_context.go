package tools

import "context"

// deviceContext carries the calling device's identity through a single
// tool dispatch, since the Catalog and Executor are process-wide and
// cannot bake a single device's id/key into a tool's registration.
type deviceContext struct {
	id  int64
	key string
}

type deviceContextKey struct{}

// WithDevice attaches the calling device's id and key to ctx, read back by
// handlers (Archivist::query_memory) and by Executor.runRemote to address
// the right envoy device.
func WithDevice(ctx context.Context, deviceID int64, deviceKey string) context.Context {
	return context.WithValue(ctx, deviceContextKey{}, deviceContext{id: deviceID, key: deviceKey})
}

func deviceFromContext(ctx context.Context) (deviceContext, bool) {
	dc, ok := ctx.Value(deviceContextKey{}).(deviceContext)
	return dc, ok
}
