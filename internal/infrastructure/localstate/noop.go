package localstate

import "context"

// NoopSlot stands in when Redis is unreachable at startup. Auto-rejoin
// is effectively disabled; everything else works normally.
type NoopSlot struct{}

func (NoopSlot) Load(ctx context.Context) (string, error)        { return "", nil }
func (NoopSlot) Store(ctx context.Context, roomID string) error  { return nil }
func (NoopSlot) Clear(ctx context.Context) error                 { return nil }
