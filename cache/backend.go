package cache

import (
	"context"

	"github.com/vmihailenco/msgpack/v5"
)

// Backend is the shared key-value store cache entries live in. It has no transactions and is
// best effort: it may drop entries at any time and may fail, both of which callers treat as a miss.
type Backend interface {
	Set(ctx context.Context, key string, value []byte) error
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Delete(ctx context.Context, key string) error
	DeleteByPrefix(ctx context.Context, prefix string) error
}

// Codec encodes cache values for the backend.
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

type msgpackCodec struct{}

// MsgpackCodec is the default Codec.
func MsgpackCodec() Codec { return msgpackCodec{} }

func (msgpackCodec) Marshal(v any) ([]byte, error)      { return msgpack.Marshal(v) }
func (msgpackCodec) Unmarshal(data []byte, v any) error { return msgpack.Unmarshal(data, v) }
