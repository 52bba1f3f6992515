package iocache

import (
	"encoding/json"
	"fmt"

	"github.com/huangsam/codetime/schema"
	"github.com/klauspost/compress/zstd"
)

// Shared codecs. EncodeAll and DecodeAll are safe for concurrent use.
var (
	payloadEncoder, _ = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	payloadDecoder, _ = zstd.NewReader(nil)
)

// encodeEntry serializes a whole entry into one compressed payload, so a
// store write replaces status, error and result in a single value.
func encodeEntry(entry *schema.CacheEntry) ([]byte, error) {
	data, err := json.Marshal(entry)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal cache entry: %w", err)
	}
	return payloadEncoder.EncodeAll(data, make([]byte, 0, len(data)/4)), nil
}

// decodeEntry reverses encodeEntry.
func decodeEntry(payload []byte) (*schema.CacheEntry, error) {
	data, err := payloadDecoder.DecodeAll(payload, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress cache entry: %w", err)
	}
	var entry schema.CacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cache entry: %w", err)
	}
	return &entry, nil
}
