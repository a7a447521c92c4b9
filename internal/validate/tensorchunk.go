package validate

import (
	"encoding/base64"
	"encoding/hex"
	"strings"

	"github.com/zeebo/blake3"

	"github.com/shardmesh/shard-node/internal/wire"
)

// ChunkChecksum reports whether chunk's declared checksum_blake3 matches the
// BLAKE3 digest of its base64-decoded data. A chunk with no checksum set is
// always considered valid — the field is optional on the wire.
func ChunkChecksum(chunk *wire.TensorChunkRef) (bool, error) {
	if chunk == nil || chunk.ChecksumBlake3 == "" {
		return true, nil
	}
	data, err := base64.StdEncoding.DecodeString(chunk.Data)
	if err != nil {
		return false, ErrMalformedChunkData
	}
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:]) == strings.ToLower(chunk.ChecksumBlake3), nil
}
