package validate

import (
	"encoding/base64"
	"encoding/hex"
	"testing"

	"github.com/zeebo/blake3"

	"github.com/shardmesh/shard-node/internal/wire"
)

func TestChunkChecksum_NilOrEmptyIsValid(t *testing.T) {
	if ok, err := ChunkChecksum(nil); err != nil || !ok {
		t.Fatalf("nil chunk: ok=%v err=%v, want true/nil", ok, err)
	}
	if ok, err := ChunkChecksum(&wire.TensorChunkRef{Data: "anything"}); err != nil || !ok {
		t.Fatalf("no checksum set: ok=%v err=%v, want true/nil", ok, err)
	}
}

func TestChunkChecksum_MatchingDigest(t *testing.T) {
	data := []byte("hello tensor world")
	sum := blake3.Sum256(data)
	chunk := &wire.TensorChunkRef{
		Data:           base64.StdEncoding.EncodeToString(data),
		ChecksumBlake3: hex.EncodeToString(sum[:]),
	}
	ok, err := ChunkChecksum(chunk)
	if err != nil || !ok {
		t.Fatalf("ok=%v err=%v, want true/nil", ok, err)
	}
}

func TestChunkChecksum_MismatchedDigest(t *testing.T) {
	data := []byte("hello tensor world")
	chunk := &wire.TensorChunkRef{
		Data:           base64.StdEncoding.EncodeToString(data),
		ChecksumBlake3: hex.EncodeToString(make([]byte, 32)),
	}
	ok, err := ChunkChecksum(chunk)
	if err != nil || ok {
		t.Fatalf("ok=%v err=%v, want false/nil", ok, err)
	}
}

func TestChunkChecksum_MalformedBase64(t *testing.T) {
	chunk := &wire.TensorChunkRef{
		Data:           "not-valid-base64!!!",
		ChecksumBlake3: "deadbeef",
	}
	_, err := ChunkChecksum(chunk)
	if err != ErrMalformedChunkData {
		t.Fatalf("err = %v, want ErrMalformedChunkData", err)
	}
}
