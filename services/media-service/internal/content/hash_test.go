package content

import (
	"bytes"
	"strings"
	"testing"
)

func TestHashDeterministic(t *testing.T) {
	a, n, err := Hash(strings.NewReader("gallery bytes"))
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if n != int64(len("gallery bytes")) {
		t.Fatalf("read %d bytes, want %d", n, len("gallery bytes"))
	}
	b, _, err := Hash(strings.NewReader("gallery bytes"))
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if a != b {
		t.Fatalf("same bytes hashed to %s and %s", a, b)
	}
	if len(a) != HashSize*2 {
		t.Fatalf("digest length %d, want %d hex chars", len(a), HashSize*2)
	}
}

func TestHashBytesMatchesStream(t *testing.T) {
	data := bytes.Repeat([]byte("x"), 4096)
	streamed, _, err := Hash(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if got := HashBytes(data); got != streamed {
		t.Fatalf("HashBytes = %s, stream = %s", got, streamed)
	}
}

func TestObjectKey(t *testing.T) {
	key := ObjectKey("ord-1", "abc123", "IMG_0042.JPG")
	if key != "orders/ord-1/abc123.jpg" {
		t.Fatalf("ObjectKey = %q", key)
	}
	if key := ObjectKey("ord-1", "abc123", "noext"); key != "orders/ord-1/abc123" {
		t.Fatalf("ObjectKey without extension = %q", key)
	}
}
