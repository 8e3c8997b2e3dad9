package jsoncodec

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

type snapshot struct {
	Channel   string        `json:"channel"`
	Consumers []string      `json:"consumers,omitempty"`
	Latency   time.Duration `json:"latency_ns"`
}

func TestRoundTrip(t *testing.T) {
	in := snapshot{Channel: "orders", Consumers: []string{"billing", "audit"}, Latency: 3 * time.Millisecond}

	data, err := Marshal(in)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if want := `{"channel":"orders","consumers":["billing","audit"],"latency_ns":3000000}`; string(data) != want {
		t.Fatalf("got %s, want %s", data, want)
	}

	var out snapshot
	if err := Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out.Channel != in.Channel || out.Latency != in.Latency || len(out.Consumers) != 2 {
		t.Fatalf("round trip mismatch: %#v", out)
	}
}

func TestMarshalIndent(t *testing.T) {
	data, err := MarshalIndent(snapshot{Channel: "orders"}, "", "  ")
	if err != nil {
		t.Fatalf("marshal indent: %v", err)
	}
	if !strings.Contains(string(data), "\n  \"channel\": \"orders\"") {
		t.Fatalf("expected indented output, got %s", data)
	}
}

func TestEncodeTerminatesWithNewline(t *testing.T) {
	var buf bytes.Buffer
	if err := Encode(&buf, snapshot{Channel: "refunds"}); err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !strings.HasSuffix(buf.String(), "}\n") {
		t.Fatalf("expected trailing newline, got %q", buf.String())
	}

	var out snapshot
	if err := Decode(&buf, &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Channel != "refunds" {
		t.Fatalf("unexpected channel %q", out.Channel)
	}
}

func TestDecodeRejectsMalformedInput(t *testing.T) {
	var out snapshot
	if err := Decode(strings.NewReader(`{"channel":`), &out); err == nil {
		t.Fatal("expected error for truncated input")
	}
	if err := Unmarshal([]byte(`{"latency_ns":"fast"}`), &out); err == nil {
		t.Fatal("expected error for mistyped field")
	}
}
