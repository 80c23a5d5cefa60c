package reference

import (
	"errors"
	"strings"
	"testing"

	"github.com/shopdeck/shopdeck-backend/pkg/config"
)

func testCodec(t *testing.T) *Codec {
	t.Helper()
	codec, err := NewCodec(config.ReferenceConfig{
		Prefix:        "SHD",
		Version:       "V1",
		SigningSecret: "test-signing-secret",
	})
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}
	return codec
}

func TestRoundTrip(t *testing.T) {
	codec := testCodec(t)
	for i := 0; i < 50; i++ {
		token := codec.NewToken()
		ref := codec.Generate(token)
		if !strings.HasPrefix(ref, "SHD-") {
			t.Fatalf("reference missing prefix: %q", ref)
		}
		got, err := codec.Decode(ref)
		if err != nil {
			t.Fatalf("Decode(%q): %v", ref, err)
		}
		if got != token {
			t.Fatalf("round trip mismatch: got %q want %q", got, token)
		}
	}
}

func TestTamperedSignatureRejected(t *testing.T) {
	codec := testCodec(t)
	ref := codec.Generate(codec.NewToken())

	// flip every character of the signature segment in turn
	idx := strings.LastIndex(ref, "-") + 1
	for i := idx; i < len(ref); i++ {
		flipped := []byte(ref)
		if flipped[i] == 'a' {
			flipped[i] = 'b'
		} else {
			flipped[i] = 'a'
		}
		_, err := codec.Decode(string(flipped))
		var decodeErr *DecodeError
		if !errors.As(err, &decodeErr) {
			t.Fatalf("expected DecodeError for %q, got %v", flipped, err)
		}
		if decodeErr.Reason != ReasonBadSignature {
			t.Fatalf("expected bad_signature, got %s", decodeErr.Reason)
		}
	}
}

func TestDecodeRejectsMalformedInput(t *testing.T) {
	codec := testCodec(t)
	valid := codec.Generate("AB12XY7Q9")
	parts := strings.Split(valid, "-")

	cases := []struct {
		name   string
		input  string
		reason DecodeReason
	}{
		{"empty", "", ReasonBadFormat},
		{"too few segments", "SHD-TOKEN-V1", ReasonBadFormat},
		{"too many segments", valid + "-extra", ReasonBadFormat},
		{"wrong prefix", "XYZ-" + strings.Join(parts[1:], "-"), ReasonBadPrefix},
		{"wrong version", parts[0] + "-" + parts[1] + "-V9-" + parts[3], ReasonBadVersion},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := codec.Decode(tc.input)
			var decodeErr *DecodeError
			if !errors.As(err, &decodeErr) {
				t.Fatalf("expected DecodeError, got %v", err)
			}
			if decodeErr.Reason != tc.reason {
				t.Fatalf("expected %s, got %s", tc.reason, decodeErr.Reason)
			}
		})
	}
}

func TestDecodeIsCaseInsensitiveOnPrefixAndVersion(t *testing.T) {
	codec := testCodec(t)
	token := codec.NewToken()
	ref := codec.Generate(token)
	lowered := strings.ToLower(ref)
	got, err := codec.Decode(lowered)
	if err != nil {
		t.Fatalf("Decode lowered: %v", err)
	}
	if got != token {
		t.Fatalf("token mismatch: got %q want %q", got, token)
	}
}

func TestGenerateCanonicalizesDecodedToken(t *testing.T) {
	codec := testCodec(t)
	token := codec.NewToken()
	ref := codec.Generate(token)

	// whatever casing a gateway applied in transit, regenerating from the
	// decoded token must land back on the reference exactly as issued
	for _, mangled := range []string{strings.ToLower(ref), strings.ToUpper(ref)} {
		got, err := codec.Decode(mangled)
		if err != nil {
			t.Fatalf("Decode %q: %v", mangled, err)
		}
		if codec.Generate(got) != ref {
			t.Fatalf("canonical form drifted: %q -> %q", mangled, codec.Generate(got))
		}
	}
}

func TestDifferentSecretsDisagree(t *testing.T) {
	codec := testCodec(t)
	other, err := NewCodec(config.ReferenceConfig{
		Prefix:        "SHD",
		Version:       "V1",
		SigningSecret: "another-secret",
	})
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}
	ref := codec.Generate("AB12XY7Q9")
	if _, err := other.Decode(ref); err == nil {
		t.Fatal("reference signed with one secret must not verify with another")
	}
}

func TestNewTokenUnique(t *testing.T) {
	codec := testCodec(t)
	seen := map[string]bool{}
	for i := 0; i < 200; i++ {
		token := codec.NewToken()
		if seen[token] {
			t.Fatalf("duplicate token %q", token)
		}
		seen[token] = true
	}
}
