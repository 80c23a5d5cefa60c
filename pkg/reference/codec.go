package reference

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopdeck/shopdeck-backend/pkg/config"
)

// DecodeReason classifies why a reference failed to decode.
type DecodeReason string

const (
	ReasonBadFormat    DecodeReason = "bad_format"
	ReasonBadPrefix    DecodeReason = "bad_prefix"
	ReasonBadVersion   DecodeReason = "bad_version"
	ReasonBadSignature DecodeReason = "bad_signature"
)

// DecodeError reports a malformed or forged reference.
type DecodeError struct {
	Reason DecodeReason
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("invalid reference: %s", e.Reason)
}

const (
	sigLen            = 6
	tokenRandomChars  = 7
	base36Alphabet    = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
)

// Codec generates and validates signed order references of the form
// PREFIX-TOKEN-VERSION-sig6. The six-hex-char signature is the head of an
// HMAC-SHA256 over "TOKEN:VERSION" keyed with the process-wide signing secret.
type Codec struct {
	prefix  string
	version string
	secret  []byte
}

// NewCodec builds a codec from immutable startup configuration.
func NewCodec(cfg config.ReferenceConfig) (*Codec, error) {
	prefix := strings.ToUpper(strings.TrimSpace(cfg.Prefix))
	version := strings.ToUpper(strings.TrimSpace(cfg.Version))
	if prefix == "" || strings.Contains(prefix, "-") {
		return nil, fmt.Errorf("invalid reference prefix %q", cfg.Prefix)
	}
	if version == "" || strings.Contains(version, "-") {
		return nil, fmt.Errorf("invalid reference version %q", cfg.Version)
	}
	if strings.TrimSpace(cfg.SigningSecret) == "" {
		return nil, fmt.Errorf("reference signing secret is required")
	}
	return &Codec{
		prefix:  prefix,
		version: version,
		secret:  []byte(cfg.SigningSecret),
	}, nil
}

// NewToken returns a base36 millisecond timestamp concatenated with a random
// base36 suffix. Collisions within a draft TTL would need two tokens in the
// same millisecond drawing the same 7 random characters.
func (c *Codec) NewToken() string {
	ts := strings.ToUpper(strconv.FormatInt(time.Now().UnixMilli(), 36))
	return ts + randomBase36(tokenRandomChars)
}

// Generate formats the signed reference for a token.
func (c *Codec) Generate(token string) string {
	token = strings.ToUpper(strings.TrimSpace(token))
	return strings.Join([]string{c.prefix, token, c.version, c.sign(token)}, "-")
}

// Decode validates a reference and returns the embedded token. The signature
// comparison is constant-time.
func (c *Codec) Decode(ref string) (string, error) {
	parts := strings.Split(strings.TrimSpace(ref), "-")
	if len(parts) != 4 {
		return "", &DecodeError{Reason: ReasonBadFormat}
	}
	token := strings.ToUpper(parts[1])
	if parts[1] == "" || parts[3] == "" {
		return "", &DecodeError{Reason: ReasonBadFormat}
	}
	if !strings.EqualFold(parts[0], c.prefix) {
		return "", &DecodeError{Reason: ReasonBadPrefix}
	}
	if !strings.EqualFold(parts[2], c.version) {
		return "", &DecodeError{Reason: ReasonBadVersion}
	}
	expected := c.sign(token)
	if !hmac.Equal([]byte(strings.ToLower(parts[3])), []byte(expected)) {
		return "", &DecodeError{Reason: ReasonBadSignature}
	}
	return token, nil
}

func (c *Codec) sign(token string) string {
	mac := hmac.New(sha256.New, c.secret)
	mac.Write([]byte(token + ":" + c.version))
	return hex.EncodeToString(mac.Sum(nil))[:sigLen]
}

func randomBase36(n int) string {
	buf := make([]byte, n*4)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand failing means the process is unusable anyway
		panic(fmt.Sprintf("reading entropy: %v", err))
	}
	out := make([]byte, n)
	for i := 0; i < n; i++ {
		v := binary.BigEndian.Uint32(buf[i*4 : i*4+4])
		out[i] = base36Alphabet[v%uint32(len(base36Alphabet))]
	}
	return string(out)
}
