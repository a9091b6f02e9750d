package defines

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/oshokin/buildstamp/internal/domain/buildinfo"
)

// Define keys in payload order. Consumers may parse the payload positionally.
const (
	KeyName = "name"
	KeyCode = "code"
	KeyHash = "hash"
	KeyTime = "time"
)

// separator joins the encoded tokens. It never appears inside a base64 token.
const separator = ","

var (
	errEmptyPayload   = errors.New("payload is empty")
	errMalformedToken = errors.New("malformed define")
)

// Define is a single decoded key/value pair.
type Define struct {
	Key   string
	Value string
}

// String renders the define as "key=value".
func (d Define) String() string {
	return d.Key + "=" + d.Value
}

// Keys returns the define keys in payload order.
func Keys() []string {
	return []string{KeyName, KeyCode, KeyHash, KeyTime}
}

// Lines renders the plain "namespace.key=value" lines in payload order.
func Lines(v buildinfo.ComposedVersion, namespace string) []string {
	values := map[string]string{
		KeyName: v.Name,
		KeyCode: strconv.Itoa(v.Code),
		KeyHash: v.Hash,
		KeyTime: strconv.FormatInt(v.Time, 10),
	}

	keys := Keys()
	lines := make([]string, 0, len(keys))

	for _, key := range keys {
		lines = append(lines, namespace+"."+key+"="+values[key])
	}

	return lines
}

// Encode produces the comma-joined payload of base64-encoded lines.
func Encode(v buildinfo.ComposedVersion, namespace string) string {
	lines := Lines(v, namespace)
	tokens := make([]string, 0, len(lines))

	for _, line := range lines {
		tokens = append(tokens, base64.StdEncoding.EncodeToString([]byte(line)))
	}

	return strings.Join(tokens, separator)
}

// Decode reverses Encode and returns the plain lines in payload order.
func Decode(payload string) ([]string, error) {
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return nil, errEmptyPayload
	}

	tokens := strings.Split(payload, separator)
	lines := make([]string, 0, len(tokens))

	for i, token := range tokens {
		raw, err := base64.StdEncoding.DecodeString(token)
		if err != nil {
			return nil, fmt.Errorf("decode define #%d: %w", i, err)
		}

		lines = append(lines, string(raw))
	}

	return lines, nil
}

// Parse decodes the payload and splits every line into a Define.
func Parse(payload string) ([]Define, error) {
	lines, err := Decode(payload)
	if err != nil {
		return nil, err
	}

	result := make([]Define, 0, len(lines))

	for i, line := range lines {
		key, value, ok := strings.Cut(line, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("%w #%d: %q", errMalformedToken, i, line)
		}

		result = append(result, Define{Key: key, Value: value})
	}

	return result, nil
}
