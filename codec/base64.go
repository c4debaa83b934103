// Package codec carries binary blobs embedded in text payloads.
package codec

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

var ErrDecode = errors.New("attachment decode error")

func Encode(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

// Decode accepts padded and unpadded standard or URL-safe alphabets, since
// transports are not consistent about which one they emit.
func Decode(s string) ([]byte, error) {
	if len(s) == 0 {
		return []byte{}, nil
	}
	enc := base64.StdEncoding
	if strings.ContainsAny(s, "-_") {
		enc = base64.URLEncoding
	}
	if len(s)%4 != 0 {
		enc = enc.WithPadding(base64.NoPadding)
	}
	data, err := enc.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return data, nil
}
