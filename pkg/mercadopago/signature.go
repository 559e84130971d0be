package mercadopago

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
)

var (
	ErrSignatureMissing = errors.New("mercado pago signature header missing")
	ErrSignatureInvalid = errors.New("mercado pago signature mismatch")
)

// VerifySignature checks the x-signature header ("ts=...,v1=...") against
// the manifest Mercado Pago signs: "id:{data.id};request-id:{x-request-id};ts:{ts};".
// Parts whose value is absent are left out of the manifest.
func VerifySignature(secret, header, requestID, dataID string) error {
	ts, v1 := parseSignatureHeader(header)
	if ts == "" || v1 == "" {
		return ErrSignatureMissing
	}

	expected := SignManifest(secret, BuildManifest(dataID, requestID, ts))
	if !hmac.Equal([]byte(expected), []byte(strings.ToLower(v1))) {
		return ErrSignatureInvalid
	}
	return nil
}

// BuildManifest assembles the signed template.
func BuildManifest(dataID, requestID, ts string) string {
	var b strings.Builder
	if dataID != "" {
		b.WriteString("id:" + normalizeDataID(dataID) + ";")
	}
	if requestID != "" {
		b.WriteString("request-id:" + requestID + ";")
	}
	if ts != "" {
		b.WriteString("ts:" + ts + ";")
	}
	return b.String()
}

// SignManifest returns the hex HMAC-SHA256 of the manifest.
func SignManifest(secret, manifest string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(manifest))
	return hex.EncodeToString(mac.Sum(nil))
}

func parseSignatureHeader(header string) (ts, v1 string) {
	for _, part := range strings.Split(header, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch strings.TrimSpace(key) {
		case "ts":
			ts = strings.TrimSpace(value)
		case "v1":
			v1 = strings.TrimSpace(value)
		}
	}
	return ts, v1
}

// Alphanumeric ids are signed lower-cased.
func normalizeDataID(id string) string {
	for _, r := range id {
		if r < '0' || r > '9' {
			return strings.ToLower(id)
		}
	}
	return id
}
