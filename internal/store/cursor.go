package store

import (
	"encoding/base64"
	"encoding/json"
	"time"

	"github.com/ocrprov/engine/internal/errtax"
)

// Cursor is the decoded form of an opaque keyset pagination marker: the
// creation timestamp and id of the last row seen by the caller.
type Cursor struct {
	CreatedAt time.Time `json:"-"`
	ID        string    `json:"id"`
}

// cursorWire is the JSON shape actually encoded, with created_at as a
// string so the wire format matches the documented ISO-8601 cursor exactly.
type cursorWire struct {
	CreatedAt string `json:"created_at"`
	ID        string `json:"id"`
}

// EncodeCursor renders (createdAt, id) as a base64url-encoded JSON cursor.
func EncodeCursor(createdAt time.Time, id string) string {
	wire := cursorWire{CreatedAt: createdAt.UTC().Format(time.RFC3339Nano), ID: id}
	raw, _ := json.Marshal(wire)
	return base64.URLEncoding.EncodeToString(raw)
}

// DecodeCursor parses a cursor produced by EncodeCursor. Malformed input
// (bad base64, bad JSON, bad timestamp, empty id) yields a VALIDATION_ERROR.
func DecodeCursor(encoded string) (Cursor, error) {
	raw, err := base64.URLEncoding.DecodeString(encoded)
	if err != nil {
		return Cursor{}, errtax.New(errtax.CategoryValidation, "malformed pagination cursor", err)
	}

	var wire cursorWire
	if err := json.Unmarshal(raw, &wire); err != nil {
		return Cursor{}, errtax.New(errtax.CategoryValidation, "malformed pagination cursor", err)
	}

	if wire.ID == "" {
		return Cursor{}, errtax.New(errtax.CategoryValidation, "pagination cursor missing id", nil)
	}

	createdAt, err := time.Parse(time.RFC3339Nano, wire.CreatedAt)
	if err != nil {
		return Cursor{}, errtax.New(errtax.CategoryValidation, "pagination cursor has an invalid timestamp", err)
	}

	return Cursor{CreatedAt: createdAt, ID: wire.ID}, nil
}
