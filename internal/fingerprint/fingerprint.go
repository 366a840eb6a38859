// Package fingerprint derives content-addressed keys for extracted contexts.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/Veraticus/rivalwatch/internal/model"
)

// Compute returns the SHA-256 hex digest of the canonical serialization of ctx.
// Contexts that differ only in representation (nil vs empty slices, enum casing)
// hash identically because the context is normalized first.
func Compute(ctx model.ExtractedContext) string {
	normalized := ctx.Normalize()

	// Struct fields marshal in declaration order, which makes the encoding canonical.
	data, err := json.Marshal(normalized)
	if err != nil {
		// ExtractedContext contains only strings and slices of them.
		panic("fingerprint: marshal extracted context: " + err.Error())
	}

	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
