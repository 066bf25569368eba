// Package identifier parses and formats registry identifiers. An
// identifier is a positive integer with two interchangeable textual
// forms: bare decimal ("42") and the padded display form ("UNIQ-000042").
// Equality is always numeric; zero is the registry's "unregistered"
// sentinel and is never a valid identifier.
package identifier

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"zkgate/go-backend/pkg/models"
)

// ErrInvalid marks identifier text that cannot be parsed.
var ErrInvalid = errors.New("invalid identifier")

// DefaultPrefix is the display prefix used when none is configured.
const DefaultPrefix = "UNIQ"

const displayDigits = 6

// Identifier is a registry-assigned positive integer.
type Identifier uint64

// Decimal returns the canonical bare decimal encoding.
func (id Identifier) Decimal() string {
	return strconv.FormatUint(uint64(id), 10)
}

// Codec converts between identifier values and their textual encodings
// for one configured display prefix.
type Codec struct {
	prefix string
}

// NewCodec returns a codec for the given display prefix; an empty prefix
// selects DefaultPrefix.
func NewCodec(prefix string) Codec {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return Codec{prefix: prefix}
}

// Parse accepts bare decimal digits or "<PREFIX>-<digits>" and returns
// the numeric identifier. Empty text, non-numeric content, foreign
// prefixes, and the value zero are rejected.
func (c Codec) Parse(text string) (Identifier, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0, fmt.Errorf("%w: empty", ErrInvalid)
	}
	digits := text
	if i := strings.IndexByte(text, '-'); i >= 0 {
		if text[:i] != c.prefix {
			return 0, fmt.Errorf("%w: unknown prefix %q", ErrInvalid, text[:i])
		}
		digits = text[i+1:]
	}
	if digits == "" {
		return 0, fmt.Errorf("%w: missing digits", ErrInvalid)
	}
	for i := 0; i < len(digits); i++ {
		if digits[i] < '0' || digits[i] > '9' {
			return 0, fmt.Errorf("%w: non-numeric content", ErrInvalid)
		}
	}
	v, err := strconv.ParseUint(digits, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s", ErrInvalid, err)
	}
	if v == 0 {
		return 0, fmt.Errorf("%w: zero is the unregistered sentinel", ErrInvalid)
	}
	return Identifier(v), nil
}

// Format produces the padded display form, zero-padded to six digits.
// Wider values are emitted unpadded at full width, never truncated.
func (c Codec) Format(id Identifier) string {
	return fmt.Sprintf("%s-%0*d", c.prefix, displayDigits, uint64(id))
}

// Value returns both encodings of an identifier for transport.
func (c Codec) Value(id Identifier) models.IdentifierValue {
	return models.IdentifierValue{
		Decimal: id.Decimal(),
		Display: c.Format(id),
	}
}
