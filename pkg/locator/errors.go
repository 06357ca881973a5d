package locator

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/devicelab-dev/javagui-runner/pkg/core"
	"github.com/devicelab-dev/javagui-runner/pkg/diag"
)

// ParseError reports a malformed locator. Position is a byte offset into
// Input, in the range [0, len(Input)].
type ParseError struct {
	Message  string
	Position int
	Input    string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid locator %q at position %d: %s", e.Input, e.Position, e.Message)
}

// Caret renders the input with a ^ under the offending position. The
// padding counts runes, so the caret lines up under non-ASCII input.
func (e *ParseError) Caret() string {
	pos := e.Position
	if pos < 0 {
		pos = 0
	}
	if pos > len(e.Input) {
		pos = len(e.Input)
	}
	return e.Input + "\n" + strings.Repeat(" ", utf8.RuneCountInString(e.Input[:pos])) + "^"
}

// Unwrap exposes the error as a core parse error so callers can classify it
// with errors.Is(err, core.ErrParse).
func (e *ParseError) Unwrap() error {
	return core.ErrParse.
		WithMessage(e.Message).
		WithDetails(map[string]interface{}{
			diag.KeyLocator:  e.Input,
			diag.KeyPosition: e.Position,
		})
}
