package mask

import (
	"errors"
	"fmt"
)

// ErrCodeMaskFormat identifies malformed mask strings.
const ErrCodeMaskFormat = "MASK_FORMAT"

// MaskFormatError reports a mask that cannot be decomposed into database,
// schema and table components. It is fatal to a run: a malformed mask is
// ambiguous about what the operator wanted selected.
type MaskFormatError struct {
	// Mask is the raw mask as supplied.
	Mask string

	// Parts is the number of dot-separated components found.
	Parts int

	// Reason is set when the component count is valid but a component is not.
	Reason string
}

// Error implements the error interface.
func (e *MaskFormatError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s: invalid mask %q: %s", ErrCodeMaskFormat, e.Mask, e.Reason)
	}
	return fmt.Sprintf("%s: invalid mask %q: expected 1 to 3 dot-separated parts, got %d", ErrCodeMaskFormat, e.Mask, e.Parts)
}

// IsMaskFormatError returns true if err is, or wraps, a MaskFormatError.
func IsMaskFormatError(err error) bool {
	var me *MaskFormatError
	return errors.As(err, &me)
}
