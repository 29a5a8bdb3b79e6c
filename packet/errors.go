package packet

import (
	"errors"
	"fmt"
)

// Violation identifies the specific kind of protocol violation in a packet.
type Violation string

const (
	ViolationTruncated     Violation = "truncated_header"
	ViolationErrorCode     Violation = "device_error_code"
	ViolationVersion       Violation = "unsupported_version"
	ViolationTimestampType Violation = "unsupported_timestamp_type"
	ViolationDataType      Violation = "unknown_data_type"
	ViolationPayloadLength Violation = "payload_length_mismatch"
)

// ProtocolError reports a fatal protocol violation: the native layer emitted
// something this decoder does not understand. It is deliberately distinct from
// recoverable conditions; callers must not coerce or silently drop it.
type ProtocolError struct {
	Violation Violation
	Value     uint64 // offending field value, or observed length for length mismatches
	Expected  uint64 // expected value or length, 0 when not applicable
}

func (e *ProtocolError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Expected != 0 {
		return fmt.Sprintf("packet: %s: got %d, want %d", e.Violation, e.Value, e.Expected)
	}
	return fmt.Sprintf("packet: %s: %d", e.Violation, e.Value)
}

// Is allows errors.Is to compare ProtocolError values by Violation.
func (e *ProtocolError) Is(target error) bool {
	if e == nil {
		return false
	}
	t, ok := target.(*ProtocolError)
	if !ok {
		return false
	}
	return e.Violation == t.Violation
}

// Predefined sentinel errors, one per violation kind.
var (
	ErrTruncated     = &ProtocolError{Violation: ViolationTruncated}
	ErrErrorCode     = &ProtocolError{Violation: ViolationErrorCode}
	ErrVersion       = &ProtocolError{Violation: ViolationVersion}
	ErrTimestampType = &ProtocolError{Violation: ViolationTimestampType}
	ErrDataType      = &ProtocolError{Violation: ViolationDataType}
	ErrPayloadLength = &ProtocolError{Violation: ViolationPayloadLength}
)

// IsProtocol reports whether err is (or wraps) a fatal protocol violation.
func IsProtocol(err error) bool {
	var perr *ProtocolError
	return errors.As(err, &perr)
}
