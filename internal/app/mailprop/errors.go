package mailprop

import "fmt"

// DecodeError reports a header block that is present but not valid YAML, or
// a value shape the metadata union cannot represent. It aborts a conversion
// before any mail item is touched.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode metadata block: %v", e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// TypeMismatchError reports a known property given a value of the wrong shape.
type TypeMismatchError struct {
	Property string
	Want     string
	Got      string
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("property %q must be a %s, not a %s", e.Property, e.Want, e.Got)
}

// ValueError reports a value of the right shape but with invalid content,
// such as an unknown enumeration member.
type ValueError struct {
	Msg string
}

func (e *ValueError) Error() string { return e.Msg }

// UnknownPropertyError reports a metadata key with no registered setter and
// no matching raw field on the mail item.
type UnknownPropertyError struct {
	Property string
}

func (e *UnknownPropertyError) Error() string {
	return fmt.Sprintf("the mail property %q is not supported by the mail item", e.Property)
}
