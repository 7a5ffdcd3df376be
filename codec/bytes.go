package codec

import "fmt"

// Bytes passes []byte elements through unchanged. It is the codec for lists
// of pre-encoded blobs and for elements too large to copy.
type Bytes struct{}

// Marshal returns v itself; the slice is not copied.
func (Bytes) Marshal(v any) ([]byte, error) {
	switch b := v.(type) {
	case []byte:
		return b, nil
	case *[]byte:
		if b == nil {
			return nil, fmt.Errorf("%w: nil *[]byte", ErrUnsupportedType)
		}
		return *b, nil
	default:
		return nil, fmt.Errorf("%w: bytes codec cannot marshal %T", ErrUnsupportedType, v)
	}
}

// Unmarshal stores data in v, which must be a *[]byte.
func (Bytes) Unmarshal(data []byte, v any) error {
	p, ok := v.(*[]byte)
	if !ok || p == nil {
		return fmt.Errorf("%w: bytes codec cannot unmarshal into %T", ErrUnsupportedType, v)
	}
	*p = data
	return nil
}

// Name returns the unique name of the codec ("bytes").
func (Bytes) Name() string { return "bytes" }
