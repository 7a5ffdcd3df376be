package codec

import (
	"fmt"
	"reflect"

	"google.golang.org/protobuf/proto"
)

var protoMessageType = reflect.TypeOf((*proto.Message)(nil)).Elem()

// Proto encodes protocol buffer messages with deterministic field ordering,
// so the same list always serializes to the same bytes.
//
// Elements are typically pointers to generated message structs. Unmarshal
// accepts either a message or a pointer to a (possibly nil) message pointer.
type Proto struct{}

// Marshal encodes a proto.Message.
func (Proto) Marshal(v any) ([]byte, error) {
	m, ok := v.(proto.Message)
	if !ok {
		return nil, fmt.Errorf("%w: %T is not a proto.Message", ErrUnsupportedType, v)
	}
	return proto.MarshalOptions{Deterministic: true}.Marshal(m)
}

// Unmarshal decodes data into v.
func (Proto) Unmarshal(data []byte, v any) error {
	if m, ok := v.(proto.Message); ok {
		return proto.Unmarshal(data, m)
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return fmt.Errorf("%w: cannot unmarshal into %T", ErrUnsupportedType, v)
	}
	elem := rv.Elem()
	if elem.Kind() != reflect.Pointer || !elem.Type().Implements(protoMessageType) {
		return fmt.Errorf("%w: %T does not point to a proto.Message", ErrUnsupportedType, v)
	}
	if elem.IsNil() {
		elem.Set(reflect.New(elem.Type().Elem()))
	}
	return proto.Unmarshal(data, elem.Interface().(proto.Message))
}

// Name returns the unique name of the codec ("protobuf").
func (Proto) Name() string { return "protobuf" }
