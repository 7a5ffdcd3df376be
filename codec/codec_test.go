package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/systemsomicslab/largelist/testutil"
)

func TestByName(t *testing.T) {
	for _, name := range Names() {
		c, ok := ByName(name)
		require.True(t, ok, name)
		assert.Equal(t, name, c.Name())
	}

	_, ok := ByName("msgpack")
	assert.False(t, ok)
	assert.Equal(t, "go-json", Default.Name())
}

func TestJSONCodecs(t *testing.T) {
	spectra := testutil.NewRNG(1).Spectra(3, 8)

	for _, c := range []Codec{JSON{}, GoJSON{}} {
		t.Run(c.Name(), func(t *testing.T) {
			for _, s := range spectra {
				b, err := c.Marshal(s)
				require.NoError(t, err)

				var got testutil.Spectrum
				require.NoError(t, c.Unmarshal(b, &got))
				assert.Equal(t, s, got)
			}
		})
	}
}

func TestJSONCompatibility(t *testing.T) {
	s := testutil.NewRNG(2).Spectra(1, 4)[0]

	var got testutil.Spectrum
	require.NoError(t, JSON{}.Unmarshal(MustMarshal(GoJSON{}, s), &got))
	assert.Equal(t, s, got)
}

func TestJSONUnmarshalError(t *testing.T) {
	var got testutil.Spectrum
	assert.Error(t, GoJSON{}.Unmarshal([]byte(`{"id":`), &got))
	assert.Error(t, JSON{}.Unmarshal([]byte(`[1,2]`), &got))
}

func TestBytes(t *testing.T) {
	in := []byte("raw element")

	b, err := Bytes{}.Marshal(in)
	require.NoError(t, err)
	assert.Same(t, &in[0], &b[0])

	b, err = Bytes{}.Marshal(&in)
	require.NoError(t, err)
	assert.Equal(t, in, b)

	var out []byte
	require.NoError(t, Bytes{}.Unmarshal(b, &out))
	assert.Equal(t, in, out)

	_, err = Bytes{}.Marshal("string")
	assert.ErrorIs(t, err, ErrUnsupportedType)

	var s string
	assert.ErrorIs(t, Bytes{}.Unmarshal(b, &s), ErrUnsupportedType)
}

func TestProto(t *testing.T) {
	msg := wrapperspb.String("PC 34:1 [M+H]+")

	b, err := Proto{}.Marshal(msg)
	require.NoError(t, err)

	t.Run("message", func(t *testing.T) {
		got := &wrapperspb.StringValue{}
		require.NoError(t, Proto{}.Unmarshal(b, got))
		assert.True(t, proto.Equal(msg, got))
	})

	t.Run("pointer to nil message", func(t *testing.T) {
		var got *wrapperspb.StringValue
		require.NoError(t, Proto{}.Unmarshal(b, &got))
		require.NotNil(t, got)
		assert.Equal(t, msg.GetValue(), got.GetValue())
	})

	t.Run("unsupported", func(t *testing.T) {
		_, err := Proto{}.Marshal(struct{}{})
		assert.ErrorIs(t, err, ErrUnsupportedType)

		var s string
		assert.ErrorIs(t, Proto{}.Unmarshal(b, &s), ErrUnsupportedType)
		assert.ErrorIs(t, Proto{}.Unmarshal(b, nil), ErrUnsupportedType)
	})
}

func TestProtoDeterministic(t *testing.T) {
	m, err := structpb.NewStruct(map[string]any{
		"name":   "PE 36:2",
		"adduct": "[M-H]-",
		"mz":     742.5392,
		"class":  "PE",
	})
	require.NoError(t, err)

	first, err := Proto{}.Marshal(m)
	require.NoError(t, err)
	for range 10 {
		again, err := Proto{}.Marshal(m)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}
