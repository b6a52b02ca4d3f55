package loader

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ubyteGLTF = `{
	"asset": {"version": "2.0"},
	"buffers": [{"uri": "data:application/octet-stream;base64,AP+AMw==", "byteLength": 4}],
	"bufferViews": [{"buffer": 0, "byteLength": 4}],
	"accessors": [
		{"bufferView": 0, "componentType": 5121, "normalized": true, "count": 4, "type": "SCALAR"},
		{"bufferView": 0, "componentType": 5121, "count": 4, "type": "SCALAR"}
	]
}`

func TestParser_JSONWithDataURI(t *testing.T) {
	// --- Arrange ---
	p := newGLTFParser()

	// --- Act ---
	err := p.Parse([]byte(ubyteGLTF))
	require.NoError(t, err)
	normalized, comps, normErr := p.ReadFloats(0)
	raw, _, rawErr := p.ReadFloats(1)

	// --- Assert ---
	require.NoError(t, normErr)
	require.NoError(t, rawErr)
	assert.Equal(t, 1, comps)
	require.Len(t, normalized, 4)
	assert.Equal(t, float32(0), normalized[0])
	assert.Equal(t, float32(1), normalized[1])
	assert.InDelta(t, 128.0/255.0, float64(normalized[2]), 1e-6)
	assert.InDelta(t, 0.2, float64(normalized[3]), 1e-6)
	assert.Equal(t, []float32{0, 255, 128, 51}, raw)
}

func TestParser_RejectsBadDocuments(t *testing.T) {
	tests := []struct {
		name string
		data string
		want error
	}{
		{name: "wrong asset version", data: `{"asset": {"version": "1.0"}}`, want: ErrInvalidVersion},
		{name: "broken json", data: `{"asset": `, want: ErrNotGLB},
		{name: "external buffer", data: `{"asset": {"version": "2.0"}, "buffers": [{"uri": "model.bin", "byteLength": 4}]}`, want: ErrMalformedAccessor},
		{name: "short data uri", data: `{"asset": {"version": "2.0"}, "buffers": [{"uri": "data:application/octet-stream;base64,AAAA", "byteLength": 16}]}`, want: ErrMalformedAccessor},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// --- Arrange ---
			p := newGLTFParser()

			// --- Act ---
			err := p.Parse([]byte(tt.data))

			// --- Assert ---
			assert.ErrorIs(t, err, tt.want)
			assert.Nil(t, p.Document())
		})
	}
}

func TestParser_AccessorOutOfRange(t *testing.T) {
	// --- Arrange ---
	p := newGLTFParser()
	require.NoError(t, p.Parse([]byte(ubyteGLTF)))

	// --- Act ---
	_, _, err := p.ReadFloats(7)

	// --- Assert ---
	assert.ErrorIs(t, err, ErrMalformedAccessor)
}

func TestCubicSplineKeyValues_KeepsMiddleElement(t *testing.T) {
	// --- Arrange ---
	values := []float32{
		-1, -1, 10, 11, 1, 1,
		-2, -2, 20, 21, 2, 2,
	}

	// --- Act ---
	got := cubicSplineKeyValues(values, 2)

	// --- Assert ---
	assert.Equal(t, []float32{10, 11, 20, 21}, got)
}

func TestNormalizeComponent_ClampsSignedMinimum(t *testing.T) {
	assert.Equal(t, float32(-1), normalizeComponent(-128, 127, true))
	assert.Equal(t, float32(-128), normalizeComponent(-128, 127, false))
}
