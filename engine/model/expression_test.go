package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExpressionManager_SetValueClamps(t *testing.T) {
	mesh := &Mesh{DefaultWeights: []float32{0, 0}}
	m := NewExpressionManager([]*Mesh{mesh})
	m.Register(&Expression{Name: "happy", Binds: []MorphBind{{Mesh: 0, Index: 1, Weight: 0.5}}})

	m.SetValue("happy", 3)
	assert.InDelta(t, 1, m.Value("happy"), 1e-6)
	m.SetValue("happy", -1)
	assert.InDelta(t, 0, m.Value("happy"), 1e-6)

	m.SetValue("missing", 1)
	assert.False(t, m.Has("missing"))
	assert.InDelta(t, 0, m.Value("missing"), 1e-6)
}

func TestExpressionManager_UpdateWritesWeights(t *testing.T) {
	// --- Arrange ---
	mesh := &Mesh{DefaultWeights: []float32{0.1, 0}}
	m := NewExpressionManager([]*Mesh{mesh})
	m.Register(&Expression{Name: "happy", Binds: []MorphBind{{Mesh: 0, Index: 1, Weight: 0.5}}})
	m.Register(&Expression{Name: "blink", IsBinary: true, Binds: []MorphBind{{Mesh: 0, Index: 0, Weight: 1}, {Mesh: 3, Index: 0, Weight: 1}}})

	// --- Act ---
	m.SetValue("happy", 0.8)
	m.SetValue("blink", 0.4)
	m.Update()

	// --- Assert ---
	assert.InDelta(t, 0.1, mesh.Weights[0], 1e-6)
	assert.InDelta(t, 0.4, mesh.Weights[1], 1e-6)

	m.SetValue("blink", 0.6)
	m.Update()
	assert.InDelta(t, 1.1, mesh.Weights[0], 1e-6)

	m.ResetValues()
	m.Update()
	assert.InDelta(t, 0.1, mesh.Weights[0], 1e-6)
	assert.InDelta(t, 0, mesh.Weights[1], 1e-6)
	assert.Equal(t, []string{"blink", "happy"}, m.Names())
}
