package model

import (
	"sort"

	"github.com/Carmen-Shannon/deskvrm/common"
)

// ExpressionBlink is the channel driven by the procedural blink.
const ExpressionBlink = "blink"

// MorphBind drives one morph target of one mesh from an expression.
type MorphBind struct {
	// Mesh indexes Avatar meshes.
	Mesh int

	// Index is the morph target index within the mesh.
	Index int

	// Weight is the morph weight applied at expression value 1.
	Weight float32
}

// Expression is a named blend channel with a value in [0, 1].
type Expression struct {
	Name  string
	Binds []MorphBind

	// IsBinary snaps the applied value to 0 or 1 around 0.5.
	IsBinary bool

	value float32
}

// ExpressionManager owns an avatar's expression channels and writes them into mesh morph weights.
type ExpressionManager struct {
	meshes      []*Mesh
	expressions map[string]*Expression
}

// NewExpressionManager creates an empty manager writing into the given meshes.
//
// Parameters:
//   - meshes: the avatar meshes whose Weights are driven
//
// Returns:
//   - *ExpressionManager: the manager
func NewExpressionManager(meshes []*Mesh) *ExpressionManager {
	return &ExpressionManager{
		meshes:      meshes,
		expressions: make(map[string]*Expression),
	}
}

// Register adds or replaces an expression.
func (m *ExpressionManager) Register(e *Expression) {
	m.expressions[e.Name] = e
}

// Has reports whether an expression with the given name exists.
func (m *ExpressionManager) Has(name string) bool {
	_, ok := m.expressions[name]
	return ok
}

// SetValue sets an expression value, clamped to [0, 1]. Unknown names are ignored.
//
// Parameters:
//   - name: the expression name
//   - value: the new value
func (m *ExpressionManager) SetValue(name string, value float32) {
	if e, ok := m.expressions[name]; ok {
		e.value = common.Clamp(value, 0, 1)
	}
}

// Value returns an expression's current value, or 0 for unknown names.
func (m *ExpressionManager) Value(name string) float32 {
	if e, ok := m.expressions[name]; ok {
		return e.value
	}
	return 0
}

// Names returns the registered expression names in sorted order.
func (m *ExpressionManager) Names() []string {
	names := make([]string, 0, len(m.expressions))
	for n := range m.expressions {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// ResetValues sets every expression to 0.
func (m *ExpressionManager) ResetValues() {
	for _, e := range m.expressions {
		e.value = 0
	}
}

// Update rebuilds the morph weights of every driven mesh from the default weights and the current expression values.
func (m *ExpressionManager) Update() {
	for _, mesh := range m.meshes {
		if len(mesh.Weights) != len(mesh.DefaultWeights) {
			mesh.Weights = make([]float32, len(mesh.DefaultWeights))
		}
		copy(mesh.Weights, mesh.DefaultWeights)
	}

	for _, e := range m.expressions {
		v := e.value
		if e.IsBinary {
			if v > 0.5 {
				v = 1
			} else {
				v = 0
			}
		}
		if v == 0 {
			continue
		}
		for _, b := range e.Binds {
			if b.Mesh < 0 || b.Mesh >= len(m.meshes) {
				continue
			}
			w := m.meshes[b.Mesh].Weights
			if b.Index < 0 || b.Index >= len(w) {
				continue
			}
			w[b.Index] += b.Weight * v
		}
	}
}
