package loader

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/Carmen-Shannon/deskvrm/engine/model"
)

// vrmExtractorImpl is the implementation of the vrmExtractor interface.
type vrmExtractorImpl struct {
	parser gltfParser

	version string
	v1      *vrm1Extension
	v0      *vrm0Extension
	spring  *springBoneExtension
}

// vrmExtractor decodes the VRM extensions of a parsed document into avatar components.
type vrmExtractor interface {
	// MetaVersion returns "1" for VRMC_vrm assets and "0" for VRM 0.x assets.
	MetaVersion() string

	// Name returns the avatar name from the VRM meta block, or "".
	Name() string

	// HumanBones resolves the humanoid bone table.
	//
	// Parameters:
	//   - nodeCount: the number of nodes in the document, for range checks
	//
	// Returns:
	//   - map[model.HumanBone]int: humanoid bone to node index
	//   - error: ErrMissingHumanoid (wrapped) when a required bone is absent
	HumanBones(nodeCount int) (map[model.HumanBone]int, error)

	// Expressions registers every expression of the asset on a new manager driving meshes.
	//
	// Parameters:
	//   - nodes: the avatar nodes, used to resolve node-addressed binds
	//   - meshes: the avatar meshes
	//
	// Returns:
	//   - *model.ExpressionManager: the populated manager
	Expressions(nodes []*model.Node, meshes []*model.Mesh) *model.ExpressionManager

	// SpringBones returns the spring joints, colliders and collider groups of the asset.
	// The result is empty when the asset has no secondary animation.
	SpringBones(nodes []*model.Node) ([]model.SpringJointSettings, []model.SpringCollider, []model.SpringColliderGroup)

	// ApplyMaterialProperties overrides material shade colors from VRM 0.x material properties.
	ApplyMaterialProperties(materials []*model.Material)
}

var _ vrmExtractor = &vrmExtractorImpl{}

// newVRMExtractor decodes the VRM extension of a parsed document.
//
// Parameters:
//   - parser: the parser containing a loaded document
//
// Returns:
//   - vrmExtractor: the extractor
//   - error: ErrNotVRM (wrapped) when neither VRMC_vrm nor VRM is present, or a decode error
func newVRMExtractor(parser gltfParser) (vrmExtractor, error) {
	doc := parser.Document()
	if doc == nil {
		return nil, errNoDocument
	}

	e := &vrmExtractorImpl{parser: parser}

	if raw, ok := doc.Extensions[extVRM1]; ok {
		var ext vrm1Extension
		if err := json.Unmarshal(raw, &ext); err != nil {
			return nil, fmt.Errorf("decode %s: %v: %w", extVRM1, err, ErrNotVRM)
		}
		e.v1 = &ext
		e.version = vrmMetaVersionV1
	} else if raw, ok := doc.Extensions[extVRM0]; ok {
		var ext vrm0Extension
		if err := json.Unmarshal(raw, &ext); err != nil {
			return nil, fmt.Errorf("decode %s: %v: %w", extVRM0, err, ErrNotVRM)
		}
		e.v0 = &ext
		e.version = vrmMetaVersionV0
	} else {
		return nil, ErrNotVRM
	}

	if raw, ok := doc.Extensions[extSpringBone]; ok {
		var ext springBoneExtension
		if err := json.Unmarshal(raw, &ext); err != nil {
			log.Printf("[Loader] ignoring malformed %s: %v", extSpringBone, err)
		} else {
			e.spring = &ext
		}
	}

	return e, nil
}

func (e *vrmExtractorImpl) MetaVersion() string {
	return e.version
}

func (e *vrmExtractorImpl) Name() string {
	if e.v1 != nil {
		return e.v1.Meta.Name
	}
	return e.v0.Meta.Title
}

func (e *vrmExtractorImpl) HumanBones(nodeCount int) (map[model.HumanBone]int, error) {
	bones := make(map[model.HumanBone]int)

	add := func(name string, node int, parse func(string) (model.HumanBone, bool)) {
		b, ok := parse(name)
		if !ok {
			log.Printf("[Loader] unknown humanoid bone %q", name)
			return
		}
		if node < 0 || node >= nodeCount {
			log.Printf("[Loader] humanoid bone %s references node %d out of range", b, node)
			return
		}
		bones[b] = node
	}

	if e.v1 != nil {
		for name, ref := range e.v1.Humanoid.HumanBones {
			add(name, ref.Node, model.ParseHumanBone)
		}
	} else {
		for _, hb := range e.v0.Humanoid.HumanBones {
			add(hb.Bone, hb.Node, model.ParseHumanBoneVRM0)
		}
	}

	var missing []string
	for _, b := range model.RequiredHumanBones() {
		if _, ok := bones[b]; !ok {
			missing = append(missing, b.String())
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingHumanoid, strings.Join(missing, ", "))
	}

	return bones, nil
}

func (e *vrmExtractorImpl) Expressions(nodes []*model.Node, meshes []*model.Mesh) *model.ExpressionManager {
	m := model.NewExpressionManager(meshes)

	if e.v1 != nil {
		register := func(name string, src vrm1Expression) {
			expr := &model.Expression{Name: name, IsBinary: src.IsBinary}
			for _, bind := range src.MorphTargetBinds {
				if bind.Node < 0 || bind.Node >= len(nodes) || nodes[bind.Node].Mesh < 0 {
					continue
				}
				expr.Binds = append(expr.Binds, model.MorphBind{
					Mesh:   nodes[bind.Node].Mesh,
					Index:  bind.Index,
					Weight: bind.Weight,
				})
			}
			m.Register(expr)
		}
		for name, src := range e.v1.Expressions.Preset {
			register(name, src)
		}
		for name, src := range e.v1.Expressions.Custom {
			register(name, src)
		}
		return m
	}

	for _, group := range e.v0.BlendShapeMaster.BlendShapeGroups {
		name := group.Name
		if preset, ok := vrm0PresetNames[strings.ToLower(group.PresetName)]; ok {
			name = preset
		}
		if name == "" {
			continue
		}
		expr := &model.Expression{Name: name, IsBinary: group.IsBinary}
		for _, bind := range group.Binds {
			expr.Binds = append(expr.Binds, model.MorphBind{
				Mesh:   bind.Mesh,
				Index:  bind.Index,
				Weight: bind.Weight / 100,
			})
		}
		m.Register(expr)
	}
	return m
}

func (e *vrmExtractorImpl) SpringBones(nodes []*model.Node) ([]model.SpringJointSettings, []model.SpringCollider, []model.SpringColliderGroup) {
	valid := func(n int) bool { return n >= 0 && n < len(nodes) }

	if e.spring != nil {
		return e.springBonesV1(nodes, valid)
	}
	if e.v0 != nil {
		return e.springBonesV0(nodes, valid)
	}
	return nil, nil, nil
}

func (e *vrmExtractorImpl) springBonesV1(nodes []*model.Node, valid func(int) bool) ([]model.SpringJointSettings, []model.SpringCollider, []model.SpringColliderGroup) {
	var colliders []model.SpringCollider
	for _, c := range e.spring.Colliders {
		if !valid(c.Node) {
			colliders = append(colliders, model.SpringCollider{Node: -1})
			continue
		}
		switch {
		case c.Shape.Capsule != nil:
			colliders = append(colliders, model.SpringCollider{
				Node:    c.Node,
				Offset:  c.Shape.Capsule.Offset,
				Tail:    c.Shape.Capsule.Tail,
				Radius:  c.Shape.Capsule.Radius,
				Capsule: true,
			})
		case c.Shape.Sphere != nil:
			colliders = append(colliders, model.SpringCollider{
				Node:   c.Node,
				Offset: c.Shape.Sphere.Offset,
				Tail:   c.Shape.Sphere.Offset,
				Radius: c.Shape.Sphere.Radius,
			})
		default:
			colliders = append(colliders, model.SpringCollider{Node: -1})
		}
	}

	groups := make([]model.SpringColliderGroup, len(e.spring.ColliderGroups))
	for i, g := range e.spring.ColliderGroups {
		groups[i] = model.SpringColliderGroup{Colliders: append([]int(nil), g.Colliders...)}
	}

	var joints []model.SpringJointSettings
	for _, spring := range e.spring.Springs {
		for i, j := range spring.Joints {
			if !valid(j.Node) {
				continue
			}
			child := -1
			switch {
			case i+1 < len(spring.Joints):
				child = spring.Joints[i+1].Node
			case len(spring.Joints) == 1 && len(nodes[j.Node].Children) > 0:
				child = nodes[j.Node].Children[0]
			case i > 0:
				// The last joint of a chain is the tail of its predecessor.
				continue
			}
			if !valid(child) {
				child = -1
			}
			joints = append(joints, model.SpringJointSettings{
				Node:           j.Node,
				Child:          child,
				Stiffness:      derefOr(j.Stiffness, springDefaultStiffness),
				GravityPower:   derefOr(j.GravityPower, 0),
				GravityDir:     derefOr(j.GravityDir, [3]float32{0, -1, 0}),
				DragForce:      derefOr(j.DragForce, springDefaultDragForce),
				HitRadius:      derefOr(j.HitRadius, 0),
				ColliderGroups: append([]int(nil), spring.ColliderGroups...),
			})
		}
	}

	return joints, colliders, groups
}

func (e *vrmExtractorImpl) springBonesV0(nodes []*model.Node, valid func(int) bool) ([]model.SpringJointSettings, []model.SpringCollider, []model.SpringColliderGroup) {
	sec := &e.v0.SecondaryAnimation

	var colliders []model.SpringCollider
	groups := make([]model.SpringColliderGroup, len(sec.ColliderGroups))
	for i, g := range sec.ColliderGroups {
		for _, c := range g.Colliders {
			if !valid(g.Node) {
				continue
			}
			offset := [3]float32{c.Offset.X, c.Offset.Y, -c.Offset.Z}
			groups[i].Colliders = append(groups[i].Colliders, len(colliders))
			colliders = append(colliders, model.SpringCollider{
				Node:   g.Node,
				Offset: offset,
				Tail:   offset,
				Radius: c.Radius,
			})
		}
	}

	var joints []model.SpringJointSettings
	seen := make(map[int]bool)
	for _, bg := range sec.BoneGroups {
		settings := model.SpringJointSettings{
			Stiffness:      bg.Stiffness,
			GravityPower:   bg.GravityPower,
			GravityDir:     [3]float32{bg.GravityDir.X, bg.GravityDir.Y, -bg.GravityDir.Z},
			DragForce:      bg.DragForce,
			HitRadius:      bg.HitRadius,
			ColliderGroups: append([]int(nil), bg.ColliderGroups...),
		}

		var walk func(n int)
		walk = func(n int) {
			if !valid(n) || seen[n] {
				return
			}
			seen[n] = true
			j := settings
			j.Node = n
			j.Child = -1
			if len(nodes[n].Children) > 0 {
				j.Child = nodes[n].Children[0]
			}
			joints = append(joints, j)
			for _, c := range nodes[n].Children {
				walk(c)
			}
		}
		for _, root := range bg.Bones {
			walk(root)
		}
	}

	return joints, colliders, groups
}

func (e *vrmExtractorImpl) ApplyMaterialProperties(materials []*model.Material) {
	if e.v0 == nil {
		return
	}
	for i, props := range e.v0.MaterialProperties {
		var mat *model.Material
		for _, m := range materials {
			if m != nil && m.Name == props.Name {
				mat = m
				break
			}
		}
		if mat == nil && i < len(materials) {
			mat = materials[i]
		}
		if mat == nil {
			continue
		}
		if shade, ok := props.VectorProperties["_ShadeColor"]; ok && len(shade) >= 3 {
			mat.ShadeColor = [3]float32{srgbToLinear(shade[0]), srgbToLinear(shade[1]), srgbToLinear(shade[2])}
		}
	}
}

// derefOr returns *p, or def when p is nil.
func derefOr[T any](p *T, def T) T {
	if p == nil {
		return def
	}
	return *p
}
