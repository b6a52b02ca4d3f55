package loader

import (
	"encoding/json"
	"fmt"
	"log"

	"github.com/Carmen-Shannon/deskvrm/common"
	"github.com/Carmen-Shannon/deskvrm/engine/model"
)

// vrmaExtractorImpl is the implementation of the vrmaExtractor interface.
type vrmaExtractorImpl struct {
	parser gltfParser
	ext    vrmaExtension

	// rig is the clip's own skeleton in its rest pose, used to read rest world rotations.
	rig *model.Avatar

	// boneByNode and expressionByNode index the clip's humanoid and expression nodes.
	boneByNode       map[int]model.HumanBone
	expressionByNode map[int]string
}

// vrmaExtractor retargets a VRMA motion onto an avatar.
type vrmaExtractor interface {
	// Retarget converts the first animation of the document into a clip bound to avatar.
	// Humanoid rotations are mapped from the clip's rest space into the avatar's local bone space,
	// the hips translation is rescaled by hips height, and expression nodes become weight tracks.
	//
	// Parameters:
	//   - name: the clip name
	//   - avatar: the target avatar
	//
	// Returns:
	//   - *model.AnimationClip: the bound clip
	//   - error: ErrNoBoundTracks (wrapped) if nothing in the clip applies to the avatar
	Retarget(name string, avatar *model.Avatar) (*model.AnimationClip, error)
}

var _ vrmaExtractor = &vrmaExtractorImpl{}

// newVRMAExtractor decodes VRMC_vrm_animation and builds the clip's rest rig.
//
// Parameters:
//   - parser: the parser containing a loaded document
//
// Returns:
//   - vrmaExtractor: the extractor
//   - error: ErrNotVRMA (wrapped) when the extension is missing or malformed
func newVRMAExtractor(parser gltfParser) (vrmaExtractor, error) {
	doc := parser.Document()
	if doc == nil {
		return nil, errNoDocument
	}

	raw, ok := doc.Extensions[extVRMAnimation]
	if !ok {
		return nil, ErrNotVRMA
	}

	e := &vrmaExtractorImpl{
		parser:           parser,
		boneByNode:       make(map[int]model.HumanBone),
		expressionByNode: make(map[int]string),
	}
	if err := json.Unmarshal(raw, &e.ext); err != nil {
		return nil, fmt.Errorf("decode %s: %v: %w", extVRMAnimation, err, ErrNotVRMA)
	}

	nodes, err := newGLTFSkeletonExtractor(parser).ExtractNodes()
	if err != nil {
		return nil, err
	}

	bones := make(map[model.HumanBone]int)
	for boneName, ref := range e.ext.Humanoid.HumanBones {
		b, ok := model.ParseHumanBone(boneName)
		if !ok || ref.Node < 0 || ref.Node >= len(nodes) {
			continue
		}
		bones[b] = ref.Node
		e.boneByNode[ref.Node] = b
	}
	for exprName, ref := range e.ext.Expressions.Preset {
		e.expressionByNode[ref.Node] = exprName
	}
	for exprName, ref := range e.ext.Expressions.Custom {
		e.expressionByNode[ref.Node] = exprName
	}

	e.rig = model.NewAvatar(model.WithNodes(nodes), model.WithHumanBones(bones))
	return e, nil
}

func (e *vrmaExtractorImpl) Retarget(name string, avatar *model.Avatar) (*model.AnimationClip, error) {
	doc := e.parser.Document()
	if len(doc.Animations) == 0 {
		return nil, fmt.Errorf("clip %q has no animations: %w", name, ErrNoBoundTracks)
	}

	channels, err := newGLTFAnimationExtractor(e.parser).ExtractChannels(0)
	if err != nil {
		return nil, err
	}

	vrm0 := avatar.MetaVersion() == vrmMetaVersionV0
	var tracks []model.Track
	skipped := make(map[string]bool)

	for _, ch := range channels {
		if b, ok := e.boneByNode[ch.Node]; ok {
			if _, has := avatar.Bone(b); !has {
				skipped[b.String()] = true
				continue
			}
			switch ch.Path {
			case gltfAnimPathRotation:
				tracks = append(tracks, e.rotationTrack(b, ch, avatar, vrm0))
			case gltfAnimPathTranslation:
				if b == model.BoneHips {
					tracks = append(tracks, e.hipsTrack(ch, avatar, vrm0))
				}
			}
			continue
		}

		if exprName, ok := e.expressionByNode[ch.Node]; ok && ch.Path == gltfAnimPathTranslation {
			if em := avatar.Expressions(); em == nil || !em.Has(exprName) {
				skipped["expression "+exprName] = true
				continue
			}
			values := make([]float32, len(ch.Times))
			for k := range values {
				values[k] = ch.Values[k*3]
			}
			tracks = append(tracks, model.Track{
				Kind:          model.TrackExpression,
				Expression:    exprName,
				Interpolation: ch.Interpolation,
				Times:         ch.Times,
				Values:        values,
			})
		}
	}

	for s := range skipped {
		log.Printf("[Loader] clip %q: skipping track for %s, not present on avatar", name, s)
	}

	clip := model.NewAnimationClip(name, tracks)
	if clip.TrackCount() == 0 {
		return nil, fmt.Errorf("clip %q: %w", name, ErrNoBoundTracks)
	}
	return clip, nil
}

// rotationTrack maps clip rotations into the avatar's raw local bone space.
// The clip rotation is first normalized against the clip's rest pose, then re-expressed
// relative to the avatar's rest parent world rotation and rest local rotation.
func (e *vrmaExtractorImpl) rotationTrack(b model.HumanBone, ch gltfNodeChannel, avatar *model.Avatar, vrm0 bool) model.Track {
	src, _ := e.rig.Rest(b)
	dst, _ := avatar.Rest(b)

	srcWorldInv := common.QuatInvert(src.WorldRotation)
	dstParentInv := common.QuatInvert(dst.ParentWorldRotation)

	values := make([]float32, len(ch.Values))
	for k := 0; k+3 < len(ch.Values); k += 4 {
		q := common.QuatNormalize([4]float32(ch.Values[k : k+4]))
		n := common.QuatMul(common.QuatMul(src.ParentWorldRotation, q), srcWorldInv)
		if vrm0 {
			n[0], n[2] = -n[0], -n[2]
		}
		raw := common.QuatMul(common.QuatMul(common.QuatMul(dstParentInv, n), dst.ParentWorldRotation), dst.LocalRotation)
		raw = common.QuatNormalize(raw)
		copy(values[k:k+4], raw[:])
	}

	return model.Track{
		Kind:          model.TrackRotation,
		Bone:          b,
		Interpolation: ch.Interpolation,
		Times:         ch.Times,
		Values:        values,
	}
}

// hipsTrack maps the clip's hips translation into the avatar's hips parent space, scaled by hips height.
func (e *vrmaExtractorImpl) hipsTrack(ch gltfNodeChannel, avatar *model.Avatar, vrm0 bool) model.Track {
	src, _ := e.rig.Rest(model.BoneHips)
	dst, _ := avatar.Rest(model.BoneHips)

	var srcParentWorld [16]float32
	if !common.Invert4(srcParentWorld[:], src.ParentWorldInverse[:]) {
		common.Identity(srcParentWorld[:])
	}

	scale := float32(1)
	if srcHeight := src.WorldPosition[1]; srcHeight != 0 {
		scale = avatar.HipsHeight() / srcHeight
	}

	values := make([]float32, len(ch.Values))
	for k := 0; k+2 < len(ch.Values); k += 3 {
		w := common.TransformPoint(srcParentWorld[:], [3]float32(ch.Values[k:k+3]))
		w = common.Vec3Scale(w, scale)
		if vrm0 {
			w[0], w[2] = -w[0], -w[2]
		}
		local := common.TransformPoint(dst.ParentWorldInverse[:], w)
		copy(values[k:k+3], local[:])
	}

	return model.Track{
		Kind:          model.TrackTranslation,
		Bone:          model.BoneHips,
		Interpolation: ch.Interpolation,
		Times:         ch.Times,
		Values:        values,
	}
}
