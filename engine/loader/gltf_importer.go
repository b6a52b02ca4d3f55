package loader

import (
	"fmt"
	"math"

	"github.com/Carmen-Shannon/deskvrm/engine/model"
)

// importSettings carries the loader options the importer applies after extraction.
type importSettings struct {
	armRestAngle   float32
	maxTextureSize int
}

// gltfImporterImpl is the implementation of the gltfImporter interface.
type gltfImporterImpl struct{}

// gltfImporter defines the interface for orchestrating a full VRM or VRMA import.
// It combines the parser and all extractors to produce a posable avatar or a bound clip.
type gltfImporter interface {
	// ImportAvatar parses VRM bytes and assembles an avatar: node graph, humanoid table, meshes, materials,
	// expressions and spring bones. Shadows are disabled and the baseline arm pose is applied.
	//
	// Parameters:
	//   - data: the VRM (GLB) bytes
	//   - settings: the loader settings
	//
	// Returns:
	//   - *model.Avatar: the avatar
	//   - error: error if import fails
	ImportAvatar(data []byte, settings importSettings) (*model.Avatar, error)

	// ImportClip parses VRMA bytes and retargets the motion onto avatar.
	//
	// Parameters:
	//   - name: the clip name
	//   - data: the VRMA (GLB) bytes
	//   - avatar: the avatar the clip is bound to
	//
	// Returns:
	//   - *model.AnimationClip: the bound clip
	//   - error: error if import fails
	ImportClip(name string, data []byte, avatar *model.Avatar) (*model.AnimationClip, error)
}

var _ gltfImporter = &gltfImporterImpl{}

// newGLTFImporter creates a new importer.
//
// Returns:
//   - gltfImporter: the importer
func newGLTFImporter() gltfImporter {
	return &gltfImporterImpl{}
}

func (imp *gltfImporterImpl) ImportAvatar(data []byte, settings importSettings) (*model.Avatar, error) {
	parser := newGLTFParser()
	if err := parser.Parse(data); err != nil {
		return nil, err
	}

	vrm, err := newVRMExtractor(parser)
	if err != nil {
		return nil, err
	}

	skeletonExtractor := newGLTFSkeletonExtractor(parser)
	meshExtractor := newGLTFMeshExtractor(parser)
	materialExtractor := newGLTFMaterialExtractor(parser, settings.maxTextureSize)

	nodes, err := skeletonExtractor.ExtractNodes()
	if err != nil {
		return nil, fmt.Errorf("node extraction failed: %w", err)
	}

	bones, err := vrm.HumanBones(len(nodes))
	if err != nil {
		return nil, err
	}

	meshes, err := meshExtractor.ExtractAllMeshes()
	if err != nil {
		return nil, fmt.Errorf("mesh extraction failed: %w", err)
	}

	skins, err := skeletonExtractor.ExtractAllSkins()
	if err != nil {
		return nil, fmt.Errorf("skin extraction failed: %w", err)
	}

	materials, err := materialExtractor.ExtractAllMaterials()
	if err != nil {
		return nil, fmt.Errorf("material extraction failed: %w", err)
	}
	vrm.ApplyMaterialProperties(materials)

	avatar := model.NewAvatar(
		model.WithName(vrm.Name()),
		model.WithNodes(nodes),
		model.WithSceneNodes(skeletonExtractor.SceneNodes()),
		model.WithMeshes(meshes),
		model.WithSkins(skins),
		model.WithInstances(skeletonExtractor.ExtractInstances()),
		model.WithMaterials(materials),
		model.WithHumanBones(bones),
		model.WithExpressions(vrm.Expressions(nodes, meshes)),
		model.WithMetaVersion(vrm.MetaVersion()),
	)

	// VRM 1.0 faces +Z; turn it to face the camera like VRM 0.x.
	if vrm.MetaVersion() == vrmMetaVersionV1 {
		avatar.Root.Rotation[1] = math.Pi
	}

	avatar.SetCastShadow(false)
	avatar.ApplyArmBaseline(settings.armRestAngle)

	if joints, colliders, groups := vrm.SpringBones(nodes); len(joints) > 0 {
		avatar.SetPhysics(model.NewSpringBoneSolver(avatar, joints, colliders, groups))
	}

	avatar.UpdateWorld()
	return avatar, nil
}

func (imp *gltfImporterImpl) ImportClip(name string, data []byte, avatar *model.Avatar) (*model.AnimationClip, error) {
	parser := newGLTFParser()
	if err := parser.Parse(data); err != nil {
		return nil, err
	}

	vrma, err := newVRMAExtractor(parser)
	if err != nil {
		return nil, err
	}

	return vrma.Retarget(name, avatar)
}
