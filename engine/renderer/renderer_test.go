package renderer

import (
	"testing"

	"github.com/Carmen-Shannon/deskvrm/engine/camera"
	"github.com/Carmen-Shannon/deskvrm/engine/loader"
	"github.com/Carmen-Shannon/deskvrm/engine/loader/loadertest"
	"github.com/Carmen-Shannon/deskvrm/engine/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// framedAvatar loads the test avatar, centers it and fits a camera to it.
func framedAvatar(t *testing.T) (*model.Avatar, camera.Camera) {
	t.Helper()
	avatar, err := loader.NewLoader(loader.BackendTypeGLTF).Load(loadertest.Avatar(loadertest.AvatarOptions{}))
	require.NoError(t, err)

	box := avatar.BoundingBox()
	mid := box.Center()
	avatar.Root.Position = [3]float32{-mid[0], -mid[1], -mid[2]}

	size := box.Size()
	cam := camera.NewCamera(camera.WithAspect(size[0] / size[1]))
	cam.FitToHeight(size[1])
	return avatar, cam
}

func alphaAt(t *testing.T, r Renderer, x, y int) uint8 {
	t.Helper()
	img := r.Frame()
	require.NotNil(t, img)
	return img.NRGBAAt(x, y).A
}

func TestSoftwareRenderer_DrawsAvatar(t *testing.T) {
	// --- Arrange ---
	avatar, cam := framedAvatar(t)
	r := NewRenderer(BackendTypeSoftware, nil, WithSize(100, 80))
	defer r.Release()

	// --- Act ---
	err := r.Render(avatar, cam)

	// --- Assert ---
	require.NoError(t, err)
	img := r.Frame()
	require.NotNil(t, img)
	assert.Equal(t, 100, img.Bounds().Dx())
	assert.Equal(t, 80, img.Bounds().Dy())
	assert.Equal(t, uint8(255), img.NRGBAAt(50, 40).A, "triangle center is covered")
	assert.Equal(t, uint8(0), img.NRGBAAt(2, 2).A, "corner stays transparent")
}

func TestSoftwareRenderer_NilAvatarClears(t *testing.T) {
	// --- Arrange ---
	avatar, cam := framedAvatar(t)
	r := NewRenderer(BackendTypeSoftware, nil, WithSize(100, 80))
	require.NoError(t, r.Render(avatar, cam))
	require.Equal(t, uint8(255), alphaAt(t, r, 50, 40))

	// --- Act ---
	err := r.Render(nil, cam)

	// --- Assert ---
	require.NoError(t, err)
	img := r.Frame()
	for i := 3; i < len(img.Pix); i += 4 {
		if img.Pix[i] != 0 {
			t.Fatalf("pixel %d is not transparent", i/4)
		}
	}
}

func TestSoftwareRenderer_BackFacesCulled(t *testing.T) {
	// --- Arrange ---
	avatar, cam := framedAvatar(t)
	avatar.Root.Rotation[1] = 0
	r := NewRenderer(BackendTypeSoftware, nil, WithSize(100, 80))

	// --- Act ---
	require.NoError(t, r.Render(avatar, cam))
	culled := alphaAt(t, r, 50, 40)
	avatar.Materials()[0].DoubleSided = true
	require.NoError(t, r.Render(avatar, cam))
	doubleSided := alphaAt(t, r, 50, 40)

	// --- Assert ---
	assert.Equal(t, uint8(0), culled)
	assert.Equal(t, uint8(255), doubleSided)
}

func TestSoftwareRenderer_BlendedMaterialIsTranslucent(t *testing.T) {
	// --- Arrange ---
	avatar, cam := framedAvatar(t)
	mat := avatar.Materials()[0]
	mat.AlphaMode = model.AlphaBlend
	mat.BaseColor[3] = 0.5
	r := NewRenderer(BackendTypeSoftware, nil, WithSize(100, 80))

	// --- Act ---
	require.NoError(t, r.Render(avatar, cam))

	// --- Assert ---
	assert.InDelta(t, 128, float64(alphaAt(t, r, 50, 40)), 2)
}

func TestSoftwareRenderer_Resize(t *testing.T) {
	// --- Arrange ---
	r := NewRenderer(BackendTypeSoftware, nil, WithSize(100, 80))

	// --- Act ---
	r.Resize(64, 32)
	r.Resize(0, 10)
	w, h := r.Size()

	// --- Assert ---
	assert.Equal(t, 64, w)
	assert.Equal(t, 32, h)
	assert.Equal(t, 64, r.Frame().Bounds().Dx())
	assert.Equal(t, 32, r.Frame().Bounds().Dy())
}

func TestShadeLinear(t *testing.T) {
	// --- Arrange ---
	l := Lighting{KeyDirection: [3]float32{0, 0, -1}, KeyIntensity: 1}
	m := &model.Material{ShadeColor: [3]float32{0.5, 0.25, 0}}
	base := [3]float32{0.8, 0.8, 0.8}

	// --- Act ---
	lit := shadeLinear(base, m, [3]float32{0, 0, -1}, &l)
	shaded := shadeLinear(base, m, [3]float32{0, 0, 1}, &l)
	m.Unlit = true
	m.Emissive = [3]float32{0.5, 0, 0}
	unlit := shadeLinear(base, m, [3]float32{0, 0, 1}, &l)

	// --- Assert ---
	assert.InDeltaSlice(t, []float32{0.8, 0.8, 0.8}, lit[:], 1e-6)
	assert.InDeltaSlice(t, []float32{0.4, 0.2, 0}, shaded[:], 1e-6)
	assert.InDeltaSlice(t, []float32{1, 0.8, 0.8}, unlit[:], 1e-6)
}

func TestParseBackendType(t *testing.T) {
	assert.Equal(t, BackendTypeSoftware, ParseBackendType("software"))
	assert.Equal(t, BackendTypeWGPU, ParseBackendType("wgpu"))
	assert.Equal(t, BackendTypeWGPU, ParseBackendType(""))
	assert.Equal(t, "software", BackendTypeSoftware.String())
}
