package thumbnail

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"testing"

	"github.com/Carmen-Shannon/deskvrm/engine/assetstore"
	"github.com/Carmen-Shannon/deskvrm/engine/loader"
	"github.com/Carmen-Shannon/deskvrm/engine/loader/loadertest"
	"github.com/Carmen-Shannon/deskvrm/engine/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/webp"
)

func testAvatar(t *testing.T) *model.Avatar {
	t.Helper()
	avatar, err := loader.NewLoader(loader.BackendTypeGLTF).Load(loadertest.Avatar(loadertest.AvatarOptions{}))
	require.NoError(t, err)
	return avatar
}

func TestName(t *testing.T) {
	assert.Equal(t, "alice.webp", Name("alice.vrm"))
	assert.Equal(t, "bob.webp", Name("models/bob.vrm"))
	assert.Equal(t, "carol.webp", Name("carol"))
}

func TestSize(t *testing.T) {
	w, h := Size(100, 1.25)
	assert.Equal(t, 125, w)
	assert.Equal(t, 100, h)

	w, h = Size(0, 0)
	assert.Equal(t, 1, w)
	assert.Equal(t, 1, h)
}

func TestGenerator_RenderFramesAvatar(t *testing.T) {
	// --- Arrange ---
	avatar := testAvatar(t)
	avatar.Root.Position = [3]float32{5, 6, 7}
	g := NewGenerator(WithHeight(100))

	// --- Act ---
	img, err := g.Render(avatar)

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 125, 100), img.Bounds())
	assert.Greater(t, img.NRGBAAt(62, 50).A, uint8(200), "center is covered")
	assert.Equal(t, uint8(0), img.NRGBAAt(0, 0).A, "corner stays transparent")
	assert.Equal(t, [3]float32{5, 6, 7}, avatar.Root.Position)
}

func TestGenerator_RenderNilAvatar(t *testing.T) {
	_, err := NewGenerator().Render(nil)
	assert.ErrorIs(t, err, ErrEmptyAvatar)
}

func TestDownsample_KeepsOpaqueColor(t *testing.T) {
	// --- Arrange ---
	src := image.NewNRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			src.SetNRGBA(x, y, color.NRGBA{R: 200, G: 100, B: 50, A: 255})
		}
	}

	// --- Act ---
	dst := Downsample(src, 4, 4)

	// --- Assert ---
	assert.Equal(t, color.NRGBA{R: 200, G: 100, B: 50, A: 255}, dst.NRGBAAt(2, 2))
	assert.Same(t, src, Downsample(src, 8, 8))
}

func TestGenerator_GenerateStoresWebP(t *testing.T) {
	// --- Arrange ---
	store, err := assetstore.NewFileStore(t.TempDir())
	require.NoError(t, err)
	g := NewGenerator(WithHeight(40), WithSupersample(1))
	ctx := context.Background()

	// --- Act ---
	name, err := g.Generate(ctx, testAvatar(t), store, "alice.vrm")

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, "alice.webp", name)

	data, err := store.Read(ctx, name)
	require.NoError(t, err)
	img, err := webp.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 50, 40), img.Bounds())

	models, err := store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, models, "thumbnails are not listed as models")
}
