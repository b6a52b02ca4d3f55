package engine

import (
	"math"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/Carmen-Shannon/deskvrm/common"
	"github.com/Carmen-Shannon/deskvrm/engine/animator"
	"github.com/Carmen-Shannon/deskvrm/engine/camera"
	"github.com/Carmen-Shannon/deskvrm/engine/input"
	"github.com/Carmen-Shannon/deskvrm/engine/loader"
	"github.com/Carmen-Shannon/deskvrm/engine/loader/loadertest"
	"github.com/Carmen-Shannon/deskvrm/engine/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSurface struct {
	resizes [][2]int
	x, y    int
	moves   int
	closes  int
	shadows int
	grabs   []bool
}

func (s *fakeSurface) Resize(width, height int) { s.resizes = append(s.resizes, [2]int{width, height}) }
func (s *fakeSurface) Position() (int, int)     { return s.x, s.y }
func (s *fakeSurface) InvalidateShadow()        { s.shadows++ }
func (s *fakeSurface) SetCursorGrab(grab bool)  { s.grabs = append(s.grabs, grab) }

func (s *fakeSurface) Move(x, y int) {
	s.x, s.y = x, y
	s.moves++
}

func (s *fakeSurface) Close() error {
	s.closes++
	return nil
}

type fakeRenderer struct {
	renders    int
	nilRenders int
	resizes    [][2]int
	releases   int
	panicOnce  bool
}

func (r *fakeRenderer) Render(avatar *model.Avatar, _ camera.Camera) error {
	if r.panicOnce {
		r.panicOnce = false
		panic("device lost")
	}
	r.renders++
	if avatar == nil {
		r.nilRenders++
	}
	return nil
}

func (r *fakeRenderer) Resize(width, height int) { r.resizes = append(r.resizes, [2]int{width, height}) }
func (r *fakeRenderer) Release()                 { r.releases++ }

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

type harness struct {
	engine   Engine
	surface  *fakeSurface
	renderer *fakeRenderer
	clock    *fakeClock
	input    *input.Queue
}

func newHarness(t *testing.T, options ...EngineBuilderOption) *harness {
	t.Helper()
	h := &harness{
		surface:  &fakeSurface{},
		renderer: &fakeRenderer{},
		clock:    &fakeClock{t: time.Unix(1000, 0)},
		input:    input.NewQueue(),
	}
	quiet := animator.NewAnimator(
		animator.WithBlink(false),
		animator.WithBreathing(false),
		animator.WithIdleMotion(false),
		animator.WithSpringBone(false),
	)
	base := []EngineBuilderOption{
		WithHostSurface(h.surface),
		WithRenderer(h.renderer),
		WithClock(h.clock.Now),
		WithInputQueue(h.input),
		WithAnimator(quiet),
	}
	h.engine = NewEngine(append(base, options...)...)
	t.Cleanup(h.engine.Dispose)
	return h
}

func loadAvatar(t *testing.T) *model.Avatar {
	t.Helper()
	a, err := loader.NewLoader(loader.BackendTypeGLTF).Load(loadertest.Avatar(loadertest.AvatarOptions{}))
	require.NoError(t, err)
	return a
}

func TestSurfaceSize(t *testing.T) {
	// --- Act ---
	w, h := SurfaceSize(500, 0, 1.25)
	zw, zh := SurfaceSize(500, -20, 1.25)
	mw, mh := SurfaceSize(500, -600, 1)

	// --- Assert ---
	assert.Equal(t, [2]int{625, 500}, [2]int{w, h})
	assert.Equal(t, [2]int{600, 480}, [2]int{zw, zh})
	assert.Equal(t, [2]int{1, 1}, [2]int{mw, mh})
}

func TestEngine_ResizesOnlyWhenSizeChanges(t *testing.T) {
	// --- Arrange ---
	h := newHarness(t)
	avatar := loadAvatar(t)
	h.engine.SetAvatar(avatar)

	// --- Act ---
	for i := 0; i < 4; i++ {
		h.engine.Frame()
		h.clock.Advance(16 * time.Millisecond)
	}

	// --- Assert ---
	require.Len(t, h.surface.resizes, 1)
	assert.Equal(t, [2]int{625, 500}, h.surface.resizes[0])
	assert.Equal(t, h.surface.resizes, h.renderer.resizes)
	w, hh := h.engine.SurfaceSize()
	assert.Equal(t, 625, w)
	assert.Equal(t, 500, hh)
	assert.Equal(t, 4, h.renderer.renders)
}

func TestEngine_CentersAvatarAndFramesCamera(t *testing.T) {
	// --- Arrange ---
	h := newHarness(t)
	avatar := loadAvatar(t)
	h.engine.SetAvatar(avatar)

	// --- Act ---
	h.engine.Frame()

	// --- Assert ---
	center := avatar.BoundingBox().Center()
	for i := 0; i < 3; i++ {
		assert.InDelta(t, 0, center[i], 1e-4)
	}
	cam := h.engine.Camera()
	assert.InDelta(t, 1.25, cam.Aspect(), 1e-4)
	assert.InDelta(t, camera.FitDistance(0.8, cam.Fov()), cam.Position()[2], 1e-4)
}

func TestEngine_WheelZoomResizes(t *testing.T) {
	// --- Arrange ---
	h := newHarness(t)
	h.engine.SetAvatar(loadAvatar(t))
	h.engine.Frame()

	// --- Act ---
	h.input.Scroll(2 * input.WheelNotch)
	h.engine.Frame()

	// --- Assert ---
	assert.Equal(t, -20.0, h.engine.Zoom())
	require.Len(t, h.surface.resizes, 2)
	assert.Equal(t, [2]int{600, 480}, h.surface.resizes[1])
}

func TestEngine_TwoButtonDragRotates(t *testing.T) {
	// --- Arrange ---
	h := newHarness(t)
	avatar := loadAvatar(t)
	h.engine.SetAvatar(avatar)
	startRot := avatar.Root.Rotation

	// --- Act ---
	h.input.Press(common.MouseLeft)
	h.input.Press(common.MouseRight)
	h.input.MoveTo(10, 10, 110, 110)
	h.engine.Frame()
	grabbedRot := avatar.Root.Rotation

	h.input.MoveTo(30, 50, 130, 150)
	h.engine.Frame()
	rotated := avatar.Root.Rotation

	h.input.Release(common.MouseRight)
	h.engine.Frame()

	// --- Assert ---
	assert.Equal(t, startRot, grabbedRot)
	assert.InDelta(t, float64(startRot[0])-40.0/100/math.Pi/2, float64(rotated[0]), 1e-5)
	assert.InDelta(t, float64(startRot[1])+20.0/100/math.Pi/2, float64(rotated[1]), 1e-5)
	assert.Equal(t, []bool{true, false}, h.surface.grabs)
	assert.Zero(t, h.surface.moves, "rotate gesture must not drag the window")
}

func TestEngine_LeftDragMovesWindow(t *testing.T) {
	// --- Arrange ---
	h := newHarness(t)
	h.surface.x, h.surface.y = 100, 200

	// --- Act ---
	h.input.MoveTo(5, 5, 105, 205)
	h.input.Press(common.MouseLeft)
	h.engine.Frame()
	h.input.MoveTo(5, 5, 155, 235)
	h.engine.Frame()

	// --- Assert ---
	assert.Equal(t, 1, h.surface.moves)
	assert.Equal(t, 150, h.surface.x)
	assert.Equal(t, 230, h.surface.y)
	assert.Empty(t, h.surface.grabs)
}

func TestEngine_ShadowRefreshIsDebounced(t *testing.T) {
	// --- Arrange ---
	h := newHarness(t)
	h.engine.SetAvatar(loadAvatar(t))

	// --- Act ---
	h.engine.Frame()
	afterResize := h.surface.shadows
	h.clock.Advance(10 * time.Millisecond)
	h.engine.Frame()
	beforeDeadline := h.surface.shadows
	h.clock.Advance(10 * time.Millisecond)
	h.engine.Frame()
	afterDeadline := h.surface.shadows
	h.clock.Advance(50 * time.Millisecond)
	h.engine.Frame()

	// --- Assert ---
	assert.Zero(t, afterResize)
	assert.Zero(t, beforeDeadline)
	assert.Equal(t, 1, afterDeadline)
	assert.Equal(t, 1, h.surface.shadows, "unchanged frames schedule nothing")
}

func TestEngine_GeometryCallbackRunsEveryFrame(t *testing.T) {
	// --- Arrange ---
	h := newHarness(t)
	var seen []*model.Avatar
	h.engine.SetGeometryCallback(func(a *model.Avatar) bool {
		seen = append(seen, a)
		return a != nil
	})
	avatar := loadAvatar(t)

	// --- Act ---
	h.engine.Frame()
	h.engine.SetAvatar(avatar)
	h.engine.Frame()

	// --- Assert ---
	require.Len(t, seen, 2)
	assert.Nil(t, seen[0])
	assert.Same(t, avatar, seen[1])
	assert.Equal(t, 1, h.renderer.nilRenders)
}

func TestEngine_HotkeysPlayAndStopClips(t *testing.T) {
	// --- Arrange ---
	h := newHarness(t)
	h.engine.SetAvatar(loadAvatar(t))
	clips := h.engine.Clips()
	require.NoError(t, clips.RegisterClip("wave", loadertest.Clip(loadertest.ClipOptions{Duration: 1.2})))
	require.NoError(t, clips.RegisterClip("nod", loadertest.Clip(loadertest.ClipOptions{Duration: 0.8})))

	// --- Act ---
	h.input.Key(common.Key2)
	h.engine.Frame()
	afterPlay, playing := clips.ActiveClip()

	h.input.Key(common.Key9)
	h.engine.Frame()
	afterUnknown, _ := clips.ActiveClip()

	h.input.Key(common.Key0)
	h.engine.Frame()
	_, stillPlaying := clips.ActiveClip()

	// --- Assert ---
	assert.True(t, playing)
	assert.Equal(t, "wave", afterPlay)
	assert.Equal(t, "wave", afterUnknown)
	assert.False(t, stillPlaying)
}

// gatedLoader holds every clip parse until release is closed and reports each parse it starts.
type gatedLoader struct {
	loader.Loader
	started chan string
	release chan struct{}
}

func newGatedLoader() *gatedLoader {
	return &gatedLoader{
		Loader:  loader.NewLoader(loader.BackendTypeGLTF),
		started: make(chan string, 16),
		release: make(chan struct{}),
	}
}

func (l *gatedLoader) ParseClip(name string, data []byte, avatar *model.Avatar) (*model.AnimationClip, error) {
	l.started <- name
	<-l.release
	return l.Loader.ParseClip(name, data, avatar)
}

// clipLog records OnClip outcomes. It is only touched from Frame.
type clipLog map[string]error

func (c clipLog) record(name string, err error) { c[name] = err }

func TestEngine_RegisterClipsParsesBatch(t *testing.T) {
	// --- Arrange ---
	h := newHarness(t, WithLoadWorkers(3))
	h.engine.SetAvatar(loadAvatar(t))
	results := clipLog{}
	h.engine.OnClip(results.record)
	batch := map[string][]byte{
		"wave":   loadertest.Clip(loadertest.ClipOptions{Duration: 1.2}),
		"nod":    loadertest.Clip(loadertest.ClipOptions{Duration: 0.8}),
		"broken": []byte("not a glb"),
	}

	// --- Act ---
	h.engine.RegisterClips(batch)
	require.Eventually(t, func() bool {
		h.engine.Frame()
		return len(results) == 3
	}, 5*time.Second, 5*time.Millisecond)

	// --- Assert ---
	assert.ErrorIs(t, results["broken"], loader.ErrNotGLB)
	assert.NoError(t, results["wave"])
	assert.NoError(t, results["nod"])
	assert.Equal(t, []string{"nod", "wave"}, h.engine.Clips().ListClipNames())
	wave, ok := h.engine.Clips().Clip("wave")
	require.True(t, ok)
	assert.InDelta(t, 1.2, float64(wave.Duration()), 1e-6)
}

func TestEngine_RegisterClipsDoesNotBlockFrame(t *testing.T) {
	// --- Arrange ---
	gated := newGatedLoader()
	h := newHarness(t, WithLoader(gated))
	release := sync.OnceFunc(func() { close(gated.release) })
	t.Cleanup(release)
	h.engine.SetAvatar(loadAvatar(t))
	results := clipLog{}
	h.engine.OnClip(results.record)

	// --- Act ---
	h.engine.RegisterClips(map[string][]byte{"wave": loadertest.Clip(loadertest.ClipOptions{Duration: 1.2})})
	<-gated.started
	frameDone := make(chan struct{})
	go func() {
		h.engine.Frame()
		close(frameDone)
	}()

	// --- Assert ---
	select {
	case <-frameDone:
	case <-time.After(2 * time.Second):
		t.Fatal("frame waited for a clip parse")
	}
	assert.Empty(t, h.engine.Clips().ListClipNames())
	assert.Empty(t, results)

	release()
	require.Eventually(t, func() bool {
		h.engine.Frame()
		return len(results) == 1
	}, 5*time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"wave"}, h.engine.Clips().ListClipNames())
}

func TestEngine_RegisterClipsDiscardsClipsOfReplacedAvatar(t *testing.T) {
	// --- Arrange ---
	gated := newGatedLoader()
	h := newHarness(t, WithLoader(gated), WithLoadWorkers(1))
	release := sync.OnceFunc(func() { close(gated.release) })
	t.Cleanup(release)
	h.engine.SetAvatar(loadAvatar(t))
	results := clipLog{}
	h.engine.OnClip(results.record)

	// --- Act ---
	h.engine.RegisterClips(map[string][]byte{"wave": loadertest.Clip(loadertest.ClipOptions{})})
	<-gated.started
	h.engine.SetAvatar(loadAvatar(t))
	h.engine.RegisterClips(map[string][]byte{"nod": loadertest.Clip(loadertest.ClipOptions{})})
	release()
	require.Eventually(t, func() bool {
		h.engine.Frame()
		return len(results) > 0
	}, 5*time.Second, 5*time.Millisecond)

	// --- Assert ---
	assert.Equal(t, clipLog{"nod": nil}, results)
	assert.Equal(t, []string{"nod"}, h.engine.Clips().ListClipNames())
}

func TestEngine_RegisterClipsWithoutAvatar(t *testing.T) {
	// --- Arrange ---
	h := newHarness(t)
	results := clipLog{}
	h.engine.OnClip(results.record)

	// --- Act ---
	h.engine.RegisterClips(map[string][]byte{"wave": loadertest.Clip(loadertest.ClipOptions{})})
	require.Eventually(t, func() bool {
		h.engine.Frame()
		return len(results) == 1
	}, 5*time.Second, 5*time.Millisecond)

	// --- Assert ---
	assert.ErrorIs(t, results["wave"], animator.ErrNoAvatar)
	assert.Empty(t, h.engine.Clips().ListClipNames())
}

func TestEngine_LoadClipDirRegistersFiles(t *testing.T) {
	// --- Arrange ---
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "wave.vrma"), loadertest.Clip(loadertest.ClipOptions{Duration: 1.2}), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Nod.VRMA"), loadertest.Clip(loadertest.ClipOptions{Duration: 0.8}), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))
	h := newHarness(t)
	h.engine.SetAvatar(loadAvatar(t))
	results := clipLog{}
	h.engine.OnClip(results.record)

	// --- Act ---
	h.engine.LoadClipDir(dir)
	require.Eventually(t, func() bool {
		h.engine.Frame()
		return len(results) == 2
	}, 5*time.Second, 5*time.Millisecond)

	// --- Assert ---
	assert.Equal(t, []string{"Nod", "wave"}, h.engine.Clips().ListClipNames())
}

func TestEngine_AsyncLoadBindsOnLaterFrame(t *testing.T) {
	// --- Arrange ---
	h := newHarness(t)
	var loaded *model.Avatar
	var loadErr error
	calls := 0
	h.engine.OnLoad(func(a *model.Avatar, err error) {
		loaded, loadErr = a, err
		calls++
	})

	// --- Act ---
	h.engine.LoadAvatar(loadertest.Avatar(loadertest.AvatarOptions{}))
	boundImmediately := h.engine.Avatar()
	require.Eventually(t, func() bool {
		h.engine.Frame()
		return h.engine.Avatar() != nil
	}, 5*time.Second, 5*time.Millisecond)

	// --- Assert ---
	assert.Nil(t, boundImmediately)
	assert.Equal(t, 1, calls)
	assert.NoError(t, loadErr)
	assert.Same(t, loaded, h.engine.Avatar())
	assert.Same(t, loaded, h.engine.Animator().Avatar())
}

func TestEngine_AsyncLoadFailureIsReported(t *testing.T) {
	// --- Arrange ---
	h := newHarness(t)
	var loadErr error
	calls := 0
	h.engine.OnLoad(func(_ *model.Avatar, err error) {
		loadErr = err
		calls++
	})

	// --- Act ---
	h.engine.LoadAvatar(nil)
	require.Eventually(t, func() bool {
		h.engine.Frame()
		return calls > 0
	}, 5*time.Second, 5*time.Millisecond)
	h.engine.Frame()

	// --- Assert ---
	assert.Equal(t, 1, calls)
	assert.ErrorIs(t, loadErr, loader.ErrEmptyInput)
	assert.Nil(t, h.engine.Avatar())
	assert.Equal(t, h.renderer.renders, h.renderer.nilRenders)
}

func TestEngine_DisposeIsIdempotent(t *testing.T) {
	// --- Arrange ---
	h := newHarness(t)
	h.engine.SetAvatar(loadAvatar(t))
	require.NoError(t, h.engine.Clips().RegisterClip("wave", loadertest.Clip(loadertest.ClipOptions{})))
	h.engine.Clips().Play("wave", animator.DefaultPlayOptions())
	h.engine.Frame()
	renders := h.renderer.renders

	// --- Act ---
	h.engine.Dispose()
	h.engine.Dispose()
	h.engine.Frame()
	h.engine.LoadAvatar(loadertest.Avatar(loadertest.AvatarOptions{}))

	// --- Assert ---
	assert.True(t, h.engine.Disposed())
	assert.Nil(t, h.engine.Avatar())
	_, playing := h.engine.Clips().ActiveClip()
	assert.False(t, playing)
	assert.Equal(t, 1, h.surface.closes)
	assert.Equal(t, 1, h.renderer.releases)
	assert.Equal(t, renders, h.renderer.renders)
}

func TestEngine_DisposeDuringFrameTearsDownAtFrameEnd(t *testing.T) {
	// --- Arrange ---
	h := newHarness(t)
	h.engine.SetAvatar(loadAvatar(t))
	calls := 0
	h.engine.SetGeometryCallback(func(*model.Avatar) bool {
		calls++
		h.engine.Dispose()
		return true
	})

	// --- Act ---
	h.engine.Frame()
	h.engine.Frame()

	// --- Assert ---
	assert.Equal(t, 1, calls)
	assert.Zero(t, h.renderer.renders)
	assert.Equal(t, 1, h.surface.closes)
	assert.Nil(t, h.engine.Avatar())
}

func TestEngine_DisposeFromOtherGoroutineDuringFrame(t *testing.T) {
	// --- Arrange ---
	h := newHarness(t)
	h.engine.SetAvatar(loadAvatar(t))
	h.engine.SetGeometryCallback(func(*model.Avatar) bool {
		disposed := make(chan struct{})
		go func() {
			h.engine.Dispose()
			close(disposed)
		}()
		<-disposed
		return false
	})

	// --- Act ---
	h.engine.Frame()

	// --- Assert ---
	assert.True(t, h.engine.Disposed())
	assert.Equal(t, 1, h.surface.closes)
	assert.Equal(t, 1, h.renderer.releases)
	assert.Nil(t, h.engine.Avatar())
}

func TestEngine_ConcurrentDisposeAlwaysTearsDown(t *testing.T) {
	for i := 0; i < 200; i++ {
		// --- Arrange ---
		h := newHarness(t)
		h.engine.SetAvatar(loadAvatar(t))
		var wg sync.WaitGroup
		wg.Add(2)

		// --- Act ---
		go func() {
			defer wg.Done()
			for !h.engine.Disposed() {
				h.engine.Frame()
			}
			h.engine.Frame()
		}()
		go func() {
			defer wg.Done()
			h.engine.Dispose()
		}()
		wg.Wait()

		// --- Assert ---
		require.Equal(t, 1, h.surface.closes, "iteration %d", i)
		require.Equal(t, 1, h.renderer.releases, "iteration %d", i)
	}
}

func TestEngine_FramePanicIsRecovered(t *testing.T) {
	// --- Arrange ---
	h := newHarness(t)
	h.renderer.panicOnce = true

	// --- Act / Assert ---
	assert.NotPanics(t, h.engine.Frame)
	h.engine.Frame()
	assert.Equal(t, 1, h.renderer.renders)
	assert.False(t, h.engine.Disposed())
}
