package engine

import (
	"context"
	"fmt"
	"log"
	"math"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/deskvrm/common"
	"github.com/Carmen-Shannon/deskvrm/engine/animator"
	"github.com/Carmen-Shannon/deskvrm/engine/camera"
	"github.com/Carmen-Shannon/deskvrm/engine/input"
	"github.com/Carmen-Shannon/deskvrm/engine/loader"
	"github.com/Carmen-Shannon/deskvrm/engine/model"
	"github.com/Carmen-Shannon/deskvrm/engine/profiler"
	"github.com/Carmen-Shannon/deskvrm/engine/tracking"
	"github.com/Carmen-Shannon/deskvrm/engine/window"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// DefaultBaseHeight is the surface height in pixels at zero zoom.
const DefaultBaseHeight = 500

const tracerName = "github.com/Carmen-Shannon/deskvrm/engine"

// HostSurface is the desktop surface the engine sizes to the avatar. window.Window satisfies it.
type HostSurface interface {
	// Resize requests a new surface size in pixels.
	Resize(width, height int)

	// Move places the surface at screen coordinates.
	Move(x, y int)

	// Position returns the surface position in screen coordinates.
	Position() (int, int)

	// Close closes the surface.
	Close() error

	// InvalidateShadow asks the compositor to recompute the surface shadow.
	InvalidateShadow()

	// SetCursorGrab hides and captures the cursor while true.
	SetCursorGrab(grab bool)
}

// FrameRenderer draws the avatar. renderer.Renderer satisfies it.
type FrameRenderer interface {
	// Render draws one frame; a nil avatar clears the surface.
	Render(avatar *model.Avatar, cam camera.Camera) error

	// Resize changes the render target size.
	Resize(width, height int)

	// Release frees the renderer's resources.
	Release()
}

// GeometryCallback runs once per frame after the surface fit and before rendering.
// It may mutate bone transforms and reports whether it changed anything.
type GeometryCallback func(avatar *model.Avatar) bool

// LoadCallback reports the outcome of an asynchronous load.
type LoadCallback func(avatar *model.Avatar, err error)

// ClipCallback reports the outcome of one asynchronous clip registration. A nil err means the clip was registered.
type ClipCallback func(name string, err error)

// loadResult is a finished load posted by a pool worker.
type loadResult struct {
	id     int64
	source string
	avatar *model.Avatar
	err    error
}

// clipResult is a finished clip parse posted by a pool worker. avatar is the skeleton the clip was parsed against.
type clipResult struct {
	name   string
	avatar *model.Avatar
	clip   *model.AnimationClip
	err    error
}

// frameGeometry is the last surface size applied to the host.
type frameGeometry struct {
	width  int
	height int
}

// engine implements the Engine interface.
// All fields below the lifecycle block are touched only on the frame thread.
type engine struct {
	frameMu      sync.Mutex
	disposed     atomic.Bool
	disposeOnce  sync.Once
	teardownOnce sync.Once
	done         chan struct{}

	pool     worker.DynamicWorkerPool
	loads    chan loadResult
	loadSeq  atomic.Int64
	boundSeq int64
	clipsIn  chan clipResult
	clipSeq  atomic.Int64
	workers  int

	window   window.Window
	surface  HostSurface
	input    *input.Queue
	renderer FrameRenderer
	camera   camera.Camera
	loader   loader.Loader
	animator animator.Animator
	clips    animator.ClipManager
	drag     *tracking.WindowDrag

	dragEnabled bool
	playOptions animator.PlayOptions

	avatar       *model.Avatar
	clipDriven   bool
	baseHeight   float64
	zoom         float64
	geometry     frameGeometry
	grabbing     bool
	shadow       *Debouncer
	shadowWindow time.Duration

	geometryCallback GeometryCallback
	onLoad           LoadCallback
	onClip           ClipCallback

	now       func() time.Time
	lastFrame time.Time
	started   bool

	profiler         *profiler.Profiler
	profilingEnabled bool
	renderFrameLimit time.Duration
	verbose          bool
}

// Engine is the render loop coordinator. Each frame it advances the active animation source, frames the
// avatar's bounding box with the camera, sizes the host surface to it, runs the geometry callback,
// schedules the debounced shadow refresh and renders.
//
// Frame, SetAvatar, RegisterClips, LoadClipDir and the subsystem accessors belong to the frame thread.
// LoadAvatar, LoadAvatarFile and Dispose may be called from any goroutine.
type Engine interface {
	// Window returns the window the engine was built with, or nil when driven headless.
	Window() window.Window

	// LoadAvatar parses VRM bytes on the worker pool. The result is bound at the start of a later frame
	// and reported through the OnLoad callback.
	//
	// Parameters:
	//   - data: the VRM bytes
	LoadAvatar(data []byte)

	// LoadAvatarFile reads and parses a VRM file on the worker pool.
	//
	// Parameters:
	//   - path: the file path
	LoadAvatarFile(path string)

	// SetAvatar binds an avatar synchronously, resetting the animator and the clip registry.
	//
	// Parameters:
	//   - avatar: the avatar, or nil to unbind
	SetAvatar(avatar *model.Avatar)

	// Avatar returns the bound avatar, or nil.
	Avatar() *model.Avatar

	// Clips returns the clip manager.
	Clips() animator.ClipManager

	// RegisterClips parses a batch of clips against the bound avatar on the worker pool and returns at once.
	// Each clip is registered at the start of a later frame and reported through the OnClip callback.
	// Clips parsed for an avatar that has since been replaced are discarded.
	//
	// Parameters:
	//   - clips: clip bytes keyed by name
	RegisterClips(clips map[string][]byte)

	// LoadClipDir reads the .vrma files of dir on the worker pool and registers them like RegisterClips.
	//
	// Parameters:
	//   - dir: the clip directory
	LoadClipDir(dir string)

	// Animator returns the procedural animator.
	Animator() animator.Animator

	// Camera returns the framing camera.
	Camera() camera.Camera

	// SetGeometryCallback replaces the per-frame geometry callback.
	//
	// Parameters:
	//   - fn: the callback, or nil to clear it
	SetGeometryCallback(fn GeometryCallback)

	// OnLoad sets the callback receiving each asynchronous load outcome.
	//
	// Parameters:
	//   - fn: the callback, or nil to clear it
	OnLoad(fn LoadCallback)

	// OnClip sets the callback receiving each clip registration outcome.
	//
	// Parameters:
	//   - fn: the callback, or nil to clear it
	OnClip(fn ClipCallback)

	// Zoom returns the accumulated wheel zoom in pixels.
	Zoom() float64

	// SurfaceSize returns the last surface size applied to the host.
	SurfaceSize() (int, int)

	// EnableProfiler enables performance profiling output to the log.
	EnableProfiler()

	// DisableProfiler disables performance profiling output.
	DisableProfiler()

	// SetRenderFrameLimit sets an optional render frame rate cap in frames per second.
	// Pass 0 to uncap the render loop (default).
	//
	// Parameters:
	//   - fps: maximum render frames per second (0 = uncapped)
	SetRenderFrameLimit(fps float64)

	// Frame runs one iteration of the render loop. It is a no-op after Dispose.
	Frame()

	// Run drives Frame from the window message loop until the window closes, then disposes the engine.
	Run()

	// Dispose stops playback, drops the avatar, stops the worker pool, releases the renderer and
	// closes the surface. It is idempotent and safe while a frame is in flight.
	Dispose()

	// Disposed reports whether Dispose has been called.
	Disposed() bool
}

var _ Engine = &engine{}

// NewEngine creates a new Engine instance with the provided options.
// Without options the engine is headless: no surface, no renderer and a default loader, animator and camera.
//
// Parameters:
//   - options: functional options for engine configuration
//
// Returns:
//   - Engine: the newly created engine
func NewEngine(options ...EngineBuilderOption) Engine {
	e := &engine{
		done:         make(chan struct{}),
		loads:        make(chan loadResult, 4),
		clipsIn:      make(chan clipResult, 16),
		workers:      2,
		dragEnabled:  true,
		playOptions:  animator.DefaultPlayOptions(),
		baseHeight:   DefaultBaseHeight,
		shadowWindow: DefaultShadowDebounce,
		now:          time.Now,
		profiler:     profiler.NewProfiler(),
	}

	for _, opt := range options {
		opt(e)
	}

	if e.loader == nil {
		e.loader = loader.NewLoader(loader.BackendTypeGLTF)
	}
	if e.animator == nil {
		e.animator = animator.NewAnimator()
	}
	if e.clips == nil {
		e.clips = animator.NewClipManager(e.loader)
	}
	if e.camera == nil {
		e.camera = camera.NewCamera()
	}
	if e.input == nil {
		e.input = input.NewQueue()
	}
	if e.surface != nil && e.dragEnabled {
		e.drag = tracking.NewWindowDrag(e.surface)
	}
	e.shadow = NewDebouncer(e.shadowWindow, e.flushShadow)

	e.pool = worker.NewDynamicWorkerPool(e.workers, 16, time.Second)
	e.pool.Start()

	if e.window != nil {
		e.window.SetResizeCallback(func(width, height int) {
			if e.renderer != nil {
				e.renderer.Resize(width, height)
			}
		})
	}

	return e
}

func (e *engine) Window() window.Window {
	return e.window
}

func (e *engine) LoadAvatar(data []byte) {
	e.submitLoad("bytes", func() (*model.Avatar, error) {
		return e.loader.Load(data)
	})
}

func (e *engine) LoadAvatarFile(path string) {
	e.submitLoad(path, func() (*model.Avatar, error) {
		return e.loader.LoadFile(path)
	})
}

// submitLoad queues a load on the worker pool. The result is posted to the completion channel unless
// the engine is disposed first.
func (e *engine) submitLoad(source string, load func() (*model.Avatar, error)) {
	if e.disposed.Load() {
		return
	}
	id := e.loadSeq.Add(1)
	e.pool.SubmitTask(worker.Task{
		ID:      int(id),
		Payload: source,
		Do: func() (any, error) {
			_, span := otel.Tracer(tracerName).Start(context.Background(), "engine.LoadAvatar",
				trace.WithAttributes(attribute.String("deskvrm.source", source)))
			defer span.End()

			avatar, err := load()
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
			}

			select {
			case e.loads <- loadResult{id: id, source: source, avatar: avatar, err: err}:
			case <-e.done:
			}
			return avatar, err
		},
	})
}

// drainLoads binds the loads completed since the previous frame. Results older than the last bound load are discarded.
func (e *engine) drainLoads() {
	for {
		select {
		case r := <-e.loads:
			e.completeLoad(r)
		default:
			return
		}
	}
}

func (e *engine) completeLoad(r loadResult) {
	if r.id < e.boundSeq {
		log.Printf("[Engine] discarding stale load of %s", r.source)
		return
	}
	e.boundSeq = r.id

	if r.err != nil {
		log.Printf("[Engine] load of %s failed: %v", r.source, r.err)
	} else {
		log.Printf("[Engine] bound avatar from %s", r.source)
		e.SetAvatar(r.avatar)
	}
	if e.onLoad != nil {
		e.onLoad(r.avatar, r.err)
	}
}

func (e *engine) SetAvatar(avatar *model.Avatar) {
	e.clips.SetAvatar(avatar)
	e.animator.SetAvatar(avatar)
	e.avatar = avatar
	e.clipDriven = false
	e.grabbing = false
}

func (e *engine) Avatar() *model.Avatar {
	return e.avatar
}

func (e *engine) Clips() animator.ClipManager {
	return e.clips
}

func (e *engine) RegisterClips(clips map[string][]byte) {
	if e.disposed.Load() || len(clips) == 0 {
		return
	}
	go e.submitClips(e.avatar, clips)
}

func (e *engine) LoadClipDir(dir string) {
	if e.disposed.Load() {
		return
	}
	avatar := e.avatar
	task := worker.Task{
		ID:      int(e.clipSeq.Add(1)),
		Payload: dir,
		Do: func() (any, error) {
			clips, err := animator.ReadClipDir(dir)
			if err != nil {
				err = fmt.Errorf("failed to read clip directory %q: %w", dir, err)
				e.postClip(clipResult{name: dir, avatar: avatar, err: err})
				return nil, err
			}
			if len(clips) == 0 {
				log.Printf("[Engine] no clips found in %s", dir)
				return 0, nil
			}
			go e.submitClips(avatar, clips)
			return len(clips), nil
		},
	}
	go e.pool.SubmitTask(task)
}

// submitClips queues one parse per clip on the worker pool in name order. It runs off the frame thread
// because SubmitTask blocks while the queue is full.
func (e *engine) submitClips(avatar *model.Avatar, clips map[string][]byte) {
	names := make([]string, 0, len(clips))
	for name := range clips {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if e.disposed.Load() {
			return
		}
		if avatar == nil {
			e.postClip(clipResult{name: name, err: animator.ErrNoAvatar})
			continue
		}
		data := clips[name]
		e.pool.SubmitTask(worker.Task{
			ID:      int(e.clipSeq.Add(1)),
			Payload: name,
			Do: func() (any, error) {
				clip, err := e.loader.ParseClip(name, data, avatar)
				if err != nil {
					err = fmt.Errorf("failed to register clip %q: %w", name, err)
				}
				e.postClip(clipResult{name: name, avatar: avatar, clip: clip, err: err})
				return clip, err
			},
		})
	}
}

// postClip hands a clip result to the frame thread unless the engine is disposed first.
func (e *engine) postClip(r clipResult) {
	select {
	case e.clipsIn <- r:
	case <-e.done:
	}
}

// drainClips registers the clips parsed since the previous frame.
func (e *engine) drainClips() {
	for {
		select {
		case r := <-e.clipsIn:
			e.completeClip(r)
		default:
			return
		}
	}
}

func (e *engine) completeClip(r clipResult) {
	err := r.err
	if err == nil {
		if r.avatar != e.avatar {
			log.Printf("[Engine] discarding clip %q parsed for a replaced avatar", r.name)
			return
		}
		err = e.clips.AddClip(r.clip)
	}
	if err != nil {
		log.Printf("[Engine] clip %s: %v", r.name, err)
	}
	if e.onClip != nil {
		e.onClip(r.name, err)
	}
}

func (e *engine) Animator() animator.Animator {
	return e.animator
}

func (e *engine) Camera() camera.Camera {
	return e.camera
}

func (e *engine) SetGeometryCallback(fn GeometryCallback) {
	e.geometryCallback = fn
}

func (e *engine) OnLoad(fn LoadCallback) {
	e.onLoad = fn
}

func (e *engine) OnClip(fn ClipCallback) {
	e.onClip = fn
}

func (e *engine) Zoom() float64 {
	return e.zoom
}

func (e *engine) SurfaceSize() (int, int) {
	return e.geometry.width, e.geometry.height
}

// EnableProfiler enables performance profiling output to the log.
func (e *engine) EnableProfiler() {
	e.profilingEnabled = true
}

// DisableProfiler disables performance profiling output.
func (e *engine) DisableProfiler() {
	e.profilingEnabled = false
}

// SetRenderFrameLimit sets an optional render frame rate cap.
// Pass 0 to uncap the render loop.
func (e *engine) SetRenderFrameLimit(fps float64) {
	if fps <= 0 {
		e.renderFrameLimit = 0
		return
	}
	e.renderFrameLimit = time.Duration(float64(time.Second) / fps)
}

func (e *engine) Frame() {
	if e.disposed.Load() {
		return
	}
	e.frameMu.Lock()
	defer func() {
		e.frameMu.Unlock()
		// A Dispose that lost the lock to this frame leaves the teardown to whoever holds it next.
		if e.disposed.Load() && e.frameMu.TryLock() {
			e.teardown()
			e.frameMu.Unlock()
		}
	}()
	// Recover from panics inside a frame so one bad frame does not end the session.
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[Engine] frame recovered from panic: %v", r)
		}
	}()
	if e.disposed.Load() {
		return
	}

	started := time.Now()
	now := e.now()
	var dt float32
	if e.started {
		dt = float32(now.Sub(e.lastFrame).Seconds())
	}
	e.lastFrame = now
	e.started = true

	e.drainLoads()
	e.drainClips()

	snap := e.input.Drain()
	changed := e.handlePointer(snap)
	e.handleKeys(snap.Keys)

	if e.avatar != nil {
		e.animate(dt)
		if e.fitSurface() {
			changed = true
		}
	}

	if cb := e.geometryCallback; cb != nil && cb(e.avatar) {
		changed = true
	}
	if e.disposed.Load() {
		return
	}

	if changed {
		e.shadow.Trigger(now)
	}

	if e.renderer != nil {
		if err := e.renderer.Render(e.avatar, e.camera); err != nil {
			log.Printf("[Engine] render failed: %v", err)
		}
	}

	e.shadow.Poll(now)

	if e.profilingEnabled && e.profiler != nil {
		e.profiler.RecordFrame(time.Since(started))
		e.profiler.Tick()
	}
}

// animate advances the clip manager when a clip is active and the procedural animator otherwise.
// The procedural pose is settled once when a clip takes over so its offsets do not leak into the clip.
func (e *engine) animate(dt float32) {
	if _, active := e.clips.ActiveClip(); active {
		if !e.clipDriven {
			e.animator.Settle()
			e.clipDriven = true
		}
		e.clips.Update(dt)
		e.avatar.Update(dt)
		return
	}
	e.clipDriven = false
	e.animator.Update(dt)
}

// fitSurface re-centers the avatar on its bounding box, frames the box with the camera and resizes the
// host surface when the rounded size changes.
//
// Returns:
//   - bool: true if the surface was resized
func (e *engine) fitSurface() bool {
	e.avatar.Root.Position = [3]float32{}
	box := e.avatar.BoundingBox()
	if box.IsEmpty() {
		return false
	}
	e.avatar.Root.Position = common.Vec3Scale(box.Center(), -1)

	size := box.Size()
	aspect := float32(1)
	if size[1] > 0 {
		aspect = size[0] / size[1]
	}
	e.camera.SetAspect(aspect)
	e.camera.FitToHeight(size[1])

	width, height := SurfaceSize(e.baseHeight, e.zoom, aspect)
	if width == e.geometry.width && height == e.geometry.height {
		return false
	}
	e.geometry = frameGeometry{width: width, height: height}
	if e.surface != nil {
		e.surface.Resize(width, height)
	}
	if e.renderer != nil {
		e.renderer.Resize(width, height)
	}
	if e.profiler != nil {
		e.profiler.RecordResize()
	}
	if e.verbose {
		log.Printf("[Engine] surface resized to %dx%d", width, height)
	}
	return true
}

// SurfaceSize computes the host surface size for a framed aspect ratio. Both sides are at least 1.
//
// Parameters:
//   - baseHeight: the height at zero zoom
//   - zoom: the accumulated wheel zoom
//   - aspect: the framed width / height
//
// Returns:
//   - int: the width in pixels
//   - int: the height in pixels
func SurfaceSize(baseHeight, zoom float64, aspect float32) (int, int) {
	h := baseHeight + zoom
	width := int(math.Round(h * float64(aspect)))
	height := int(math.Round(h))
	return max(width, 1), max(height, 1)
}

// handlePointer applies the wheel zoom, the two-button rotate gesture and the window drag.
//
// Returns:
//   - bool: true if the avatar was rotated
func (e *engine) handlePointer(s input.Snapshot) bool {
	if s.WheelDelta != 0 {
		e.zoom -= s.WheelDelta / 10
	}

	if e.drag != nil {
		e.drag.Update(s)
	}

	rotating := input.IsRotateGesture(s) && !s.Left
	if !rotating {
		if e.grabbing {
			e.grabbing = false
			e.setCursorGrab(false)
		}
		return false
	}
	if !e.grabbing {
		e.grabbing = true
		e.setCursorGrab(true)
	}
	if e.avatar == nil || (s.DX == 0 && s.DY == 0) {
		return false
	}
	e.avatar.Root.Rotation[0] -= float32(s.DY / 100 / math.Pi / 2)
	e.avatar.Root.Rotation[1] += float32(s.DX / 100 / math.Pi / 2)
	return true
}

func (e *engine) setCursorGrab(grab bool) {
	if e.surface != nil {
		e.surface.SetCursorGrab(grab)
	}
}

// handleKeys maps digit hotkeys onto the sorted clip list; 0 stops playback.
func (e *engine) handleKeys(keys []uint32) {
	for _, k := range keys {
		slot, ok := common.ClipHotkey(k)
		if !ok {
			continue
		}
		if slot < 0 {
			e.clips.Stop()
			continue
		}
		names := e.clips.ListClipNames()
		if slot >= len(names) {
			continue
		}
		e.clips.Play(names[slot], e.playOptions)
	}
}

func (e *engine) flushShadow() {
	if e.surface != nil {
		e.surface.InvalidateShadow()
	}
	if e.profiler != nil {
		e.profiler.RecordShadowFlush()
	}
}

func (e *engine) Run() {
	if e.window == nil {
		log.Println("[Engine] Run requires a window; drive Frame directly when headless")
		return
	}

	e.window.SetUpdateCallback(func() {
		start := time.Now()
		e.Frame()
		if e.renderFrameLimit > 0 {
			if remaining := e.renderFrameLimit - time.Since(start); remaining > 0 {
				time.Sleep(remaining)
			}
		}
	})
	e.window.ProcessMessages()
	e.Dispose()
}

func (e *engine) Dispose() {
	e.disposeOnce.Do(func() {
		e.disposed.Store(true)
		if e.frameMu.TryLock() {
			defer e.frameMu.Unlock()
			e.teardown()
		}
	})
}

func (e *engine) Disposed() bool {
	return e.disposed.Load()
}

// teardown releases everything once. It runs under frameMu, either from Dispose or right after the
// frame that was in flight when Dispose was called.
func (e *engine) teardown() {
	e.teardownOnce.Do(func() {
		close(e.done)
		e.clips.Dispose()
		e.animator.SetAvatar(nil)
		e.avatar = nil
		e.shadow.Cancel()
		e.pool.Stop()

		if e.renderer != nil {
			e.renderer.Release()
		}
		if e.surface != nil {
			if err := e.surface.Close(); err != nil {
				log.Printf("[Engine] closing surface: %v", err)
			}
		}
	})
}
