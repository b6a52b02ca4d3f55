package common

// Virtual key codes for cross-platform input handling.
// These values match GLFW key codes which use ASCII values for printable keys.
// Reference: https://pkg.go.dev/github.com/go-gl/glfw/v3.3/glfw#Key
const (
	KeySpace = 32  // Spacebar (ASCII)
	KeyEsc   = 256 // Escape key (GLFW)

	Key0 = 48 // 0 key (ASCII)
	Key1 = 49 // 1 key (ASCII)
	Key2 = 50 // 2 key (ASCII)
	Key3 = 51 // 3 key (ASCII)
	Key4 = 52 // 4 key (ASCII)
	Key5 = 53 // 5 key (ASCII)
	Key6 = 54 // 6 key (ASCII)
	Key7 = 55 // 7 key (ASCII)
	Key8 = 56 // 8 key (ASCII)
	Key9 = 57 // 9 key (ASCII)
)

// Mouse buttons, matching GLFW button indices.
const (
	MouseLeft   = 0
	MouseRight  = 1
	MouseMiddle = 2
)

// ClipHotkey maps the digit keys to clip slots. Keys 1-9 select slots 0-8, key 0 means stop.
//
// Parameters:
//   - key: the virtual key code
//
// Returns:
//   - int: the zero-based clip slot, or -1 for the stop key
//   - bool: false when key is not a digit
func ClipHotkey(key uint32) (int, bool) {
	switch {
	case key == Key0:
		return -1, true
	case key >= Key1 && key <= Key9:
		return int(key - Key1), true
	}
	return 0, false
}
