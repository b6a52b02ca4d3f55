package animator

import "github.com/Carmen-Shannon/deskvrm/engine/model"

// ClipManagerBuilderOption is a functional option for configuring a ClipManager during construction.
type ClipManagerBuilderOption func(*clipManager)

// WithClipAvatar binds an avatar during construction.
//
// Parameters:
//   - a: the avatar clips will be bound to
//
// Returns:
//   - ClipManagerBuilderOption: a function that binds the avatar to a clip manager
func WithClipAvatar(a *model.Avatar) ClipManagerBuilderOption {
	return func(m *clipManager) {
		m.SetAvatar(a)
	}
}
