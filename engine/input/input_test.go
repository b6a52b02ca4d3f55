package input

import (
	"testing"

	"github.com/Carmen-Shannon/deskvrm/common"
	"github.com/stretchr/testify/assert"
)

func TestQueue_DrainAccumulatesAndResets(t *testing.T) {
	// --- Arrange ---
	q := NewQueue()
	q.MoveTo(10, 10, 110, 210)
	q.MoveTo(15, 8, 115, 208)
	q.MoveTo(20, 4, 120, 204)
	q.Scroll(-100)
	q.Scroll(-100)
	q.Press(common.MouseLeft)
	q.Key(common.Key1)

	// --- Act ---
	first := q.Drain()
	second := q.Drain()

	// --- Assert ---
	assert.Equal(t, 10.0, first.DX)
	assert.Equal(t, -6.0, first.DY)
	assert.Equal(t, -200.0, first.WheelDelta)
	assert.True(t, first.Pressed[common.MouseLeft])
	assert.Equal(t, []uint32{common.Key1}, first.Keys)
	assert.Equal(t, 120.0, first.GlobalX)

	assert.Equal(t, 0.0, second.DX)
	assert.Equal(t, 0.0, second.WheelDelta)
	assert.False(t, second.Pressed[common.MouseLeft])
	assert.True(t, second.Buttons[common.MouseLeft])
	assert.Nil(t, second.Keys)
	assert.Equal(t, 20.0, second.X)
}

func TestQueue_LeaveReleasesHeldButtons(t *testing.T) {
	// --- Arrange ---
	q := NewQueue()
	q.Press(common.MouseLeft)
	q.Press(common.MouseRight)
	q.Drain()

	// --- Act ---
	q.Leave()
	s := q.Drain()

	// --- Assert ---
	assert.True(t, s.Left)
	assert.True(t, s.AnyReleased())
	assert.False(t, s.Held(common.MouseLeft))
}

func TestIsRotateGesture(t *testing.T) {
	tests := []struct {
		name    string
		buttons []int
		want    bool
	}{
		{name: "none", want: false},
		{name: "left only", buttons: []int{common.MouseLeft}, want: false},
		{name: "left and right", buttons: []int{common.MouseLeft, common.MouseRight}, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := NewQueue()
			for _, b := range tt.buttons {
				q.Press(b)
			}
			assert.Equal(t, tt.want, IsRotateGesture(q.Drain()))
		})
	}
}

func TestQueue_IgnoresUnknownButtons(t *testing.T) {
	q := NewQueue()
	q.Press(7)
	q.Release(-1)

	s := q.Drain()
	assert.Equal(t, [ButtonCount]bool{}, s.Buttons)
}
