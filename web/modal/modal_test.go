package modal

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/a-h/templ"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func render(t *testing.T, c templ.Component) string {
	t.Helper()
	var b strings.Builder
	require.NoError(t, c.Render(context.Background(), &b))
	return b.String()
}

func textComponent(s string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := io.WriteString(w, s)
		return err
	})
}

func TestModal_RendersTitleAndBody(t *testing.T) {
	out := render(t, Modal("Settings", textComponent("<p>body</p>")))

	assert.Contains(t, out, `role="dialog"`)
	assert.Contains(t, out, `aria-modal="true"`)
	assert.Contains(t, out, `<h2 class="modal-title">Settings</h2>`)
	assert.Contains(t, out, "<p>body</p>")
}

func TestModal_EscapesTitle(t *testing.T) {
	out := render(t, Modal(`<script>alert("x")</script>`, nil))

	assert.NotContains(t, out, "<script>")
	assert.Contains(t, out, "&lt;script&gt;")
}

func TestModal_OmitsEmptyTitle(t *testing.T) {
	out := render(t, Modal("", nil))
	assert.NotContains(t, out, "modal-title")
}

func TestAuthModal(t *testing.T) {
	out := render(t, AuthModal())

	assert.Contains(t, out, "Welcome back")
	assert.Contains(t, out, `action="/auth/login"`)
	assert.Contains(t, out, `type="email"`)
	assert.Contains(t, out, `type="password"`)
}

func TestMountGuard_NothingBeforeMount(t *testing.T) {
	guard := NewMountGuard(AuthModal())

	assert.False(t, guard.Mounted())
	assert.Empty(t, render(t, guard))
}

func TestMountGuard_RendersChildAfterMount(t *testing.T) {
	guard := NewMountGuard(textComponent("dialog"))

	guard.Mount()
	assert.True(t, guard.Mounted())
	assert.Equal(t, "dialog", render(t, guard))

	// Renders are stable after the transition.
	assert.Equal(t, "dialog", render(t, guard))
}

func TestMountGuard_MountIsOneWayAndIdempotent(t *testing.T) {
	guard := NewMountGuard(textComponent("dialog"))

	guard.Mount()
	guard.Mount()
	assert.True(t, guard.Mounted())
	assert.Equal(t, "dialog", render(t, guard))
}

func TestMountGuard_NilChild(t *testing.T) {
	guard := NewMountGuard(nil)

	guard.Mount()
	assert.Empty(t, render(t, guard))
}
