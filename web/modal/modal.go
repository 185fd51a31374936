// Package modal renders dialog components and defers their first paint until
// the hosting page signals that it has completed its initial render. Dialogs
// are templ components so any templ-rendered layout can compose them.
package modal

import (
	"context"
	"io"
	"sync/atomic"

	"github.com/a-h/templ"
)

// Modal returns a generic dialog component with an escaped title and an
// optional body component.
func Modal(title string, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, `<div class="modal-overlay"><div class="modal" role="dialog" aria-modal="true">`); err != nil {
			return err
		}
		if title != "" {
			if _, err := io.WriteString(w, `<h2 class="modal-title">`+templ.EscapeString(title)+`</h2>`); err != nil {
				return err
			}
		}
		if body != nil {
			if err := body.Render(ctx, w); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, `</div></div>`)
		return err
	})
}

// AuthModal returns the authentication dialog.
func AuthModal() templ.Component {
	body := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := io.WriteString(w,
			`<form class="auth-form" method="post" action="/auth/login">`+
				`<input type="email" name="email" placeholder="Email" required>`+
				`<input type="password" name="password" placeholder="Password" required>`+
				`<button type="submit">Log in</button>`+
				`</form>`)
		return err
	})
	return Modal("Welcome back", body)
}

// MountGuard wraps a dialog component and renders nothing until Mount is
// called. It has exactly two states, unmounted and mounted, and one one-way
// transition between them: the host invokes Mount from its first post-render
// callback, so the dialog never appears in the initial non-interactive
// render. After the transition every render emits exactly the child dialog.
type MountGuard struct {
	child   templ.Component
	mounted atomic.Bool
}

// NewMountGuard creates a guard around the given dialog component.
func NewMountGuard(child templ.Component) *MountGuard {
	return &MountGuard{child: child}
}

// Mount transitions the guard to the mounted state. Further calls have no
// effect; there is no way back to unmounted.
func (g *MountGuard) Mount() {
	g.mounted.Store(true)
}

// Mounted reports whether the transition has happened.
func (g *MountGuard) Mounted() bool {
	return g.mounted.Load()
}

// Render implements templ.Component: nothing before Mount, the child dialog
// after.
func (g *MountGuard) Render(ctx context.Context, w io.Writer) error {
	if !g.mounted.Load() || g.child == nil {
		return nil
	}
	return g.child.Render(ctx, w)
}
