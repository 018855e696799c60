package ports

import "github.com/aretw0/itinera/pkg/domain"

// View renders the intents the engine emits.
// Render is always called from the engine's event loop and must not block on user input.
type View interface {
	Render(intent domain.Intent)
}

// ViewFunc adapts a function to View.
type ViewFunc func(domain.Intent)

// Render calls f(intent).
func (f ViewFunc) Render(intent domain.Intent) {
	f(intent)
}
