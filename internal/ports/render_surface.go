package ports

import "fleet-playback-service/internal/domain"

// RenderSurface receives finished playback output. It never sees fetch
// failures, cache state or coalescing.
type RenderSurface interface {
	Render(view domain.PlaybackView)
	Clear()
}
