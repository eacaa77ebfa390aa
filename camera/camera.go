// Package camera provides a 2D camera for viewing the world from above.
package camera

// Camera maps world X/Z coordinates onto a screen viewport.
// The view shows a single tile of the wrapped world and is kept inside it
// whenever the visible area is smaller than the world.
type Camera struct {
	// Position is the camera center in world coordinates
	X, Z float32

	// Zoom in screen pixels per world unit
	Zoom float32

	// Viewport dimensions (screen size)
	ViewportW, ViewportH float32

	// World extent along X and Z
	WorldW, WorldD float32

	// Zoom constraints
	MinZoom, MaxZoom float32
}

// maxZoomFactor bounds how far past the fit-to-view zoom the camera can go.
const maxZoomFactor = 8

// New creates a camera that shows the whole world centered in the viewport.
func New(viewportW, viewportH, worldW, worldD float32) *Camera {
	c := &Camera{
		ViewportW: viewportW,
		ViewportH: viewportH,
		WorldW:    worldW,
		WorldD:    worldD,
	}
	c.fit()
	c.Reset()
	return c
}

// fit derives the zoom range: at MinZoom the whole world fits the viewport.
func (c *Camera) fit() {
	c.MinZoom = min(c.ViewportW/c.WorldW, c.ViewportH/c.WorldD)
	c.MaxZoom = c.MinZoom * maxZoomFactor
}

// WorldToScreen converts world coordinates to viewport coordinates.
func (c *Camera) WorldToScreen(wx, wz float32) (sx, sy float32) {
	sx = c.ViewportW/2 + (wx-c.X)*c.Zoom
	sy = c.ViewportH/2 + (wz-c.Z)*c.Zoom
	return sx, sy
}

// ScreenToWorld converts viewport coordinates to world coordinates.
func (c *Camera) ScreenToWorld(sx, sy float32) (wx, wz float32) {
	wx = c.X + (sx-c.ViewportW/2)/c.Zoom
	wz = c.Z + (sy-c.ViewportH/2)/c.Zoom
	return wx, wz
}

// IsVisible returns true if a circle at (wx, wz) with the given world
// radius could be visible on screen (conservative check for culling).
func (c *Camera) IsVisible(wx, wz, radius float32) bool {
	halfW := c.ViewportW/(2*c.Zoom) + radius
	halfH := c.ViewportH/(2*c.Zoom) + radius
	return absf(wx-c.X) <= halfW && absf(wz-c.Z) <= halfH
}

// Resize updates viewport dimensions and recalculates zoom constraints.
func (c *Camera) Resize(viewportW, viewportH float32) {
	if viewportW == c.ViewportW && viewportH == c.ViewportH {
		return
	}
	c.ViewportW = viewportW
	c.ViewportH = viewportH
	c.fit()
	c.SetZoom(c.Zoom)
}

// Pan moves the view by the given delta in screen pixels. Dragging the
// world to the right moves the camera to the left.
func (c *Camera) Pan(dx, dy float32) {
	c.X -= dx / c.Zoom
	c.Z -= dy / c.Zoom
	c.clampCenter()
}

// SetZoom sets the zoom level, clamped to min/max.
func (c *Camera) SetZoom(zoom float32) {
	c.Zoom = clamp(zoom, c.MinZoom, c.MaxZoom)
	c.clampCenter()
}

// ZoomBy multiplies the current zoom by the given factor.
func (c *Camera) ZoomBy(factor float32) {
	c.SetZoom(c.Zoom * factor)
}

// ZoomAt zooms by factor while keeping the world point under (sx, sy)
// fixed on screen, unless that would push the view past the world edge.
func (c *Camera) ZoomAt(factor, sx, sy float32) {
	wx, wz := c.ScreenToWorld(sx, sy)
	c.Zoom = clamp(c.Zoom*factor, c.MinZoom, c.MaxZoom)
	c.X = wx - (sx-c.ViewportW/2)/c.Zoom
	c.Z = wz - (sy-c.ViewportH/2)/c.Zoom
	c.clampCenter()
}

// Reset shows the whole world.
func (c *Camera) Reset() {
	c.X = c.WorldW / 2
	c.Z = c.WorldD / 2
	c.Zoom = c.MinZoom
}

// VisibleWorldBounds returns the world-coordinate bounds of the visible
// area, clipped to the world.
func (c *Camera) VisibleWorldBounds() (minX, minZ, maxX, maxZ float32) {
	halfW := c.ViewportW / (2 * c.Zoom)
	halfH := c.ViewportH / (2 * c.Zoom)

	minX = max(0, c.X-halfW)
	maxX = min(c.WorldW, c.X+halfW)
	minZ = max(0, c.Z-halfH)
	maxZ = min(c.WorldD, c.Z+halfH)
	return
}

// clampCenter keeps the view inside the world on each axis where the
// visible span is smaller than the world, and centers it otherwise.
func (c *Camera) clampCenter() {
	c.X = clampAxis(c.X, c.ViewportW/(2*c.Zoom), c.WorldW)
	c.Z = clampAxis(c.Z, c.ViewportH/(2*c.Zoom), c.WorldD)
}

func clampAxis(center, half, size float32) float32 {
	if 2*half >= size {
		return size / 2
	}
	return clamp(center, half, size-half)
}

// absf returns the absolute value of a float32.
func absf(x float32) float32 {
	if x < 0 {
		return -x
	}
	return x
}

// clamp restricts a value to a range.
func clamp(x, lo, hi float32) float32 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
