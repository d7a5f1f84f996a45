// Package camera maps the fluid box onto the screen.
package camera

// Camera controls the viewport into the simulation box.
// World coordinates are y-up and centred on the origin; screen
// coordinates are y-down pixels.
type Camera struct {
	// Position is the camera center in world coordinates
	X, Y float32

	// Zoom in pixels per world unit
	Zoom float32

	// Viewport dimensions (screen size)
	ViewportW, ViewportH float32

	// Half extents of the box; the centre is kept inside it
	HalfW, HalfH float32

	// Zoom constraints
	MinZoom, MaxZoom float32

	defaultZoom float32
}

// New creates a camera centered on the box. zoom <= 0 fits the box to the viewport.
func New(viewportW, viewportH, halfW, halfH, zoom float32) *Camera {
	c := &Camera{
		ViewportW: viewportW,
		ViewportH: viewportH,
		HalfW:     halfW,
		HalfH:     halfH,
	}
	c.updateLimits()
	if zoom <= 0 {
		zoom = c.FitZoom()
	}
	c.defaultZoom = clamp(zoom, c.MinZoom, c.MaxZoom)
	c.Zoom = c.defaultZoom
	return c
}

// FitZoom returns the zoom at which the whole box fits the viewport.
func (c *Camera) FitZoom() float32 {
	return min(c.ViewportW/(2*c.HalfW), c.ViewportH/(2*c.HalfH))
}

func (c *Camera) updateLimits() {
	fit := c.FitZoom()
	c.MinZoom = fit / 4
	c.MaxZoom = fit * 16
}

// WorldToScreen converts world coordinates to screen coordinates.
func (c *Camera) WorldToScreen(wx, wy float32) (sx, sy float32) {
	sx = c.ViewportW/2 + (wx-c.X)*c.Zoom
	sy = c.ViewportH/2 - (wy-c.Y)*c.Zoom
	return sx, sy
}

// ScreenToWorld converts screen coordinates to world coordinates.
func (c *Camera) ScreenToWorld(sx, sy float32) (wx, wy float32) {
	wx = c.X + (sx-c.ViewportW/2)/c.Zoom
	wy = c.Y - (sy-c.ViewportH/2)/c.Zoom
	return wx, wy
}

// WorldLength converts a world distance to pixels.
func (c *Camera) WorldLength(d float32) float32 {
	return d * c.Zoom
}

// IsVisible returns true if a circle at (wx, wy) with given radius
// could be visible on screen (conservative check for culling).
func (c *Camera) IsVisible(wx, wy, radius float32) bool {
	halfW := c.ViewportW/(2*c.Zoom) + radius
	halfH := c.ViewportH/(2*c.Zoom) + radius
	return absf(wx-c.X) <= halfW && absf(wy-c.Y) <= halfH
}

// Resize updates viewport dimensions and recalculates zoom constraints.
func (c *Camera) Resize(viewportW, viewportH float32) {
	if viewportW == c.ViewportW && viewportH == c.ViewportH {
		return
	}
	c.ViewportW = viewportW
	c.ViewportH = viewportH
	c.updateLimits()
	c.Zoom = clamp(c.Zoom, c.MinZoom, c.MaxZoom)
}

// SetBounds changes the box the camera is constrained to.
func (c *Camera) SetBounds(halfW, halfH float32) {
	c.HalfW = halfW
	c.HalfH = halfH
	c.updateLimits()
	c.Zoom = clamp(c.Zoom, c.MinZoom, c.MaxZoom)
	c.X = clamp(c.X, -halfW, halfW)
	c.Y = clamp(c.Y, -halfH, halfH)
}

// Pan moves the camera by the given delta in screen pixels.
// The centre stays inside the box.
func (c *Camera) Pan(dx, dy float32) {
	c.X = clamp(c.X+dx/c.Zoom, -c.HalfW, c.HalfW)
	c.Y = clamp(c.Y-dy/c.Zoom, -c.HalfH, c.HalfH)
}

// SetZoom sets the zoom level, clamped to min/max.
func (c *Camera) SetZoom(zoom float32) {
	c.Zoom = clamp(zoom, c.MinZoom, c.MaxZoom)
}

// ZoomBy multiplies the current zoom by the given factor.
func (c *Camera) ZoomBy(factor float32) {
	c.SetZoom(c.Zoom * factor)
}

// Reset returns the camera to the default position and zoom.
func (c *Camera) Reset() {
	c.X = 0
	c.Y = 0
	c.Zoom = c.defaultZoom
}

// VisibleWorldBounds returns the world-coordinate bounds of the visible area.
func (c *Camera) VisibleWorldBounds() (minX, minY, maxX, maxY float32) {
	halfW := c.ViewportW / (2 * c.Zoom)
	halfH := c.ViewportH / (2 * c.Zoom)

	minX = c.X - halfW
	maxX = c.X + halfW
	minY = c.Y - halfH
	maxY = c.Y + halfH
	return
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
