package export

import (
	"image"
	"image/color"

	xdraw "golang.org/x/image/draw"
)

// compositor owns the output surface. Every render tick it repaints the
// surface with the current video frame, or the static backdrop when no frame
// is live, scaled to fit with the aspect ratio preserved and black bars
// filling the rest.
type compositor struct {
	width    int
	height   int
	surface  *image.RGBA
	backdrop image.Image
	scaler   xdraw.Scaler
}

func newCompositor(width, height int, backdrop image.Image) *compositor {
	return &compositor{
		width:    width,
		height:   height,
		surface:  image.NewRGBA(image.Rect(0, 0, width, height)),
		backdrop: backdrop,
		scaler:   xdraw.ApproxBiLinear,
	}
}

// Render repaints and returns the surface. The returned image is reused
// between ticks; callers must consume it before the next call.
func (c *compositor) Render(frame image.Image) *image.RGBA {
	xdraw.Draw(c.surface, c.surface.Bounds(), image.NewUniform(color.Black), image.Point{}, xdraw.Src)

	src := frame
	if src == nil {
		src = c.backdrop
	}
	if src == nil {
		return c.surface
	}
	dst := fitRect(src.Bounds(), c.surface.Bounds())
	c.scaler.Scale(c.surface, dst, src, src.Bounds(), xdraw.Src, nil)
	return c.surface
}

// fitRect letterboxes src into out: the largest centered rectangle with
// src's aspect ratio that fits inside out.
func fitRect(src, out image.Rectangle) image.Rectangle {
	sw, sh := src.Dx(), src.Dy()
	ow, oh := out.Dx(), out.Dy()
	if sw <= 0 || sh <= 0 || ow <= 0 || oh <= 0 {
		return image.Rectangle{}
	}

	w := ow
	h := ow * sh / sw
	if h > oh {
		h = oh
		w = oh * sw / sh
	}
	x := out.Min.X + (ow-w)/2
	y := out.Min.Y + (oh-h)/2
	return image.Rect(x, y, x+w, y+h)
}
