package services

import (
	"bytes"
	"fmt"
	"image/color"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"

	"github.com/bobarin/certvid/internal/models"
)

// Overlay asset geometry — a 600x600 transparent PNG holding the circular
// photo with a decorative ring.
const (
	OverlaySize = 600

	ringRadius = 295
	ringWidth  = 10
)

// ringColor is the accent gold used for the decorative border.
var ringColor = color.RGBA{R: 212, G: 175, B: 55, A: 255}

// BuildOverlay turns raw photo bytes into the circular overlay asset:
// cover-fit crop to 600x600, circular alpha mask, ring stroke on top,
// written as a PNG with alpha to outPath.
//
// The mask and border are drawn as vector circles rather than a pixel mask,
// so the asset stays clean at any source resolution.
func BuildOverlay(photo []byte, outPath string) error {
	src, err := imaging.Decode(bytes.NewReader(photo), imaging.AutoOrientation(true))
	if err != nil {
		return &models.Error{
			Kind:    models.KindImageDecode,
			Message: "Photo could not be read as an image",
			Err:     fmt.Errorf("decode photo: %w", err),
		}
	}

	// Cover fit: fill 600x600, cropping overflow, keeping aspect ratio.
	square := imaging.Fill(src, OverlaySize, OverlaySize, imaging.Center, imaging.Lanczos)

	dc := gg.NewContext(OverlaySize, OverlaySize)

	// Everything outside the circle stays transparent.
	dc.DrawCircle(OverlaySize/2, OverlaySize/2, OverlaySize/2)
	dc.Clip()
	dc.DrawImage(square, 0, 0)
	dc.ResetClip()

	dc.SetColor(ringColor)
	dc.SetLineWidth(ringWidth)
	dc.DrawCircle(OverlaySize/2, OverlaySize/2, ringRadius)
	dc.Stroke()

	if err := dc.SavePNG(outPath); err != nil {
		return &models.Error{
			Kind:    models.KindIO,
			Message: "Failed to write overlay image",
			Err:     fmt.Errorf("save overlay png: %w", err),
		}
	}
	return nil
}
