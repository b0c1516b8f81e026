package services

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Canvas and placement constants. The template video is letterboxed onto a
// fixed portrait canvas; the circular photo sits centered on (620, 425) and
// the name is drawn horizontally centered on x=620 at y=820.
const (
	CanvasWidth  = 1240
	CanvasHeight = 1748

	overlayCenterX = 620
	overlayCenterY = 425

	textCenterX  = 620
	textY        = 820
	textFontSize = 70
	textColor    = "white"

	outputFileName = "certificate.mp4"
)

// RenderPlan holds everything the render pipeline needs: the computed
// geometry, the sanitized display text, and the assembled filter graph.
// It is immutable once built.
type RenderPlan struct {
	Width    int
	Height   int
	OverlayX int
	OverlayY int

	Text     string
	FontPath string

	OutputPath  string
	FilterGraph string
}

// SanitizeName prepares user text for display and for safe embedding in the
// filter graph: trims surrounding whitespace, uppercases, and strips ':' and
// '"' entirely (both would terminate or corrupt quoted filter arguments).
// The result is trimmed again because stripping can expose new edge
// whitespace. Idempotent.
func SanitizeName(raw string) string {
	s := strings.ToUpper(strings.TrimSpace(raw))
	s = strings.ReplaceAll(s, ":", "")
	s = strings.ReplaceAll(s, `"`, "")
	return strings.TrimSpace(s)
}

// escapeFilterValue escapes a value for inclusion inside a single-quoted
// filter argument. Backslashes first, then colons, then single quotes —
// without this, user text or a font path could break out of the quoted
// expression and inject extra filter stages.
func escapeFilterValue(v string) string {
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, ":", `\:`)
	v = strings.ReplaceAll(v, "'", `'\''`)
	return v
}

// filterChain accumulates filter-graph stages and joins them into the final
// -filter_complex expression.
type filterChain struct {
	stages []string
}

func (f *filterChain) add(format string, args ...interface{}) {
	f.stages = append(f.stages, fmt.Sprintf(format, args...))
}

func (f *filterChain) String() string {
	return strings.Join(f.stages, ";")
}

// BuildPlan computes the render plan for a sanitized name. name must already
// be the output of SanitizeName; fontPath is the bundled font asset and
// workDir the request workspace receiving the output file.
func BuildPlan(name, fontPath, workDir string) *RenderPlan {
	plan := &RenderPlan{
		Width:      CanvasWidth,
		Height:     CanvasHeight,
		OverlayX:   overlayCenterX - OverlaySize/2,
		OverlayY:   overlayCenterY - OverlaySize/2,
		Text:       name,
		FontPath:   fontPath,
		OutputPath: filepath.Join(workDir, outputFileName),
	}

	var chain filterChain
	chain.add(
		"[0:v]scale=%d:%d:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2:color=black,setsar=1[base]",
		plan.Width, plan.Height, plan.Width, plan.Height,
	)
	chain.add("[1:v]format=rgba[badge]")
	chain.add("[base][badge]overlay=%d:%d[composed]", plan.OverlayX, plan.OverlayY)
	chain.add(
		"[composed]drawtext=fontfile='%s':text='%s':fontcolor=%s:fontsize=%d:x=%d-text_w/2:y=%d,format=yuv420p[outv]",
		escapeFilterValue(fontPath), escapeFilterValue(name),
		textColor, textFontSize, textCenterX, textY,
	)
	plan.FilterGraph = chain.String()

	return plan
}
