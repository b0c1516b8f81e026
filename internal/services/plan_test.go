package services

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeName(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "Jane Doe", "JANE DOE"},
		{"trims whitespace", "  jane doe \n", "JANE DOE"},
		{"strips colons", "jane:doe", "JANEDOE"},
		{"strips quotes", `jane "jd" doe`, "JANE JD DOE"},
		{"strip exposes edge space", `: jane`, "JANE"},
		{"only stripped chars", `:":"`, ""},
		{"keeps single quote", "o'brien", "O'BRIEN"},
		{"empty", "", ""},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := SanitizeName(c.in)
			assert.Equal(t, c.want, got)
			assert.NotContains(t, got, ":")
			assert.NotContains(t, got, `"`)
		})
	}
}

func TestSanitizeNameIdempotent(t *testing.T) {
	inputs := []string{"Jane Doe", `  a:"b  `, "o'brien", `:::`, "  MIXED case : here  "}
	for _, in := range inputs {
		once := SanitizeName(in)
		assert.Equal(t, once, SanitizeName(once), "sanitize must be idempotent for %q", in)
	}
}

func TestEscapeFilterValue(t *testing.T) {
	assert.Equal(t, `O'\''BRIEN`, escapeFilterValue("O'BRIEN"))
	assert.Equal(t, `C\:\\fonts`, escapeFilterValue(`C:\fonts`))
	assert.Equal(t, `\:`, escapeFilterValue(":"))
}

func TestBuildPlanGeometry(t *testing.T) {
	plan := BuildPlan("JANE DOE", "/assets/font.ttf", "/work/req-1")

	assert.Equal(t, 1240, plan.Width)
	assert.Equal(t, 1748, plan.Height)
	assert.Equal(t, 320, plan.OverlayX)
	assert.Equal(t, 125, plan.OverlayY)
	assert.Equal(t, filepath.Join("/work/req-1", "certificate.mp4"), plan.OutputPath)
}

func TestBuildPlanFilterGraph(t *testing.T) {
	plan := BuildPlan("JANE DOE", "/assets/font.ttf", t.TempDir())
	fg := plan.FilterGraph

	// Stage (a): scale + letterbox pad + square pixels.
	assert.Contains(t, fg, "scale=1240:1748:force_original_aspect_ratio=decrease")
	assert.Contains(t, fg, "pad=1240:1748:(ow-iw)/2:(oh-ih)/2:color=black")
	assert.Contains(t, fg, "setsar=1")

	// Stage (b)+(c): alpha-capable overlay at the computed offset.
	assert.Contains(t, fg, "[1:v]format=rgba[badge]")
	assert.Contains(t, fg, "overlay=320:125")

	// Stage (d)+(e): centered text and playback-safe pixel format.
	assert.Contains(t, fg, "drawtext=")
	assert.Contains(t, fg, "text='JANE DOE'")
	assert.Contains(t, fg, "x=620-text_w/2:y=820")
	assert.Contains(t, fg, "fontsize=70")
	assert.Contains(t, fg, "format=yuv420p")
}

func TestBuildPlanEscapesFontPath(t *testing.T) {
	plan := BuildPlan("JANE", "/mnt/c:/fonts/cert.ttf", t.TempDir())
	assert.Contains(t, plan.FilterGraph, `fontfile='/mnt/c\:/fonts/cert.ttf'`)
}

func TestBuildPlanQuoteCannotEscapeDrawtext(t *testing.T) {
	// A name with a single quote must stay inside the quoted text argument:
	// every ' in user text appears escaped, so the drawtext value cannot be
	// terminated early to inject another filter stage.
	plan := BuildPlan(SanitizeName("o'brien,drawtext=text=PWNED"), "/assets/font.ttf", t.TempDir())

	require.Contains(t, plan.FilterGraph, `text='O'\''BRIEN`)

	// The only unescaped quotes around the text argument are its delimiters.
	start := strings.Index(plan.FilterGraph, "text='")
	require.GreaterOrEqual(t, start, 0)
	inner := plan.FilterGraph[start+len("text='"):]
	assert.NotContains(t, strings.SplitN(inner, `'\''`, 2)[0], "'")
}
