package services

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobarin/certvid/internal/models"
)

type fakeCall struct {
	name string
	args []string
}

// fakeRunner records invocations and plays back canned results.
type fakeRunner struct {
	calls  []fakeCall
	stdout []byte
	stderr []byte
	err    error
	onRun  func(args []string)
}

func (f *fakeRunner) run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	f.calls = append(f.calls, fakeCall{name: name, args: args})
	if f.onRun != nil {
		f.onRun(args)
	}
	return f.stdout, f.stderr, f.err
}

func argsContainPair(args []string, flag, value string) bool {
	for i := 0; i < len(args)-1; i++ {
		if args[i] == flag && args[i+1] == value {
			return true
		}
	}
	return false
}

func TestRenderInvocation(t *testing.T) {
	plan := BuildPlan("JANE DOE", "/assets/font.ttf", t.TempDir())

	runner := &fakeRunner{
		// Simulate ffmpeg writing the output on clean exit.
		onRun: func([]string) {
			require.NoError(t, os.WriteFile(plan.OutputPath, []byte("mp4"), 0644))
		},
	}
	svc := NewFFmpegServiceWithRunner(runner.run, zerolog.Nop())

	require.NoError(t, svc.Render(context.Background(), "/assets/template.mp4", "/work/overlay.png", plan))

	require.Len(t, runner.calls, 1)
	call := runner.calls[0]
	assert.Equal(t, "ffmpeg", call.name)

	assert.True(t, argsContainPair(call.args, "-i", "/assets/template.mp4"))
	assert.True(t, argsContainPair(call.args, "-i", "/work/overlay.png"))
	assert.True(t, argsContainPair(call.args, "-filter_complex", plan.FilterGraph))
	assert.True(t, argsContainPair(call.args, "-map", "[outv]"))
	// Audio is optional: silent templates must not fail the render.
	assert.True(t, argsContainPair(call.args, "-map", "0:a?"))
	assert.True(t, argsContainPair(call.args, "-c:v", "libx264"))
	assert.True(t, argsContainPair(call.args, "-crf", "23"))
	assert.True(t, argsContainPair(call.args, "-preset", "fast"))
	assert.True(t, argsContainPair(call.args, "-movflags", "+faststart"))
	assert.Contains(t, call.args, "-shortest")
	assert.Equal(t, plan.OutputPath, call.args[len(call.args)-1])
}

func TestRenderSurfacesEngineDiagnostics(t *testing.T) {
	plan := BuildPlan("JANE", "/assets/font.ttf", t.TempDir())
	runner := &fakeRunner{
		stderr: []byte("Fontconfig error: cannot load font\nconversion failed"),
		err:    errors.New("exit status 1"),
	}
	svc := NewFFmpegServiceWithRunner(runner.run, zerolog.Nop())

	err := svc.Render(context.Background(), "/assets/template.mp4", "/work/overlay.png", plan)
	require.Error(t, err)

	var appErr *models.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, models.KindRender, appErr.Kind)
	// Generic message for callers, engine output retained server-side.
	assert.Equal(t, "Video render failed", appErr.Message)
	assert.Contains(t, appErr.Err.Error(), "conversion failed")
}

func TestRenderFailsWhenOutputMissing(t *testing.T) {
	plan := BuildPlan("JANE", "/assets/font.ttf", t.TempDir())
	runner := &fakeRunner{} // clean exit, but nothing written
	svc := NewFFmpegServiceWithRunner(runner.run, zerolog.Nop())

	err := svc.Render(context.Background(), "/assets/template.mp4", "/work/overlay.png", plan)
	require.Error(t, err)

	var appErr *models.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, models.KindRender, appErr.Kind)
}

func TestProbeDuration(t *testing.T) {
	runner := &fakeRunner{stdout: []byte("12.480000\n")}
	svc := NewFFmpegServiceWithRunner(runner.run, zerolog.Nop())

	d, err := svc.ProbeDuration(context.Background(), "/assets/template.mp4")
	require.NoError(t, err)
	assert.InDelta(t, (12480 * time.Millisecond).Seconds(), d.Seconds(), 0.001)

	require.Len(t, runner.calls, 1)
	assert.Equal(t, "ffprobe", runner.calls[0].name)
	assert.Contains(t, runner.calls[0].args, "format=duration")
}

func TestProbeDurationBadOutput(t *testing.T) {
	runner := &fakeRunner{stdout: []byte("N/A")}
	svc := NewFFmpegServiceWithRunner(runner.run, zerolog.Nop())

	_, err := svc.ProbeDuration(context.Background(), "/assets/template.mp4")
	assert.Error(t, err)
}

func TestStderrTailTruncates(t *testing.T) {
	long := make([]byte, 10000)
	for i := range long {
		long[i] = 'x'
	}
	tail := stderrTail(long)
	assert.LessOrEqual(t, len(tail), 2051)
	assert.True(t, len(tail) > 0)
}
