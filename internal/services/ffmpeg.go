package services

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/bobarin/certvid/internal/models"
)

// Runner executes an external command and returns its stdout and stderr.
// The default runner shells out; tests substitute a fake to exercise the
// pipeline deterministically.
type Runner func(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)

func runCommand(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var out, errBuf bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errBuf
	err := cmd.Run()
	return out.Bytes(), errBuf.Bytes(), err
}

// FFmpegService drives ffmpeg/ffprobe for the render pipeline.
type FFmpegService struct {
	run Runner
	log zerolog.Logger
}

func NewFFmpegService(logger zerolog.Logger) *FFmpegService {
	return &FFmpegService{run: runCommand, log: logger}
}

// NewFFmpegServiceWithRunner injects a custom process runner.
func NewFFmpegServiceWithRunner(run Runner, logger zerolog.Logger) *FFmpegService {
	return &FFmpegService{run: run, log: logger}
}

// Render composites the overlay and text onto the template video and muxes
// the result to plan.OutputPath.
//
// Output encoding: libx264 at constant quality with a fast preset, AAC audio
// when the template carries an audio stream (0:a? keeps silent templates
// working), duration bounded by the shorter stream, and the moov atom moved
// to the front so the file is stream-friendly.
func (s *FFmpegService) Render(ctx context.Context, templatePath, overlayPath string, plan *RenderPlan) error {
	args := []string{
		"-i", templatePath,
		"-i", overlayPath,
		"-filter_complex", plan.FilterGraph,
		"-map", "[outv]",
		"-map", "0:a?",
		"-c:v", "libx264",
		"-crf", "23",
		"-preset", "fast",
		"-c:a", "aac",
		"-b:a", "192k",
		"-movflags", "+faststart",
		"-shortest",
		"-y",
		plan.OutputPath,
	}

	s.log.Debug().Str("filter", plan.FilterGraph).Str("output", plan.OutputPath).Msg("starting ffmpeg render")

	_, stderr, err := s.run(ctx, "ffmpeg", args...)
	if err != nil {
		return &models.Error{
			Kind:    models.KindRender,
			Message: "Video render failed",
			Err:     fmt.Errorf("ffmpeg: %w: %s", err, stderrTail(stderr)),
		}
	}

	// Clean exit alone is not success; the output file must exist.
	if _, err := os.Stat(plan.OutputPath); err != nil {
		return &models.Error{
			Kind:    models.KindRender,
			Message: "Video render failed",
			Err:     fmt.Errorf("ffmpeg exited cleanly but produced no output: %w", err),
		}
	}
	return nil
}

// ProbeDuration returns the container duration of a media file via ffprobe.
func (s *FFmpegService) ProbeDuration(ctx context.Context, path string) (time.Duration, error) {
	args := []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	}

	out, stderr, err := s.run(ctx, "ffprobe", args...)
	if err != nil {
		return 0, fmt.Errorf("ffprobe failed: %w: %s", err, stderrTail(stderr))
	}

	seconds, err := strconv.ParseFloat(strings.TrimSpace(string(out)), 64)
	if err != nil {
		return 0, fmt.Errorf("parse ffprobe duration %q: %w", strings.TrimSpace(string(out)), err)
	}
	return time.Duration(seconds * float64(time.Second)), nil
}

// stderrTail keeps the last chunk of engine diagnostics; ffmpeg banners are
// long and only the end explains the failure.
func stderrTail(stderr []byte) string {
	const keep = 2048
	s := strings.TrimSpace(string(stderr))
	if len(s) > keep {
		s = "..." + s[len(s)-keep:]
	}
	return s
}
