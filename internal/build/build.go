package build

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"time"

	"github.com/cli/safeexec"
	"github.com/google/uuid"

	"github.com/shinji-kodama/dockhand/internal/docker"
	"github.com/shinji-kodama/dockhand/internal/model"
)

// outputTailLines bounds how much build output is repeated in error
// messages. Full output is available via --verbose, which streams it live.
const outputTailLines = 20

// Options configures a single image build.
type Options struct {
	// Tag is the image reference to apply, e.g. "saxo-autotrader:latest".
	Tag string

	// Project is the project name recorded on the image as a label.
	Project string

	// BuildID identifies this build on the image's labels. Generated when
	// empty.
	BuildID string

	// NoCache disables Docker's layer cache for this build.
	NoCache bool

	// Pull forces re-pulling the base image even when a local copy exists,
	// picking up patch releases of the pinned tag.
	Pull bool

	// Output, when set, receives the build tool's combined output live
	// (typically os.Stdout under --verbose). Output is always captured
	// internally for error reporting regardless.
	Output io.Writer
}

// Result describes a completed build.
type Result struct {
	// Tag is the image reference that was built.
	Tag string `json:"tag"`

	// BuildID is the identifier stamped on the image's labels.
	BuildID string `json:"buildId"`

	// Duration is the wall-clock build time.
	Duration time.Duration `json:"-"`
}

// Builder runs `docker build` against a staged context directory.
//
// The Docker CLI is used rather than the SDK's build endpoint because the
// CLI fronts BuildKit — the same builder users invoke by hand — and
// inherits the user's builder configuration. The binary is resolved with
// safeexec to avoid the Windows current-directory PATH lookup problem.
//
// lookPath and command are injectable so tests can substitute a recorder
// for the real binary.
type Builder struct {
	lookPath func(name string) (string, error)
	command  func(ctx context.Context, name string, arg ...string) *exec.Cmd
}

// NewBuilder returns a Builder that resolves and executes the real docker
// binary.
func NewBuilder() *Builder {
	return &Builder{
		lookPath: safeexec.LookPath,
		command:  exec.CommandContext,
	}
}

// Build runs the image build for a staged context and returns the result.
//
// The image is labeled with the dockhand namespace at build time: the
// managed-by marker, the project name, and a fresh build ID. The run
// command later copies the build ID from the image onto the container it
// starts, which is how `dockhand ps` can attribute a running container to
// the exact build that produced its image.
//
// Returns ExitToolNotFound if no docker binary is on PATH, and
// ExitBuildFailed (with the tail of the build output) when the build
// process exits non-zero.
func (b *Builder) Build(ctx context.Context, contextDir string, opts Options) (*Result, error) {
	dockerBin, err := b.lookPath("docker")
	if err != nil {
		return nil, model.WrapCLIError(
			model.ExitToolNotFound,
			"docker CLI not found on PATH — install Docker to build images",
			err,
		)
	}

	buildID := opts.BuildID
	if buildID == "" {
		buildID = uuid.NewString()
	}

	args := []string{
		"build",
		"--tag", opts.Tag,
		"--label", docker.LabelManagedBy + "=" + docker.ManagedByValue,
		"--label", docker.LabelBuildID + "=" + buildID,
	}
	if opts.Project != "" {
		args = append(args, "--label", docker.LabelProject+"="+opts.Project)
	}
	if opts.NoCache {
		args = append(args, "--no-cache")
	}
	if opts.Pull {
		args = append(args, "--pull")
	}
	args = append(args, contextDir)

	// Capture output for error reporting; tee it to the caller's writer
	// when live progress was requested.
	var captured bytes.Buffer
	out := io.Writer(&captured)
	if opts.Output != nil {
		out = io.MultiWriter(opts.Output, &captured)
	}

	cmd := b.command(ctx, dockerBin, args...)
	cmd.Stdout = out
	cmd.Stderr = out

	start := time.Now()
	if err := cmd.Run(); err != nil {
		return nil, model.WrapCLIError(
			model.ExitBuildFailed,
			fmt.Sprintf("image build for %q failed:\n%s", opts.Tag, tail(captured.String(), outputTailLines)),
			err,
		)
	}

	return &Result{
		Tag:      opts.Tag,
		BuildID:  buildID,
		Duration: time.Since(start),
	}, nil
}

// tail returns the last n lines of s, trimmed of trailing whitespace.
func tail(s string, n int) string {
	s = strings.TrimRight(s, "\n \t")
	lines := strings.Split(s, "\n")
	if len(lines) <= n {
		return s
	}
	return strings.Join(lines[len(lines)-n:], "\n")
}
