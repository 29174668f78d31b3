// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package container runs converter images under docker or podman, whichever
// is installed and answering. Documents go in on stdin and Markdown comes
// back on stdout; the container gets no network.
package container

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"time"
)

// ErrNoRuntime is returned by DetectRuntime when no supported client works.
var ErrNoRuntime = errors.New("no container runtime available")

// Runtime is a container client able to run a converter image.
type Runtime interface {
	// Name returns the client binary ("docker" or "podman").
	Name() string

	// Available reports whether the client is on PATH and its daemon or
	// service answers.
	Available() bool

	// ImageExists returns nil when image is present locally. Images are
	// never pulled implicitly.
	ImageExists(image string) error

	// Run starts image with args appended to its entrypoint, streaming
	// stdin in and stdout out. Cancelling ctx kills the client.
	Run(ctx context.Context, image string, args []string, stdin io.Reader, stdout io.Writer) error
}

// infoTimeout bounds the availability check; an unreachable daemon can
// otherwise hang the client.
const infoTimeout = 10 * time.Second

// stderrLimit caps the client output quoted in errors.
const stderrLimit = 2048

// sandboxArgs are passed to every run: remove the container afterwards,
// keep stdin open, no network, no implicit pulls.
var sandboxArgs = []string{"--rm", "-i", "--network=none", "--pull=never"}

// flavor is what differs between supported clients.
type flavor struct {
	bin        string
	imageCheck []string
}

// flavors lists supported clients in detection order.
var flavors = []flavor{
	{bin: "docker", imageCheck: []string{"image", "inspect", "--format", "{{.Id}}"}},
	{bin: "podman", imageCheck: []string{"image", "exists"}},
}

// invocation is one client command line with its streams.
type invocation struct {
	bin    string
	args   []string
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

func (inv invocation) String() string {
	return inv.bin + " " + strings.Join(inv.args, " ")
}

// shell starts client commands. Tests substitute a recorder.
type shell interface {
	lookPath(bin string) error
	run(ctx context.Context, inv invocation) error
}

type osShell struct{}

func (osShell) lookPath(bin string) error {
	_, err := exec.LookPath(bin)
	return err
}

func (osShell) run(ctx context.Context, inv invocation) error {
	cmd := exec.CommandContext(ctx, inv.bin, inv.args...)
	cmd.Stdin = inv.stdin
	cmd.Stdout = inv.stdout
	cmd.Stderr = inv.stderr
	return cmd.Run()
}

// client implements Runtime for one flavor.
type client struct {
	flavor
	sh shell
}

func (c *client) Name() string { return c.bin }

func (c *client) Available() bool {
	if c.sh.lookPath(c.bin) != nil {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), infoTimeout)
	defer cancel()
	return c.sh.run(ctx, invocation{bin: c.bin, args: []string{"info"}}) == nil
}

func (c *client) ImageExists(image string) error {
	stderr := &tail{limit: stderrLimit}
	inv := invocation{
		bin:    c.bin,
		args:   append(append([]string{}, c.imageCheck...), image),
		stderr: stderr,
	}
	if err := c.sh.run(context.Background(), inv); err != nil {
		return fmt.Errorf("image %s not found in %s: %w%s", image, c.bin, err, stderr.detail())
	}
	return nil
}

func (c *client) Run(ctx context.Context, image string, args []string, stdin io.Reader, stdout io.Writer) error {
	argv := make([]string, 0, 1+len(sandboxArgs)+1+len(args))
	argv = append(argv, "run")
	argv = append(argv, sandboxArgs...)
	argv = append(argv, image)
	argv = append(argv, args...)

	stderr := &tail{limit: stderrLimit}
	inv := invocation{bin: c.bin, args: argv, stdin: stdin, stdout: stdout, stderr: stderr}
	if err := c.sh.run(ctx, inv); err != nil {
		return fmt.Errorf("running %s container %s: %w%s", c.bin, image, err, stderr.detail())
	}
	return nil
}

// DetectRuntime returns the first working client: docker, then podman.
func DetectRuntime() (Runtime, error) {
	return detect(osShell{})
}

func detect(sh shell) (Runtime, error) {
	tried := make([]string, 0, len(flavors))
	for _, f := range flavors {
		c := &client{flavor: f, sh: sh}
		if c.Available() {
			return c, nil
		}
		tried = append(tried, f.bin)
	}
	return nil, fmt.Errorf("%w: tried %s", ErrNoRuntime, strings.Join(tried, ", "))
}

// tail keeps the last limit bytes written to it.
type tail struct {
	limit int
	buf   []byte
}

func (t *tail) Write(p []byte) (int, error) {
	t.buf = append(t.buf, p...)
	if over := len(t.buf) - t.limit; over > 0 {
		t.buf = t.buf[over:]
	}
	return len(p), nil
}

// detail formats the captured output as an error suffix.
func (t *tail) detail() string {
	s := strings.TrimSpace(string(t.buf))
	if s == "" {
		return ""
	}
	return ": " + s
}
