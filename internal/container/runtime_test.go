// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package container

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingShell answers lookups and commands from tables and records
// every invocation it receives.
type recordingShell struct {
	onPath  map[string]bool
	succeed map[string]bool // full command line -> exit 0
	handle  func(inv invocation) error
	seen    []invocation
}

func (r *recordingShell) lookPath(bin string) error {
	if r.onPath[bin] {
		return nil
	}
	return errors.New("executable file not found: " + bin)
}

func (r *recordingShell) run(ctx context.Context, inv invocation) error {
	r.seen = append(r.seen, inv)
	if err := ctx.Err(); err != nil {
		return err
	}
	if r.handle != nil {
		return r.handle(inv)
	}
	if r.succeed[inv.String()] {
		return nil
	}
	return errors.New("exit status 1")
}

func clientFor(t *testing.T, bin string, sh shell) *client {
	t.Helper()
	for _, f := range flavors {
		if f.bin == bin {
			return &client{flavor: f, sh: sh}
		}
	}
	t.Fatalf("no flavor %q", bin)
	return nil
}

func TestDetect(t *testing.T) {
	tests := []struct {
		name    string
		onPath  []string
		working []string
		want    string
	}{
		{name: "docker only", onPath: []string{"docker"}, working: []string{"docker info"}, want: "docker"},
		{name: "podman only", onPath: []string{"podman"}, working: []string{"podman info"}, want: "podman"},
		{name: "docker preferred", onPath: []string{"docker", "podman"}, working: []string{"docker info", "podman info"}, want: "docker"},
		{name: "docker daemon down", onPath: []string{"docker", "podman"}, working: []string{"podman info"}, want: "podman"},
		{name: "info succeeds but binary missing", working: []string{"docker info"}},
		{name: "nothing installed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sh := &recordingShell{onPath: map[string]bool{}, succeed: map[string]bool{}}
			for _, b := range tt.onPath {
				sh.onPath[b] = true
			}
			for _, c := range tt.working {
				sh.succeed[c] = true
			}

			rt, err := detect(sh)
			if tt.want == "" {
				require.ErrorIs(t, err, ErrNoRuntime)
				assert.ErrorContains(t, err, "tried docker, podman")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, rt.Name())
		})
	}
}

func TestImageExists(t *testing.T) {
	tests := []struct {
		bin     string
		command string
	}{
		{bin: "docker", command: "docker image inspect --format {{.Id}} markitdown:latest"},
		{bin: "podman", command: "podman image exists markitdown:latest"},
	}
	for _, tt := range tests {
		t.Run(tt.bin, func(t *testing.T) {
			sh := &recordingShell{succeed: map[string]bool{tt.command: true}}
			assert.NoError(t, clientFor(t, tt.bin, sh).ImageExists("markitdown:latest"))

			err := clientFor(t, tt.bin, &recordingShell{}).ImageExists("markitdown:latest")
			require.Error(t, err)
			assert.ErrorContains(t, err, "markitdown:latest")
			assert.ErrorContains(t, err, tt.bin)
		})
	}
}

func TestRun_StreamsThroughSandboxedContainer(t *testing.T) {
	for _, bin := range []string{"docker", "podman"} {
		t.Run(bin, func(t *testing.T) {
			sh := &recordingShell{handle: func(inv invocation) error {
				data, err := io.ReadAll(inv.stdin)
				if err != nil {
					return err
				}
				_, err = inv.stdout.Write([]byte("# converted\n" + string(data)))
				return err
			}}

			var out bytes.Buffer
			err := clientFor(t, bin, sh).Run(context.Background(), "markitdown:latest", []string{"-x", "pdf"}, strings.NewReader("%PDF"), &out)
			require.NoError(t, err)
			assert.Equal(t, "# converted\n%PDF", out.String())

			require.Len(t, sh.seen, 1)
			assert.Equal(t, bin, sh.seen[0].bin)
			assert.Equal(t,
				[]string{"run", "--rm", "-i", "--network=none", "--pull=never", "markitdown:latest", "-x", "pdf"},
				sh.seen[0].args)
		})
	}
}

func TestRun_FailureQuotesStderr(t *testing.T) {
	sh := &recordingShell{handle: func(inv invocation) error {
		_, _ = inv.stderr.Write([]byte("UnsupportedFormatException: no converter\n"))
		return errors.New("exit status 1")
	}}

	err := clientFor(t, "docker", sh).Run(context.Background(), "markitdown:latest", nil, strings.NewReader("x"), io.Discard)
	require.Error(t, err)
	assert.ErrorContains(t, err, "running docker container markitdown:latest: exit status 1: UnsupportedFormatException: no converter")
}

func TestRun_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := clientFor(t, "podman", &recordingShell{}).Run(ctx, "markitdown:latest", nil, strings.NewReader("x"), io.Discard)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTail_KeepsLastBytes(t *testing.T) {
	tl := &tail{limit: 8}
	_, _ = tl.Write([]byte("0123456789"))
	_, _ = tl.Write([]byte("ab"))
	assert.Equal(t, ": 456789ab", tl.detail())
	assert.Empty(t, (&tail{limit: 8}).detail())
}
