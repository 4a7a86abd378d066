package runner

import (
	"context"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pythonRunner(t *testing.T) *Python {
	t.Helper()
	interp, err := exec.LookPath(DefaultPython)
	if err != nil {
		t.Skip("python3 not available")
	}
	return &Python{Interpreter: interp}
}

func TestPython_ValidCode(t *testing.T) {
	r := pythonRunner(t)

	out, err := r.Run(context.Background(), "x = 1\nprint(x + 1)\n")
	require.NoError(t, err)
	assert.Equal(t, StatusOK, out.Status)
	assert.Equal(t, "2\n", out.Output)
}

func TestPython_SyntaxError(t *testing.T) {
	r := pythonRunner(t)

	out, err := r.Run(context.Background(), "def f(:\n    pass\n")
	require.NoError(t, err)
	assert.Equal(t, StatusSyntaxError, out.Status)
	assert.Equal(t, 1, out.Line)
	assert.NotEmpty(t, out.Message)
}

func TestPython_RuntimeError(t *testing.T) {
	r := pythonRunner(t)

	out, err := r.Run(context.Background(), "1/0\n")
	require.NoError(t, err)
	assert.Equal(t, StatusRuntimeError, out.Status)
	assert.Contains(t, out.Trace, "division by zero")
	assert.Contains(t, out.Message, "ZeroDivisionError")
}

func TestPython_CleanExitIsSuccess(t *testing.T) {
	r := pythonRunner(t)

	out, err := r.Run(context.Background(), "import sys\nsys.exit(0)\n")
	require.NoError(t, err)
	assert.Equal(t, StatusOK, out.Status)
}

func TestPython_EmptyGlobals(t *testing.T) {
	r := pythonRunner(t)

	out, err := r.Run(context.Background(), "print(src)\n")
	require.NoError(t, err)
	assert.Equal(t, StatusRuntimeError, out.Status)
	assert.Contains(t, out.Message, "NameError")
}

func TestPython_ChildProcessOutputKeepsReport(t *testing.T) {
	r := pythonRunner(t)
	if _, err := exec.LookPath("echo"); err != nil {
		t.Skip("echo not available")
	}

	out, err := r.Run(context.Background(), "import os\nos.system('echo hi')\n")
	require.NoError(t, err)
	assert.Equal(t, StatusOK, out.Status)
	assert.Contains(t, out.Output, "hi")
}

func TestPython_RawDescriptorWriteKeepsReport(t *testing.T) {
	r := pythonRunner(t)

	out, err := r.Run(context.Background(), "import os\nos.write(1, b'raw\\n')\nprint('done')\n")
	require.NoError(t, err)
	assert.Equal(t, StatusOK, out.Status)
	assert.Contains(t, out.Output, "raw")
	assert.Contains(t, out.Output, "done")
}

func TestTimeoutRunnerStopsLongCode(t *testing.T) {
	r := pythonRunner(t)
	tr := &timeoutRunner{next: r, timeout: 200 * time.Millisecond}

	_, err := tr.Run(context.Background(), "import time\ntime.sleep(10)\n")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestPython_MissingInterpreter(t *testing.T) {
	r := &Python{Interpreter: "/nonexistent/python"}

	_, err := r.Run(context.Background(), "x = 1")
	assert.Error(t, err)
}

func TestSyntaxOnly(t *testing.T) {
	cases := []struct {
		name   string
		code   string
		status Status
		line   int
	}{
		{"valid", "def greet(name):\n    return 'hi ' + name\n", StatusOK, 0},
		{"runtime errors are not detected", "1/0\n", StatusOK, 0},
		{"broken second line", "x = 1\ndef f(:\n    pass\n", StatusSyntaxError, 2},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out, err := SyntaxOnly{}.Run(context.Background(), tc.code)
			require.NoError(t, err)
			assert.Equal(t, tc.status, out.Status)
			if tc.line > 0 {
				assert.Equal(t, tc.line, out.Line)
				assert.Positive(t, out.Column)
			}
		})
	}
}

func TestNew(t *testing.T) {
	r, err := New(Options{Mode: "syntax"}, nil)
	require.NoError(t, err)
	assert.IsType(t, &SyntaxOnly{}, r)

	r, err = New(Options{Mode: "python", Timeout: time.Second}, nil)
	require.NoError(t, err)
	assert.IsType(t, &timeoutRunner{}, r)

	_, err = New(Options{Mode: "wasm"}, nil)
	assert.Error(t, err)
}

func TestDockerArgs(t *testing.T) {
	d := &Docker{Options: DockerOptions{Image: "python:3.12", MemoryLimit: "64m"}}
	argv := d.argv()

	assert.Equal(t, "run", argv[1])
	assert.Contains(t, argv, "none")
	assert.Contains(t, argv, "64m")
	assert.Contains(t, argv, "python:3.12")
	assert.Equal(t, harness, argv[len(argv)-1])
}
