package runner

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// harness compiles the code read from stdin, executes it in an empty global
// scope with its output captured, and prints exactly one JSON document.
// The report goes to a private duplicate of fd 1; fd 1 itself is pointed at
// stderr so writes below the Python level (child processes, os.write, C
// extensions) cannot interleave with it.
const harness = `
import contextlib, io, json, os, sys, traceback

report = os.fdopen(os.dup(1), "w")
os.dup2(2, 1)
src = sys.stdin.read()
buf = io.StringIO()
res = {"status": "ok"}
try:
    compiled = compile(src, "<intent>", "exec")
except SyntaxError as e:
    res = {"status": "syntax_error", "line": e.lineno or 0, "column": e.offset or 0, "message": e.msg}
else:
    try:
        with contextlib.redirect_stdout(buf), contextlib.redirect_stderr(buf):
            exec(compiled, {})
    except SystemExit as e:
        if e.code not in (None, 0):
            res = {"status": "runtime_error", "message": "SystemExit: %s" % (e.code,), "trace": traceback.format_exc()}
    except BaseException as e:
        res = {"status": "runtime_error", "message": "%s: %s" % (type(e).__name__, e), "trace": traceback.format_exc()}
res["output"] = buf.getvalue()
sys.stdout.flush()
sys.stderr.flush()
report.write(json.dumps(res))
report.flush()
`

type harnessResult struct {
	Status  Status `json:"status"`
	Line    int    `json:"line"`
	Column  int    `json:"column"`
	Message string `json:"message"`
	Trace   string `json:"trace"`
	Output  string `json:"output"`
}

// runHarness executes argv with code on stdin and decodes the harness report.
func runHarness(ctx context.Context, argv []string, code string) (Outcome, error) {
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Stdin = strings.NewReader(code)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	if ctx.Err() != nil {
		return Outcome{}, fmt.Errorf("code run interrupted: %w", ctx.Err())
	}
	var exitErr *exec.ExitError
	if runErr != nil && !errors.As(runErr, &exitErr) {
		return Outcome{}, fmt.Errorf("failed to start %s: %w", argv[0], runErr)
	}

	var res harnessResult
	if err := json.Unmarshal(bytes.TrimSpace(stdout.Bytes()), &res); err != nil || res.Status == "" {
		// The interpreter died before the harness could report.
		return Outcome{
			Status:  StatusRuntimeError,
			Message: "execution did not produce a report",
			Trace:   strings.TrimSpace(stderr.String() + "\n" + stdout.String()),
		}, nil
	}

	return Outcome{
		Status:  res.Status,
		Line:    res.Line,
		Column:  res.Column,
		Message: res.Message,
		Trace:   res.Trace,
		Output:  res.Output + stderr.String(),
	}, nil
}
