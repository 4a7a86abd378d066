package runner

import (
	"context"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
)

// DockerOptions configures the container runner. Zero values fall back to
// the DOCKER_* environment variables and then to the package defaults.
type DockerOptions struct {
	Binary      string `yaml:"binary"`
	Image       string `yaml:"image"`
	MemoryLimit string `yaml:"memory_limit"`
	CPULimit    string `yaml:"cpu_limit"`
	PidsLimit   string `yaml:"pids_limit"`
	TmpfsSize   string `yaml:"tmpfs_size"`
}

const (
	defaultDockerBinary = "docker"
	defaultDockerImage  = "python:3.11-slim"
)

// Docker runs code inside a throwaway container with no network and a
// read-only root filesystem.
type Docker struct {
	Options DockerOptions
	Log     *zap.Logger
}

func pick(value, env, def string) string {
	if v := strings.TrimSpace(value); v != "" {
		return v
	}
	if v := strings.TrimSpace(os.Getenv(env)); v != "" {
		return v
	}
	return def
}

func (d *Docker) argv() []string {
	o := d.Options
	memory := pick(o.MemoryLimit, "DOCKER_MEMORY_LIMIT", "512m")
	cpus := pick(o.CPULimit, "DOCKER_CPU_LIMIT", "1.0")
	pids := pick(o.PidsLimit, "DOCKER_PIDS_LIMIT", "256")
	tmpfs := pick(o.TmpfsSize, "DOCKER_TMPFS_SIZE", "128m")

	return []string{
		pick(o.Binary, "DOCKER_BIN", defaultDockerBinary),
		"run", "--rm", "-i",
		"--network", "none",
		"--memory", memory,
		"--cpus", cpus,
		"--pids-limit", pids,
		"--read-only",
		"--tmpfs", "/tmp:rw,nosuid,size=" + tmpfs,
		"--security-opt", "no-new-privileges:true",
		"--cap-drop", "ALL",
		pick(o.Image, "DOCKER_PYTHON_IMAGE", defaultDockerImage),
		"python3", "-c", harness,
	}
}

func (d *Docker) Run(ctx context.Context, code string) (Outcome, error) {
	log := d.Log
	if log == nil {
		log = zap.NewNop()
	}
	argv := d.argv()
	log.Info("🐳 [RUNNER] starting container", zap.Strings("args", argv[:len(argv)-1]))

	start := time.Now()
	out, err := runHarness(ctx, argv, code)
	if err != nil {
		log.Error("❌ [RUNNER] container run failed", zap.Error(err))
		return Outcome{}, err
	}
	log.Info("🐳 [RUNNER] container finished",
		zap.String("status", string(out.Status)),
		zap.Duration("elapsed", time.Since(start)))
	return out, nil
}
