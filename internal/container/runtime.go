// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package container detects a container runtime and starts the local
// text-embeddings-inference server with it.
package container

import (
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"
)

const (
	binDocker = "docker"
	binPodman = "podman"
)

// Runtime provides the container operations needed to serve embeddings.
type Runtime interface {
	// Name returns the runtime name ("docker" or "podman").
	Name() string

	// Available reports whether the runtime binary exists on PATH and
	// responds to an info command.
	Available() bool

	// ImageExists returns nil when the named image exists locally.
	ImageExists(image string) error

	// Pull downloads image, streaming progress to out.
	Pull(image string, out io.Writer) error

	// Start launches spec detached and returns the container ID.
	Start(spec Spec) (string, error)

	// Stop stops and removes the named container.
	Stop(name string) error
}

// Spec describes a detached container.
type Spec struct {
	Name          string
	Image         string
	HostPort      int
	ContainerPort int

	// Volumes maps host paths to container paths.
	Volumes map[string]string

	// Args are passed to the image entrypoint.
	Args []string
}

// Default TEI container settings.
const (
	TEIContainerName = "paper-ranker-tei"
	TEIContainerPort = 80
	TEIDataDir       = "/data"
)

// TEISpec returns the container spec serving model on hostPort. cacheDir,
// when set, is mounted as the model download cache.
func TEISpec(image, model string, hostPort int, cacheDir string) Spec {
	spec := Spec{
		Name:          TEIContainerName,
		Image:         image,
		HostPort:      hostPort,
		ContainerPort: TEIContainerPort,
		Args:          []string{"--model-id", model},
	}
	if cacheDir != "" {
		spec.Volumes = map[string]string{cacheDir: TEIDataDir}
	}
	return spec
}

// executor abstracts command execution for testing.
type executor interface {
	LookPath(file string) (string, error)
	RunSilent(name string, args ...string) error
	Output(name string, args ...string) ([]byte, error)
	RunStreamed(name string, args []string, stdout io.Writer) error
}

// osExecutor is the production executor backed by os/exec.
type osExecutor struct{}

func (o *osExecutor) LookPath(file string) (string, error) {
	return exec.LookPath(file)
}

func (o *osExecutor) RunSilent(name string, args ...string) error {
	return exec.Command(name, args...).Run()
}

func (o *osExecutor) Output(name string, args ...string) ([]byte, error) {
	return exec.Command(name, args...).Output()
}

func (o *osExecutor) RunStreamed(name string, args []string, stdout io.Writer) error {
	cmd := exec.Command(name, args...)
	cmd.Stdout = stdout
	cmd.Stderr = stdout
	return cmd.Run()
}

// runtime implements Runtime for a specific container binary. Docker and
// Podman differ only in binary name and the image check subcommand.
type runtime struct {
	bin           string
	imageCheckCmd []string
	exec          executor
}

func (r *runtime) Name() string { return r.bin }

func (r *runtime) Available() bool {
	if _, err := r.exec.LookPath(r.bin); err != nil {
		return false
	}
	return r.exec.RunSilent(r.bin, "info") == nil
}

func (r *runtime) ImageExists(image string) error {
	args := append(append([]string{}, r.imageCheckCmd...), image)
	if err := r.exec.RunSilent(r.bin, args...); err != nil {
		return fmt.Errorf("image %s not found in %s: %w", image, r.bin, err)
	}
	return nil
}

func (r *runtime) Pull(image string, out io.Writer) error {
	if err := r.exec.RunStreamed(r.bin, []string{"pull", image}, out); err != nil {
		return fmt.Errorf("pulling %s with %s: %w", image, r.bin, err)
	}
	return nil
}

func (r *runtime) Start(spec Spec) (string, error) {
	out, err := r.exec.Output(r.bin, startArgs(spec)...)
	if err != nil {
		return "", fmt.Errorf("starting %s container %s: %w", r.bin, spec.Image, err)
	}
	return strings.TrimSpace(string(out)), nil
}

func (r *runtime) Stop(name string) error {
	if err := r.exec.RunSilent(r.bin, "rm", "-f", name); err != nil {
		return fmt.Errorf("stopping %s container %s: %w", r.bin, name, err)
	}
	return nil
}

func startArgs(spec Spec) []string {
	args := []string{"run", "-d", "--rm"}
	if spec.Name != "" {
		args = append(args, "--name", spec.Name)
	}
	if spec.HostPort > 0 {
		args = append(args, "-p", strconv.Itoa(spec.HostPort)+":"+strconv.Itoa(spec.ContainerPort))
	}
	for host, ctr := range spec.Volumes {
		args = append(args, "-v", host+":"+ctr)
	}
	args = append(args, spec.Image)
	return append(args, spec.Args...)
}

func newDockerRuntime(exec executor) *runtime {
	return &runtime{
		bin:           binDocker,
		imageCheckCmd: []string{"image", "inspect"},
		exec:          exec,
	}
}

func newPodmanRuntime(exec executor) *runtime {
	return &runtime{
		bin:           binPodman,
		imageCheckCmd: []string{"image", "exists"},
		exec:          exec,
	}
}

var defaultExec = &osExecutor{}

// DetectRuntime tries docker first, falls back to podman. Returns an error
// if neither runtime is available.
func DetectRuntime() (Runtime, error) {
	return detectRuntime(defaultExec)
}

func detectRuntime(exec executor) (Runtime, error) {
	docker := newDockerRuntime(exec)
	if docker.Available() {
		return docker, nil
	}

	podman := newPodmanRuntime(exec)
	if podman.Available() {
		return podman, nil
	}

	return nil, fmt.Errorf(
		"no container runtime available: neither %s nor %s found or operational",
		binDocker, binPodman,
	)
}

// EnsureImage pulls image unless it already exists locally.
func EnsureImage(rt Runtime, image string, out io.Writer) error {
	if rt.ImageExists(image) == nil {
		return nil
	}
	return rt.Pull(image, out)
}
