package docker

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/pkg/stdcopy"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
)

// createCall records one ContainerCreate request.
type createCall struct {
	Config *container.Config
	Host   *container.HostConfig
	Name   string
}

// fakeAPI is an in-memory Engine API. A started container exits at once
// with exitCode unless block is set, in which case it runs until killed.
type fakeAPI struct {
	mu sync.Mutex

	pingErr   error
	createErr error
	startErr  error
	listErr   error
	removeErr map[string]error

	exitCode int64
	block    bool
	stdout   string
	stderr   string

	list []container.Summary

	created []createCall
	started []string
	killed  []string
	removed []string

	exits map[string]chan container.WaitResponse
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{exits: make(map[string]chan container.WaitResponse)}
}

func (f *fakeAPI) Ping(ctx context.Context) (types.Ping, error) {
	return types.Ping{}, f.pingErr
}

func (f *fakeAPI) ContainerCreate(_ context.Context, cfg *container.Config, host *container.HostConfig,
	_ *network.NetworkingConfig, _ *ocispec.Platform, name string) (container.CreateResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return container.CreateResponse{}, f.createErr
	}
	f.created = append(f.created, createCall{Config: cfg, Host: host, Name: name})
	id := "id-" + name
	f.exits[id] = make(chan container.WaitResponse, 1)
	return container.CreateResponse{ID: id}, nil
}

func (f *fakeAPI) ContainerStart(_ context.Context, id string, _ container.StartOptions) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.startErr != nil {
		return f.startErr
	}
	f.started = append(f.started, id)
	if !f.block {
		f.exits[id] <- container.WaitResponse{StatusCode: f.exitCode}
	}
	return nil
}

func (f *fakeAPI) ContainerWait(_ context.Context, id string, _ container.WaitCondition) (<-chan container.WaitResponse, <-chan error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	errCh := make(chan error, 1)
	ch, ok := f.exits[id]
	if !ok {
		errCh <- errors.New("no such container")
	}
	return ch, errCh
}

func (f *fakeAPI) ContainerLogs(_ context.Context, _ string, _ container.LogsOptions) (io.ReadCloser, error) {
	var buf bytes.Buffer
	if f.stdout != "" {
		_, _ = stdcopy.NewStdWriter(&buf, stdcopy.Stdout).Write([]byte(f.stdout))
	}
	if f.stderr != "" {
		_, _ = stdcopy.NewStdWriter(&buf, stdcopy.Stderr).Write([]byte(f.stderr))
	}
	return io.NopCloser(&buf), nil
}

func (f *fakeAPI) ContainerKill(_ context.Context, id, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.killed = append(f.killed, id)
	if ch, ok := f.exits[id]; ok {
		select {
		case ch <- container.WaitResponse{StatusCode: 137}:
		default:
		}
	}
	return nil
}

func (f *fakeAPI) ContainerRemove(_ context.Context, id string, _ container.RemoveOptions) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.removeErr[id]; err != nil {
		return err
	}
	f.removed = append(f.removed, id)
	return nil
}

func (f *fakeAPI) ContainerList(_ context.Context, _ container.ListOptions) ([]container.Summary, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.list, nil
}

func (f *fakeAPI) Close() error { return nil }
