package chime

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("RIFF"), 0o644))
	return path
}

func TestResolve_PrefersMP3(t *testing.T) {
	dir := t.TempDir()
	mp3 := touch(t, dir, "doorbell.mp3")
	touch(t, dir, "doorbell.wav")

	src, err := NewResolver(dir).Resolve()
	require.NoError(t, err)
	assert.Equal(t, Source{Path: mp3, Format: FormatMP3}, src)
}

func TestResolve_FallsBackToWAV(t *testing.T) {
	dir := t.TempDir()
	wav := touch(t, dir, "doorbell.wav")

	src, err := NewResolver(dir).Resolve()
	require.NoError(t, err)
	assert.Equal(t, Source{Path: wav, Format: FormatWAV}, src)
}

func TestResolve_NoneFound(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "doorbell.mp3"), 0o755))

	r := NewResolver(dir)
	_, err := r.Resolve()
	assert.ErrorIs(t, err, ErrNoSource)
	assert.Equal(t, []string{
		filepath.Join(dir, "doorbell.mp3"),
		filepath.Join(dir, "doorbell.wav"),
	}, r.Candidates())
}

type fakePlayer struct {
	mu     sync.Mutex
	played []Source
	err    error
	block  chan struct{}
}

func (p *fakePlayer) Play(ctx context.Context, src Source) error {
	if p.block != nil {
		select {
		case <-p.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.played = append(p.played, src)
	return p.err
}

func TestPlayAsync_Completes(t *testing.T) {
	p := &fakePlayer{}
	svc := NewService(NewResolver(t.TempDir()), p)
	src := Source{Path: "/tmp/doorbell.mp3", Format: FormatMP3}

	task := svc.PlayAsync(src)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, task.Wait(ctx))
	assert.Equal(t, src, task.Source())
	assert.NoError(t, task.Err())
	assert.Equal(t, []Source{src}, p.played)
}

func TestPlayAsync_CapturesError(t *testing.T) {
	failure := errors.New("no audio device")
	svc := NewService(NewResolver(t.TempDir()), &fakePlayer{err: failure})

	task := svc.PlayAsync(Source{Path: "x.wav", Format: FormatWAV})

	select {
	case <-task.Done():
	case <-time.After(time.Second):
		t.Fatal("playback did not finish")
	}
	assert.ErrorIs(t, task.Err(), failure)
}

func TestService_CloseCancelsPlayback(t *testing.T) {
	p := &fakePlayer{block: make(chan struct{})}
	svc := NewService(NewResolver(t.TempDir()), p)

	task := svc.PlayAsync(Source{Path: "x.mp3", Format: FormatMP3})
	assert.NoError(t, task.Err(), "error is nil while running")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, svc.Wait(ctx), context.DeadlineExceeded)

	svc.Close()

	ctx2, cancel2 := context.WithTimeout(context.Background(), time.Second)
	defer cancel2()
	require.NoError(t, svc.Wait(ctx2))
	assert.ErrorIs(t, task.Err(), context.Canceled)
}

func TestCommandPlayer_AppendsPath(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "args")
	script := filepath.Join(dir, "player.sh")
	require.NoError(t, os.WriteFile(script, []byte("#!/bin/sh\necho \"$@\" > "+out+"\n"), 0o755))

	p := &CommandPlayer{MP3Command: []string{script, "-q"}}
	require.NoError(t, p.Play(context.Background(), Source{Path: "/sounds/doorbell.mp3", Format: FormatMP3}))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "-q /sounds/doorbell.mp3\n", string(data))
}

func TestCommandPlayer_Errors(t *testing.T) {
	p := &CommandPlayer{}
	assert.Error(t, p.Play(context.Background(), Source{Path: "a.wav", Format: FormatWAV}))
	assert.Error(t, p.Play(context.Background(), Source{Path: "a.ogg", Format: "ogg"}))

	missing := &CommandPlayer{WAVCommand: []string{"/nonexistent/player"}}
	assert.Error(t, missing.Play(context.Background(), Source{Path: "a.wav", Format: FormatWAV}))

	assert.Equal(t, []string{"mpg123", "-q"}, DefaultCommandPlayer().MP3Command)
}
