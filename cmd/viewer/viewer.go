package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Carmen-Shannon/oxy-vrm/config"
	"github.com/Carmen-Shannon/oxy-vrm/engine"
	"github.com/Carmen-Shannon/oxy-vrm/engine/animator"
	"github.com/Carmen-Shannon/oxy-vrm/engine/avatar"
	"github.com/Carmen-Shannon/oxy-vrm/engine/loader"
	"github.com/Carmen-Shannon/oxy-vrm/engine/stats"
	"github.com/Carmen-Shannon/oxy-vrm/engine/window"

	"github.com/dustin/go-humanize"
)

const (
	avatarExtension = ".vrm"
	clipTimeout     = 30 * time.Second
)

var (
	errNotAvatarFile = errors.New("not a .vrm file")
	errFileTooLarge  = errors.New("file exceeds the size limit")
)

// keyClips maps number keys to clip names.
var keyClips = map[window.Key]string{
	window.Key1: "wave",
	window.Key2: "idle",
	window.Key0: animator.Resting,
}

// viewer connects window input to the avatar manager and the playback controller.
type viewer struct {
	cfg        config.Config
	engine     engine.Engine
	manager    avatar.Manager
	controller animator.Controller
}

func newViewer(cfg config.Config, eng engine.Engine, manager avatar.Manager, controller animator.Controller) *viewer {
	return &viewer{cfg: cfg, engine: eng, manager: manager, controller: controller}
}

// wire registers the frame callbacks, the event loggers and the window input handlers.
func (v *viewer) wire() {
	v.engine.AddFrameCallback(v.manager.Update)
	v.engine.AddFrameCallback(v.controller.Update)
	v.engine.AddFrameCallback(func(dt float32) {
		if inst := v.manager.Current(); inst != nil {
			inst.Update(dt)
		}
	})

	v.manager.OnAvatarLoaded(func(s stats.Snapshot) {
		s.LogSummary()
	})
	v.controller.OnAnimationChanged(func(id string) {
		log.Printf("[Viewer] animation: %s", id)
	})
	v.controller.OnAnimationError(func(detail string) {
		log.Printf("[Viewer] animation error: %s", detail)
	})

	if w := v.engine.Window(); w != nil {
		w.SetDropCallback(v.handleDrop)
		w.SetKeyDownCallback(v.handleKey)
	}
}

// handleDrop opens the first dropped file. File reads stay off the window thread.
func (v *viewer) handleDrop(paths []string) {
	if len(paths) == 0 {
		return
	}
	if len(paths) > 1 {
		log.Printf("[Viewer] %d files dropped, opening %s", len(paths), filepath.Base(paths[0]))
	}
	go v.open(paths[0])
}

// handleKey plays the clip bound to key. Play fetches the clip, so it runs on its own goroutine.
func (v *viewer) handleKey(key window.Key) {
	name, ok := keyClips[key]
	if !ok {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), clipTimeout)
		defer cancel()
		// Failures are reported through OnAnimationError.
		_ = v.controller.Play(ctx, name)
	}()
}

// open reads, probes and loads an avatar file. The load itself is started on the frame goroutine.
func (v *viewer) open(path string) {
	data, err := readAvatarFile(path, v.cfg.MaxFileSize)
	if err != nil {
		log.Printf("[Viewer] %v", err)
		return
	}

	p := loader.Probe(data)
	log.Printf("[Viewer] %s: %s, glb: %t, meshes: ~%d, textures: ~%d, avatar extension: %t (%s)",
		filepath.Base(path), humanize.IBytes(uint64(p.FileSize)), p.IsGLB, p.EstimatedMeshes,
		p.EstimatedTextures, p.HasAvatarExtension, p.GeneratorName)

	v.engine.Post(func() {
		tx := v.manager.Load(context.Background(), data, int64(len(data)))
		go v.await(path, tx)
	})
}

// await logs the outcome of a load. Superseded loads are silent.
func (v *viewer) await(path string, tx *avatar.Transaction) {
	select {
	case <-tx.Done():
	case <-v.engine.Done():
		return
	}
	err := tx.Err()
	switch {
	case err == nil:
		log.Printf("[Viewer] %s installed", filepath.Base(path))
	case errors.Is(err, avatar.ErrTransactionSuperseded):
	default:
		log.Printf("[Viewer] %s: %v", filepath.Base(path), err)
	}
}

// readAvatarFile checks the extension and the size ceiling before reading the whole file.
//
// Parameters:
//   - path: the file to read
//   - maxSize: the largest accepted size in bytes
//
// Returns:
//   - []byte: the file contents
//   - error: errNotAvatarFile, errFileTooLarge, or the file system error
func readAvatarFile(path string, maxSize int64) ([]byte, error) {
	if !strings.EqualFold(filepath.Ext(path), avatarExtension) {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), errNotAvatarFile)
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat avatar file: %w", err)
	}
	if info.Size() > maxSize {
		return nil, fmt.Errorf("%s is %s, limit %s: %w", filepath.Base(path),
			humanize.IBytes(uint64(info.Size())), humanize.IBytes(uint64(maxSize)), errFileTooLarge)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read avatar file: %w", err)
	}
	return data, nil
}
