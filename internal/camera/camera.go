package camera

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/2beens/formcoach/internal/cache"
	"github.com/2beens/formcoach/pkg"
)

var (
	ErrPermissionDenied = errors.New("camera permission denied")
	ErrNotAcquired      = errors.New("camera not acquired")
	ErrNoFrames         = errors.New("camera has no frames")
)

// Camera is an exclusively owned capture device.
type Camera interface {
	Acquire(ctx context.Context) error
	// Capture returns one JPEG encoded frame.
	Capture(ctx context.Context) ([]byte, error)
	Release() error
}

// DirCamera replays the JPEG files of a directory in name order.
type DirCamera struct {
	mutex    sync.Mutex
	dir      string
	loop     bool
	files    []string
	next     int
	acquired bool
	frames   cache.Cache
}

func NewDirCamera(dir string, loop bool) *DirCamera {
	return &DirCamera{
		dir:  dir,
		loop: loop,
	}
}

// WithCache makes the camera keep read frames in frames, so a looping replay
// reads every file once.
func (c *DirCamera) WithCache(frames cache.Cache) *DirCamera {
	c.frames = frames
	return c
}

func (c *DirCamera) Acquire(_ context.Context) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.acquired {
		return errors.New("camera already acquired")
	}

	exists, err := pkg.PathExists(c.dir, true)
	if err != nil {
		if errors.Is(err, os.ErrPermission) {
			return fmt.Errorf("%w: %s", ErrPermissionDenied, err)
		}
		return fmt.Errorf("open camera dir: %w", err)
	}
	if !exists {
		return fmt.Errorf("camera dir %s does not exist", c.dir)
	}

	entries, err := os.ReadDir(c.dir)
	if err != nil {
		if errors.Is(err, os.ErrPermission) {
			return fmt.Errorf("%w: %s", ErrPermissionDenied, err)
		}
		return fmt.Errorf("read camera dir: %w", err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".jpg", ".jpeg":
			files = append(files, filepath.Join(c.dir, e.Name()))
		}
	}
	if len(files) == 0 {
		return fmt.Errorf("%w: %s", ErrNoFrames, c.dir)
	}
	sort.Strings(files)

	c.files = files
	c.next = 0
	c.acquired = true
	log.Debugf("camera: acquired %s with %d frames", c.dir, len(files))
	return nil
}

// Capture returns io.EOF once all frames were served, unless looping.
func (c *DirCamera) Capture(ctx context.Context) ([]byte, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if !c.acquired {
		return nil, ErrNotAcquired
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if c.next >= len(c.files) {
		if !c.loop {
			return nil, io.EOF
		}
		c.next = 0
	}

	path := c.files[c.next]
	c.next++

	if c.frames != nil {
		if frame, found := c.frames.Get(path); found {
			return frame, nil
		}
	}

	frame, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read frame %s: %w", path, err)
	}
	if c.frames != nil {
		c.frames.Set(path, frame)
	}
	return frame, nil
}

func (c *DirCamera) Release() error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if !c.acquired {
		return ErrNotAcquired
	}
	c.acquired = false
	c.files = nil
	log.Debugf("camera: released %s", c.dir)
	return nil
}
