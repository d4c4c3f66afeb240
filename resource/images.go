package resource

import (
	"fmt"
	"image"
	_ "image/png" // Register PNG format
	"os"
	"sync"

	"go.uber.org/zap"
)

// Bitmap is the decoded header of an image asset. The selection flow only
// needs dimensions for layout; pixels are the renderer's business.
type Bitmap struct {
	Name   string `json:"name"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// ImageLoader resolves img/ assets asynchronously and caches their headers.
type ImageLoader struct {
	rl     *ResourceLoader
	logger *zap.Logger

	mu    sync.Mutex
	cache map[string]Bitmap
}

// NewImageLoader creates an ImageLoader reading from rl.ImgPath.
func NewImageLoader(rl *ResourceLoader, logger *zap.Logger) *ImageLoader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ImageLoader{rl: rl, logger: logger, cache: make(map[string]Bitmap)}
}

// LoadPicture requests img/pictures/<name>.png. done runs on another
// goroutine once the header is read; a missing file reports an error and
// leaves the caller to render blank.
func (l *ImageLoader) LoadPicture(name string, done func(Bitmap, error)) {
	l.load(l.rl.PicturePath(name), name, done)
}

// LoadCharacter requests img/characters/<name>.png.
func (l *ImageLoader) LoadCharacter(name string, done func(Bitmap, error)) {
	l.load(l.rl.CharacterPath(name), name, done)
}

func (l *ImageLoader) load(path, name string, done func(Bitmap, error)) {
	l.mu.Lock()
	bm, ok := l.cache[path]
	l.mu.Unlock()
	if ok {
		go done(bm, nil)
		return
	}

	go func() {
		bm, err := decodeHeader(path, name)
		if err != nil {
			l.logger.Debug("image load failed", zap.String("path", path), zap.Error(err))
			done(Bitmap{Name: name}, err)
			return
		}
		l.mu.Lock()
		l.cache[path] = bm
		l.mu.Unlock()
		done(bm, nil)
	}()
}

func decodeHeader(path, name string) (Bitmap, error) {
	f, err := os.Open(path)
	if err != nil {
		return Bitmap{}, fmt.Errorf("resource: open %s: %w", path, err)
	}
	defer f.Close()
	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return Bitmap{}, fmt.Errorf("resource: decode %s: %w", path, err)
	}
	return Bitmap{Name: name, Width: cfg.Width, Height: cfg.Height}, nil
}
