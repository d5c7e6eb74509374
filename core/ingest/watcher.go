package ingest

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"Musio/logger"
	"Musio/metrics"
	"Musio/model"
	"Musio/storage"

	"github.com/fsnotify/fsnotify"
)

// ImportedDir is the sub-directory processed files are moved into.
const ImportedDir = "imported"

// Uploader stores an audio file and returns its public URL. Delete removes
// an object again when the track cannot be registered.
type Uploader interface {
	Upload(ctx context.Context, folder, filename string, r io.Reader, size int64, contentType string) (string, error)
	Delete(ctx context.Context, objectURL string) error
}

// TrackCreator registers an uploaded track in the catalog.
type TrackCreator interface {
	Create(ctx context.Context, track *model.Track) error
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithSettle sets how long a file must stay unchanged before it is picked up.
func WithSettle(d time.Duration) Option {
	return func(w *Watcher) { w.settle = d }
}

// WithWorkers sets the number of concurrent uploads.
func WithWorkers(n int) Option {
	return func(w *Watcher) {
		if n > 0 {
			w.workers = n
		}
	}
}

// WithOnImported is called after each successful import.
func WithOnImported(fn func(*model.Track)) Option {
	return func(w *Watcher) { w.onImported = fn }
}

// Watcher 监听投放目录，将新音频文件上传并登记为歌曲
type Watcher struct {
	dir        string
	uploader   Uploader
	tracks     TrackCreator
	settle     time.Duration
	workers    int
	onImported func(*model.Track)

	inflight sync.Map
}

// NewWatcher creates a watcher for dir.
func NewWatcher(dir string, uploader Uploader, tracks TrackCreator, opts ...Option) *Watcher {
	w := &Watcher{
		dir:      dir,
		uploader: uploader,
		tracks:   tracks,
		settle:   time.Second,
		workers:  2,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run watches the directory until ctx is cancelled. Audio files already present are imported first.
func (w *Watcher) Run(ctx context.Context) error {
	if err := os.MkdirAll(filepath.Join(w.dir, ImportedDir), 0o755); err != nil {
		return fmt.Errorf("创建导入目录失败: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("创建文件监听器失败: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(w.dir); err != nil {
		return fmt.Errorf("监听目录失败: %w", err)
	}

	tasks := make(chan string, 64)
	var wg sync.WaitGroup
	for i := 0; i < w.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.worker(ctx, tasks)
		}()
	}
	defer func() {
		close(tasks)
		wg.Wait()
	}()

	logger.Info("ingest watcher started", logger.String("dir", w.dir), logger.Int("workers", w.workers))

	// 文件稳定性检查的延迟队列
	pending := make(map[string]time.Time)
	if entries, err := os.ReadDir(w.dir); err == nil {
		for _, e := range entries {
			if !e.IsDir() && storage.IsAudioFile(e.Name()) {
				pending[filepath.Join(w.dir, e.Name())] = time.Time{}
			}
		}
	}

	tick := w.settle / 2
	if tick <= 0 {
		tick = 10 * time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) != 0 && storage.IsAudioFile(event.Name) {
				pending[event.Name] = time.Now()
			}

		case <-ticker.C:
			now := time.Now()
			for path, last := range pending {
				if now.Sub(last) < w.settle {
					continue // 文件可能还在写入
				}
				if _, loaded := w.inflight.LoadOrStore(path, true); loaded {
					delete(pending, path)
					continue
				}
				select {
				case tasks <- path:
					delete(pending, path)
				default:
					// 通道满了，稍后重试
					w.inflight.Delete(path)
				}
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("文件监听错误", logger.ErrorField(err))
		}
	}
}

func (w *Watcher) worker(ctx context.Context, tasks <-chan string) {
	for path := range tasks {
		if ctx.Err() != nil {
			w.inflight.Delete(path)
			continue
		}
		track, err := w.Ingest(ctx, path)
		w.inflight.Delete(path)
		if err != nil {
			metrics.IngestedFiles.WithLabelValues("error").Inc()
			logger.Warn("导入文件失败", logger.String("file", path), logger.ErrorField(err))
			continue
		}
		metrics.IngestedFiles.WithLabelValues("success").Inc()
		if w.onImported != nil {
			w.onImported(track)
		}
	}
}

// Ingest uploads one file, registers it as a track and moves it into ImportedDir.
func (w *Watcher) Ingest(ctx context.Context, path string) (*model.Track, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("打开文件失败: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("读取文件信息失败: %w", err)
	}

	name := filepath.Base(path)
	url, err := w.uploader.Upload(ctx, storage.FolderSongs, name, f, info.Size(), "")
	if err != nil {
		return nil, err
	}

	track := model.NewTrack(TitleFromFilename(name), model.UnknownArtist, model.UnknownGenre, url)
	if err := w.tracks.Create(ctx, track); err != nil {
		if derr := w.uploader.Delete(context.Background(), url); derr != nil {
			logger.Warn("failed to remove orphaned object", logger.String("url", url), logger.ErrorField(derr))
		}
		return nil, fmt.Errorf("登记歌曲失败: %w", err)
	}

	f.Close()
	if err := os.Rename(path, filepath.Join(w.dir, ImportedDir, name)); err != nil {
		logger.Warn("移动已导入文件失败", logger.String("file", path), logger.ErrorField(err))
	}

	logger.Info("file imported",
		logger.String("file", name),
		logger.String("track", track.ID),
		logger.String("title", track.Title))
	return track, nil
}

// TitleFromFilename turns "01_my-song.mp3" into "01 my-song".
func TitleFromFilename(name string) string {
	base := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	base = strings.ReplaceAll(base, "_", " ")
	title := strings.Join(strings.Fields(base), " ")
	if title == "" {
		return "Untitled"
	}
	return title
}
