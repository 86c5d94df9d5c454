// Package hub resolves pretrained model artifacts from a Hugging Face style
// model repository into a local on-disk cache.
package hub

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	jujuclock "github.com/juju/clock"
	jujumutex "github.com/juju/mutex/v2"
	"go.uber.org/zap"
)

// ErrNotFound is returned when the repository has no such file, or when the
// file is not cached and the fetcher is offline.
var ErrNotFound = errors.New("file not found")

type Options struct {
	Endpoint    string
	Token       string
	CacheDir    string
	Offline     bool
	Timeout     time.Duration
	LockTimeout time.Duration
}

type Ref struct {
	Repo     string
	Revision string
}

func (r Ref) String() string {
	return r.Repo + "@" + r.revision()
}

func (r Ref) revision() string {
	if r.Revision == "" {
		return "main"
	}
	return r.Revision
}

type File struct {
	Name     string
	Optional bool
}

// Snapshot is the set of files of one repository revision present in the cache.
type Snapshot struct {
	Dir   string
	files map[string]string
}

func (s *Snapshot) Path(name string) (string, bool) {
	p, ok := s.files[name]
	return p, ok
}

type Fetcher struct {
	opts       Options
	httpClient *http.Client
	logger     *zap.Logger
}

func NewFetcher(opts Options, logger *zap.Logger) *Fetcher {
	return &Fetcher{
		opts: opts,
		httpClient: &http.Client{
			Timeout: opts.Timeout,
		},
		logger: logger,
	}
}

// Fetch makes sure every requested file of ref is in the cache, downloading the
// missing ones. Processes sharing a cache directory take turns through a named
// mutex so a half-written file is never observed.
func (f *Fetcher) Fetch(ctx context.Context, ref Ref, files ...File) (*Snapshot, error) {
	if ref.Repo == "" {
		return nil, errors.New("repository must not be empty")
	}

	dir := f.snapshotDir(ref)
	snapshot := &Snapshot{Dir: dir, files: make(map[string]string, len(files))}

	var missing []File
	for _, file := range files {
		p := filepath.Join(dir, filepath.FromSlash(file.Name))
		if fileExists(p) {
			snapshot.files[file.Name] = p
			continue
		}
		missing = append(missing, file)
	}
	if len(missing) == 0 {
		f.logger.Debug("Model files served from cache", zap.String("dir", dir))
		return snapshot, nil
	}

	if f.opts.Offline {
		for _, file := range missing {
			if !file.Optional {
				return nil, fmt.Errorf("%s: %s not cached in offline mode: %w", ref, file.Name, ErrNotFound)
			}
		}
		return snapshot, nil
	}

	releaser, err := f.lock(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to lock model cache: %w", err)
	}
	defer releaser.Release()

	for _, file := range missing {
		p := filepath.Join(dir, filepath.FromSlash(file.Name))
		// Another process may have finished the download while we waited.
		if !fileExists(p) {
			err := f.download(ctx, ref, file.Name, p)
			if errors.Is(err, ErrNotFound) && file.Optional {
				f.logger.Debug("Optional model file absent", zap.String("file", file.Name))
				continue
			}
			if err != nil {
				return nil, err
			}
		}
		snapshot.files[file.Name] = p
	}

	return snapshot, nil
}

func (f *Fetcher) snapshotDir(ref Ref) string {
	name := "models--" + strings.ReplaceAll(ref.Repo, "/", "--")
	return filepath.Join(f.opts.CacheDir, name, ref.revision())
}

func (f *Fetcher) fileURL(ref Ref, name string) string {
	return fmt.Sprintf("%s/%s/resolve/%s/%s",
		strings.TrimRight(f.opts.Endpoint, "/"), ref.Repo, url.PathEscape(ref.revision()), name)
}

func (f *Fetcher) download(ctx context.Context, ref Ref, name, dst string) error {
	u := f.fileURL(ref, name)
	f.logger.Info("Downloading model file", zap.String("url", u))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if f.opts.Token != "" {
		req.Header.Set("Authorization", "Bearer "+f.opts.Token)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to download %s: %w", name, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%s: %s: %w", ref, name, ErrNotFound)
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("hub returned status %d for %s", resp.StatusCode, name)
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	tmp := filepath.Join(filepath.Dir(dst), "."+uuid.NewString()+".incomplete")
	out, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("failed to create cache file: %w", err)
	}

	n, err := io.Copy(out, resp.Body)
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to write %s: %w", name, err)
	}

	if err := os.Rename(tmp, dst); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to move %s into cache: %w", name, err)
	}

	f.logger.Info("Model file cached", zap.String("file", name), zap.Int64("bytes", n))
	return nil
}

func (f *Fetcher) lock(ctx context.Context) (jujumutex.Releaser, error) {
	return jujumutex.Acquire(jujumutex.Spec{
		Name:    lockName(f.opts.CacheDir),
		Clock:   jujuclock.WallClock,
		Delay:   250 * time.Millisecond,
		Timeout: f.opts.LockTimeout,
		Cancel:  ctx.Done(),
	})
}

// lockName derives a mutex name from the cache directory. Mutex names only
// allow letters, digits and hyphens.
func lockName(cacheDir string) string {
	abs, err := filepath.Abs(cacheDir)
	if err != nil {
		abs = cacheDir
	}
	h := fnv.New64a()
	_, _ = h.Write([]byte(abs))
	return fmt.Sprintf("waste-hub-%x", h.Sum64())
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
