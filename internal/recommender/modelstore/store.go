// Package modelstore persists versioned model bundles on the local disk.
//
// A bundle is written as {dir}/{name}_v{N}.gob.gz: a gzip stream holding a gob
// encoded envelope of metadata and the opaque payload. Bundles are written to
// a temporary file in the same directory, synced and renamed into place, so a
// reader sees either the previous version or the complete new one.
package modelstore

import (
	"bytes"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"sync"
	"time"

	"job-recommender/internal/common/config"
	apperrors "job-recommender/internal/common/errors"
	"job-recommender/internal/common/logger"
)

// Metadata describes one persisted bundle.
type Metadata struct {
	Name       string
	Version    int
	CreatedAt  time.Time
	SHA256     string
	Size       int
	Attributes map[string]string
}

type envelope struct {
	Metadata Metadata
	Payload  []byte
}

// Store reads and writes bundles for a single model name.
type Store struct {
	dir    string
	name   string
	keep   int
	logger logger.Logger

	// mu serializes writers; version numbers are derived from the directory.
	mu sync.Mutex
}

// New creates a Store for cfg. The directory is created on first save.
func New(cfg config.ModelStoreConfig, log logger.Logger) *Store {
	return &Store{
		dir:    cfg.Dir,
		name:   cfg.Name,
		keep:   cfg.Keep,
		logger: log.WithFields(map[string]interface{}{"component": "modelstore"}),
	}
}

// Path returns the file path of a version.
func (s *Store) Path(version int) string {
	return filepath.Join(s.dir, fmt.Sprintf("%s_v%d.gob.gz", s.name, version))
}

// Versions lists stored versions, ascending.
func (s *Store) Versions() ([]int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read model dir: %w", err)
	}

	pattern := regexp.MustCompile(`^` + regexp.QuoteMeta(s.name) + `_v(\d+)\.gob\.gz$`)
	var versions []int
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		m := pattern.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		v, err := strconv.Atoi(m[1])
		if err != nil || v <= 0 {
			continue
		}
		versions = append(versions, v)
	}
	sort.Ints(versions)
	return versions, nil
}

// Latest returns the newest version, or ok=false when nothing is stored.
func (s *Store) Latest() (version int, ok bool, err error) {
	versions, err := s.Versions()
	if err != nil {
		return 0, false, err
	}
	if len(versions) == 0 {
		return 0, false, nil
	}
	return versions[len(versions)-1], true, nil
}

// Exists reports whether at least one bundle is stored.
func (s *Store) Exists() bool {
	_, ok, err := s.Latest()
	return err == nil && ok
}

// Save writes payload as the next version and prunes old versions.
func (s *Store) Save(ctx context.Context, payload []byte, attrs map[string]string) (Metadata, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return Metadata{}, apperrors.NewModelPersistFailedError(err)
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return Metadata{}, apperrors.NewModelPersistFailedError(err)
	}

	latest, _, err := s.Latest()
	if err != nil {
		return Metadata{}, apperrors.NewModelPersistFailedError(err)
	}

	sum := sha256.Sum256(payload)
	meta := Metadata{
		Name:       s.name,
		Version:    latest + 1,
		CreatedAt:  time.Now().UTC(),
		SHA256:     hex.EncodeToString(sum[:]),
		Size:       len(payload),
		Attributes: attrs,
	}

	if err := s.writeAtomic(s.Path(meta.Version), envelope{Metadata: meta, Payload: payload}); err != nil {
		return Metadata{}, apperrors.NewModelPersistFailedError(err)
	}

	s.logger.Info("model bundle saved", map[string]interface{}{
		"version": meta.Version,
		"path":    s.Path(meta.Version),
		"bytes":   meta.Size,
	})

	if err := s.prune(); err != nil {
		s.logger.Warn("failed to prune old bundles", map[string]interface{}{
			"error": err.Error(),
		})
	}
	return meta, nil
}

func (s *Store) writeAtomic(path string, env envelope) (err error) {
	tmp, err := os.CreateTemp(s.dir, "."+s.name+"-*.tmp")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	zw := gzip.NewWriter(tmp)
	if err = gob.NewEncoder(zw).Encode(env); err != nil {
		return fmt.Errorf("encode bundle: %w", err)
	}
	if err = zw.Close(); err != nil {
		return err
	}
	if err = tmp.Sync(); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// Load reads a version; version 0 means the latest. The payload checksum is
// verified before it is returned.
func (s *Store) Load(ctx context.Context, version int) (Metadata, []byte, error) {
	if err := ctx.Err(); err != nil {
		return Metadata{}, nil, err
	}
	if version == 0 {
		latest, ok, err := s.Latest()
		if err != nil {
			return Metadata{}, nil, apperrors.NewInternalError(err)
		}
		if !ok {
			return Metadata{}, nil, apperrors.NewModelNotFoundError(fmt.Sprintf("no %s bundle in %s", s.name, s.dir))
		}
		version = latest
	}

	path := s.Path(version)
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Metadata{}, nil, apperrors.NewModelNotFoundError(fmt.Sprintf("%s does not exist", path))
		}
		return Metadata{}, nil, apperrors.NewInternalError(err)
	}

	env, err := decode(raw)
	if err != nil {
		return Metadata{}, nil, apperrors.NewModelCorruptedError(path, err)
	}
	sum := sha256.Sum256(env.Payload)
	if hex.EncodeToString(sum[:]) != env.Metadata.SHA256 {
		return Metadata{}, nil, apperrors.NewModelCorruptedError(path, errors.New("checksum mismatch"))
	}
	return env.Metadata, env.Payload, nil
}

func decode(raw []byte) (envelope, error) {
	var env envelope
	zr, err := gzip.NewReader(bytes.NewReader(raw))
	if err != nil {
		return env, err
	}
	defer zr.Close()
	if err := gob.NewDecoder(zr).Decode(&env); err != nil {
		return env, err
	}
	// Drain so gzip verifies its trailer checksum.
	if _, err := io.Copy(io.Discard, zr); err != nil {
		return env, err
	}
	return env, nil
}

// prune removes all but the newest keep versions. keep <= 0 keeps everything.
// Callers hold s.mu.
func (s *Store) prune() error {
	if s.keep <= 0 {
		return nil
	}
	versions, err := s.Versions()
	if err != nil {
		return err
	}
	if len(versions) <= s.keep {
		return nil
	}

	var errs []error
	for _, v := range versions[:len(versions)-s.keep] {
		if err := os.Remove(s.Path(v)); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
			continue
		}
		s.logger.Debug("pruned model bundle", map[string]interface{}{"version": v})
	}
	return errors.Join(errs...)
}
