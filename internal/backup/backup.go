// Package backup takes point-in-time snapshots of the artist database and
// prunes old ones.
package backup

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"
)

const (
	filePrefix = "localscene-"
	fileSuffix = ".db"
	stampFmt   = "20060102-150405"
)

// snapshotPattern matches snapshot filenames: localscene-YYYYMMDD-HHMMSS.db
var snapshotPattern = regexp.MustCompile(`^localscene-\d{8}-\d{6}\.db$`)

// ErrSnapshotExists is returned when a snapshot with the same timestamp is
// already on disk.
var ErrSnapshotExists = errors.New("snapshot already exists")

// Snapshot describes one backup file.
type Snapshot struct {
	Filename  string    `json:"filename"`
	Path      string    `json:"path"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"created_at"`
}

// Service writes snapshots of db into dir.
type Service struct {
	db     *sql.DB
	dir    string
	logger *slog.Logger
	now    func() time.Time
}

// NewService creates a backup service rooted at dir.
func NewService(db *sql.DB, dir string, logger *slog.Logger) *Service {
	return &Service{
		db:     db,
		dir:    dir,
		logger: logger.With(slog.String("component", "backup")),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Dir returns the snapshot directory.
func (s *Service) Dir() string {
	return s.dir
}

// Backup writes a consistent copy of the database with VACUUM INTO. The
// live database stays usable while the copy is taken.
func (s *Service) Backup(ctx context.Context) (*Snapshot, error) {
	if err := os.MkdirAll(s.dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating backup directory: %w", err)
	}

	created := s.now().Truncate(time.Second)
	name := filePrefix + created.Format(stampFmt) + fileSuffix
	dest := filepath.Join(s.dir, name)

	if _, err := os.Stat(dest); err == nil {
		return nil, fmt.Errorf("%s: %w", name, ErrSnapshotExists)
	}

	s.logger.Info("writing snapshot", slog.String("dest", dest))
	if _, err := s.db.ExecContext(ctx, "VACUUM INTO ?", dest); err != nil {
		return nil, fmt.Errorf("VACUUM INTO: %w", err)
	}

	fi, err := os.Stat(dest)
	if err != nil {
		return nil, fmt.Errorf("stat snapshot: %w", err)
	}
	s.logger.Info("snapshot written",
		slog.String("filename", name),
		slog.Int64("size", fi.Size()))

	return &Snapshot{Filename: name, Path: dest, Size: fi.Size(), CreatedAt: created}, nil
}

// List returns the snapshots in the directory, newest first. A missing
// directory yields an empty list.
func (s *Service) List() ([]Snapshot, error) {
	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, os.ErrNotExist) {
		return []Snapshot{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading backup directory: %w", err)
	}

	snaps := []Snapshot{}
	for _, e := range entries {
		if e.IsDir() || !snapshotPattern.MatchString(e.Name()) {
			continue
		}
		fi, err := e.Info()
		if err != nil {
			continue
		}
		stamp := strings.TrimSuffix(strings.TrimPrefix(e.Name(), filePrefix), fileSuffix)
		created, err := time.Parse(stampFmt, stamp)
		if err != nil {
			created = fi.ModTime().UTC()
		}
		snaps = append(snaps, Snapshot{
			Filename:  e.Name(),
			Path:      filepath.Join(s.dir, e.Name()),
			Size:      fi.Size(),
			CreatedAt: created,
		})
	}

	sort.Slice(snaps, func(i, j int) bool {
		return snaps[i].CreatedAt.After(snaps[j].CreatedAt)
	})
	return snaps, nil
}

// Prune keeps the newest keep snapshots and removes the rest. When maxAge is
// positive, kept snapshots older than maxAge go as well. Files that cannot be
// removed are logged and skipped. It returns the removed filenames.
func (s *Service) Prune(keep int, maxAge time.Duration) ([]string, error) {
	if keep < 1 {
		return nil, fmt.Errorf("keep must be at least 1, got %d", keep)
	}

	snaps, err := s.List()
	if err != nil {
		return nil, err
	}

	var cutoff time.Time
	if maxAge > 0 {
		cutoff = s.now().Add(-maxAge)
	}

	removed := []string{}
	for i, snap := range snaps {
		expired := !cutoff.IsZero() && snap.CreatedAt.Before(cutoff)
		if i < keep && !expired {
			continue
		}
		if err := os.Remove(snap.Path); err != nil {
			s.logger.Warn("removing snapshot",
				slog.String("filename", snap.Filename),
				slog.Any("error", err))
			continue
		}
		s.logger.Info("pruned snapshot", slog.String("filename", snap.Filename))
		removed = append(removed, snap.Filename)
	}
	return removed, nil
}

// IsValidFilename reports whether name is a bare snapshot filename with no
// path components.
func IsValidFilename(name string) bool {
	if strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return false
	}
	return snapshotPattern.MatchString(name)
}
