package source

import (
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/example/studydesk/internal/fingerprint"
	"github.com/example/studydesk/internal/gitsource"
	"github.com/example/studydesk/internal/storage"
	"github.com/example/studydesk/internal/study"
)

// Service reconciles registered deck sources with the application state:
// every .csv or .json deck file found under a source is imported once,
// keyed by content hash.
type Service struct {
	db       *storage.DB
	ctrl     *study.Controller
	reposDir string
	log      *slog.Logger
}

// NewService wires the sync service.
func NewService(db *storage.DB, ctrl *study.Controller, reposDir string, logger *slog.Logger) *Service {
	return &Service{db: db, ctrl: ctrl, reposDir: reposDir, log: logger}
}

// Add registers a new deck source, classifying it as git or local by its
// shape.
func (s *Service) Add(path string) (int64, error) {
	return s.db.InsertSource(path, Classify(path))
}

// Classify decides whether a source path is a git URL or a local directory.
func Classify(path string) string {
	if strings.HasSuffix(path, ".git") || strings.HasPrefix(path, "git@") ||
		strings.HasPrefix(path, "https://") || strings.HasPrefix(path, "http://") {
		return "git"
	}
	return "local"
}

// SyncAll iterates over all registered sources and reconciles each.
func (s *Service) SyncAll() error {
	sources, err := s.db.GetAllSources()
	if err != nil {
		return fmt.Errorf("failed to list sources: %w", err)
	}
	if len(sources) == 0 {
		s.log.Info("no deck sources configured")
		return nil
	}

	if err := os.MkdirAll(s.reposDir, 0o755); err != nil {
		return fmt.Errorf("failed to create repos directory: %w", err)
	}

	for _, src := range sources {
		s.log.Info("syncing deck source", "id", src.ID, "type", src.Type, "path", src.Path)
		dir := src.Path
		if src.Type == "git" {
			localPath, err := gitURLToLocalPath(s.reposDir, src.Path)
			if err != nil {
				s.log.Error("cannot determine local path for deck repo", "url", src.Path, "error", err)
				continue
			}
			if err := gitsource.Sync(src.Path, localPath); err != nil {
				s.log.Error("failed to sync deck repo", "url", src.Path, "error", err)
				continue
			}
			dir = localPath
		}
		s.importDir(dir)
		if err := s.db.UpdateSourceLastSynced(src.ID, time.Now()); err != nil {
			s.log.Warn("failed to stamp source", "id", src.ID, "error", err)
		}
	}
	return nil
}

// importDir walks a directory and imports every not-yet-seen deck file.
func (s *Service) importDir(dir string) {
	imported, skipped := 0, 0
	walkErr := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		ext := strings.ToLower(filepath.Ext(d.Name()))
		if ext != ".csv" && ext != ".json" {
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			s.log.Warn("failed to read deck file", "path", path, "error", err)
			return nil
		}
		hash := fingerprint.Hash(data)
		seen, err := s.db.SeenFile(hash)
		if err != nil {
			s.log.Warn("failed to check deck file", "path", path, "error", err)
			return nil
		}
		if seen {
			skipped++
			return nil
		}

		deck, err := s.ctrl.ImportFile(d.Name(), data)
		if err != nil {
			s.log.Warn("failed to import deck file", "path", path, "error", err)
			return nil
		}
		if err := s.db.MarkFile(hash, path, time.Now()); err != nil {
			s.log.Warn("failed to mark deck file as imported", "path", path, "error", err)
		}
		imported++
		s.log.Info("imported deck from source", "path", path, "title", deck.Title, "items", len(deck.Items))
		return nil
	})
	if walkErr != nil {
		s.log.Error("error walking deck source", "path", dir, "error", walkErr)
		return
	}
	s.log.Info("source reconciled", "path", dir, "imported", imported, "skipped", skipped)
}

// gitURLToLocalPath maps a git URL onto a checkout directory under baseDir.
func gitURLToLocalPath(baseDir, repoURL string) (string, error) {
	parsed, err := url.Parse(repoURL)
	if err != nil || (parsed.Scheme != "https" && parsed.Scheme != "http") {
		// scp-style URLs: git@host:user/repo.git
		if strings.Contains(repoURL, "@") {
			parts := strings.Split(repoURL, ":")
			if len(parts) == 2 {
				hostAndUser := strings.Split(parts[0], "@")
				if len(hostAndUser) == 2 {
					host := hostAndUser[1]
					repoPath := strings.TrimSuffix(parts[1], ".git")
					return filepath.Join(baseDir, host, repoPath), nil
				}
			}
		}
		return "", fmt.Errorf("could not parse git URL: %s", repoURL)
	}
	return filepath.Join(baseDir, parsed.Host, strings.TrimSuffix(parsed.Path, ".git")), nil
}
