package store

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

const legacyDocumentsDir = "transcripts"

// legacyFiles are the single-project data files that move into the default project.
var legacyFiles = []string{flashcardsFile, masteryFile, historyFile}

// MigrationReport describes what MigrateLegacy moved.
type MigrationReport struct {
	ProjectID string
	Documents int
	Files     []string
	Backups   []string
}

// LegacyDataPresent reports whether legacyRoot still holds single-project data.
func LegacyDataPresent(legacyRoot string) bool {
	for _, name := range append([]string{legacyDocumentsDir}, legacyFiles...) {
		if _, err := os.Stat(filepath.Join(legacyRoot, name)); err == nil {
			return true
		}
	}
	return false
}

// MigrateLegacy moves single-project data from legacyRoot into a new project
// named defaultName. Originals are kept with a .backup suffix. It does
// nothing, returning nil, when any project already exists or there is no
// legacy data.
func (s *ProjectStore) MigrateLegacy(legacyRoot, defaultName string) (*MigrationReport, error) {
	if s.Count() > 0 || !LegacyDataPresent(legacyRoot) {
		return nil, nil
	}

	p, err := s.CreateProject(defaultName)
	if err != nil {
		return nil, fmt.Errorf("create default project: %w", err)
	}
	report := &MigrationReport{ProjectID: p.ID}
	dir := filepath.Join(s.root, p.ID)

	oldDocs := filepath.Join(legacyRoot, legacyDocumentsDir)
	if info, err := os.Stat(oldDocs); err == nil && info.IsDir() {
		entries, err := os.ReadDir(oldDocs)
		if err != nil {
			return report, fmt.Errorf("read %s: %w", oldDocs, err)
		}
		for _, e := range entries {
			if !e.Type().IsRegular() {
				continue
			}
			if err := copyFile(filepath.Join(oldDocs, e.Name()), filepath.Join(dir, documentsDir, e.Name())); err != nil {
				return report, err
			}
			report.Documents++
		}
		backup, err := backupPath(oldDocs)
		if err != nil {
			return report, err
		}
		report.Backups = append(report.Backups, backup)
	}

	for _, name := range legacyFiles {
		src := filepath.Join(legacyRoot, name)
		if _, err := os.Stat(src); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := copyFile(src, filepath.Join(dir, name)); err != nil {
			return report, err
		}
		report.Files = append(report.Files, name)
		backup, err := backupPath(src)
		if err != nil {
			return report, err
		}
		report.Backups = append(report.Backups, backup)
	}

	s.logger.Info("migrated legacy data",
		"project_id", p.ID,
		"documents", report.Documents,
		"files", report.Files,
	)
	return report, nil
}

// backupPath renames path to path.backup and returns the new name.
func backupPath(path string) (string, error) {
	backup := path + ".backup"
	if err := os.Rename(path, backup); err != nil {
		return "", fmt.Errorf("back up %s: %w", path, err)
	}
	return backup, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("copy %s: %w", src, err)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return fmt.Errorf("copy %s: %w", src, err)
	}

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return fmt.Errorf("copy %s: %w", src, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copy %s: %w", src, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("copy %s: %w", src, err)
	}
	return os.Chtimes(dst, info.ModTime(), info.ModTime())
}
