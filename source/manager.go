package source

import (
	"os"
	"path/filepath"

	"github.com/svfront/driver/internal/base"
)

var LogSource = base.NewLogCategory("source")

// Manager is the source directory registry: a thin ordered list of user
// and system include directories, searched user-first then system-first,
// grounded on the JoinPath/directory-existence idiom in utils/UFS.go.
type Manager struct {
	userDirs   []string
	systemDirs []string
}

func NewManager() *Manager { return &Manager{} }

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// AddUserDirectory registers path as a user include directory. Returns
// false (without registering) if the directory does not exist; the driver
// turns that into a warning but keeps going.
func (m *Manager) AddUserDirectory(path string) bool {
	if !dirExists(path) {
		return false
	}
	m.userDirs = append(m.userDirs, path)
	return true
}

// AddSystemDirectory is AddUserDirectory's system-path counterpart;
// system directories are searched only after every user directory misses.
func (m *Manager) AddSystemDirectory(path string) bool {
	if !dirExists(path) {
		return false
	}
	m.systemDirs = append(m.systemDirs, path)
	return true
}

// Resolve finds name against registered directories, user directories
// first, returning the first hit's canonical path.
func (m *Manager) Resolve(name string) (string, bool) {
	for _, dir := range m.userDirs {
		candidate := filepath.Join(dir, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true
		}
	}
	for _, dir := range m.systemDirs {
		candidate := filepath.Join(dir, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true
		}
	}
	return "", false
}

func (m *Manager) UserDirectories() []string   { return m.userDirs }
func (m *Manager) SystemDirectories() []string { return m.systemDirs }
