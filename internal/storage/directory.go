package storage

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/cloo-solutions/resumatch/internal/domain"
)

// ResumeExt is the only file extension accepted as a resume.
const ResumeExt = ".pdf"

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9_.-]`)

// ResumeFile describes a PDF stored in the resume directory.
type ResumeFile struct {
	Name    string    `json:"name"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"modified_at"`
}

// Directory is the on-disk folder holding resume PDFs.
type Directory struct {
	root string
}

// NewDirectory opens root, creating it when missing.
func NewDirectory(root string) (*Directory, error) {
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("resume directory is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create resume directory: %w", err)
	}
	return &Directory{root: root}, nil
}

func (d *Directory) Root() string {
	return d.root
}

// IsResume reports whether name has the resume extension.
func IsResume(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ResumeExt)
}

// SanitizeFilename reduces name to a safe base name of ASCII letters, digits, '_', '.' and '-'.
// Whitespace becomes '_'; anything else is dropped. It returns "" when nothing usable remains.
func SanitizeFilename(name string) string {
	name = domain.SourceName(name)
	name = strings.Join(strings.Fields(name), "_")
	name = unsafeFilenameChars.ReplaceAllString(name, "")
	name = strings.TrimLeft(name, "._")
	if name == "" || name == "." || name == ".." {
		return ""
	}
	return name
}

// List returns the resumes stored directly in the directory, sorted by name.
func (d *Directory) List() ([]ResumeFile, error) {
	entries, err := os.ReadDir(d.root)
	if err != nil {
		return nil, fmt.Errorf("read resume directory: %w", err)
	}

	files := make([]ResumeFile, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !IsResume(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			// removed since ReadDir
			continue
		}
		files = append(files, ResumeFile{Name: e.Name(), Size: info.Size(), ModTime: info.ModTime()})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}

// FindAll returns the paths of every resume below the directory, recursively, in lexical order.
func (d *Directory) FindAll() ([]string, error) {
	var paths []string
	err := filepath.WalkDir(d.root, func(path string, e fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !e.IsDir() && IsResume(e.Name()) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk resume directory: %w", err)
	}
	return paths, nil
}

// Path resolves a stored resume by name. It fails with domain.ErrResumeNotFound when absent.
func (d *Directory) Path(name string) (string, error) {
	clean := SanitizeFilename(name)
	if clean == "" || clean != name {
		return "", domain.ErrInvalidFilename
	}
	path := filepath.Join(d.root, clean)
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) || (err == nil && info.IsDir()) {
		return "", domain.ErrResumeNotFound
	}
	if err != nil {
		return "", fmt.Errorf("stat resume: %w", err)
	}
	return path, nil
}

// Save writes r under the sanitized form of name, replacing any previous file of that name.
// It returns the stored name and full path.
func (d *Directory) Save(name string, r io.Reader) (string, string, error) {
	clean := SanitizeFilename(name)
	if clean == "" {
		return "", "", domain.ErrInvalidFilename
	}
	if !IsResume(clean) {
		return "", "", domain.ErrInvalidFileType
	}

	tmp, err := os.CreateTemp(d.root, ".upload-*")
	if err != nil {
		return "", "", fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return "", "", fmt.Errorf("write resume: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", "", fmt.Errorf("close resume: %w", err)
	}

	path := filepath.Join(d.root, clean)
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", "", fmt.Errorf("store resume: %w", err)
	}
	return clean, path, nil
}

// Remove deletes a stored resume.
func (d *Directory) Remove(name string) error {
	path, err := d.Path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("remove resume: %w", err)
	}
	return nil
}
