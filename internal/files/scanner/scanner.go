package scanner

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/afero"

	"github.com/vvka-141/erpsync/internal/checksum"
	"github.com/vvka-141/erpsync/pkg/erpsync"
)

// QueryDir is the project subdirectory holding query files.
const QueryDir = "queries"

// QueryFile is one discovered query override.
type QueryFile struct {
	// Entity is the lowercase file name without extension.
	Entity string
	// Path is relative to the project directory, with forward slashes.
	Path       string
	Query      string
	Checksum   string // normalized
	ModifiedAt time.Time
}

// Scanner reads query files from a project directory.
type Scanner struct {
	calculator checksum.Calculator
	fs         afero.Fs
}

// NewScanner creates a scanner over the OS filesystem.
// Panics if calculator is nil.
func NewScanner(calculator checksum.Calculator) *Scanner {
	return NewScannerWithFS(calculator, afero.NewOsFs())
}

// NewScannerWithFS reads through fsys, typically an afero.MemMapFs in tests.
// Panics if calculator or fsys is nil.
func NewScannerWithFS(calculator checksum.Calculator, fsys afero.Fs) *Scanner {
	if calculator == nil {
		panic("calculator cannot be nil")
	}
	if fsys == nil {
		panic("filesystem cannot be nil")
	}
	return &Scanner{calculator: calculator, fs: fsys}
}

// ScanQueries returns the query files below projectPath/queries sorted by entity.
// A missing queries directory yields no files and no error.
// Two files for the same entity or an empty file are configuration errors.
func (s *Scanner) ScanQueries(projectPath string) ([]QueryFile, error) {
	dir := filepath.Join(projectPath, QueryDir)
	entries, err := afero.ReadDir(s.fs, dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan %s: %w", dir, err)
	}

	byEntity := make(map[string]QueryFile)
	for _, info := range entries {
		if info.IsDir() || !isSQLExtension(filepath.Ext(info.Name())) {
			continue
		}

		qf, err := s.readQuery(dir, info)
		if err != nil {
			return nil, err
		}
		if prev, dup := byEntity[qf.Entity]; dup {
			return nil, fmt.Errorf("%s and %s both define the %s query: %w",
				prev.Path, qf.Path, qf.Entity, erpsync.ErrInvalidConfig)
		}
		byEntity[qf.Entity] = qf
	}

	files := make([]QueryFile, 0, len(byEntity))
	for _, qf := range byEntity {
		files = append(files, qf)
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Entity < files[j].Entity })
	return files, nil
}

func (s *Scanner) readQuery(dir string, info fs.FileInfo) (QueryFile, error) {
	relPath := path.Join(QueryDir, info.Name())
	content, err := afero.ReadFile(s.fs, filepath.Join(dir, info.Name()))
	if err != nil {
		return QueryFile{}, fmt.Errorf("failed to read %s: %w", relPath, err)
	}

	query := strings.TrimSpace(string(content))
	if checksum.Normalize(query) == "" {
		return QueryFile{}, fmt.Errorf("%s is empty: %w", relPath, erpsync.ErrInvalidConfig)
	}

	return QueryFile{
		Entity:     strings.ToLower(strings.TrimSuffix(info.Name(), filepath.Ext(info.Name()))),
		Path:       relPath,
		Query:      query,
		Checksum:   s.calculator.CalculateNormalized(content),
		ModifiedAt: info.ModTime(),
	}, nil
}

// isSQLExtension reports whether ext marks a query file.
func isSQLExtension(ext string) bool {
	switch strings.ToLower(ext) {
	case ".sql", ".tsql", ".psql", ".pgsql":
		return true
	default:
		return false
	}
}
