// Package storage writes finished registers to the archive directory tree.
package storage

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/classbook/register-archive/internal/domain/school"
	"github.com/classbook/register-archive/internal/domain/shared"
)

// Folder is a subdirectory of the archive root.
type Folder string

const (
	FolderTeacher Folder = "registri/docenti"
	FolderSupport Folder = "registri/sostegno"
	FolderClass   Folder = "registri/classi"
)

// Saved describes a file written to the archive.
type Saved struct {
	Path   string
	Bytes  int64
	Digest string // hex BLAKE2b-256 of the file content
}

// FileSink saves documents under Root.
type FileSink struct {
	root   string
	logger *slog.Logger
}

// NewFileSink creates a sink rooted at root.
func NewFileSink(root string, logger *slog.Logger) *FileSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileSink{root: root, logger: logger}
}

// Path returns where a document named name in folder is stored.
func (s *FileSink) Path(folder Folder, name string) string {
	return filepath.Join(s.root, filepath.FromSlash(string(folder)), name)
}

// syncFile flushes a finished document to disk before it is renamed into place.
var syncFile = (*os.File).Sync

// Save streams write into a temporary file next to the target, syncs it and
// renames it into place, so a failed document never leaves a partial file behind.
func (s *FileSink) Save(ctx context.Context, folder Folder, name string, write func(io.Writer) error) (*Saved, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	target := s.Path(folder, name)
	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, shared.WrapError("archive", "Save", shared.ErrIO, "cannot create "+dir, err)
	}

	tmpPath := filepath.Join(dir, "."+uuid.NewString()+".tmp")
	f, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, shared.WrapError("archive", "Save", shared.ErrIO, fmt.Sprintf("cannot create %s: %v", tmpPath, err), shared.ErrOutputCreate)
	}

	hash, err := blake2b.New256(nil)
	if err != nil {
		f.Close()
		os.Remove(tmpPath)
		return nil, fmt.Errorf("blake2b: %w", err)
	}

	counter := &countingWriter{}
	werr := write(io.MultiWriter(f, hash, counter))
	if werr == nil {
		werr = syncFile(f)
	}
	cerr := f.Close()
	if werr == nil {
		werr = cerr
	}
	if werr != nil {
		os.Remove(tmpPath)
		return nil, shared.WrapError("archive", "Save", shared.ErrIO, "cannot write "+name, werr)
	}

	if err := os.Rename(tmpPath, target); err != nil {
		os.Remove(tmpPath)
		return nil, shared.WrapError("archive", "Save", shared.ErrIO, "cannot move "+name+" into place", err)
	}

	saved := &Saved{Path: target, Bytes: counter.n, Digest: hex.EncodeToString(hash.Sum(nil))}
	s.logger.Debug("document saved", "path", saved.Path, "bytes", saved.Bytes, "blake2b", saved.Digest)
	return saved, nil
}

type countingWriter struct{ n int64 }

func (w *countingWriter) Write(p []byte) (int, error) {
	w.n += int64(len(p))
	return len(p), nil
}

// ══════════════════════════════════════════════════════════════════════════════
// FILE NAMES
// ══════════════════════════════════════════════════════════════════════════════

// TeacherFileName returns "registro-docente-LAST-FIRST-ID.pdf".
func TeacherFileName(t school.Teacher) string {
	return fmt.Sprintf("registro-docente-%s-%s-%d.pdf", Slug(t.LastName), Slug(t.FirstName), t.ID)
}

// SupportFileName returns "registro-sostegno-LAST-FIRST-ID.pdf".
func SupportFileName(t school.Teacher) string {
	return fmt.Sprintf("registro-sostegno-%s-%s-%d.pdf", Slug(t.LastName), Slug(t.FirstName), t.ID)
}

// ClassFileName returns "registro-classe-3A.pdf".
func ClassFileName(c school.Class) string {
	return "registro-classe-" + Slug(c.Base()) + ".pdf"
}

// Slug turns a name into a file name part: accents are dropped, letters are
// upper-cased, spaces become dashes and quotes disappear.
func Slug(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	plain, _, err := transform.String(t, s)
	if err != nil {
		plain = s
	}

	var b strings.Builder
	for _, r := range strings.ToUpper(strings.TrimSpace(plain)) {
		switch {
		case r == '\'' || r == '"' || r == '’' || r == '`':
		case unicode.IsSpace(r):
			b.WriteByte('-')
		case r == '/' || r == '\\':
			b.WriteByte('-')
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
