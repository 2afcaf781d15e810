package httpd

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strconv"
	"strings"
	"sync"
	"syscall"
)

// Static responder defaults.
const (
	DefaultStaticRoot  = "www"
	DefaultDocument    = "index.html"
	DefaultCacheMaxAge = 600
	DefaultSendBuffer  = 1024
	CompressedSuffix   = ".gz"
	ConditionalHeader  = "if-modified-since"
)

// StaticOptions configures a StaticResponder.
type StaticOptions struct {
	Root        string // directory inside the FS holding the assets
	CacheMaxAge int    // seconds, sent as Cache-Control: max-age
	SendBuffer  int    // chunk size used to stream file bodies
}

// StaticResponder serves files from a read-only file system, preferring a
// precompressed sibling ("<name>.gz") over the plain file.
type StaticResponder struct {
	fsys   fs.FS
	opts   StaticOptions
	chunks sync.Pool
}

// NewStaticResponder returns a responder reading from fsys. Zero options
// fall back to the package defaults.
func NewStaticResponder(fsys fs.FS, opts StaticOptions) *StaticResponder {
	if opts.Root == "" {
		opts.Root = DefaultStaticRoot
	}
	if opts.CacheMaxAge <= 0 {
		opts.CacheMaxAge = DefaultCacheMaxAge
	}
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = DefaultSendBuffer
	}
	s := &StaticResponder{fsys: fsys, opts: opts}
	s.chunks.New = func() any {
		buf := make([]byte, opts.SendBuffer)
		return &buf
	}
	return s
}

// Resolve maps a request path to a file name inside the FS. Paths ending
// in "/" get the default document appended.
func (s *StaticResponder) Resolve(requestPath string) string {
	if strings.HasSuffix(requestPath, "/") {
		requestPath += DefaultDocument
	}
	return strings.TrimSuffix(s.opts.Root, "/") + "/" + strings.TrimLeft(requestPath, "/")
}

// Respond sends the first existing variant of name. It returns ErrNotFound
// without writing anything when no variant exists; any other storage fault
// is returned as is.
func (s *StaticResponder) Respond(name string, reqHeaders Header, w *ResponseWriter) error {
	for _, suffix := range []string{CompressedSuffix, ""} {
		variant := name + suffix
		info, err := s.stat(variant)
		if err != nil {
			if isMissing(err) {
				continue
			}
			return fmt.Errorf("failed to stat %s: %w", variant, err)
		}

		token := strconv.FormatInt(info.ModTime().Unix(), 10)
		if reqHeaders.Get(ConditionalHeader) == token {
			if err := s.setCacheHeaders(w, token); err != nil {
				return err
			}
			return w.StartResponse(304, 0, "", false)
		}

		f, err := s.fsys.Open(variant)
		if err != nil {
			if isMissing(err) {
				continue
			}
			return fmt.Errorf("failed to open %s: %w", variant, err)
		}
		if err := s.setCacheHeaders(w, token); err != nil {
			_ = f.Close()
			return err
		}
		err = s.send(f, info.Size(), GuessMIME(name), suffix != "", w)
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("failed to close %s: %w", variant, cerr)
		}
		return err
	}
	return ErrNotFound
}

// setCacheHeaders is only called once a variant is about to be answered,
// so an error response never carries another file's cache headers.
func (s *StaticResponder) setCacheHeaders(w *ResponseWriter, token string) error {
	if err := w.SetHeader("Last-Modified", token); err != nil {
		return err
	}
	return w.SetHeader("Cache-Control", "max-age="+strconv.Itoa(s.opts.CacheMaxAge))
}

func (s *StaticResponder) stat(name string) (fs.FileInfo, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "stat", Path: name, Err: fs.ErrInvalid}
	}
	info, err := fs.Stat(s.fsys, name)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, &fs.PathError{Op: "stat", Path: name, Err: syscall.EISDIR}
	}
	return info, nil
}

func (s *StaticResponder) send(f io.Reader, size int64, contentType string, gzipped bool, w *ResponseWriter) error {
	if err := w.StartResponse(200, size, contentType, gzipped); err != nil {
		return err
	}
	bufp := s.chunks.Get().(*[]byte)
	defer s.chunks.Put(bufp)

	// LimitedReader has no WriteTo, so CopyBuffer streams through buf.
	if _, err := io.CopyBuffer(w, io.LimitReader(f, size), *bufp); err != nil {
		return fmt.Errorf("failed to stream body: %w", err)
	}
	return nil
}

// isMissing reports storage errors that mean "this variant does not exist".
func isMissing(err error) bool {
	return errors.Is(err, fs.ErrNotExist) ||
		errors.Is(err, fs.ErrInvalid) ||
		errors.Is(err, syscall.ENOTDIR) ||
		errors.Is(err, syscall.EISDIR)
}
