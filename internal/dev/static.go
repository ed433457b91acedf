package dev

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
)

//go:embed favicon.png
var faviconPNG []byte

const indexFile = "index.html"

// FileServerOptions configures a FileServer.
type FileServerOptions struct {
	// Root is the directory being served.
	Root string

	// PushState serves the root index.html for unresolved HTML paths.
	PushState bool

	// Snippet is injected into every HTML response.
	Snippet string

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// FileServer serves files from a directory with the reload snippet injected
// into HTML pages.
//
// Resolution:
//
//	/dir/         -> dir/index.html, then dir.html, then index.html
//	/about        -> about.html, then about/index.html, then index.html
//	/page.html    -> page.html (index.html in push-state mode if missing)
//	/favicon.ico  -> favicon.ico, then a built-in icon
type FileServer struct {
	root      string
	fsys      fs.FS
	pushState bool
	snippet   string
	logger    *slog.Logger
}

// NewFileServer creates a file server for options.Root.
func NewFileServer(options FileServerOptions) *FileServer {
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &FileServer{
		root:      options.Root,
		fsys:      os.DirFS(options.Root),
		pushState: options.PushState,
		snippet:   options.Snippet,
		logger:    logger.With("component", "static"),
	}
}

func (s *FileServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	name, err := s.resolve(r.URL.Path)
	if err == nil {
		err = s.serveFile(w, r, name)
	}
	if err == nil {
		return
	}

	if errors.Is(err, fs.ErrNotExist) {
		if r.URL.Path == "/favicon.ico" {
			serveFavicon(w, r)
			return
		}
		s.logger.Debug("not found", "path", r.URL.Path)
		sendError(w, r, http.StatusNotFound)
		return
	}

	s.logger.Warn("serve failed", "path", r.URL.Path, "error", err)
	sendError(w, r, http.StatusBadRequest)
}

// resolve maps a URL path to a file name inside the served directory.
func (s *FileServer) resolve(urlPath string) (string, error) {
	rel, ok := relPath(urlPath)
	if !ok {
		return "", fs.ErrNotExist
	}

	if rel == "" {
		return indexFile, nil
	}

	if strings.HasSuffix(urlPath, "/") {
		if candidate := path.Join(rel, indexFile); s.isFile(candidate) {
			return candidate, nil
		}
		return s.resolveExtensionless(rel), nil
	}

	switch ext := path.Ext(rel); {
	case ext == "":
		return s.resolveExtensionless(rel), nil
	case s.pushState && isHTML(ext) && !s.isFile(rel):
		return indexFile, nil
	default:
		return rel, nil
	}
}

func (s *FileServer) resolveExtensionless(rel string) string {
	if candidate := rel + ".html"; s.isFile(candidate) {
		return candidate
	}
	if candidate := path.Join(rel, indexFile); s.isFile(candidate) {
		return candidate
	}
	return indexFile
}

func (s *FileServer) isFile(name string) bool {
	info, err := fs.Stat(s.fsys, name)
	return err == nil && !info.IsDir()
}

func (s *FileServer) serveFile(w http.ResponseWriter, r *http.Request, name string) error {
	f, err := s.fsys.Open(name)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fs.ErrNotExist
	}

	w.Header().Set("Cache-Control", "no-store")

	if isHTML(path.Ext(name)) {
		data, err := io.ReadAll(f)
		if err != nil {
			return err
		}
		data = Inject(data, s.snippet)
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		http.ServeContent(w, r, name, time.Time{}, bytes.NewReader(data))
		return nil
	}

	content, ok := f.(io.ReadSeeker)
	if !ok {
		data, err := io.ReadAll(f)
		if err != nil {
			return err
		}
		content = bytes.NewReader(data)
	}

	contentType, err := s.contentType(name, content)
	if err != nil {
		return err
	}
	w.Header().Set("Content-Type", contentType)
	http.ServeContent(w, r, name, info.ModTime(), content)
	return nil
}

// contentType picks a type from the extension, sniffing the content when the
// extension is unknown. The reader is rewound afterwards.
func (s *FileServer) contentType(name string, content io.ReadSeeker) (string, error) {
	if ct := mime.TypeByExtension(path.Ext(name)); ct != "" {
		return ct, nil
	}
	mtype, err := mimetype.DetectReader(content)
	if err != nil {
		return "", err
	}
	if _, err := content.Seek(0, io.SeekStart); err != nil {
		return "", err
	}
	return mtype.String(), nil
}

// relPath returns the slash-separated file name for a request path, or false
// if the path could escape the served directory. The root maps to "".
func relPath(urlPath string) (string, bool) {
	if strings.IndexByte(urlPath, 0) != -1 || strings.Contains(urlPath, "\\") {
		return "", false
	}

	rel := strings.TrimPrefix(urlPath, "/")
	for _, seg := range strings.Split(rel, "/") {
		if seg == ".." {
			return "", false
		}
	}

	clean := path.Clean("/" + rel)
	clean = strings.TrimPrefix(clean, "/")
	if clean == "" {
		return "", true
	}

	osPath := filepath.FromSlash(clean)
	if filepath.IsAbs(osPath) || filepath.VolumeName(osPath) != "" {
		return "", false
	}
	if !fs.ValidPath(clean) {
		return "", false
	}
	return clean, true
}

func isHTML(ext string) bool {
	ext = strings.ToLower(ext)
	return ext == ".html" || ext == ".htm"
}

func serveFavicon(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	http.ServeContent(w, r, "favicon.png", time.Time{}, bytes.NewReader(faviconPNG))
}

// sendError writes a plain-text "<code> <status text> <path>" body.
func sendError(w http.ResponseWriter, r *http.Request, code int) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(code)
	fmt.Fprintf(w, "%d %s %s", code, http.StatusText(code), r.URL.Path)
}
