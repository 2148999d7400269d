package sources

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/sw33tLie/tenderscope/pkg/whttp"
)

// Fetcher retrieves remote inputs. *whttp.Client satisfies it.
type Fetcher interface {
	Get(ctx context.Context, rawURL string) (*whttp.WHTTPRes, error)
}

var documentExtensions = map[string]bool{
	".json": true,
	".xml":  true,
	".html": true,
	".htm":  true,
}

// Load resolves a location into documents. A location is a local file, a
// directory (read recursively), a daily .tar.gz notice package, or an
// http(s) URL fetched through fetcher.
func Load(ctx context.Context, location string, fetcher Fetcher) ([]Document, error) {
	if isRemote(location) {
		if fetcher == nil {
			return nil, fmt.Errorf("%s: remote input without an HTTP client", location)
		}
		res, err := fetcher.Get(ctx, location)
		if err != nil {
			return nil, err
		}
		if isPackage(location) {
			return readPackage(location, bytes.NewReader(res.Body))
		}
		return []Document{{Name: location, Body: res.Body}}, nil
	}

	info, err := os.Stat(location)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return readDir(ctx, location)
	}
	if isPackage(location) {
		f, err := os.Open(location)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return readPackage(location, f)
	}
	body, err := os.ReadFile(location)
	if err != nil {
		return nil, err
	}
	return []Document{{Name: location, Body: body}}, nil
}

func isRemote(location string) bool {
	return strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://")
}

func isPackage(location string) bool {
	l := strings.ToLower(location)
	return strings.HasSuffix(l, ".tar.gz") || strings.HasSuffix(l, ".tgz")
}

func readDir(ctx context.Context, dir string) ([]Document, error) {
	var docs []Document
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() {
			return nil
		}
		if isPackage(path) {
			f, err := os.Open(path)
			if err != nil {
				return err
			}
			defer f.Close()
			pkgDocs, err := readPackage(path, f)
			if err != nil {
				return err
			}
			docs = append(docs, pkgDocs...)
			return nil
		}
		if !documentExtensions[strings.ToLower(filepath.Ext(path))] {
			return nil
		}
		body, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		docs = append(docs, Document{Name: path, Body: body})
		return nil
	})
	return docs, err
}

// readPackage extracts the XML notices of a gzipped tar archive, in
// archive order.
func readPackage(name string, r io.Reader) ([]Document, error) {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	defer gz.Close()

	var docs []Document
	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		if hdr.Typeflag != tar.TypeReg || !strings.EqualFold(filepath.Ext(hdr.Name), ".xml") {
			continue
		}
		body, err := io.ReadAll(tr)
		if err != nil {
			return nil, fmt.Errorf("%s: %s: %w", name, hdr.Name, err)
		}
		docs = append(docs, Document{Name: name + "/" + hdr.Name, Body: body})
	}
	return docs, nil
}
