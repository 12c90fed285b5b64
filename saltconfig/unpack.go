package saltconfig

import (
	"archive/tar"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ulikunitz/xz"
)

// unpack extracts a tar archive (plain, gzip or xz compressed) into
// destination. Entries escaping the destination are refused.
func unpack(archive, destination string) (err error) {
	f, err := os.Open(archive)
	if err != nil {
		return
	}
	defer f.Close()

	var r io.Reader = f
	switch {
	case strings.HasSuffix(archive, ".gz") || strings.HasSuffix(archive, ".tgz"):
		r, err = gzip.NewReader(f)
		if err != nil {
			return
		}
	case strings.HasSuffix(archive, ".xz") || strings.HasSuffix(archive, ".txz"):
		r, err = xz.NewReader(f)
		if err != nil {
			return
		}
	}

	tr := tar.NewReader(r)
	for {
		var hdr *tar.Header
		hdr, err = tr.Next()
		if err == io.EOF {
			err = nil
			return
		}
		if err != nil {
			return
		}

		path := filepath.Join(destination, filepath.Clean(hdr.Name))
		if !strings.HasPrefix(path, filepath.Clean(destination)+string(os.PathSeparator)) &&
			path != filepath.Clean(destination) {
			return fmt.Errorf("archive entry escapes destination: %s", hdr.Name)
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			err = os.MkdirAll(path, os.FileMode(hdr.Mode))
			if err != nil {
				return
			}
		case tar.TypeReg:
			err = os.MkdirAll(filepath.Dir(path), os.ModePerm)
			if err != nil {
				return
			}

			var out *os.File
			out, err = os.OpenFile(path,
				os.O_WRONLY|os.O_CREATE|os.O_TRUNC,
				os.FileMode(hdr.Mode))
			if err != nil {
				return
			}

			_, err = io.Copy(out, tr)
			if cerr := out.Close(); err == nil {
				err = cerr
			}
			if err != nil {
				return
			}
		}
	}
}
