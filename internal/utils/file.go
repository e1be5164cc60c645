// utils/file.go - File handling utilities
package utils

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zip"
)

// StageUpload copies r into a new "<uuid>.zip" file under dir. The returned
// cleanup removes the file and is safe to call more than once.
func StageUpload(dir string, r io.Reader) (string, func(), error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", func() {}, fmt.Errorf("failed to create upload dir: %w", err)
	}

	name, err := UploadFileName("zip")
	if err != nil {
		return "", func() {}, fmt.Errorf("failed to generate upload name: %w", err)
	}
	path := filepath.Join(dir, name)

	cleanup := func() { _ = os.Remove(path) }

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0600)
	if err != nil {
		return "", func() {}, fmt.Errorf("failed to create upload file: %w", err)
	}
	if _, err = io.Copy(f, r); err != nil {
		f.Close()
		cleanup()
		return "", func() {}, fmt.Errorf("failed to write upload file: %w", err)
	}
	if err = f.Close(); err != nil {
		cleanup()
		return "", func() {}, fmt.Errorf("failed to close upload file: %w", err)
	}
	return path, cleanup, nil
}

// ZipDirectory writes every regular file below root into w as a deflated zip
// archive. Entry names are slash-separated and relative to root.
func ZipDirectory(root string, w io.Writer) error {
	zipWriter := zip.NewWriter(w)

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		return addFileToZip(zipWriter, path, filepath.ToSlash(rel))
	})
	if err != nil {
		zipWriter.Close()
		return err
	}
	return zipWriter.Close()
}

func addFileToZip(zipWriter *zip.Writer, path, name string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return err
	}

	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}
	header.Name = name
	header.Method = zip.Deflate

	writer, err := zipWriter.CreateHeader(header)
	if err != nil {
		return err
	}

	_, err = io.Copy(writer, file)
	return err
}
