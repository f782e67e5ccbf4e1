package api

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Uploader turns a local image into a multipart body. Implementations
// differ in how they acquire the bytes; both go through the shared Client.
type Uploader interface {
	// Body builds a multipart body with the image under "file" plus the
	// given form fields. The returned body is closed by the transport.
	Body(path string, fields map[string]string) (io.ReadCloser, string, error)
	Name() string
}

// UploaderFor returns the uploader for a platform name ("web" or "native")
func UploaderFor(platform string) Uploader {
	if platform == "web" {
		return BlobUploader{}
	}
	return StreamUploader{}
}

// sniffLen is the number of bytes http.DetectContentType looks at
const sniffLen = 512

var extByType = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
	"image/bmp":  ".bmp",
	"image/heic": ".heic",
}

// imageContentType sniffs head and falls back to the file extension for
// formats the sniffer does not know. Non-images are rejected.
func imageContentType(path string, head []byte) (string, error) {
	ct := http.DetectContentType(head)
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	if strings.HasPrefix(ct, "image/") {
		return ct, nil
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".heic", ".heif":
		return "image/heic", nil
	}
	return "", fmt.Errorf("%s is not an image (detected %s)", filepath.Base(path), ct)
}

func writeImagePart(w *multipart.Writer, filename, contentType string, src io.Reader, fields map[string]string) error {
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return err
		}
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, src); err != nil {
		return err
	}
	return w.Close()
}

// BlobUploader reads the whole file into memory and attaches it under a
// synthetic filename, the way a browser attaches a fetched Blob.
type BlobUploader struct{}

// Name implements Uploader
func (BlobUploader) Name() string { return "blob" }

// Body implements Uploader
func (BlobUploader) Body(path string, fields map[string]string) (io.ReadCloser, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("read image: %w", err)
	}

	head := data
	if len(head) > sniffLen {
		head = head[:sniffLen]
	}
	ct, err := imageContentType(path, head)
	if err != nil {
		return nil, "", err
	}

	ext := extByType[ct]
	if ext == "" {
		ext = strings.ToLower(filepath.Ext(path))
	}
	filename := "sock-" + uuid.NewString() + ext

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := writeImagePart(w, filename, ct, bytes.NewReader(data), fields); err != nil {
		return nil, "", err
	}
	return io.NopCloser(&buf), w.FormDataContentType(), nil
}

// StreamUploader streams the file from disk under its own name without
// buffering it.
type StreamUploader struct{}

// Name implements Uploader
func (StreamUploader) Name() string { return "stream" }

// Body implements Uploader
func (StreamUploader) Body(path string, fields map[string]string) (io.ReadCloser, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("open image: %w", err)
	}

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		_ = f.Close()
		return nil, "", fmt.Errorf("read image: %w", err)
	}
	ct, err := imageContentType(path, head[:n])
	if err != nil {
		_ = f.Close()
		return nil, "", err
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		_ = f.Close()
		return nil, "", fmt.Errorf("rewind image: %w", err)
	}

	pr, pw := io.Pipe()
	w := multipart.NewWriter(pw)
	go func() {
		defer f.Close()
		pw.CloseWithError(writeImagePart(w, filepath.Base(path), ct, f, fields))
	}()

	return pr, w.FormDataContentType(), nil
}
