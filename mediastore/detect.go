package mediastore

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/allura/allura-web/util"
)

const (
	MaxVideoSize    int64 = 100 << 20
	MaxDocumentSize int64 = 10 << 20
)

var (
	ErrTooLarge        = errors.New("file is too large")
	ErrUnsupportedType = errors.New("unsupported file type")
)

// documentTypes lists the sniffed types accepted per CV extension. Word
// documents are containers, so their generic parents are accepted too.
var documentTypes = map[string][]string{
	".pdf":  {"application/pdf"},
	".doc":  {"application/msword", "application/x-ole-storage"},
	".docx": {"application/vnd.openxmlformats-officedocument.wordprocessingml.document", "application/zip"},
}

// DocumentExtensions accepted for CV uploads
func DocumentExtensions() []string {
	return []string{".pdf", ".doc", ".docx"}
}

// sniff detects the content type and rewinds the reader
func sniff(r io.ReadSeeker) (*mimetype.MIME, error) {
	mtype, err := mimetype.DetectReader(r)
	if err != nil {
		return nil, fmt.Errorf("cannot detect content type: %w", err)
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	return mtype, nil
}

// DetectVideo checks that r holds a video no larger than MaxVideoSize
func DetectVideo(r io.ReadSeeker, size int64) (*mimetype.MIME, error) {
	if size > MaxVideoSize {
		return nil, ErrTooLarge
	}
	mtype, err := sniff(r)
	if err != nil {
		return nil, err
	}
	for m := mtype; m != nil; m = m.Parent() {
		if strings.HasPrefix(m.String(), "video/") {
			return mtype, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, mtype.String())
}

// DetectDocument checks that r holds a PDF/DOC/DOCX matching the name's
// extension and no larger than MaxDocumentSize
func DetectDocument(name string, r io.ReadSeeker, size int64) (*mimetype.MIME, error) {
	if size > MaxDocumentSize {
		return nil, ErrTooLarge
	}
	accepted, ok := documentTypes[util.FileExt(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, util.FileExt(name))
	}
	mtype, err := sniff(r)
	if err != nil {
		return nil, err
	}
	for m := mtype; m != nil; m = m.Parent() {
		for _, a := range accepted {
			if m.Is(a) {
				return mtype, nil
			}
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, mtype.String())
}
