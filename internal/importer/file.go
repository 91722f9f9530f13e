package importer

import (
	"errors"
	"mime"
	"path/filepath"
	"strings"
	"sync"
)

var (
	ErrUnsupportedFile = errors.New("unsupported file type")
	ErrNoFile          = errors.New("no file selected")
)

var allowedTypes = map[string]struct{}{
	"text/csv":                 {},
	"application/vnd.ms-excel": {},
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": {},
}

var allowedExtensions = map[string]struct{}{
	".csv":  {},
	".xlsx": {},
}

// Validate accepts a file whose declared media type or file name extension
// is on the allow-list. Either one is enough.
func Validate(filename, contentType string) error {
	if mediaType, _, err := mime.ParseMediaType(contentType); err == nil {
		if _, ok := allowedTypes[strings.ToLower(mediaType)]; ok {
			return nil
		}
	}
	if _, ok := allowedExtensions[strings.ToLower(filepath.Ext(filename))]; ok {
		return nil
	}
	return ErrUnsupportedFile
}

type File struct {
	Name        string
	ContentType string
	Size        int64
	Data        []byte
}

// Slot holds the file a browser session has picked for upload.
type Slot struct {
	mu   sync.Mutex
	file *File
}

// Select replaces the held file. A rejected file leaves the slot as it was.
func (s *Slot) Select(file File) error {
	if file.Name == "" && len(file.Data) == 0 {
		return ErrNoFile
	}
	if err := Validate(file.Name, file.ContentType); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.file = &file
	return nil
}

func (s *Slot) Peek() (File, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return File{}, false
	}
	return *s.file, true
}

// Take empties the slot and returns what it held.
func (s *Slot) Take() (File, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return File{}, false
	}
	file := *s.file
	s.file = nil
	return file, true
}

func (s *Slot) Reset() {
	s.mu.Lock()
	s.file = nil
	s.mu.Unlock()
}
