package ambient

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

const debounceDelay = 50 * time.Millisecond

// FileSource derives the signal from a file. A missing file means no
// preference, an empty one means reduce, otherwise the content is parsed
// with ParseSignal.
type FileSource struct {
	path    string
	sink    Sink
	log     logrus.FieldLogger
	watcher *fsnotify.Watcher

	mutex   sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewFileSource creates a source watching path.
func NewFileSource(path string, sink Sink, logger logrus.FieldLogger) (*FileSource, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	path = filepath.Clean(path)
	return &FileSource{
		path:    path,
		sink:    sink,
		log:     logger.WithField("file", path),
		watcher: watcher,
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}, nil
}

// Start reports the current state of the file and watches it for changes.
// The parent directory is watched so the file may be created and removed.
func (s *FileSource) Start() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.running {
		return nil
	}

	if err := s.watcher.Add(filepath.Dir(s.path)); err != nil {
		return err
	}
	s.running = true
	s.refresh()
	go s.run()
	return nil
}

// Stop stops watching and waits for the event loop to exit.
func (s *FileSource) Stop() {
	s.mutex.Lock()
	if !s.running {
		s.mutex.Unlock()
		s.watcher.Close()
		return
	}
	s.running = false
	s.mutex.Unlock()

	close(s.stopCh)
	<-s.doneCh
	if err := s.watcher.Close(); err != nil {
		s.log.WithError(err).Warn("Failed to close watcher")
	}
}

func (s *FileSource) run() {
	defer close(s.doneCh)

	// Editors and os.WriteFile truncate before writing, so the file is read
	// once the events settle.
	debounce := time.NewTimer(debounceDelay)
	debounce.Stop()
	defer debounce.Stop()

	for {
		select {
		case <-s.stopCh:
			return

		case <-debounce.C:
			s.refresh()

		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != s.path {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0 {
				debounce.Reset(debounceDelay)
			}

		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			s.log.WithError(err).Warn("Watcher error")
		}
	}
}

func (s *FileSource) refresh() {
	data, err := os.ReadFile(s.path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		s.sink.SetAmbient(false)
	case err != nil:
		s.log.WithError(err).Warn("Failed to read motion signal")
	case len(data) == 0:
		s.sink.SetAmbient(true)
	default:
		reduced, ok := ParseSignal(string(data))
		if !ok {
			s.log.WithField("content", string(data)).Warn("Ignoring unknown motion signal")
			return
		}
		s.sink.SetAmbient(reduced)
	}
}
