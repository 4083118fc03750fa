// Package vfs provides the in-memory virtual filesystem backing a
// room's editable file tree. Files are keyed by path per room, and
// mutations notify subscribers so the realtime layer can forward
// changes to connected editors.
package vfs

import (
	"errors"
	"sync"
	"time"
)

var (
	ErrFileExists   = errors.New("file already exists")
	ErrFileNotFound = errors.New("file not found")
)

type File struct {
	Path      string    `json:"path"`
	Name      string    `json:"name"`
	Content   string    `json:"content"`
	Language  string    `json:"language"`
	UpdatedBy uint      `json:"updatedBy"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Event describes one filesystem mutation, delivered to subscribers.
type Event struct {
	Event     string    `json:"event"` // created | updated | deleted
	Path      string    `json:"path"`
	File      *File     `json:"file,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type subscriber struct {
	id int
	fn func(Event)
}

// FileSystem is a path-keyed store per room with change notification.
type FileSystem struct {
	mu          sync.RWMutex
	rooms       map[string]map[string]*File
	subscribers map[string][]subscriber
	nextSubID   int
}

func New() *FileSystem {
	return &FileSystem{
		rooms:       make(map[string]map[string]*File),
		subscribers: make(map[string][]subscriber),
	}
}

func (fs *FileSystem) Create(roomID string, file File) error {
	fs.mu.Lock()
	files, ok := fs.rooms[roomID]
	if !ok {
		files = make(map[string]*File)
		fs.rooms[roomID] = files
	}
	if _, exists := files[file.Path]; exists {
		fs.mu.Unlock()
		return ErrFileExists
	}
	file.UpdatedAt = time.Now()
	files[file.Path] = &file
	fs.mu.Unlock()

	fs.notify(roomID, Event{Event: "created", Path: file.Path, File: &file, Timestamp: file.UpdatedAt})
	return nil
}

func (fs *FileSystem) Read(roomID, path string) (*File, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	file, ok := fs.rooms[roomID][path]
	if !ok {
		return nil, ErrFileNotFound
	}
	copied := *file
	return &copied, nil
}

func (fs *FileSystem) Update(roomID, path, content string, updatedBy uint) error {
	fs.mu.Lock()
	file, ok := fs.rooms[roomID][path]
	if !ok {
		fs.mu.Unlock()
		return ErrFileNotFound
	}
	file.Content = content
	file.UpdatedBy = updatedBy
	file.UpdatedAt = time.Now()
	copied := *file
	fs.mu.Unlock()

	fs.notify(roomID, Event{Event: "updated", Path: path, File: &copied, Timestamp: copied.UpdatedAt})
	return nil
}

func (fs *FileSystem) Delete(roomID, path string) error {
	fs.mu.Lock()
	files, ok := fs.rooms[roomID]
	if !ok {
		fs.mu.Unlock()
		return ErrFileNotFound
	}
	if _, exists := files[path]; !exists {
		fs.mu.Unlock()
		return ErrFileNotFound
	}
	delete(files, path)
	if len(files) == 0 {
		delete(fs.rooms, roomID)
	}
	fs.mu.Unlock()

	fs.notify(roomID, Event{Event: "deleted", Path: path, Timestamp: time.Now()})
	return nil
}

func (fs *FileSystem) List(roomID string) []*File {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	files := make([]*File, 0, len(fs.rooms[roomID]))
	for _, file := range fs.rooms[roomID] {
		copied := *file
		files = append(files, &copied)
	}
	return files
}

// Subscribe registers fn for every mutation in roomID and returns an
// unsubscribe handle. The handle is idempotent.
func (fs *FileSystem) Subscribe(roomID string, fn func(Event)) func() {
	fs.mu.Lock()
	fs.nextSubID++
	id := fs.nextSubID
	fs.subscribers[roomID] = append(fs.subscribers[roomID], subscriber{id: id, fn: fn})
	fs.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			fs.mu.Lock()
			defer fs.mu.Unlock()
			subs := fs.subscribers[roomID]
			for i, sub := range subs {
				if sub.id == id {
					fs.subscribers[roomID] = append(subs[:i], subs[i+1:]...)
					break
				}
			}
			if len(fs.subscribers[roomID]) == 0 {
				delete(fs.subscribers, roomID)
			}
		})
	}
}

func (fs *FileSystem) notify(roomID string, event Event) {
	fs.mu.RLock()
	subs := make([]subscriber, len(fs.subscribers[roomID]))
	copy(subs, fs.subscribers[roomID])
	fs.mu.RUnlock()

	for _, sub := range subs {
		sub.fn(event)
	}
}
