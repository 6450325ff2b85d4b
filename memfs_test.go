package val

import (
	"errors"
	"io"
	"sync"
	"time"
)

// memFile is an in-memory File backed by a growable byte slice,
// supporting independent read/write cursors the way a real os.File
// would when opened for one mode.
type memFile struct {
	fs       *memFS
	path     string
	readOnly bool
	pos      int64
}

func (f *memFile) Read(buf []byte) (int, error) {
	f.fs.mu.Lock()
	data := f.fs.files[f.path]
	f.fs.mu.Unlock()
	if f.pos >= int64(len(data)) {
		return 0, io.EOF
	}
	n := copy(buf, data[f.pos:])
	f.pos += int64(n)
	return n, nil
}

func (f *memFile) Write(buf []byte) (int, error) {
	if f.readOnly {
		return 0, errors.New("memfs: file opened read-only")
	}
	f.fs.mu.Lock()
	data := f.fs.files[f.path]
	end := f.pos + int64(len(buf))
	if end > int64(len(data)) {
		grown := make([]byte, end)
		copy(grown, data)
		data = grown
	}
	copy(data[f.pos:end], buf)
	f.fs.files[f.path] = data
	f.fs.mu.Unlock()
	f.pos = end
	return len(buf), nil
}

func (f *memFile) Seek(offset int64, whence SeekWhence) (int64, error) {
	f.fs.mu.Lock()
	size := int64(len(f.fs.files[f.path]))
	f.fs.mu.Unlock()
	switch whence {
	case SeekSet:
		f.pos = offset
	case SeekCur:
		f.pos += offset
	case SeekEnd:
		f.pos = size + offset
	}
	return f.pos, nil
}

func (f *memFile) Tell() (int64, error) { return f.pos, nil }
func (f *memFile) Close() error         { return nil }

// memFS is a Filesystem backed by an in-memory map, used by every
// loopback test so file content assertions never touch the real disk.
type memFS struct {
	mu    sync.Mutex
	files map[string][]byte
}

func newMemFS() *memFS { return &memFS{files: make(map[string][]byte)} }

func (fs *memFS) put(path string, data []byte) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.files[path] = append([]byte(nil), data...)
}

func (fs *memFS) get(path string) []byte {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return append([]byte(nil), fs.files[path]...)
}

func (fs *memFS) OpenRead(path string) (File, error) {
	fs.mu.Lock()
	_, ok := fs.files[path]
	fs.mu.Unlock()
	if !ok {
		return nil, errors.New("memfs: not found")
	}
	return &memFile{fs: fs, path: path, readOnly: true}, nil
}

func (fs *memFS) OpenWrite(path string) (File, error) {
	fs.mu.Lock()
	if _, ok := fs.files[path]; !ok {
		fs.files[path] = nil
	}
	fs.mu.Unlock()
	return &memFile{fs: fs, path: path}, nil
}

func (fs *memFS) Stat(path string) (int64, bool, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	data, ok := fs.files[path]
	if !ok {
		return 0, false, nil
	}
	return int64(len(data)), true, nil
}

// fakeClock is a manually-advanced Clock so RTO/timeout tests are
// deterministic; real time still elapses for the pipeTransport's own
// polling, but retry-budget math reads from here.
type fakeClock struct {
	mu  sync.Mutex
	now uint32
}

func (c *fakeClock) NowMs() uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(ms uint32) {
	c.mu.Lock()
	c.now += ms
	c.mu.Unlock()
}

// realClock backs the end-to-end loopback tests, where wall-clock time
// actually elapses across the goroutines driving each side.
type realClock struct{ start time.Time }

func newRealClock() *realClock { return &realClock{start: time.Now()} }

func (c *realClock) NowMs() uint32 { return uint32(time.Since(c.start).Milliseconds()) }
