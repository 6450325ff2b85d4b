package val

// SeekWhence mirrors POSIX lseek whence values.
type SeekWhence int

const (
	SeekSet SeekWhence = 0
	SeekCur SeekWhence = 1
	SeekEnd SeekWhence = 2
)

// File is a single open file handle with 64-bit offsets.
type File interface {
	Read(buf []byte) (int, error)
	Write(buf []byte) (int, error)
	Seek(offset int64, whence SeekWhence) (int64, error)
	Tell() (int64, error)
	Close() error
}

// Filesystem is the blocking filesystem hook set. Concrete
// implementations (a real os.File-backed filesystem, or a chrooted/jailed
// one for the receiver's output directory) are the caller's concern —
// the core only ever asks for named files to be opened for read or
// write.
type Filesystem interface {
	// OpenRead opens an existing file for reading.
	OpenRead(path string) (File, error)
	// OpenWrite opens path for writing, creating it if absent. Existing
	// contents are preserved so the caller can Seek before writing
	// (needed for resume); truncation, if desired, is the caller's
	// responsibility via OpenWrite semantics appropriate to its OS.
	OpenWrite(path string) (File, error)
	// Stat reports whether path exists and, if so, its size. Used by
	// the resume engine to decide SKIP/RESUME/RESTART/ABORT without
	// opening a handle first.
	Stat(path string) (size int64, exists bool, err error)
}
