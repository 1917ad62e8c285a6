package domain

import "errors"

var (
	// ErrAcquisition is returned when the remote archive cannot be fetched intact.
	ErrAcquisition = errors.New("rulpm: acquisition failed")
	// ErrUnsafeArchivePath flags an archive member that would land outside the target directory.
	ErrUnsafeArchivePath = errors.New("rulpm: unsafe archive path")
	// ErrUnrecognizedFailure is fatal during segmentation: a fault description matched no category.
	ErrUnrecognizedFailure = errors.New("rulpm: unrecognized failure description")
	// ErrUnknownFailureType is returned when a configured category name does not exist.
	ErrUnknownFailureType = errors.New("rulpm: unknown failure type")
	// ErrMissingSensorStream means a fault log has no matching sensor stream file.
	ErrMissingSensorStream = errors.New("rulpm: missing sensor stream")
	// ErrMissingColumn means a required channel is absent from a frame.
	ErrMissingColumn = errors.New("rulpm: missing column")
	// ErrCorruptManifest means the manifest references a blob that cannot be read.
	ErrCorruptManifest = errors.New("rulpm: corrupt manifest")
	// ErrIndexOutOfRange is returned by per-index access beyond the valid lives.
	ErrIndexOutOfRange = errors.New("rulpm: index out of range")
)
