package hashpipe

import "github.com/kraklabs/anidbclient/internal/errs"

// Validation and I/O failures a pipeline stage can raise. These wrap
// internal/errs values so the batch scheduler and orchestrator can
// classify them per spec §7 without inspecting strings.

// ErrFileNotFound reports a path that does not exist.
func ErrFileNotFound(path string) error {
	return errs.New(errs.IoFileNotFound, "file not found: "+path)
}

// ErrFileTooLarge reports a file exceeding the configured maximum size.
func ErrFileTooLarge(path string, size, max int64) error {
	return errs.Newf(errs.ValidationInvalidConfiguration,
		"file %s exceeds maximum size (%d > %d bytes)", path, size, max)
}

// ErrEmptyChunkRejected reports an empty chunk when the validation stage
// is configured to reject them.
func ErrEmptyChunkRejected(path string) error {
	return errs.New(errs.ValidationInvalidConfiguration, "empty chunk rejected for: "+path)
}
