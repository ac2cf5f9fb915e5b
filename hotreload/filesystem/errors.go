package filesystem

import "errors"

// Common error types returned by the scanner and ignore matcher
var (
	ErrPathEmpty       = errors.New("path cannot be empty")
	ErrRootUnreadable  = errors.New("watch root is unreadable")
	ErrIgnoreFileParse = errors.New("failed to parse ignore file")
)
