package models

import "errors"

var (
	// ErrNotFound means the referenced event, thread or channel no longer exists.
	ErrNotFound = errors.New("not found")
	// ErrPermissionDenied means the bot lacks rights for the call.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrUnavailable means a retrieval path is not offered by the upstream.
	ErrUnavailable = errors.New("unavailable")
	// ErrNoChannel means no sendable channel could be resolved.
	ErrNoChannel = errors.New("no sendable channel")
)
