package services

import "errors"

// Sentinel errors returned by the service layer. Handlers translate these to
// HTTP statuses in one place so the services stay transport-agnostic.
var (
	// ErrForbidden means the permission evaluator rejected the actor.
	ErrForbidden = errors.New("permission denied")
	// ErrNotFound covers absent projects, folders and files, and inactive
	// file records addressed by operations that require an active one.
	ErrNotFound = errors.New("requested item not found")
	// ErrDuplicateName means a sibling folder already carries the name.
	ErrDuplicateName = errors.New("name already exists in this location")
	// ErrFolderNotEmpty rejects deleting a folder that still owns subfolders
	// or active files.
	ErrFolderNotEmpty = errors.New("folder is not empty")
	// ErrQuotaExceeded rejects an upload that would push the project past its
	// storage ceiling.
	ErrQuotaExceeded = errors.New("storage quota exceeded")
	// ErrValidation covers missing or malformed input caught before any
	// external call.
	ErrValidation = errors.New("validation failed")
	// ErrUpstream wraps content-store failures.
	ErrUpstream = errors.New("content store request failed")
)
