package service

import "errors"

var (
	// ErrNotInitialized is returned when the vault database is requested
	// before initialization succeeded and the bounded retries are exhausted.
	ErrNotInitialized = errors.New("vault database not initialized")

	// ErrNoMergeCandidates is returned when the server reported a merge is
	// required but then produced no contending vault copies to merge.
	ErrNoMergeCandidates = errors.New("no vaults to merge found")

	// ErrSaveRejected is returned when the server refused an upload without
	// requesting a merge, e.g. an empty or undecodable response.
	ErrSaveRejected = errors.New("server rejected vault upload")
)
