package models

import "errors"

var (
	// ErrStoreUninitialized is returned by searches before any index was loaded or built.
	ErrStoreUninitialized = errors.New("vector store not initialized")

	ErrInvalidInput      = errors.New("invalid input")
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrSessionNotFound   = errors.New("session not found")

	// ErrDimensionMismatch indicates the embedder returned vectors that do not fit the index.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)
