package config

import "errors"

// Configuration errors
var (
	// ErrInvalidConfig indicates a structurally invalid link configuration
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrInvalidMode indicates an unrecognised estimation, equalization or coding mode
	ErrInvalidMode = errors.New("invalid mode")
)
