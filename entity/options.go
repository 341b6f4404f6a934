package entity

import "github.com/rs/zerolog"

type Option func(*Handler)

func WithLogger(logger zerolog.Logger) Option {
	return func(h *Handler) {
		h.logger = logger
	}
}

// WithRecoverableContracts makes contract violations (unknown entities, deleting a non-empty
// entity) return errors instead of failing the assertion.
func WithRecoverableContracts() Option {
	return func(h *Handler) {
		h.recoverable = true
	}
}
