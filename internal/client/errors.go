package client

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrUnauthorized matches any 401 from the record store
var ErrUnauthorized = errors.New("unauthorized")

// Reason classifies why the store rejected the bearer token
type Reason string

const (
	ReasonExpired Reason = "expired"
	ReasonInvalid Reason = "invalid"
	ReasonMissing Reason = "missing"
	ReasonUnknown Reason = "unknown"
)

// Message is the sign-out notice shown for the reason
func (r Reason) Message() string {
	switch r {
	case ReasonExpired:
		return "Your session has expired. Please sign in again."
	case ReasonInvalid:
		return "Your session is invalid. Please sign in again."
	case ReasonMissing:
		return "You are not signed in. Please sign in."
	default:
		return "You have been signed out. Please sign in again."
	}
}

// ClassifyUnauthorized picks the reason out of a 401 message
func ClassifyUnauthorized(message string) Reason {
	m := strings.ToLower(message)
	switch {
	case strings.Contains(m, "expired"):
		return ReasonExpired
	case strings.Contains(m, "invalid"):
		return ReasonInvalid
	case strings.Contains(m, "missing"):
		return ReasonMissing
	default:
		return ReasonUnknown
	}
}

// APIError is a non-2xx response from the record store
type APIError struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
	Type    string `json:"type"`
}

func (e *APIError) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("%d %s: %s", e.Status, e.Type, e.Message)
	}
	return fmt.Sprintf("%d: %s", e.Status, e.Message)
}

// Is lets errors.Is(err, ErrUnauthorized) match 401 responses
func (e *APIError) Is(target error) bool {
	return target == ErrUnauthorized && e.Status == http.StatusUnauthorized
}

// Reason classifies a 401; other statuses report ReasonUnknown
func (e *APIError) Reason() Reason {
	if e.Status != http.StatusUnauthorized {
		return ReasonUnknown
	}
	return ClassifyUnauthorized(e.Message)
}
