package model

import (
	"fmt"
	"strings"
)

// Violation is a single failed rule, hard or soft
type Violation struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func (v Violation) String() string {
	return fmt.Sprintf("%s: %s", v.Kind, v.Message)
}

// ValidationError is returned when a proposed assignment fails a hard rule
type ValidationError struct {
	Errors   []Violation
	Warnings []Violation
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Errors))
	for i, v := range e.Errors {
		parts[i] = v.String()
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// NotFoundError is returned when a referenced entity does not exist
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

// NewNotFound builds a NotFoundError from any printable id
func NewNotFound(entity string, id any) *NotFoundError {
	return &NotFoundError{Entity: entity, ID: fmt.Sprint(id)}
}

// ConflictError is returned when a concurrent change won a race. Callers
// should re-fetch and retry.
type ConflictError struct {
	Reason string
}

func (e *ConflictError) Error() string {
	return "conflict: " + e.Reason
}
