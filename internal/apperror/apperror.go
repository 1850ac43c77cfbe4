// Package apperror defines the typed errors returned by the scheduling engine.
// Every error carries enough structure for the API layer to render an
// actionable message without re-querying.
package apperror

import (
	"errors"
	"fmt"
)

// ValidationError reports malformed input.
type ValidationError struct {
	Field   string `json:"field,omitempty"`
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed on %s (%s): %s", e.Field, e.Rule, e.Message)
	}
	return fmt.Sprintf("validation failed (%s): %s", e.Rule, e.Message)
}

// Validation builds a ValidationError.
func Validation(field, rule, message string) error {
	return &ValidationError{Field: field, Rule: rule, Message: message}
}

// NotFoundError reports a referenced entity that does not exist.
type NotFoundError struct {
	Entity string `json:"entity"`
	ID     string `json:"id"`
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

// NotFound builds a NotFoundError. id is formatted with %v.
func NotFound(entity string, id any) error {
	return &NotFoundError{Entity: entity, ID: fmt.Sprint(id)}
}

// ConflictError reports a duplicate key or a double booking. Conflicts holds
// the conflicting entities when they are known.
type ConflictError struct {
	Entity    string `json:"entity"`
	Key       string `json:"key"`
	Message   string `json:"message"`
	Conflicts any    `json:"conflicts,omitempty"`
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s conflict on %s: %s", e.Entity, e.Key, e.Message)
}

// Conflict builds a ConflictError without attached conflicting entities.
func Conflict(entity, key, message string) error {
	return &ConflictError{Entity: entity, Key: key, Message: message}
}

// LimitExceededError reports that the per-course makeup quota is used up.
type LimitExceededError struct {
	StudentID int `json:"student_id"`
	ClassID   int `json:"class_id"`
	Count     int `json:"count"`
	Limit     int `json:"limit"`
}

func (e *LimitExceededError) Error() string {
	return fmt.Sprintf("makeup limit reached for student %d in class %d (%d/%d)",
		e.StudentID, e.ClassID, e.Count, e.Limit)
}

// InvalidStateTransitionError reports a transition that the state machine forbids.
type InvalidStateTransitionError struct {
	Entity string `json:"entity"`
	ID     string `json:"id"`
	From   string `json:"from"`
	To     string `json:"to"`
	Reason string `json:"reason,omitempty"`
}

func (e *InvalidStateTransitionError) Error() string {
	msg := fmt.Sprintf("%s %s cannot move from %s to %s", e.Entity, e.ID, e.From, e.To)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

// InvalidTransition builds an InvalidStateTransitionError.
func InvalidTransition(entity string, id any, from, to, reason string) error {
	return &InvalidStateTransitionError{Entity: entity, ID: fmt.Sprint(id), From: from, To: to, Reason: reason}
}

// DependencyError reports a failed call to a required collaborator.
type DependencyError struct {
	Dependency string `json:"dependency"`
	Err        error  `json:"-"`
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("dependency %s failed: %v", e.Dependency, e.Err)
}

func (e *DependencyError) Unwrap() error { return e.Err }

// Dependency wraps err as a DependencyError. A nil err yields nil.
func Dependency(name string, err error) error {
	if err == nil {
		return nil
	}
	var de *DependencyError
	if errors.As(err, &de) {
		return err
	}
	return &DependencyError{Dependency: name, Err: err}
}

// IsNotFound reports whether err is (or wraps) a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsConflict reports whether err is (or wraps) a ConflictError.
func IsConflict(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce)
}
