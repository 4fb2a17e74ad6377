package services

import "fmt"

// FormServiceError is a sentinel error returned by the form and response services.
type FormServiceError string

func (e FormServiceError) Error() string { return string(e) }

const (
	ErrFormNotFound         FormServiceError = "form not found"
	ErrFormInactive         FormServiceError = "form is not accepting responses"
	ErrFormPasswordMismatch FormServiceError = "form password does not match"
	ErrResponseNotFound     FormServiceError = "response not found"
	ErrInvalidInput         FormServiceError = "invalid input"
	ErrIntegrityViolation   FormServiceError = "integrity violation"
	ErrSubmissionInvalid    FormServiceError = "submission rejected"
	ErrTransientStore       FormServiceError = "store temporarily unavailable"
	ErrPasswordHashing      FormServiceError = "form password could not be hashed"
)

// IntegrityError names the submitted node that broke the tree's identity rules.
type IntegrityError struct {
	Entity string `json:"entity"`
	ID     uint   `json:"id"`
	Reason string `json:"reason"`
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("%s: %s %d %s", ErrIntegrityViolation, e.Entity, e.ID, e.Reason)
}

func (e *IntegrityError) Unwrap() error { return ErrIntegrityViolation }

const (
	ReasonReferencedTwice     = "referenced more than once"
	ReasonForeignQuestion     = "does not belong to form"
	ReasonForeignOption       = "does not belong to question"
	ReasonOptionOfNewQuestion = "cannot belong to a new question"
)

// SubmissionErrorKind classifies a rejected submission.
type SubmissionErrorKind string

const (
	MissingRequired SubmissionErrorKind = "MISSING_REQUIRED"
	TypeMismatch    SubmissionErrorKind = "TYPE_MISMATCH"
	UnknownQuestion SubmissionErrorKind = "UNKNOWN_QUESTION"
	DuplicateAnswer SubmissionErrorKind = "DUPLICATE_ANSWER"
)

// SubmissionError is the first validation failure found in a candidate answer set.
type SubmissionError struct {
	Kind       SubmissionErrorKind `json:"kind"`
	QuestionID uint                `json:"question_id"`
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("%s: %s for question %d", ErrSubmissionInvalid, e.Kind, e.QuestionID)
}

func (e *SubmissionError) Unwrap() error { return ErrSubmissionInvalid }
