package utils

import (
	"errors"
	"fmt"
)

// Kind classifies failures so transports can map them without string matching.
type Kind string

const (
	KindInternal               Kind = "internal"
	KindLoad                   Kind = "load"
	KindValidation             Kind = "validation"
	KindTranslation            Kind = "translation"
	KindAggregationUnavailable Kind = "aggregation_unavailable"
)

// AppError wraps an operation, failure kind, human-facing message, and underlying error.
type AppError struct {
	Op   string
	Kind Kind
	Msg  string
	Err  error
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Msg)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Msg, e.Err)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError constructs an AppError.
func NewAppError(op string, kind Kind, msg string, err error) error {
	return &AppError{Op: op, Kind: kind, Msg: msg, Err: err}
}

// KindOf returns the kind of the outermost classified error in the chain.
// Errors other than AppError may classify themselves through a Kind() method.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	for e := err; e != nil; e = errors.Unwrap(e) {
		switch v := e.(type) {
		case *AppError:
			if v.Kind != "" {
				return v.Kind
			}
		case interface{ Kind() Kind }:
			return v.Kind()
		}
	}
	return KindInternal
}
