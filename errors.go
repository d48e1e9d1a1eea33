package svgpng

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by the library.
var (
	// ErrClosed is returned when attempting to use a closed [Workspace].
	ErrClosed = errors.New("svgpng: workspace is closed")

	// ErrBusy is returned when a conversion is requested while another
	// one is still in flight.
	ErrBusy = errors.New("svgpng: a conversion is already running")

	// ErrCanceled is returned when the user declines to overwrite an
	// existing output file. It is reported with [KindValidation].
	ErrCanceled = errors.New("svgpng: conversion canceled by user")
)

// Kind sentinels, matched with [errors.Is] against any [*Error].
var (
	ErrValidation     = errors.New("svgpng: validation error")
	ErrRenderLaunch   = errors.New("svgpng: render launch error")
	ErrRenderTimeout  = errors.New("svgpng: render timeout")
	ErrDimensionProbe = errors.New("svgpng: dimension probe error")
	ErrCapture        = errors.New("svgpng: capture error")
	ErrSystem         = errors.New("svgpng: system error")
)

// Kind classifies a conversion failure.
type Kind int

const (
	// KindSystem covers unexpected failures outside the other kinds.
	KindSystem Kind = iota
	// KindValidation is a bad path, DPI, SVG header or a declined overwrite.
	KindValidation
	// KindRenderLaunch means the browser context could not be started.
	KindRenderLaunch
	// KindRenderTimeout means the page did not finish loading in time.
	KindRenderTimeout
	// KindDimensionProbe means the page holds no measurable svg element.
	KindDimensionProbe
	// KindCapture means every screenshot attempt failed.
	KindCapture
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindRenderLaunch:
		return "render launch"
	case KindRenderTimeout:
		return "render timeout"
	case KindDimensionProbe:
		return "dimension probe"
	case KindCapture:
		return "capture"
	default:
		return "system"
	}
}

func (k Kind) sentinel() error {
	switch k {
	case KindValidation:
		return ErrValidation
	case KindRenderLaunch:
		return ErrRenderLaunch
	case KindRenderTimeout:
		return ErrRenderTimeout
	case KindDimensionProbe:
		return ErrDimensionProbe
	case KindCapture:
		return ErrCapture
	default:
		return ErrSystem
	}
}

// Error is the error type returned by every stage of a conversion.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("svgpng: %v", e.Err)
	}
	return fmt.Sprintf("svgpng: %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel for e's kind.
func (e *Error) Is(target error) bool {
	return target == e.Kind.sentinel()
}

func newError(kind Kind, op string, err error) error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf returns the [Kind] of err. Errors that are not an [*Error]
// are reported as [KindSystem].
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindSystem
}
