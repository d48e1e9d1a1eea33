package svgpng

import (
	"os"
	"strings"

	"github.com/google/uuid"
)

// Request is one conversion. It is immutable once created.
type Request struct {
	// ID correlates log lines of one conversion.
	ID          string
	InputPath   string
	OutputPath  string
	DPI         int
	Transparent bool
}

// NewRequest returns a Request with a fresh ID.
func NewRequest(input, output string, dpi int, transparent bool) Request {
	return Request{
		ID:          uuid.NewString(),
		InputPath:   input,
		OutputPath:  output,
		DPI:         dpi,
		Transparent: transparent,
	}
}

// Validate re-checks a request right before it is rendered. An existing
// output file is accepted: overwrite confirmation happens in
// [PrepareRequest].
func (r Request) Validate(strict bool) error {
	if err := ValidateDPI(r.DPI); err != nil {
		return err
	}
	if err := checkPaths(r.InputPath, r.OutputPath); err != nil {
		return err
	}
	if err := ValidateSVGFile(r.InputPath); err != nil {
		return err
	}
	if strict {
		data, err := os.ReadFile(r.InputPath)
		if err != nil {
			return newError(KindValidation, "read input", err)
		}
		return ValidateSVGStrict(data)
	}
	return nil
}

// Form holds the raw values entered in a front-end.
type Form struct {
	Input       string
	Output      string
	DPI         string
	Transparent bool
}

// PrepareRequest validates f and turns it into a [Request]. The checks
// are local and fast; confirm is only asked once everything else passed.
func PrepareRequest(f Form, confirm func(path string) bool, strict bool) (Request, error) {
	input := strings.TrimSpace(f.Input)
	output := strings.TrimSpace(f.Output)

	if err := checkPaths(input, output); err != nil {
		return Request{}, err
	}
	dpi, err := ParseDPI(f.DPI)
	if err != nil {
		return Request{}, err
	}
	req := NewRequest(input, output, dpi, f.Transparent)
	if err := req.Validate(strict); err != nil {
		return Request{}, err
	}
	if err := confirmOverwrite(output, confirm); err != nil {
		return Request{}, err
	}
	return req, nil
}
