package svgpng

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/samber/lo"
	"github.com/srwiley/oksvg"
)

const (
	// headerSize is how much of the input the header check inspects.
	headerSize = 1024

	svgNamespace = `xmlns="http://www.w3.org/2000/svg"`

	// BaselineDPI is the resolution rendered at device scale factor 1.
	BaselineDPI = 96
	// MinDPI and MaxDPI bound the accepted resolution.
	MinDPI = 72
	MaxDPI = 600
	// DefaultDPI is preselected by front-ends.
	DefaultDPI = 300
)

// DPIPresets are the resolutions offered by front-ends. Any integer in
// [MinDPI, MaxDPI] is accepted.
var DPIPresets = []int{72, 96, 150, 300, 600}

// IsPresetDPI reports whether dpi is one of [DPIPresets].
func IsPresetDPI(dpi int) bool {
	return lo.Contains(DPIPresets, dpi)
}

// ScaleFactor converts dpi into a device scale factor.
func ScaleFactor(dpi int) float64 {
	return float64(dpi) / BaselineDPI
}

// ParseDPI parses and validates a DPI value typed by the user.
func ParseDPI(s string) (int, error) {
	dpi, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, newError(KindValidation, "dpi", fmt.Errorf("DPI must be an integer, got %q", s))
	}
	if err := ValidateDPI(dpi); err != nil {
		return 0, err
	}
	return dpi, nil
}

// ValidateDPI rejects resolutions outside [MinDPI, MaxDPI].
func ValidateDPI(dpi int) error {
	if dpi < MinDPI || dpi > MaxDPI {
		return newError(KindValidation, "dpi", fmt.Errorf("DPI must be between %d and %d", MinDPI, MaxDPI))
	}
	return nil
}

// ValidateSVGFile checks the leading bytes of the file at path for an
// SVG declaration. It is a cheap prefilter, not a parser: unusual but
// valid files may be rejected.
func ValidateSVGFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return newError(KindValidation, "validate svg", err)
	}
	defer f.Close()

	buf := make([]byte, headerSize)
	n, err := io.ReadFull(f, buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return newError(KindValidation, "validate svg", err)
	}
	return ValidateSVGHeader(buf[:n])
}

// ValidateSVGHeader applies the header heuristics to head.
func ValidateSVGHeader(head []byte) error {
	if len(head) > headerSize {
		head = head[:headerSize]
	}
	text := strings.ToValidUTF8(string(head), "")
	if len(head) > 0 && strings.TrimSpace(text) == "" {
		return newError(KindValidation, "validate svg", errors.New("file is not text-based SVG"))
	}

	header := strings.ToLower(text)
	if !strings.Contains(header, "<svg") || !strings.Contains(header, svgNamespace) {
		return newError(KindValidation, "validate svg", errors.New("file doesn't contain valid SVG declaration"))
	}
	if !commentsClosed(header) {
		return newError(KindValidation, "validate svg", errors.New("malformed SVG comment syntax"))
	}
	return nil
}

// commentsClosed reports whether every "<!--" in s is followed by "-->".
func commentsClosed(s string) bool {
	for {
		open := strings.Index(s, "<!--")
		if open < 0 {
			return true
		}
		s = s[open+len("<!--"):]
		end := strings.Index(s, "-->")
		if end < 0 {
			return false
		}
		s = s[end+len("-->"):]
	}
}

// ValidateSVGStrict parses the whole document with a full SVG parser.
// Only malformed XML is rejected; elements the parser cannot draw, such
// as text, are left to the browser.
func ValidateSVGStrict(data []byte) error {
	if _, err := oksvg.ReadIconStream(bytes.NewReader(data), oksvg.IgnoreErrorMode); err != nil {
		return newError(KindValidation, "parse svg", err)
	}
	return nil
}

// ValidatePaths checks the input and output paths, collecting every
// problem into one error. When output already exists, confirm is asked
// whether it may be replaced; a nil confirm or a negative answer
// returns [ErrCanceled].
func ValidatePaths(input, output string, confirm func(path string) bool) error {
	if err := checkPaths(input, output); err != nil {
		return err
	}
	return confirmOverwrite(output, confirm)
}

func checkPaths(input, output string) error {
	var problems []string
	if input == "" {
		problems = append(problems, "Input file path is required")
	}
	if output == "" {
		problems = append(problems, "Output file path is required")
	}
	if len(problems) > 0 {
		return newError(KindValidation, "validate paths", errors.New(strings.Join(problems, "\n")))
	}

	if fi, err := os.Stat(input); err != nil || fi.IsDir() {
		problems = append(problems, fmt.Sprintf("Input file not found: %s", input))
	}
	if !strings.EqualFold(filepath.Ext(input), ".svg") {
		problems = append(problems, "Input file must be an SVG file")
	}
	dir := filepath.Dir(output)
	if fi, err := os.Stat(dir); err != nil || !fi.IsDir() {
		problems = append(problems, fmt.Sprintf("Output directory does not exist: %s", dir))
	}
	if len(problems) > 0 {
		return newError(KindValidation, "validate paths", errors.New(strings.Join(problems, "\n")))
	}
	return nil
}

func confirmOverwrite(output string, confirm func(path string) bool) error {
	if _, err := os.Stat(output); err != nil {
		return nil
	}
	if confirm == nil || !confirm(output) {
		return newError(KindValidation, "confirm overwrite", ErrCanceled)
	}
	return nil
}

// SuggestOutputPath returns input with its extension replaced by .png.
func SuggestOutputPath(input string) string {
	if input == "" {
		return ""
	}
	return strings.TrimSuffix(input, filepath.Ext(input)) + ".png"
}
