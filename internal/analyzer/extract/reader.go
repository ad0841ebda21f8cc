package extract

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

var (
	// ErrUndecodable indicates that no configured encoding could decode a file.
	ErrUndecodable = errors.New("no encoding could decode file")

	errInvalidUTF8  = errors.New("invalid utf-8")
	errOddLength    = errors.New("odd byte count for utf-16")
	errBadSurrogate = errors.New("invalid utf-16 surrogate")
)

// Encoding is one decode attempt in the reader's fallback chain.
type Encoding struct {
	Name   string
	Decode func(data []byte) (string, error)
}

// DefaultEncodings is the fallback order: UTF-8, UTF-16, ISO-8859-1.
//
// The UTF-16 attempt only accepts input that starts with a byte order mark.
// Without that, any even-length Latin-1 file would "decode" as UTF-16 noise.
var DefaultEncodings = []Encoding{
	{Name: "utf-8", Decode: decodeUTF8},
	{Name: "utf-16", Decode: decodeUTF16},
	{Name: "iso-8859-1", Decode: decodeLatin1},
}

// ContentReader loads file text, trying each encoding in order.
type ContentReader struct {
	encodings []Encoding
}

// NewContentReader creates a reader with the given encodings, or
// DefaultEncodings when none are passed.
func NewContentReader(encodings ...Encoding) *ContentReader {
	if len(encodings) == 0 {
		encodings = DefaultEncodings
	}
	return &ContentReader{encodings: encodings}
}

// Read returns the decoded text of the file at path.
//
// It never fails the caller: on error the text is "" and the error says why.
// An I/O error stops immediately; decode errors move on to the next encoding.
func (r *ContentReader) Read(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}

	text, _, err := r.Decode(data)
	if err != nil {
		return "", fmt.Errorf("%s: %w", path, err)
	}
	return text, nil
}

// Decode runs data through the encoding chain and reports which one succeeded.
func (r *ContentReader) Decode(data []byte) (text string, encoding string, err error) {
	var errs []error
	for _, enc := range r.encodings {
		text, err := enc.Decode(data)
		if err == nil {
			return text, enc.Name, nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", enc.Name, err))
	}
	return "", "", fmt.Errorf("%w (%w)", ErrUndecodable, errors.Join(errs...))
}

func decodeUTF8(data []byte) (string, error) {
	if !utf8.Valid(data) {
		return "", errInvalidUTF8
	}
	return string(data), nil
}

func decodeUTF16(data []byte) (string, error) {
	if len(data)%2 != 0 {
		return "", errOddLength
	}

	out, err := unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM).NewDecoder().Bytes(data)
	if err != nil {
		return "", err
	}

	// The decoder substitutes U+FFFD for lone surrogates instead of failing.
	if bytes.ContainsRune(out, utf8.RuneError) && !hasUTF16ReplacementChar(data) {
		return "", errBadSurrogate
	}
	return string(out), nil
}

func hasUTF16ReplacementChar(data []byte) bool {
	for i := 0; i+1 < len(data); i += 2 {
		if (data[i] == 0xFD && data[i+1] == 0xFF) || (data[i] == 0xFF && data[i+1] == 0xFD) {
			return true
		}
	}
	return false
}

func decodeLatin1(data []byte) (string, error) {
	out, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
	if err != nil {
		return "", err
	}
	return string(out), nil
}
