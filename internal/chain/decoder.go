package chain

import (
	"bufio"
	"errors"
	"io"
	"strings"
)

// maxLineSize bounds a single log line.
const maxLineSize = 16 << 20

// Decoder reads a log line by line, tracking physical line numbers.
//
// Header lines are only legal before the first link; ReadHeader consumes
// them, Next returns links.
type Decoder[A any] struct {
	sc      *bufio.Scanner
	line    int
	pending *string
	body    bool
}

// NewDecoder returns a decoder reading from r.
func NewDecoder[A any](r io.Reader) *Decoder[A] {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	return &Decoder[A]{sc: sc}
}

// Line returns the physical line number of the last line read.
func (d *Decoder[A]) Line() int {
	return d.line
}

func (d *Decoder[A]) readLine() (string, bool, error) {
	if d.pending != nil {
		s := *d.pending
		d.pending = nil
		return s, true, nil
	}
	if !d.sc.Scan() {
		if err := d.sc.Err(); err != nil {
			if errors.Is(err, bufio.ErrTooLong) {
				return "", false, &SerializationError{Line: d.line + 1, Err: err}
			}
			return "", false, err
		}
		return "", false, nil
	}
	d.line++
	return strings.TrimSuffix(d.sc.Text(), "\r"), true, nil
}

// ReadHeader consumes and parses the leading header lines.
func (d *Decoder[A]) ReadHeader() ([]HeaderLine, error) {
	var header []HeaderLine
	for !d.body {
		text, ok, err := d.readLine()
		if err != nil {
			return header, err
		}
		if !ok {
			d.body = true
			break
		}
		if !IsHeaderLine(text) {
			d.pending = &text
			d.body = true
			break
		}
		h, err := ParseHeaderLine(text)
		if err != nil {
			return header, &SerializationError{Line: d.line, Text: text, Err: err}
		}
		header = append(header, h)
	}
	return header, nil
}

// Next returns the next link. It returns io.EOF after the last one.
// Calling Next before ReadHeader treats header lines as errors.
func (d *Decoder[A]) Next() (Message[A], error) {
	d.body = true
	text, ok, err := d.readLine()
	if err != nil {
		return Message[A]{}, err
	}
	if !ok {
		return Message[A]{}, io.EOF
	}
	if IsHeaderLine(text) {
		return Message[A]{}, &SerializationError{Line: d.line, Text: text, Err: errors.New("header line after first link")}
	}
	msg, err := DecodeMessage[A]([]byte(text))
	if err != nil {
		return Message[A]{}, &SerializationError{Line: d.line, Text: text, Err: err}
	}
	return msg, nil
}
