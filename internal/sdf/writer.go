package sdf

import (
	"bufio"
	"io"
	"strconv"

	"github.com/jamesvanalstine/pypgx/internal/depth"
)

// Writer writes depth rows as SDF text: chrom, pos and one depth column per
// file, tab-delimited, no header.
type Writer struct {
	w   *bufio.Writer
	buf []byte
}

// NewWriter creates a new SDF writer.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriter(w)}
}

// Write writes a single row.
func (sw *Writer) Write(row depth.Row) error {
	b := sw.buf[:0]
	b = append(b, row.Chrom...)
	b = append(b, '\t')
	b = strconv.AppendInt(b, int64(row.Pos), 10)
	for _, d := range row.Depths {
		b = append(b, '\t')
		b = strconv.AppendInt(b, int64(d), 10)
	}
	b = append(b, '\n')
	sw.buf = b
	_, err := sw.w.Write(b)
	return err
}

// WriteAll writes rows and flushes.
func (sw *Writer) WriteAll(rows []depth.Row) error {
	for _, r := range rows {
		if err := sw.Write(r); err != nil {
			return err
		}
	}
	return sw.Flush()
}

// Flush flushes any buffered data to the underlying writer.
func (sw *Writer) Flush() error {
	return sw.w.Flush()
}
