// Package source holds the immutable text a program is read from and the
// half-open spans that every later phase (scanner, parser, analyzer,
// evaluator) tags its own output with.
package source

import "fmt"

// Buffer is a named, language-tagged block of text. Buffers are immutable
// after construction and shared by reference: every Position in a pipeline
// run points back at the same Buffer instance.
type Buffer struct {
	Directory string
	Name      string
	Language  string
	Text      string
}

// NewBuffer builds a Buffer. directory and name are concatenated without a
// separator when formatting diagnostics (see Position.Format) — that is a
// specified quirk of this dialect's diagnostics, not an oversight.
func NewBuffer(directory, name, language, text string) *Buffer {
	return &Buffer{Directory: directory, Name: name, Language: language, Text: text}
}

// Position is an inclusive-start, exclusive-end span within a Buffer, plus
// the line/column pair at each end. Values are immutable once constructed;
// To and Until build new merged positions rather than mutating receivers.
type Position struct {
	Buffer      *Buffer
	StartIndex  int
	EndIndex    int
	StartLine   int
	StartColumn int
	EndLine     int
	EndColumn   int
}

// Text returns the slice of the buffer this position spans.
func (p Position) Text() string {
	return p.Buffer.Text[p.StartIndex:p.EndIndex]
}

// To returns the convex hull of p and end: it starts where p starts and
// ends where end ends.
func (p Position) To(end Position) Position {
	return Position{
		Buffer:      p.Buffer,
		StartIndex:  p.StartIndex,
		StartLine:   p.StartLine,
		StartColumn: p.StartColumn,
		EndIndex:    end.EndIndex,
		EndLine:     end.EndLine,
		EndColumn:   end.EndColumn,
	}
}

// Until returns the span from the start of p to the start of end, i.e.
// [p.Start, end.Start).
func (p Position) Until(end Position) Position {
	return Position{
		Buffer:      p.Buffer,
		StartIndex:  p.StartIndex,
		StartLine:   p.StartLine,
		StartColumn: p.StartColumn,
		EndIndex:    end.StartIndex,
		EndLine:     end.StartLine,
		EndColumn:   end.StartColumn,
	}
}

// Format renders "<dir><name>:<startLine>.<startCol>-<endLine>.<endCol>".
// There is deliberately no separator between directory and name.
func (p Position) Format() string {
	return fmt.Sprintf("%s%s:%d.%d-%d.%d",
		p.Buffer.Directory, p.Buffer.Name,
		p.StartLine, p.StartColumn,
		p.EndLine, p.EndColumn)
}

func (p Position) String() string { return p.Format() }
