package compiler

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// sourceLine is one line of model text with its 1-based number.
type sourceLine struct {
	text string
	num  int
}

// lineCursor is a buffered cursor over model lines. Blank lines are skipped.
// Group recognition advances the same cursor to consume the group body, so
// every grammar case sees exactly the lines it owns.
type lineCursor struct {
	lines []sourceLine
	pos   int
}

func newLineCursor(r io.Reader) (*lineCursor, error) {
	c := &lineCursor{}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	num := 0
	for sc.Scan() {
		num++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		c.lines = append(c.lines, sourceLine{text: text, num: num})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read model: %w", err)
	}
	return c, nil
}

// next returns the next non-blank, whitespace-trimmed line.
func (c *lineCursor) next() (sourceLine, bool) {
	if c.pos >= len(c.lines) {
		return sourceLine{}, false
	}
	l := c.lines[c.pos]
	c.pos++
	return l, true
}
