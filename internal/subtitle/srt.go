// Package subtitle reads and writes SubRip cue lists.
package subtitle

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/encoding/unicode"
)

// Cue is a single subtitle record: an ordinal index, a display window,
// and one or more lines of text.
type Cue struct {
	Index int
	Start time.Duration
	End   time.Duration
	Text  string
}

// ParseError reports a malformed cue block. It fails only the file it
// occurred in, never the surrounding run.
type ParseError struct {
	Block int
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("cue block %d: %v", e.Block, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Parse reads an SRT cue list. Blocks are separated by blank lines; a
// block is an optional numeric index line, a timing line, and the
// remaining lines as text. A UTF-8 BOM is tolerated.
func Parse(r io.Reader) ([]Cue, error) {
	decoded := unicode.UTF8BOM.NewDecoder().Reader(r)
	data, err := io.ReadAll(decoded)
	if err != nil {
		return nil, fmt.Errorf("read cue list: %w", err)
	}

	content := strings.ReplaceAll(string(data), "\r\n", "\n")
	var cues []Cue
	blockNum := 0
	for _, block := range strings.Split(content, "\n\n") {
		if strings.TrimSpace(block) == "" {
			continue
		}
		blockNum++
		cue, err := parseBlock(block)
		if err != nil {
			return nil, &ParseError{Block: blockNum, Err: err}
		}
		if cue.Index == 0 {
			cue.Index = blockNum
		}
		cues = append(cues, cue)
	}
	return cues, nil
}

func parseBlock(block string) (Cue, error) {
	lines := strings.Split(strings.TrimSpace(block), "\n")

	// Optional index line.
	var cue Cue
	if idx, err := strconv.Atoi(strings.TrimSpace(lines[0])); err == nil {
		cue.Index = idx
		lines = lines[1:]
	}

	if len(lines) == 0 {
		return Cue{}, fmt.Errorf("missing timing line")
	}

	start, end, err := parseTiming(lines[0])
	if err != nil {
		return Cue{}, err
	}
	cue.Start, cue.End = start, end
	cue.Text = strings.Join(lines[1:], "\n")
	return cue, nil
}

func parseTiming(line string) (time.Duration, time.Duration, error) {
	parts := strings.Split(line, "-->")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid timing line %q", line)
	}
	start, err := parseTimestamp(parts[0])
	if err != nil {
		return 0, 0, err
	}
	end, err := parseTimestamp(parts[1])
	if err != nil {
		return 0, 0, err
	}
	return start, end, nil
}

// parseTimestamp parses HH:MM:SS,mmm. A period before the millisecond
// field is accepted, the SRT standard uses a comma.
func parseTimestamp(value string) (time.Duration, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, fmt.Errorf("empty timestamp")
	}
	value = strings.ReplaceAll(value, ".", ",")
	timeParts := strings.Split(value, ",")
	if len(timeParts) != 2 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	hms := strings.Split(timeParts[0], ":")
	if len(hms) != 3 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	hours, errH := strconv.Atoi(hms[0])
	minutes, errM := strconv.Atoi(hms[1])
	seconds, errS := strconv.Atoi(hms[2])
	millis, errMS := strconv.Atoi(timeParts[1])
	if errH != nil || errM != nil || errS != nil || errMS != nil {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	return time.Duration(hours)*time.Hour +
		time.Duration(minutes)*time.Minute +
		time.Duration(seconds)*time.Second +
		time.Duration(millis)*time.Millisecond, nil
}

// Write renders cues in canonical SRT form: index, comma-millisecond
// timing, text, blank separator line.
func Write(w io.Writer, cues []Cue) error {
	bw := bufio.NewWriter(w)
	for i, cue := range cues {
		idx := cue.Index
		if idx == 0 {
			idx = i + 1
		}
		fmt.Fprintf(bw, "%d\n%s --> %s\n%s\n\n",
			idx, formatTimestamp(cue.Start), formatTimestamp(cue.End), cue.Text)
	}
	return bw.Flush()
}

func formatTimestamp(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	hours := d / time.Hour
	d -= hours * time.Hour
	minutes := d / time.Minute
	d -= minutes * time.Minute
	seconds := d / time.Second
	d -= seconds * time.Second
	millis := d / time.Millisecond
	return fmt.Sprintf("%02d:%02d:%02d,%03d", hours, minutes, seconds, millis)
}

// ParseFile reads the cue list from path.
func ParseFile(path string) ([]Cue, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return Parse(f)
}

// WriteFile writes cues to path as UTF-8.
func WriteFile(path string, cues []Cue) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := Write(f, cues); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
