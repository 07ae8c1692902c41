// internal/common/userio/userio.go
package userio

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"company-assistant/internal/models"

	"github.com/fatih/color"
)

// ErrInputClosed is returned by Ask when the input stream has ended.
var ErrInputClosed = errors.New("INPUT_CLOSED")

// UserIO is the conversation surface of the resolution loop.
type UserIO interface {
	Ask(ctx context.Context, prompt string) (string, error)
	Show(text string, sources []models.Source)
	Notify(text string)
}

// Hyperlink wraps text in an OSC-8 terminal hyperlink.
func Hyperlink(url, text string) string {
	return "\033]8;;" + url + "\033\\" + text + "\033]8;;\033\\"
}

// FormatSources renders "(Source: A, B)" with each label linked to its URL
// when links is true. An empty list renders as "".
func FormatSources(sources []models.Source, links bool) string {
	if len(sources) == 0 {
		return ""
	}
	parts := make([]string, 0, len(sources))
	for _, s := range sources {
		if links && s.URL != "" {
			parts = append(parts, Hyperlink(s.URL, s.Label))
		} else {
			parts = append(parts, s.Label)
		}
	}
	return "(Source: " + strings.Join(parts, ", ") + ")"
}

type lineResult struct {
	text string
	err  error
}

// Terminal reads answers line by line and writes colored output.
type Terminal struct {
	in    *bufio.Reader
	out   io.Writer
	links bool

	mu      sync.Mutex
	pending chan lineResult

	prompt *color.Color
	answer *color.Color
	info   *color.Color
}

func NewTerminal(in io.Reader, out io.Writer, links bool) *Terminal {
	return &Terminal{
		in:     bufio.NewReader(in),
		out:    out,
		links:  links,
		prompt: color.New(color.FgCyan, color.Bold),
		answer: color.New(color.FgGreen),
		info:   color.New(color.FgYellow),
	}
}

// Ask prints prompt and waits for one line. Cancelling ctx returns early; the
// pending read is handed to the next Ask.
func (t *Terminal) Ask(ctx context.Context, prompt string) (string, error) {
	t.prompt.Fprint(t.out, prompt+" ")

	t.mu.Lock()
	if t.pending == nil {
		ch := make(chan lineResult, 1)
		t.pending = ch
		go func() {
			line, err := t.in.ReadString('\n')
			if err != nil && !(errors.Is(err, io.EOF) && line != "") {
				ch <- lineResult{err: ErrInputClosed}
				return
			}
			ch <- lineResult{text: strings.TrimSpace(line)}
		}()
	}
	ch := t.pending
	t.mu.Unlock()

	select {
	case <-ctx.Done():
		fmt.Fprintln(t.out)
		return "", ctx.Err()
	case res := <-ch:
		t.mu.Lock()
		t.pending = nil
		t.mu.Unlock()
		return res.text, res.err
	}
}

func (t *Terminal) Show(text string, sources []models.Source) {
	t.answer.Fprintln(t.out, text)
	if s := FormatSources(sources, t.links); s != "" {
		fmt.Fprintln(t.out, s)
	}
	fmt.Fprintln(t.out)
}

func (t *Terminal) Notify(text string) {
	t.info.Fprintln(t.out, text)
}

// Shown is one answer written through Show.
type Shown struct {
	Text    string
	Sources []models.Source
}

// Scripted replays canned answers and records everything written. It
// returns ErrInputClosed once the script runs out.
type Scripted struct {
	mu       sync.Mutex
	answers  []string
	Prompts  []string
	Shown    []Shown
	Notified []string
}

func NewScripted(answers ...string) *Scripted {
	return &Scripted{answers: answers}
}

func (s *Scripted) Ask(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Prompts = append(s.Prompts, prompt)
	if len(s.answers) == 0 {
		return "", ErrInputClosed
	}
	next := s.answers[0]
	s.answers = s.answers[1:]
	return next, nil
}

func (s *Scripted) Show(text string, sources []models.Source) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Shown = append(s.Shown, Shown{Text: text, Sources: sources})
}

func (s *Scripted) Notify(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Notified = append(s.Notified, text)
}

// Remaining reports how many scripted answers are unused.
func (s *Scripted) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.answers)
}
