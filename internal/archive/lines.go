package archive

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"
	"golang.org/x/term"
)

// ErrPromptInterrupted is returned when the user interrupts a prompt.
var ErrPromptInterrupted = errors.New("prompt interrupted")

// LineSource yields the next answer to a question.
type LineSource interface {
	ReadLine(prompt string) (string, error)
}

// ScriptedLines replays fixed answers and records the prompts it was given.
// It returns io.EOF once the answers run out.
type ScriptedLines struct {
	Answers []string
	Prompts []string
}

// ReadLine implements LineSource.
func (s *ScriptedLines) ReadLine(prompt string) (string, error) {
	s.Prompts = append(s.Prompts, prompt)
	if len(s.Answers) == 0 {
		return "", io.EOF
	}
	answer := s.Answers[0]
	s.Answers = s.Answers[1:]
	return answer, nil
}

// ConsoleLines reads answers from the terminal. On a TTY it renders the
// question with survey; on redirected input it prints the question and
// reads one line.
type ConsoleLines struct {
	in     *os.File
	out    *os.File
	reader *bufio.Reader
}

// NewConsoleLines returns a LineSource on stdin, prompting on stderr so
// that stdout stays clean.
func NewConsoleLines() *ConsoleLines {
	return &ConsoleLines{in: os.Stdin, out: os.Stderr}
}

// ReadLine implements LineSource.
func (c *ConsoleLines) ReadLine(prompt string) (string, error) {
	if term.IsTerminal(int(c.in.Fd())) {
		var answer string
		err := survey.AskOne(&survey.Input{Message: prompt}, &answer,
			survey.WithStdio(c.in, c.out, c.out))
		if errors.Is(err, terminal.InterruptErr) {
			return "", ErrPromptInterrupted
		}
		return answer, err
	}

	if c.reader == nil {
		c.reader = bufio.NewReader(c.in)
	}
	fmt.Fprintf(c.out, "%s ", prompt)
	line, err := c.reader.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
