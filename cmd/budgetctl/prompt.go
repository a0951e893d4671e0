package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// prompter reads answers line by line. EOF answers with the default.
type prompter struct {
	in  *bufio.Reader
	out io.Writer
}

func newPrompter(in io.Reader, out io.Writer) *prompter {
	return &prompter{in: bufio.NewReader(in), out: out}
}

func (p *prompter) ask(label, def string) (string, error) {
	if def != "" {
		fmt.Fprintf(p.out, "%s %s: ", PromptStyle.Render(label), SubtleStyle.Render("["+def+"]"))
	} else {
		fmt.Fprintf(p.out, "%s: ", PromptStyle.Render(label))
	}
	line, err := p.in.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	line = strings.TrimSpace(line)
	if line == "" {
		if err == io.EOF && def == "" {
			return "", io.ErrUnexpectedEOF
		}
		return def, nil
	}
	return line, nil
}
