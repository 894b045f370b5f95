package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// prompter reads answers from the command's input. Passwords are read
// without echo when the input is a terminal.
type prompter struct {
	in  *bufio.Reader
	out io.Writer
	fd  int
	tty bool
}

func newPrompter(cmd *cobra.Command) *prompter {
	in := cmd.InOrStdin()
	p := &prompter{in: bufio.NewReader(in), out: cmd.ErrOrStderr(), fd: -1}
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		p.fd = int(f.Fd())
		p.tty = true
	}
	return p
}

func (p *prompter) line() (string, error) {
	s, err := p.in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimSpace(s), nil
}

// Ask prints label and returns the answer, or def when the answer is empty
func (p *prompter) Ask(label, def string) (string, error) {
	if def != "" {
		fmt.Fprintf(p.out, "%s [%s]: ", label, def)
	} else {
		fmt.Fprintf(p.out, "%s: ", label)
	}
	s, err := p.line()
	if err != nil {
		return "", err
	}
	if s == "" {
		return def, nil
	}
	return s, nil
}

// Password reads a secret
func (p *prompter) Password(label string) (string, error) {
	fmt.Fprintf(p.out, "%s: ", label)
	if !p.tty {
		return p.line()
	}
	b, err := term.ReadPassword(p.fd)
	fmt.Fprintln(p.out)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Confirm asks a yes/no question; anything but y/yes is no
func (p *prompter) Confirm(label string) (bool, error) {
	s, err := p.Ask(label+" (y/N)", "")
	if err != nil {
		return false, err
	}
	switch strings.ToLower(s) {
	case "y", "yes", "s", "si", "sí":
		return true, nil
	}
	return false, nil
}

// field is a prompt label and the value it fills
type field struct {
	label string
	dst   *string
}

// fill asks for each empty field in turn
func (p *prompter) fill(fields ...field) error {
	for _, f := range fields {
		if *f.dst != "" {
			continue
		}
		v, err := p.Ask(f.label, "")
		if err != nil {
			return err
		}
		*f.dst = v
	}
	return nil
}
