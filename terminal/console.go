package terminal

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/term"
)

const (
	hideCursor = "\033[2J\033[?25l" // also clear screen
	showCursor = "\033[23;0H\n\r\033[?25h"
)

var ErrNotATerminal = errors.New("stdin is not a terminal")

// Raw puts stdin in raw mode and hides the cursor. The returned function
// restores both.
func Raw() (func() error, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return nil, ErrNotATerminal
	}
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return nil, fmt.Errorf("error setting terminal to raw mode: %w", err)
	}
	fmt.Print(hideCursor)
	return func() error {
		fmt.Print(showCursor)
		if err := term.Restore(fd, oldState); err != nil {
			return fmt.Errorf("unable to restore the terminal original state: %w", err)
		}
		return nil
	}, nil
}
