package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// readPassword is a test seam for term.ReadPassword.
var readPassword = term.ReadPassword

// promptPassword prints label to w and reads a password without echo. When
// stdin is not a terminal the next line of in is used, so scripts can pipe it.
func promptPassword(w io.Writer, in *bufio.Reader, label string) (string, error) {
	if _, err := fmt.Fprint(w, label+": "); err != nil {
		return "", err
	}

	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		line, err := in.ReadString('\n')
		if err != nil && !(errors.Is(err, io.EOF) && line != "") {
			return "", fmt.Errorf("reading %s: %w", strings.ToLower(label), err)
		}
		fmt.Fprintln(w)
		return strings.TrimRight(line, "\r\n"), nil
	}

	pw, err := readPassword(fd)
	fmt.Fprintln(w)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", strings.ToLower(label), err)
	}
	return string(pw), nil
}
