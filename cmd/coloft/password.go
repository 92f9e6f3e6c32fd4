package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli"
	"golang.org/x/term"

	"coloft/internal/auth"
)

// readPassword reads a password without echo from a terminal, or one
// line from a pipe.
func readPassword(prompt io.Writer, in *os.File) (string, error) {
	fd := int(in.Fd())
	if term.IsTerminal(fd) {
		fmt.Fprint(prompt, "Password: ")
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(prompt)
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return string(b), nil
	}
	return readLine(in)
}

func readLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func hashPassword(c *cli.Context) error {
	user := c.Args().First()
	if user == "" {
		return errors.New("usage: coloft hash-password <username>")
	}

	password, err := readPassword(c.App.ErrWriter, os.Stdin)
	if err != nil {
		return err
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}

	fmt.Fprintf(c.App.Writer, "basic_auth:\n  username: %s\n  password_hash: '%s'\n", user, hash)
	return nil
}
