package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/firefly-engineering/adminmux/internal/auth"
	gwerrors "github.com/firefly-engineering/adminmux/internal/errors"
)

var passwdCmd = &cobra.Command{
	Use:   "passwd",
	Short: "Hash a password for the user table",
	Long: `Prompts for a password and prints its bcrypt hash, suitable for the
password field of a [[user]] entry.

When stdin is not a terminal the first line of input is hashed.`,
	Args: cobra.NoArgs,
	RunE: runPasswd,
}

func init() {
	rootCmd.AddCommand(passwdCmd)
}

func runPasswd(cmd *cobra.Command, args []string) error {
	password, err := readPassword(cmd.InOrStdin(), cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	if password == "" {
		return gwerrors.Validation("password must not be empty")
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), hash)
	return nil
}

// readPassword prompts twice without echo on a terminal. Other input is
// read as one line.
func readPassword(in io.Reader, prompt io.Writer) (string, error) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		first, err := promptHidden(f, prompt, "Password: ")
		if err != nil {
			return "", err
		}
		second, err := promptHidden(f, prompt, "Confirm: ")
		if err != nil {
			return "", err
		}
		if first != second {
			return "", gwerrors.Validation("passwords do not match")
		}
		return first, nil
	}

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func promptHidden(f *os.File, prompt io.Writer, label string) (string, error) {
	fmt.Fprint(prompt, label)
	b, err := term.ReadPassword(int(f.Fd()))
	fmt.Fprintln(prompt)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(b), nil
}
