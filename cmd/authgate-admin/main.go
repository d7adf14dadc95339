// Command authgate-admin manages users and API keys on an authgate server.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/fatih/color"

	"github.com/authgate/authgate/internal/client"
	"github.com/authgate/authgate/internal/token"
)

const defaultURL = "http://localhost:8080"

// requestTimeout bounds each API call. It starts after any password prompts.
var requestTimeout = 30 * time.Second

func withRequestTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, requestTimeout)
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	baseURL := os.Getenv("AUTHGATE_URL")
	if baseURL == "" {
		baseURL = defaultURL
	}
	c := client.New(baseURL, os.Getenv("AUTHGATE_API_KEY"))

	cmd := os.Args[1]
	args := os.Args[2:]

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	in := bufio.NewReader(os.Stdin)

	var err error
	switch cmd {
	case "secret":
		err = cmdSecret(args)
	case "issue-key":
		err = cmdIssueKey(ctx, c, args)
	case "deactivate":
		err = cmdDeactivate(ctx, c, args)
	case "register":
		err = cmdRegister(ctx, c, in, args)
	case "login":
		err = cmdLogin(ctx, c, in, args)
	case "passwd":
		err = cmdPasswd(ctx, c, in, args)
	case "validate":
		err = cmdValidate(ctx, c, args)
	case "probe":
		err = cmdProbe(ctx, c, args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		var apiErr *client.Error
		if errors.As(err, &apiErr) {
			color.Red("Error (%d): %s\n", apiErr.StatusCode, apiErr.Message)
		} else {
			color.Red("Error: %v\n", err)
		}
		os.Exit(1)
	}
}

func printUsage() {
	yellow := color.New(color.FgYellow)

	fmt.Println("Usage: authgate-admin <command> [args]")
	fmt.Println()
	yellow.Println("Commands:")
	fmt.Println("  secret [-bytes N]              Print a random hex TOKEN_SECRET_KEY")
	fmt.Println("  issue-key <device>             Issue an API key for a device (admin key)")
	fmt.Println("  deactivate <device>            Deactivate a device's API key (admin key)")
	fmt.Println("  register <username> <email>    Register a user (prompts for password)")
	fmt.Println("  login <username>               Check a password and print the token")
	fmt.Println("  passwd <username>              Change a user's password")
	fmt.Println("  validate <token>               Check whether a token is valid")
	fmt.Println("  probe [-admin]                 Check the configured API key")
	fmt.Println()
	yellow.Println("Environment:")
	fmt.Println("  AUTHGATE_URL        Server URL (default: http://localhost:8080)")
	fmt.Println("  AUTHGATE_API_KEY    API key sent with every request")
	fmt.Println()
}

func cmdSecret(args []string) error {
	fs := flag.NewFlagSet("secret", flag.ContinueOnError)
	n := fs.Int("bytes", 32, "secret length in bytes")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *n < token.MinSecretLen {
		return fmt.Errorf("secret must be at least %d bytes", token.MinSecretLen)
	}

	secret, err := token.NewSecret(*n)
	if err != nil {
		return err
	}
	fmt.Println(secret)
	return nil
}

func cmdIssueKey(ctx context.Context, c *client.Client, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: issue-key <device>")
	}

	ctx, cancel := withRequestTimeout(ctx)
	defer cancel()

	key, err := c.IssueAPIKey(ctx, args[0])
	if err != nil {
		return err
	}

	color.Green("API key issued for %q\n", args[0])
	fmt.Println(key)
	color.Yellow("Store it now; it cannot be displayed again.\n")
	return nil
}

func cmdDeactivate(ctx context.Context, c *client.Client, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: deactivate <device>")
	}

	ctx, cancel := withRequestTimeout(ctx)
	defer cancel()

	msg, err := c.DeactivateAPIKey(ctx, args[0])
	if err != nil {
		return err
	}
	color.Green("%s\n", msg)
	return nil
}

func cmdRegister(ctx context.Context, c *client.Client, in *bufio.Reader, args []string) error {
	if len(args) != 2 {
		return errors.New("usage: register <username> <email>")
	}

	password, err := promptPassword(os.Stderr, in, "Password")
	if err != nil {
		return err
	}

	ctx, cancel := withRequestTimeout(ctx)
	defer cancel()

	msg, err := c.RegisterUser(ctx, args[0], args[1], password)
	if err != nil {
		return err
	}
	color.Green("%s\n", msg)
	return nil
}

func cmdLogin(ctx context.Context, c *client.Client, in *bufio.Reader, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: login <username>")
	}

	password, err := promptPassword(os.Stderr, in, "Password")
	if err != nil {
		return err
	}

	ctx, cancel := withRequestTimeout(ctx)
	defer cancel()

	tok, err := c.CheckPassword(ctx, args[0], password)
	if err != nil {
		return err
	}
	color.Green("Username and password correct\n")
	fmt.Println(tok)
	return nil
}

func cmdPasswd(ctx context.Context, c *client.Client, in *bufio.Reader, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: passwd <username>")
	}

	current, err := promptPassword(os.Stderr, in, "Current password")
	if err != nil {
		return err
	}
	next, err := promptPassword(os.Stderr, in, "New password")
	if err != nil {
		return err
	}
	confirm, err := promptPassword(os.Stderr, in, "Confirm password")
	if err != nil {
		return err
	}

	ctx, cancel := withRequestTimeout(ctx)
	defer cancel()

	msg, err := c.ChangePassword(ctx, args[0], current, next, confirm)
	if err != nil {
		return err
	}
	color.Green("%s\n", msg)
	return nil
}

func cmdValidate(ctx context.Context, c *client.Client, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: validate <token>")
	}

	ctx, cancel := withRequestTimeout(ctx)
	defer cancel()

	valid, err := c.ValidateToken(ctx, args[0])
	if err != nil {
		return err
	}
	if !valid {
		return errors.New("token is invalid")
	}
	color.Green("Token is valid\n")
	return nil
}

func cmdProbe(ctx context.Context, c *client.Client, args []string) error {
	fs := flag.NewFlagSet("probe", flag.ContinueOnError)
	admin := fs.Bool("admin", false, "check the admin tier")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx, cancel := withRequestTimeout(ctx)
	defer cancel()

	msg, err := c.Probe(ctx, *admin)
	if err != nil {
		return err
	}
	color.Green("%s\n", msg)
	return nil
}
