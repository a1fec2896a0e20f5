package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/kraklabs/anidbclient/internal/credentials"
	"github.com/kraklabs/anidbclient/internal/errs"
)

// authCommand implements `anidb auth login|logout|status`.
func authCommand(args []string, globals GlobalFlags) error {
	if len(args) == 0 {
		return errs.New(errs.ValidationMissingField, "auth: expected login, logout, or status")
	}

	cfgPath, err := configPath(globals.ConfigPath)
	if err != nil {
		return err
	}
	rw := credReader(cfgPath)

	switch args[0] {
	case "login":
		return authLogin(rw)
	case "logout":
		return authLogout(rw)
	case "status":
		return authStatus(rw)
	default:
		return errs.Newf(errs.ValidationInvalidConfiguration, "auth: unknown subcommand %q", args[0])
	}
}

func authLogin(rw credentials.ReadWriter) error {
	reader := bufio.NewReader(os.Stdin)
	fmt.Print("AniDB username: ")
	username, _ := reader.ReadString('\n')
	username = strings.TrimSpace(username)

	fmt.Print("AniDB password: ")
	var password string
	if fd := int(os.Stdin.Fd()); term.IsTerminal(fd) {
		raw, err := term.ReadPassword(fd)
		if err != nil {
			return errs.Wrap(errs.IoPermission, "read password", err)
		}
		password = string(raw)
		fmt.Println()
	} else {
		line, _ := reader.ReadString('\n')
		password = strings.TrimSpace(line)
	}

	if username == "" || password == "" {
		return errs.New(errs.ValidationMissingField, "auth login: username and password are both required")
	}

	if err := rw.Write(credentials.Credentials{Username: username, Password: password}); err != nil {
		return err
	}
	fmt.Println("credentials stored")
	return nil
}

func authLogout(rw credentials.ReadWriter) error {
	if err := rw.Clear(); err != nil {
		return err
	}
	fmt.Println("credentials cleared")
	return nil
}

func authStatus(rw credentials.ReadWriter) error {
	creds, err := rw.Read()
	if err != nil {
		fmt.Println("not logged in")
		return nil
	}
	fmt.Printf("logged in as %s\n", creds.Username)
	return nil
}
