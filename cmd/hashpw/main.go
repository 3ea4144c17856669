// Command hashpw prints an Argon2id hash for PROXY_PASSWORD_HASH.
// The password is read from the first argument or, when absent, from stdin.
package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	httpserver "github.com/fairyhunter13/trendpulse/internal/adapter/httpserver"
)

func main() {
	var password string
	if len(os.Args) > 1 {
		password = os.Args[1]
	} else {
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			fmt.Fprintln(os.Stderr, "usage: hashpw <password>")
			os.Exit(2)
		}
		password = strings.TrimRight(line, "\r\n")
	}
	if password == "" {
		fmt.Fprintln(os.Stderr, "password must not be empty")
		os.Exit(2)
	}
	hash, err := httpserver.HashPassword(password, httpserver.DefaultArgon2Params)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Println(hash)
}
