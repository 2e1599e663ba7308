package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
)

// outputJSON writes a value as formatted JSON to stdout.
func outputJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputHuman writes a human-readable string to stdout.
func outputHuman(format string, args ...interface{}) {
	fmt.Printf(format, args...)
}

// ErrorResponse is a JSON error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  int    `json:"code"`
}

// StatusResponse is a generic response for commands that return status.
type StatusResponse struct {
	Status string `json:"status"`
	Path   string `json:"path,omitempty"`
	Count  int    `json:"count"`
}

// stdin is shared by every prompt of an invocation.
var stdin = bufio.NewReader(os.Stdin)

// prompt asks message until the reply is one of answers or its first
// letter, compared case-insensitively. An empty reply, or end of input,
// picks answers[def].
func prompt(in *bufio.Reader, out io.Writer, message string, answers []string, def int) string {
	fmt.Fprintf(out, "%s [%s] ", message, strings.Join(answers, "/"))
	for {
		input, err := in.ReadString('\n')
		input = strings.ToLower(strings.TrimSpace(input))
		if input == "" {
			return answers[def]
		}
		for _, a := range answers {
			if input == strings.ToLower(a) || input == strings.ToLower(a[:1]) {
				return a
			}
		}
		if err != nil {
			return answers[def]
		}
		fmt.Fprintf(out, "Please answer one of %s: ", strings.Join(answers, "/"))
	}
}
