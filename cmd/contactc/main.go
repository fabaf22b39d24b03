// Package main implements a command line contact form. It fills the form from
// flags or from a header-and-body message on stdin, submits it to the relay's
// POST /send endpoint and prints the resulting notification.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"net/mail"
	"os"
	"strings"

	"contactrelay/internal/contact"
	"contactrelay/internal/submit"
)

// Exit codes following FreeBSD's sendmail conventions
const (
	EX_OK          = 0  // Successful completion
	EX_USAGE       = 64 // Command line usage error or invalid form
	EX_UNAVAILABLE = 69 // Relay unreachable
	EX_TEMPFAIL    = 75 // Relay could not deliver the message
)

const defaultEndpoint = "http://localhost:5000/send"

func main() {
	var (
		endpoint   = flag.String("endpoint", envOr("CONTACT_ENDPOINT", defaultEndpoint), "relay /send endpoint")
		name       = flag.String("n", "", "sender name")
		email      = flag.String("e", "", "sender email address")
		subject    = flag.String("s", "", "subject (optional)")
		message    = flag.String("m", "", "message text; read from stdin when empty")
		ignoreDots = flag.Bool("i", false, "ignore dots alone on lines")
	)
	flag.Parse()

	form := contact.Message{Name: *name, Email: *email, Subject: *subject, Message: *message}
	if form.Message == "" {
		parsed, err := parseMessage(os.Stdin, *ignoreDots)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading message: %v\n", err)
			os.Exit(EX_USAGE)
		}
		form = merge(form, parsed)
	}

	c := submit.New(submit.NewHTTPSender(*endpoint, nil))
	out, err := c.Submit(context.Background(), form)
	view := submit.Render(c.Snapshot())

	os.Exit(report(os.Stdout, os.Stderr, out, err, view))
}

// report prints the rendered outcome and returns the process exit code.
func report(stdout, stderr io.Writer, out submit.Outcome, err error, view submit.View) int {
	switch out {
	case submit.Sent:
		fmt.Fprintln(stdout, view.Notice.Text)
		return EX_OK
	case submit.Invalid:
		for _, fv := range view.Fields {
			if fv.Invalid {
				fmt.Fprintf(stderr, "%s: missing or invalid\n", fv.Field)
			}
		}
		return EX_USAGE
	case submit.NotSent:
		if view.Notice != nil {
			fmt.Fprintln(stderr, view.Notice.Text)
		}
		fmt.Fprintf(stderr, "Error sending message: %v\n", err)
		if view.Notice != nil && view.Notice.Text == submit.TextServerError {
			return EX_UNAVAILABLE
		}
		return EX_TEMPFAIL
	default:
		return EX_TEMPFAIL
	}
}

// parseMessage reads a message from r. Optional leading "Name:", "Email:" (or
// "From:") and "Subject:" headers fill the matching fields; the rest is the body.
// Unless ignoreDots is set, a line holding a single dot ends the input.
func parseMessage(r io.Reader, ignoreDots bool) (contact.Message, error) {
	var (
		msg       contact.Message
		body      strings.Builder
		inHeaders = true
	)

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()

		if inHeaders {
			if line == "" {
				inHeaders = false
				continue
			}
			if key, value, ok := strings.Cut(line, ":"); ok && isHeader(key) {
				msg = setHeader(msg, strings.TrimSpace(key), strings.TrimSpace(value))
				continue
			}
			// no header block: the first line already belongs to the body
			inHeaders = false
		}

		if !ignoreDots && line == "." {
			break
		}

		body.WriteString(line)
		body.WriteString("\n")
	}

	if err := scanner.Err(); err != nil {
		return contact.Message{}, err
	}

	msg.Message = strings.TrimRight(body.String(), "\n")
	return msg, nil
}

func isHeader(key string) bool {
	switch strings.ToLower(strings.TrimSpace(key)) {
	case "name", "email", "from", "subject":
		return true
	}
	return false
}

func setHeader(msg contact.Message, key, value string) contact.Message {
	switch strings.ToLower(key) {
	case "name":
		msg.Name = value
	case "email":
		msg.Email = value
	case "from":
		msg.Email = value
		if addr, err := mail.ParseAddress(value); err == nil {
			msg.Email = addr.Address
			if msg.Name == "" {
				msg.Name = addr.Name
			}
		}
	case "subject":
		msg.Subject = value
	}
	return msg
}

// merge fills empty fields of flags from parsed. Flags win.
func merge(flags, parsed contact.Message) contact.Message {
	for _, f := range contact.Fields {
		if flags.Get(f) == "" {
			flags = flags.Set(f, parsed.Get(f))
		}
	}
	return flags
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
