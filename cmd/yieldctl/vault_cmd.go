package main

import (
	"fmt"
	"io"
	"net/url"
	"strconv"
)

func runVaultCommand(c *client, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(stderr, usage())
		return 1
	}
	switch args[0] {
	case "show":
		return c.print(stdout, stderr, "GET", "/v1/vault", nil)
	case "audit":
		return c.print(stdout, stderr, "GET", "/v1/vault/audit", nil)
	case "holder":
		if len(args) != 2 {
			return printError(stderr, "usage: yieldctl vault holder <address>")
		}
		return c.print(stdout, stderr, "GET", "/v1/vault/holders/"+url.PathEscape(args[1]), nil)
	case "claim":
		return c.print(stdout, stderr, "POST", "/v1/vault/claim", nil)
	case "initialize":
		fs := newFlagSet("vault initialize", stderr)
		maturity := fs.Uint64("maturity", 0, "maturity height")
		if err := fs.Parse(args[1:]); err != nil {
			return 1
		}
		if *maturity == 0 {
			return printError(stderr, "--maturity is required")
		}
		return c.print(stdout, stderr, "POST", "/v1/vault/initialize", map[string]uint64{"maturityHeight": *maturity})
	case "deposit", "sync", "redeem", "combine":
		fs := newFlagSet("vault "+args[0], stderr)
		amount := fs.String("amount", "", "amount")
		if err := fs.Parse(args[1:]); err != nil {
			return 1
		}
		if *amount == "" {
			return printError(stderr, "--amount is required")
		}
		return c.print(stdout, stderr, "POST", "/v1/vault/"+args[0], map[string]string{"amount": *amount})
	case "transfer":
		fs := newFlagSet("vault transfer", stderr)
		claim := fs.String("claim", "", "principal or yield")
		to := fs.String("to", "", "recipient address")
		amount := fs.String("amount", "", "amount")
		if err := fs.Parse(args[1:]); err != nil {
			return 1
		}
		if *claim == "" || *to == "" || *amount == "" {
			return printError(stderr, "--claim, --to and --amount are required")
		}
		return c.print(stdout, stderr, "POST", "/v1/vault/transfer", map[string]string{"claim": *claim, "to": *to, "amount": *amount})
	default:
		fmt.Fprintf(stderr, "Unknown vault subcommand: %s\n", args[0])
		return 1
	}
}

func runTransfer(c *client, args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("transfer", stderr)
	to := fs.String("to", "", "recipient address")
	amount := fs.String("amount", "", "amount of the underlying asset")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if *to == "" || *amount == "" {
		return printError(stderr, "--to and --amount are required")
	}
	return c.print(stdout, stderr, "POST", "/v1/transfer", map[string]string{"to": *to, "amount": *amount})
}

func runEvents(c *client, args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("events", stderr)
	eventType := fs.String("type", "", "filter by event type")
	limit := fs.Int("limit", 0, "maximum events to return")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	query := url.Values{}
	if *eventType != "" {
		query.Set("type", *eventType)
	}
	if *limit > 0 {
		query.Set("limit", strconv.Itoa(*limit))
	}
	path := "/v1/events"
	if encoded := query.Encode(); encoded != "" {
		path += "?" + encoded
	}
	return c.print(stdout, stderr, "GET", path, nil)
}
