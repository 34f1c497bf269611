package main

import (
	"flag"
	"fmt"
	"io"
	"strconv"
)

func runBondCommand(c *client, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(stderr, usage())
		return 1
	}
	switch args[0] {
	case "create":
		fs := newFlagSet("bond create", stderr)
		amount := fs.String("amount", "", "principal to lock")
		term := fs.Uint64("term", 0, "term in blocks")
		if err := fs.Parse(args[1:]); err != nil {
			return 1
		}
		if *amount == "" || *term == 0 {
			return printError(stderr, "--amount and --term are required")
		}
		return c.print(stdout, stderr, "POST", "/v1/bonds", map[string]interface{}{"amount": *amount, "term": *term})
	case "stats":
		return c.print(stdout, stderr, "GET", "/v1/bonds/stats", nil)
	case "authority":
		return c.print(stdout, stderr, "GET", "/v1/bonds/authority", nil)
	case "allow", "revoke":
		if len(args) != 2 {
			return printError(stderr, "usage: yieldctl bond "+args[0]+" <address>")
		}
		return c.print(stdout, stderr, "POST", "/v1/bonds/authority/"+args[0], map[string]string{"address": args[1]})
	case "show", "collect", "redeem", "combine":
		id, ok := positionID(args, stderr)
		if !ok {
			return 1
		}
		if args[0] == "show" {
			return c.print(stdout, stderr, "GET", "/v1/bonds/"+id, nil)
		}
		return c.print(stdout, stderr, "POST", "/v1/bonds/"+id+"/"+args[0], nil)
	case "yield":
		id, ok := positionID(args, stderr)
		if !ok {
			return 1
		}
		fs := newFlagSet("bond yield", stderr)
		amount := fs.String("amount", "", "yield to deposit")
		if err := fs.Parse(args[2:]); err != nil {
			return 1
		}
		if *amount == "" {
			return printError(stderr, "--amount is required")
		}
		return c.print(stdout, stderr, "POST", "/v1/bonds/"+id+"/yield", map[string]string{"amount": *amount})
	case "transfer":
		id, ok := positionID(args, stderr)
		if !ok {
			return 1
		}
		fs := newFlagSet("bond transfer", stderr)
		claim := fs.String("claim", "", "principal or yield")
		to := fs.String("to", "", "recipient address")
		if err := fs.Parse(args[2:]); err != nil {
			return 1
		}
		if *claim == "" || *to == "" {
			return printError(stderr, "--claim and --to are required")
		}
		return c.print(stdout, stderr, "POST", "/v1/bonds/"+id+"/transfer", map[string]string{"claim": *claim, "to": *to})
	default:
		fmt.Fprintf(stderr, "Unknown bond subcommand: %s\n", args[0])
		return 1
	}
}

func positionID(args []string, stderr io.Writer) (string, bool) {
	if len(args) < 2 {
		printError(stderr, "position id required")
		return "", false
	}
	id, err := strconv.ParseUint(args[1], 10, 64)
	if err != nil || id == 0 {
		printError(stderr, "position id must be a positive integer")
		return "", false
	}
	return strconv.FormatUint(id, 10), true
}

func newFlagSet(name string, stderr io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	return fs
}
