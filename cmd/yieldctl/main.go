package main

import (
	"fmt"
	"io"
	"os"
	"strings"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	api := newClient(defaultEndpoint(), strings.TrimSpace(os.Getenv("YIELD_API_TOKEN")))
	args, err := applyGlobalFlags(api, args)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	if len(args) == 0 {
		fmt.Fprintln(stderr, usage())
		return 1
	}
	switch args[0] {
	case "bond":
		return runBondCommand(api, args[1:], stdout, stderr)
	case "vault":
		return runVaultCommand(api, args[1:], stdout, stderr)
	case "balance":
		if len(args) != 2 {
			return printError(stderr, "usage: yieldctl balance <address>")
		}
		return api.print(stdout, stderr, "GET", "/v1/balances/"+args[1], nil)
	case "transfer":
		return runTransfer(api, args[1:], stdout, stderr)
	case "events":
		return runEvents(api, args[1:], stdout, stderr)
	case "pause", "resume":
		if len(args) != 2 {
			return printError(stderr, "usage: yieldctl "+args[0]+" <bonds|vault|escrow>")
		}
		return api.print(stdout, stderr, "POST", "/v1/admin/"+args[0], map[string]string{"module": args[1]})
	case "relayer":
		return api.print(stdout, stderr, "GET", "/v1/relayer/status", nil)
	case "help", "-h", "--help":
		fmt.Fprintln(stdout, usage())
		return 0
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n", args[0])
		fmt.Fprintln(stderr, usage())
		return 1
	}
}

func defaultEndpoint() string {
	if v := strings.TrimSpace(os.Getenv("YIELD_API_URL")); v != "" {
		return v
	}
	return "http://localhost:8080"
}

// applyGlobalFlags strips --api and --token from args wherever they appear.
func applyGlobalFlags(c *client, args []string) ([]string, error) {
	out := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "--api" || arg == "--token":
			if i+1 >= len(args) {
				return nil, fmt.Errorf("missing value for %s", arg)
			}
			if arg == "--api" {
				c.endpoint = args[i+1]
			} else {
				c.token = args[i+1]
			}
			i++
		case strings.HasPrefix(arg, "--api="):
			c.endpoint = strings.TrimPrefix(arg, "--api=")
		case strings.HasPrefix(arg, "--token="):
			c.token = strings.TrimPrefix(arg, "--token=")
		default:
			out = append(out, arg)
		}
	}
	return out, nil
}

func printError(stderr io.Writer, msg string) int {
	fmt.Fprintf(stderr, "Error: %s\n", msg)
	return 1
}

func usage() string {
	return strings.Join([]string{
		"Usage: yieldctl [--api URL] [--token JWT] <command> [args]",
		"",
		"Commands:",
		"  bond create --amount N --term BLOCKS",
		"  bond show <id> | stats | authority",
		"  bond yield <id> --amount N",
		"  bond collect|redeem|combine <id>",
		"  bond transfer <id> --claim principal|yield --to ADDR",
		"  bond allow|revoke <address>",
		"  vault show | audit | holder <address>",
		"  vault initialize --maturity HEIGHT",
		"  vault deposit|sync|redeem|combine --amount N",
		"  vault claim",
		"  vault transfer --claim principal|yield --to ADDR --amount N",
		"  balance <address>",
		"  transfer --to ADDR --amount N",
		"  events [--type TYPE] [--limit N]",
		"  pause|resume <module>",
		"  relayer",
		"",
		"Environment: YIELD_API_URL, YIELD_API_TOKEN",
	}, "\n")
}
