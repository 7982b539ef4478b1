// Command opsctl mints credentials for the transaction processor ops API.
//
//	opsctl apikey              print a new API key and the hash for OPS_API_KEY_HASH
//	opsctl token -sub alice    print a bearer token signed with JWT_SECRET
package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/SscSPs/txn_processor/internal/platform/config"
	"github.com/SscSPs/txn_processor/internal/utils"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	if err := run(os.Args[1:], os.Stdout); err != nil {
		logger.Error("opsctl failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: opsctl <apikey|token> [flags]")
	}

	switch args[0] {
	case "apikey":
		key, hash, err := utils.GenerateAPIKey()
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "api key:          %s\nOPS_API_KEY_HASH: %s\n", key, hash)
		return nil

	case "token":
		fs := flag.NewFlagSet("token", flag.ContinueOnError)
		fs.SetOutput(out)
		subject := fs.String("sub", "", "operator the token is issued to")
		ttl := fs.Duration("ttl", time.Hour, "token lifetime")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		if *subject == "" {
			return fmt.Errorf("-sub is required")
		}

		cfg, err := config.LoadConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		token, err := utils.GenerateJWT(*subject, cfg.JWTSecret, *ttl, cfg.JWTIssuer)
		if err != nil {
			return fmt.Errorf("failed to sign token: %w", err)
		}
		fmt.Fprintln(out, token)
		return nil

	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
}
