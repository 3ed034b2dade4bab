// Command mailkeepctl is the operator CLI for the mail directory.
//
//	mailkeepctl validate-address <addr>   exit 0 iff addr is a valid account address
//	mailkeepctl update                    run a reconciliation pass, print the report
//	mailkeepctl token <email>             mint an admin bearer token for the HTTP API
package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	_ "github.com/lib/pq"

	"mailkeep/internal/directory/service"
	"mailkeep/internal/directory/store/postgres"
	"mailkeep/internal/dovecot"
	"mailkeep/internal/jwtauth"
	"mailkeep/internal/platform/config"
	"mailkeep/internal/platform/logger"
	"mailkeep/pkg/address"
)

const adminTokenTTL = 24 * time.Hour

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	switch os.Args[1] {
	case "validate-address":
		if len(os.Args) != 3 {
			usage()
			os.Exit(2)
		}
		if !address.Valid(os.Args[2], address.User) {
			fmt.Fprintf(os.Stderr, "invalid account address: %s\n", os.Args[2])
			os.Exit(1)
		}
	case "update":
		if err := runUpdate(); err != nil {
			fmt.Fprintln(os.Stderr, "Error:", err)
			os.Exit(1)
		}
	case "token":
		if len(os.Args) != 3 {
			usage()
			os.Exit(2)
		}
		token, err := adminToken(config.FromEnv(), os.Args[2])
		if err != nil {
			fmt.Fprintln(os.Stderr, "Error:", err)
			os.Exit(1)
		}
		fmt.Println(token)
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: mailkeepctl validate-address <addr> | mailkeepctl update | mailkeepctl token <email>")
}

// adminToken mints a bearer token for the admin HTTP API, signed with the
// key the server validates against.
func adminToken(cfg config.Server, email string) (string, error) {
	if !address.Valid(email, address.User) {
		return "", fmt.Errorf("invalid account address: %s", email)
	}
	return jwtauth.NewService(cfg.JWTSigningKey, "mailkeep").
		GenerateToken(email, []string{"admin"}, adminTokenTTL)
}

func runUpdate() error {
	cfg := config.FromEnv()
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is not set")
	}

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	if err := postgres.EnsureSchema(ctx, db); err != nil {
		return err
	}

	doveadm := dovecot.NewClient("")
	svc := service.New(cfg.PrimaryHostname, postgres.NewUserStore(db), postgres.NewAliasStore(db), service.Collaborators{
		Hasher:    doveadm,
		Mailboxes: doveadm,
		Archive:   dovecot.NewEnumerator(cfg.StorageRoot),
	}, service.WithLogger(logger.New()))

	report, err := svc.Reconcile(ctx, "")
	if err != nil {
		return err
	}
	fmt.Print(report)
	return nil
}
