// Command seed creates a helpdesk account with an explicit role set, or with
// --grant adds roles to an existing account.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/app"
	"github.com/spec-kit/helpdesk/internal/config"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/observability"
	"github.com/spec-kit/helpdesk/internal/service"
)

type seedOptions struct {
	input service.UserInput
	roles []domain.Role
	grant bool
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	opts, err := parseFlags(args)
	if err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cfg.Postgres.DSN == "" {
		return errors.New("POSTGRES_DSN is required; the in-memory store does not outlive this process")
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	ctx := context.Background()
	helpdesk, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer helpdesk.Close()

	if opts.grant {
		user, err := helpdesk.Auth.GrantRoles(ctx, opts.input.Email, opts.roles...)
		if err != nil {
			return err
		}
		logger.Info("granted roles",
			zap.String("user_id", user.ID),
			zap.Strings("roles", user.RoleSet().Strings()),
		)
		return nil
	}

	user, err := helpdesk.Auth.CreateUser(ctx, opts.input, opts.roles...)
	if err != nil {
		return err
	}
	logger.Info("seeded user",
		zap.String("user_id", user.ID),
		zap.String("email", user.Email),
		zap.Strings("roles", user.RoleSet().Strings()),
	)
	return nil
}

func parseFlags(args []string) (seedOptions, error) {
	var (
		opts     seedOptions
		rawRoles []string
	)
	flagSet := pflag.NewFlagSet("seed", pflag.ContinueOnError)
	flagSet.StringVar(&opts.input.Email, "email", "", "account email (required)")
	flagSet.StringVar(&opts.input.Password, "password", "", "account password (required)")
	flagSet.StringVar(&opts.input.FirstName, "first-name", "", "first name")
	flagSet.StringVar(&opts.input.LastName, "last-name", "", "last name")
	flagSet.StringSliceVar(&rawRoles, "roles", nil, "extra roles: TECHNICIAN, ADMIN (USER is implied)")
	flagSet.BoolVar(&opts.grant, "grant", false, "add --roles to the existing account with --email")

	if err := flagSet.Parse(args); err != nil {
		return opts, err
	}
	if extra := flagSet.Args(); len(extra) > 0 {
		return opts, fmt.Errorf("unexpected argument: %s", extra[0])
	}
	if strings.TrimSpace(opts.input.Email) == "" {
		return opts, errors.New("--email is required")
	}
	for _, raw := range rawRoles {
		role, err := domain.ParseRole(raw)
		if err != nil {
			return opts, err
		}
		opts.roles = append(opts.roles, role)
	}
	switch {
	case opts.grant && len(opts.roles) == 0:
		return opts, errors.New("--grant needs at least one role in --roles")
	case !opts.grant && opts.input.Password == "":
		return opts, errors.New("--password is required")
	}
	return opts, nil
}
