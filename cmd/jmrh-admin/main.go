// Package main is the entry point for the JMRH admin CLI.
// This tool manages accounts, papers and the CLI session directly against
// the configured snapshot backend.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/prn-tf/jmrh-portal/internal/auth"
	"github.com/prn-tf/jmrh-portal/internal/config"
	"github.com/prn-tf/jmrh-portal/internal/domain"
	"github.com/prn-tf/jmrh-portal/internal/lifecycle"
	"github.com/prn-tf/jmrh-portal/internal/pkg/crypto"
	"github.com/prn-tf/jmrh-portal/internal/repository/factory"
	"github.com/prn-tf/jmrh-portal/internal/service"
	"github.com/prn-tf/jmrh-portal/internal/store"
)

// Version information (set at build time)
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	_ = godotenv.Load()

	command, args := os.Args[1], os.Args[2:]

	var err error
	switch command {
	case "version":
		fmt.Printf("JMRH Admin CLI\n")
		fmt.Printf("Version: %s\n", Version)
		fmt.Printf("Build Time: %s\n", BuildTime)
		fmt.Printf("Git Commit: %s\n", GitCommit)

	case "secret":
		var secret string
		secret, err = crypto.GenerateSessionSecret()
		if err == nil {
			fmt.Println(secret)
		}

	case "user":
		err = withStore(args, userCommand)

	case "professor":
		err = withStore(args, professorCommand)

	case "session":
		err = withStore(args, sessionCommand)

	case "paper":
		err = withStore(args, paperCommand)

	case "export":
		err = withStore(args, exportCommand)

	case "help", "-h", "--help":
		printUsage()

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// env is what every store-backed command receives.
type env struct {
	ctx   context.Context
	cfg   *config.Config
	store *store.Store
	args  []string
}

// withStore opens the configured backend, loads the snapshot and runs fn.
// A leading --config flag selects the config file.
func withStore(args []string, fn func(e env) error) error {
	fs := flag.NewFlagSet("jmrh-admin", flag.ContinueOnError)
	configPath := fs.String("config", "", "path to config file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		Level(zerolog.WarnLevel).
		With().Timestamp().Str("component", "admin-cli").Logger()

	ctx := context.Background()
	backend, err := factory.Open(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer backend.Close()

	mode := lifecycle.Permissive
	if cfg.Lifecycle.Strict {
		mode = lifecycle.Strict
	}
	st := store.New(backend.Snapshots, backend.Locker, logger, store.Config{
		Name: cfg.Database.Snapshot,
		Mode: mode,
	}, nil)
	if err := st.Load(ctx); err != nil {
		return err
	}

	return fn(env{ctx: ctx, cfg: cfg, store: st, args: fs.Args()})
}

func subcommand(e env) (string, []string) {
	if len(e.args) == 0 {
		return "", nil
	}
	return e.args[0], e.args[1:]
}

// =============================================================================
// Users
// =============================================================================

func userCommand(e env) error {
	sub, args := subcommand(e)
	switch sub {
	case "list":
		return printUsers(e.store.Users())

	case "create":
		fs := flag.NewFlagSet("user create", flag.ContinueOnError)
		name := fs.String("name", "", "display name")
		email := fs.String("email", "", "email address")
		password := fs.String("password", "", "web sign-in password (optional)")
		if err := fs.Parse(args); err != nil {
			return err
		}
		u, err := createAccount(e, domain.RoleUser, *name, *email, *password)
		if err != nil {
			return err
		}
		fmt.Printf("Created user %s (%s)\n", u.ID, u.Email)
		return nil

	case "ban", "unban":
		fs := flag.NewFlagSet("user "+sub, flag.ContinueOnError)
		id := fs.String("id", "", "user id")
		if err := fs.Parse(args); err != nil {
			return err
		}
		var (
			u   domain.User
			err error
		)
		if sub == "ban" {
			u, err = e.store.BanUser(e.ctx, *id)
		} else {
			u, err = e.store.UnbanUser(e.ctx, *id)
		}
		if err != nil {
			return err
		}
		fmt.Printf("%s is now %s\n", u.Email, u.Status)
		return nil

	case "seed-admin":
		admin := e.cfg.Auth.Admin
		if admin.Email == "" {
			return errors.New("auth.admin.email and auth.admin.password are not configured")
		}
		accounts := service.NewAccountService(e.store, zerolog.Nop(), e.cfg.Auth.BcryptCost)
		u, created, err := accounts.EnsureAdmin(e.ctx, admin.Name, admin.Email, admin.Password)
		if err != nil {
			return err
		}
		fmt.Printf("Admin %s ready (created: %t)\n", u.Email, created)
		return nil
	}
	return fmt.Errorf("usage: jmrh-admin user [list|create|ban|unban|seed-admin]")
}

func professorCommand(e env) error {
	sub, args := subcommand(e)
	switch sub {
	case "list":
		return printUsers(e.store.Professors())

	case "create":
		fs := flag.NewFlagSet("professor create", flag.ContinueOnError)
		name := fs.String("name", "", "display name")
		email := fs.String("email", "", "email address")
		password := fs.String("password", "", "initial password (generated when empty)")
		if err := fs.Parse(args); err != nil {
			return err
		}

		pw := *password
		if pw == "" {
			generated, err := crypto.GeneratePassword(crypto.DefaultPasswordLength)
			if err != nil {
				return err
			}
			pw = generated
		}

		u, err := createAccount(e, domain.RoleProfessor, *name, *email, pw)
		if err != nil {
			return err
		}
		fmt.Printf("Created professor %s (%s)\n", u.ID, u.Email)
		if *password == "" {
			fmt.Printf("Initial password: %s\n", pw)
		}
		return nil
	}
	return fmt.Errorf("usage: jmrh-admin professor [list|create]")
}

func createAccount(e env, role domain.Role, name, email, password string) (domain.User, error) {
	if name == "" || email == "" {
		return domain.User{}, errors.New("--name and --email are required")
	}

	var hash string
	if password != "" {
		var err error
		hash, err = auth.HashPassword(password, e.cfg.Auth.BcryptCost)
		if err != nil {
			return domain.User{}, err
		}
	}
	return e.store.CreateAccount(e.ctx, store.NewAccount{
		Name:         name,
		Email:        email,
		Role:         role,
		PasswordHash: hash,
	})
}

func printUsers(users []domain.User) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tEMAIL\tROLE\tSTATUS\tCREATED")
	for _, u := range users {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", u.ID, u.Name, u.Email, u.Role, u.Status, u.CreatedAt.Format(time.RFC3339))
	}
	return w.Flush()
}

// =============================================================================
// Session
// =============================================================================

func sessionCommand(e env) error {
	sub, args := subcommand(e)
	switch sub {
	case "show":
		if u := e.store.CurrentUser(); u != nil {
			fmt.Printf("%s %s (%s)\n", u.ID, u.Email, u.Role)
		} else {
			fmt.Println("No current user")
		}
		return nil

	case "set":
		fs := flag.NewFlagSet("session set", flag.ContinueOnError)
		id := fs.String("id", "", "user id")
		if err := fs.Parse(args); err != nil {
			return err
		}
		u, ok := e.store.UserByID(*id)
		if !ok {
			return domain.NewDomainError(domain.ErrUserNotFound, "", *id)
		}
		return e.store.SetCurrentUser(e.ctx, &u)

	case "clear":
		return e.store.SetCurrentUser(e.ctx, nil)
	}
	return fmt.Errorf("usage: jmrh-admin session [show|set|clear]")
}

// =============================================================================
// Papers
// =============================================================================

func paperCommand(e env) error {
	sub, args := subcommand(e)
	switch sub {
	case "list":
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tTITLE\tAUTHOR\tSTATUS\tREVIEWER")
		for _, p := range e.store.Papers() {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", p.ID, p.Title, p.AuthorName, p.Status, p.AssignedProfessorID)
		}
		return w.Flush()

	case "submit":
		fs := flag.NewFlagSet("paper submit", flag.ContinueOnError)
		title := fs.String("title", "", "paper title")
		abstract := fs.String("abstract", "", "abstract")
		discipline := fs.String("discipline", "", "discipline")
		if err := fs.Parse(args); err != nil {
			return err
		}
		p, err := e.store.SubmitPaper(e.ctx, *title, *abstract, *discipline)
		if err != nil {
			return err
		}
		fmt.Printf("Submitted paper %s\n", p.ID)
		return nil

	case "assign":
		fs := flag.NewFlagSet("paper assign", flag.ContinueOnError)
		paperID := fs.String("paper", "", "paper id")
		professorID := fs.String("professor", "", "professor id")
		if err := fs.Parse(args); err != nil {
			return err
		}
		p, err := e.store.AssignPaper(e.ctx, *paperID, *professorID)
		if err != nil {
			return err
		}
		fmt.Printf("Paper %s is %s\n", p.ID, p.Status)
		return nil

	case "status":
		fs := flag.NewFlagSet("paper status", flag.ContinueOnError)
		paperID := fs.String("paper", "", "paper id")
		status := fs.String("status", "", "new status")
		comments := fs.String("comments", "", "reviewer comments")
		if err := fs.Parse(args); err != nil {
			return err
		}
		p, err := e.store.UpdatePaperStatus(e.ctx, *paperID, domain.PaperStatus(*status), *comments)
		if err != nil {
			return err
		}
		fmt.Printf("Paper %s is %s\n", p.ID, p.Status)
		return nil
	}
	return fmt.Errorf("usage: jmrh-admin paper [list|submit|assign|status]")
}

// exportCommand writes the paper workbook as the current (admin) user.
func exportCommand(e env) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	out := fs.String("out", "", "output file (default: generated name)")
	if err := fs.Parse(e.args); err != nil {
		return err
	}

	path := *out
	if path == "" {
		path = service.ExportFilename(time.Now())
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	n, err := service.NewExportService(e.store, zerolog.Nop()).WritePapers(e.store.CurrentUser(), f)
	if err != nil {
		return err
	}
	fmt.Printf("Exported %d papers to %s\n", n, path)
	return nil
}

func printUsage() {
	fmt.Println(`JMRH Admin CLI

Usage:
  jmrh-admin <command> [--config path] [arguments]

Commands:
  user        Manage accounts (list, create, ban, unban, seed-admin)
  professor   Manage reviewers (list, create)
  session     Show or change the CLI session user (show, set, clear)
  paper       Manage papers as the session user (list, submit, assign, status)
  export      Write all papers to an Excel workbook (session user must be ADMIN)
  secret      Generate a value for auth.session_secret
  version     Print version information
  help        Show this help message

Examples:
  jmrh-admin user create --name "Ada Lovelace" --email ada@example.org
  jmrh-admin professor create --name "Emmy Noether" --email noether@example.org
  jmrh-admin session set --id <user-id>
  jmrh-admin paper submit --title "On Engines" --abstract "..." --discipline Computing
  jmrh-admin paper assign --paper <paper-id> --professor <user-id>
  jmrh-admin export --out papers.xlsx`)
}
