// Package main provides a command-line front end for the authgate API.
// Each subcommand drives the same form state the browser screens use.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ayush/authgate/internal/client"
	"github.com/ayush/authgate/internal/form"
)

const defaultServer = "http://localhost:8080"

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: authctl [-server URL] <command> [flags]

Commands:
  login         log in and print the token
  register      create an account (-mode direct|code|link)
  send-code     mail a verification code and link
  verify-code   verify an address with a mailed code
  verify-email  verify an address with a mailed link token
  me            show the account behind a token
  users         list all accounts
`)
	flag.PrintDefaults()
}

func main() {
	server := flag.String("server", defaultServer, "authgate server URL")
	flag.Usage = usage
	flag.Parse()
	if flag.NArg() < 1 {
		usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := client.New(*server)
	cmd, args := flag.Arg(0), flag.Args()[1:]

	var err error
	switch cmd {
	case "login":
		err = runLogin(ctx, c, args)
	case "register":
		err = runRegister(ctx, c, args)
	case "send-code":
		err = runSendCode(ctx, c, args)
	case "verify-code":
		err = runVerifyCode(ctx, c, args)
	case "verify-email":
		err = runVerifyEmail(ctx, c, args)
	case "me":
		err = runMe(ctx, c, args)
	case "users":
		err = runUsers(ctx, c, args)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", cmd)
		usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runLogin(ctx context.Context, c *client.Client, args []string) error {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password")
	greet := fs.Bool("greet", false, "load the landing page after logging in")
	fs.Parse(args)

	f := form.NewLoginForm(c)
	f.Set(form.FieldEmail, *email)
	f.Set(form.FieldPassword, *password)
	if err := f.Submit(ctx); err != nil {
		return err
	}
	st := f.State()
	if st.Status != form.Succeeded {
		return fmt.Errorf("%s", st.Message)
	}
	fmt.Println(st.Message)
	fmt.Println(st.Token)

	if *greet {
		landing, err := form.LandingFromLogin(c, st)
		if err != nil {
			return err
		}
		if err := landing.Load(ctx); err != nil {
			return err
		}
		fmt.Println(landing.Greeting())
	}
	return nil
}

func parseMode(s string) (form.Mode, error) {
	switch s {
	case "direct":
		return form.ModeDirect, nil
	case "code":
		return form.ModeCode, nil
	case "link":
		return form.ModeLink, nil
	default:
		return 0, fmt.Errorf("unknown mode %q (want direct, code or link)", s)
	}
}

func runRegister(ctx context.Context, c *client.Client, args []string) error {
	fs := flag.NewFlagSet("register", flag.ExitOnError)
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "new password")
	confirm := fs.String("confirm", "", "password confirmation")
	modeFlag := fs.String("mode", "code", "verification mode: direct, code or link")
	code := fs.String("code", "", "verification code (code mode)")
	fs.Parse(args)

	mode, err := parseMode(*modeFlag)
	if err != nil {
		return err
	}
	f := form.NewRegisterForm(c, mode)
	f.Set(form.FieldEmail, *email)
	f.Set(form.FieldPassword, *password)
	f.Set(form.FieldPasswordConfirm, *confirm)

	switch mode {
	case form.ModeCode:
		if *code == "" {
			return fmt.Errorf("-code is required in code mode; run send-code first")
		}
		f.Set(form.FieldCode, *code)
		if err := f.VerifyCode(ctx); err != nil {
			return err
		}
		if st := f.State(); !st.Verified {
			return fmt.Errorf("%s", st.FieldErrors[form.FieldCode])
		}
	case form.ModeLink:
		if err := f.SendCode(ctx); err != nil {
			return err
		}
		st := f.State()
		if !st.CodeSent {
			return fmt.Errorf("%s", st.FieldErrors[form.FieldEmail])
		}
		fmt.Println(st.Success)
		fmt.Print("Press Enter once the link has been opened... ")
		bufio.NewReader(os.Stdin).ReadString('\n')
	}

	if err := f.Submit(ctx); err != nil {
		return err
	}
	st := f.State()
	if st.Status != form.Succeeded {
		for field, msg := range st.FieldErrors {
			fmt.Fprintf(os.Stderr, "  %s: %s\n", field, msg)
		}
		return fmt.Errorf("%s", st.Error)
	}
	fmt.Println(st.Success)
	return nil
}

func runSendCode(ctx context.Context, c *client.Client, args []string) error {
	fs := flag.NewFlagSet("send-code", flag.ExitOnError)
	email := fs.String("email", "", "address to verify")
	fs.Parse(args)

	f := form.NewRegisterForm(c, form.ModeCode)
	f.Set(form.FieldEmail, *email)
	if err := f.SendCode(ctx); err != nil {
		return err
	}
	st := f.State()
	if !st.CodeSent {
		return fmt.Errorf("%s", st.FieldErrors[form.FieldEmail])
	}
	fmt.Println(st.Success)
	return nil
}

func runVerifyCode(ctx context.Context, c *client.Client, args []string) error {
	fs := flag.NewFlagSet("verify-code", flag.ExitOnError)
	email := fs.String("email", "", "address being verified")
	code := fs.String("code", "", "six-digit code from the mail")
	fs.Parse(args)

	f := form.NewRegisterForm(c, form.ModeCode)
	f.Set(form.FieldEmail, *email)
	f.Set(form.FieldCode, *code)
	if err := f.VerifyCode(ctx); err != nil {
		return err
	}
	st := f.State()
	if !st.Verified {
		return fmt.Errorf("%s", st.FieldErrors[form.FieldCode])
	}
	fmt.Println(st.Success)
	return nil
}

func runVerifyEmail(ctx context.Context, c *client.Client, args []string) error {
	fs := flag.NewFlagSet("verify-email", flag.ExitOnError)
	token := fs.String("token", "", "token from the mailed link")
	fs.Parse(args)
	if *token == "" {
		return fmt.Errorf("-token is required")
	}

	msg, err := c.VerifyEmail(ctx, *token)
	if err != nil {
		return err
	}
	fmt.Println(msg)
	return nil
}

func tokenFlag(fs *flag.FlagSet) *string {
	return fs.String("token", os.Getenv("AUTHGATE_TOKEN"), "login token (default $AUTHGATE_TOKEN)")
}

func runMe(ctx context.Context, c *client.Client, args []string) error {
	fs := flag.NewFlagSet("me", flag.ExitOnError)
	token := tokenFlag(fs)
	fs.Parse(args)

	landing := form.NewLanding(c, *token)
	if err := landing.Load(ctx); err != nil {
		return err
	}
	if landing.Status() != form.Succeeded {
		return fmt.Errorf("%s", landing.Greeting())
	}
	u := landing.User()
	fmt.Println(landing.Greeting())
	fmt.Printf("id:       %s\n", u.ID)
	fmt.Printf("verified: %t\n", u.Verified)
	fmt.Printf("created:  %s\n", u.CreatedAt.Format("2006-01-02 15:04:05"))
	return nil
}

func runUsers(ctx context.Context, c *client.Client, args []string) error {
	fs := flag.NewFlagSet("users", flag.ExitOnError)
	token := tokenFlag(fs)
	fs.Parse(args)

	users, err := c.Users(ctx, *token)
	if err != nil {
		return err
	}
	for _, u := range users {
		status := "pending"
		if u.Verified {
			status = "verified"
		}
		fmt.Printf("%-36s  %-8s  %s\n", u.ID, status, u.Email)
	}
	return nil
}
