package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dmitrijs2005/warrantypool/internal/common"
	"github.com/dmitrijs2005/warrantypool/internal/poolpb"
	"github.com/dmitrijs2005/warrantypool/internal/server/auth"
)

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

// parseInterspersed lets positional arguments come before flags, as in
// "update <id> -u name".
func parseInterspersed(fs *flag.FlagSet, args []string) ([]string, error) {
	var positional []string
	for {
		if err := fs.Parse(args); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUsage, err)
		}
		if fs.NArg() == 0 {
			return positional, nil
		}
		positional = append(positional, fs.Arg(0))
		args = fs.Args()[1:]
	}
}

// readSessionToken loads the token from path, or prompts for one line.
func (a *App) readSessionToken(path string) (string, error) {
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("read session token: %w", err)
		}
		return strings.TrimSpace(string(b)), nil
	}
	return GetSimpleText(a.in, "Session token (Cookie header or JSON cookie export)", a.out)
}

func (a *App) upload(ctx context.Context, args []string) error {
	fs := newFlagSet("upload")
	username := fs.String("u", "", "username")
	register := fs.String("r", "", "register date")
	expire := fs.String("e", "", "expire date")
	sessionFile := fs.String("session-file", "", "file holding the session token")
	if _, err := parseInterspersed(fs, args); err != nil {
		return err
	}
	if *username == "" {
		return fmt.Errorf("%w: upload needs -u username", ErrUsage)
	}

	secret, err := GetPassword("Account secret", a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(secret)

	session, err := a.readSessionToken(*sessionFile)
	if err != nil {
		return err
	}

	ctx, cancel := a.callContext(ctx)
	defer cancel()

	res, err := a.client.Upload(ctx, &poolpb.UploadRequest{
		Username:     *username,
		Secret:       string(secret),
		SessionToken: session,
		RegisterDate: *register,
		ExpireDate:   *expire,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "account %s uploaded, warranty key %s\n", res.AccountID, res.WarrantyKey)
	return nil
}

func (a *App) update(ctx context.Context, args []string) error {
	fs := newFlagSet("update")
	username := fs.String("u", "", "username")
	register := fs.String("r", "", "register date")
	expire := fs.String("e", "", "expire date")
	askSecret := fs.Bool("secret", false, "prompt for a new secret")
	sessionFile := fs.String("session-file", "", "file holding a new session token")
	pos, err := parseInterspersed(fs, args)
	if err != nil {
		return err
	}
	if len(pos) != 1 {
		return fmt.Errorf("%w: update needs <account_id>", ErrUsage)
	}

	req := &poolpb.UpdateRequest{AccountID: pos[0]}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "u":
			req.Username = username
		case "r":
			req.RegisterDate = register
		case "e":
			req.ExpireDate = expire
		}
	})
	if *askSecret {
		secret, err := GetPassword("New account secret", a.out)
		if err != nil {
			return err
		}
		s := string(secret)
		common.WipeByteArray(secret)
		req.Secret = &s
	}
	if *sessionFile != "" {
		session, err := a.readSessionToken(*sessionFile)
		if err != nil {
			return err
		}
		req.SessionToken = &session
	}

	ctx, cancel := a.callContext(ctx)
	defer cancel()

	res, err := a.client.Update(ctx, req)
	if err != nil {
		return err
	}
	a.printAccounts([]*poolpb.Account{res.Account})
	return nil
}

func (a *App) delete(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: delete needs <account_id>", ErrUsage)
	}

	ctx, cancel := a.callContext(ctx)
	defer cancel()

	if err := a.client.Delete(ctx, &poolpb.AccountRequest{AccountID: args[0]}); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "account %s deleted\n", args[0])
	return nil
}

func (a *App) clear(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: clear needs <account_id>", ErrUsage)
	}

	ctx, cancel := a.callContext(ctx)
	defer cancel()

	if err := a.client.Clear(ctx, &poolpb.AccountRequest{AccountID: args[0]}); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "account %s cleared\n", args[0])
	return nil
}

func (a *App) list(ctx context.Context) error {
	ctx, cancel := a.callContext(ctx)
	defer cancel()

	res, err := a.client.List(ctx)
	if err != nil {
		return err
	}
	if len(res.Accounts) == 0 {
		fmt.Fprintln(a.out, "no accounts")
		return nil
	}
	a.printAccounts(res.Accounts)
	return nil
}

func (a *App) renew(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: renew needs <warranty_key>", ErrUsage)
	}

	ctx, cancel := a.callContext(ctx)
	defer cancel()

	res, err := a.client.Renew(ctx, &poolpb.RenewRequest{WarrantyKey: args[0]})
	if err != nil {
		return err
	}
	a.printResult(res.Status, res.Account)
	return nil
}

func (a *App) assign(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("%w: assign needs <consumer_name> <expire_date>", ErrUsage)
	}

	ctx, cancel := a.callContext(ctx)
	defer cancel()

	res, err := a.client.Assign(ctx, &poolpb.AssignRequest{ConsumerName: args[0], ExpireDate: args[1]})
	if err != nil {
		return err
	}
	a.printResult(res.Status, res.Account)
	return nil
}

func (a *App) ping(ctx context.Context) error {
	ctx, cancel := a.callContext(ctx)
	defer cancel()

	res, err := a.client.Ping(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, res.Status)
	return nil
}

// token mints an operator token locally from the server's secret key.
func (a *App) token(args []string) error {
	fs := newFlagSet("token")
	operator := fs.String("o", "", "operator name")
	ttl := fs.Duration("ttl", 12*time.Hour, "token validity")
	if _, err := parseInterspersed(fs, args); err != nil {
		return err
	}
	if *operator == "" {
		return fmt.Errorf("%w: token needs -o operator", ErrUsage)
	}

	secret, err := GetPassword("Server secret key", a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(secret)

	tok, err := auth.GenerateToken(*operator, secret, *ttl)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, tok)
	return nil
}

func (a *App) printResult(status string, acc *poolpb.Account) {
	fmt.Fprintf(a.out, "status: %s\n", status)
	if acc == nil {
		return
	}
	fmt.Fprintf(a.out, "username: %s\nsecret: %s\nregistered: %s\nexpires: %s\nwarranty key: %s\n",
		acc.Username, acc.Secret, acc.RegisterDate, acc.ExpireDate, acc.WarrantyKey)
}

func (a *App) printAccounts(list []*poolpb.Account) {
	w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tUSERNAME\tREGISTERED\tEXPIRES\tWARRANTY KEY")
	for _, acc := range list {
		if acc == nil {
			continue
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", acc.ID, acc.Username, dash(acc.RegisterDate), dash(acc.ExpireDate), acc.WarrantyKey)
	}
	_ = w.Flush()
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
