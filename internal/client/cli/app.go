// Package cli implements poolctl, the operator command line for the pool.
// Each invocation runs one command against the gRPC endpoint.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/dmitrijs2005/warrantypool/internal/client/config"
	"github.com/dmitrijs2005/warrantypool/internal/common"
	"github.com/dmitrijs2005/warrantypool/internal/poolpb"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
)

// ErrUsage is returned for unknown commands or missing arguments.
var ErrUsage = errors.New("usage error")

type PoolClient interface {
	Upload(ctx context.Context, in *poolpb.UploadRequest, opts ...grpc.CallOption) (*poolpb.UploadResponse, error)
	Renew(ctx context.Context, in *poolpb.RenewRequest, opts ...grpc.CallOption) (*poolpb.RenewResponse, error)
	Assign(ctx context.Context, in *poolpb.AssignRequest, opts ...grpc.CallOption) (*poolpb.AssignResponse, error)
	Delete(ctx context.Context, in *poolpb.AccountRequest, opts ...grpc.CallOption) error
	Update(ctx context.Context, in *poolpb.UpdateRequest, opts ...grpc.CallOption) (*poolpb.AccountResponse, error)
	Clear(ctx context.Context, in *poolpb.AccountRequest, opts ...grpc.CallOption) error
	List(ctx context.Context, opts ...grpc.CallOption) (*poolpb.ListResponse, error)
	Ping(ctx context.Context, opts ...grpc.CallOption) (*poolpb.PingResponse, error)
}

type App struct {
	config *config.Config
	client PoolClient
	conn   *grpc.ClientConn
	in     *bufio.Reader
	out    io.Writer
}

func NewApp(cfg *config.Config) (*App, error) {
	conn, err := grpc.NewClient(cfg.ServerEndpointAddr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", cfg.ServerEndpointAddr, err)
	}
	return &App{
		config: cfg,
		client: poolpb.NewPoolServiceClient(conn),
		conn:   conn,
		in:     bufio.NewReader(os.Stdin),
		out:    os.Stdout,
	}, nil
}

func (a *App) Close() error {
	if a.conn == nil {
		return nil
	}
	return a.conn.Close()
}

// callContext bounds a remote call and attaches the access token.
func (a *App) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.config.AccessToken != "" {
		ctx = metadata.AppendToOutgoingContext(ctx, common.AccessTokenHeaderName, a.config.AccessToken)
	}
	if a.config.Timeout > 0 {
		return context.WithTimeout(ctx, a.config.Timeout)
	}
	return context.WithCancel(ctx)
}

const usage = `usage: poolctl [-a addr] [-k token] [-t timeout] [-c config.json] <command> [args]

commands:
  upload -u username [-r register_date] [-e expire_date] [-session-file path]
  update <account_id> [-u username] [-r date] [-e date] [-secret] [-session-file path]
  delete <account_id>
  clear <account_id>
  list
  renew <warranty_key>
  assign <consumer_name> <expire_date>
  ping
  token -o operator [-ttl 12h]`

// Run executes the command in args.
func (a *App) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		fmt.Fprintln(a.out, usage)
		return ErrUsage
	}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "upload":
		return a.upload(ctx, rest)
	case "update":
		return a.update(ctx, rest)
	case "delete":
		return a.delete(ctx, rest)
	case "clear":
		return a.clear(ctx, rest)
	case "list":
		return a.list(ctx)
	case "renew":
		return a.renew(ctx, rest)
	case "assign":
		return a.assign(ctx, rest)
	case "ping":
		return a.ping(ctx)
	case "token":
		return a.token(rest)
	case "help", "-h", "--help":
		fmt.Fprintln(a.out, usage)
		return nil
	default:
		fmt.Fprintf(a.out, "unknown command %q\n\n%s\n", cmd, usage)
		return ErrUsage
	}
}
