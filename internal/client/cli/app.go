package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/dmitrijs2005/ledgerd/internal/client/client"
	"github.com/dmitrijs2005/ledgerd/internal/client/config"
	"github.com/dmitrijs2005/ledgerd/internal/netx"
)

// download is a test seam for netx.DownloadPresignedURL.
var download = netx.DownloadPresignedURL

// saveToArg is consumed by the client: export_records save_to=<path> writes
// the exported file locally.
const saveToArg = "save_to"

// errToolFailed marks a call whose envelope carried status "error".
var errToolFailed = errors.New("tool failed")

type App struct {
	config   *config.Config
	client   client.Client
	userName string
	in       io.Reader
	out      io.Writer
}

func NewApp(c *config.Config) (*App, error) {

	apiClient, err := client.NewToolsClient(c.ServerEndpointAddr)
	if err != nil {
		return nil, err
	}
	if c.AccessToken != "" {
		apiClient.SetAccessToken(c.AccessToken)
	}

	return &App{config: c, client: apiClient, in: os.Stdin, out: os.Stdout}, nil
}

// Run executes one tool when args name one and starts the prompt otherwise.
// It returns the process exit code.
func (a *App) Run(ctx context.Context, args []string) int {
	defer a.client.Close()

	if len(args) == 0 {
		a.Root(ctx, bufio.NewScanner(a.in))
		return 0
	}

	if err := a.Exec(ctx, args[0], args[1:]); err != nil {
		if !errors.Is(err, errToolFailed) {
			fmt.Fprintln(a.out, "error:", err)
		}
		return 1
	}
	return 0
}

// Exec calls tool with key=value pairs and prints the result.
func (a *App) Exec(ctx context.Context, tool string, pairs []string) error {
	args, err := ParseArgs(pairs)
	if err != nil {
		return err
	}
	if err := promptSecrets(a.out, tool, args); err != nil {
		return err
	}
	saveTo, _ := args[saveToArg].(string)
	delete(args, saveToArg)

	ctx, cancel := context.WithTimeout(ctx, a.config.CallTimeout)
	defer cancel()

	res, err := a.client.Call(ctx, tool, args)
	if err != nil {
		return err
	}

	a.remember(res)

	b, err := json.MarshalIndent(map[string]any{"result": res}, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, string(b))

	if res["status"] != "success" {
		return errToolFailed
	}
	if saveTo != "" {
		return a.save(ctx, res, saveTo)
	}
	return nil
}

func (a *App) save(ctx context.Context, res map[string]any, path string) error {
	url, ok := res["url"].(string)
	if !ok || url == "" {
		return errors.New("nothing to save: result has no url")
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := download(ctx, url, f); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	fmt.Fprintln(a.out, "saved to", path)
	return nil
}

// remember keeps the session token of a successful register or login so the
// following calls at the prompt are authenticated.
func (a *App) remember(res map[string]any) {
	token, ok := res["token"].(string)
	if !ok || token == "" || res["status"] != "success" {
		return
	}
	a.client.SetAccessToken(token)
	if name, ok := res["username"].(string); ok {
		a.userName = name
	}
}
