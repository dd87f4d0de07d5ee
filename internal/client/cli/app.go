package cli

import (
	"bufio"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/driftlabs/driftfile/internal/client/config"
	"github.com/driftlabs/driftfile/internal/client/transfer"
	"github.com/driftlabs/driftfile/internal/common"
	"github.com/driftlabs/driftfile/internal/filex"
	"github.com/driftlabs/driftfile/internal/protocol"
)

// uploader is the slice of the transfer client the app needs.
// Tests swap in a fake to run without a server.
type uploader interface {
	Upload(ctx context.Context, r io.Reader, opts transfer.Options) (*protocol.Grant, error)
}

// getSimpleText and getToken are indirections used to facilitate testing.
// They point to interactive input helpers and can be swapped in tests.
var getSimpleText = GetSimpleText
var getToken = GetToken

type App struct {
	config *config.Config
	client uploader
	reader *bufio.Reader
	out    io.Writer
}

func NewApp(c *config.Config) (*App, error) {
	if c.ServerURL == "" {
		return nil, errors.New("server url is required")
	}
	return &App{
		config: c,
		client: transfer.NewClient(c.ServerURL),
		reader: bufio.NewReader(os.Stdin),
		out:    os.Stdout,
	}, nil
}

// Run uploads the configured file and prints the share link together with
// the owner token. When no file path was configured it prompts for one.
//
// A bearer token is resolved in this order: the -b flag, then an
// interactive no-echo prompt when -p was given. The prompted token is
// wiped after the handshake options are built.
func (a *App) Run(ctx context.Context) error {
	path := a.config.FilePath
	if path == "" {
		p, err := getSimpleText(a.reader, "File to upload", a.out)
		if err != nil {
			return err
		}
		path = p
	}

	bearer := a.config.Bearer
	if a.config.PromptBearer {
		token, err := getToken(a.out)
		if err != nil {
			return err
		}
		bearer = string(token)
		common.WipeByteArray(token)
	}

	if !filex.FileExists(path) {
		return fmt.Errorf("%s is not a regular file", path)
	}
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("cannot open %s: %w", path, err)
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return err
	}

	metadata := a.config.Metadata
	if metadata == "" {
		metadata = defaultMetadata(filepath.Base(path))
	}

	grant, err := a.client.Upload(ctx, f, transfer.Options{
		Metadata:      metadata,
		Authorization: a.config.Authorization,
		Bearer:        bearer,
		FileSize:      fi.Size(),
		TimeLimit:     a.config.TimeLimit,
		DownloadLimit: a.config.DownloadLimit,
		Encrypted:     a.config.Encrypted,
	})
	if err != nil {
		if grant != nil {
			fmt.Fprintf(a.out, "Upload interrupted, link may be incomplete: %s\n", grant.URL)
		}
		return err
	}

	fmt.Fprintf(a.out, "Share link: %s\n", grant.URL)
	fmt.Fprintf(a.out, "Owner token: %s\n", grant.OwnerToken)
	return nil
}

// defaultMetadata builds the metadata blob uploaded when the user gave
// none: base64 over a JSON document carrying the file name.
func defaultMetadata(name string) string {
	b, _ := json.Marshal(map[string]string{"name": name})
	return base64.StdEncoding.EncodeToString(b)
}
