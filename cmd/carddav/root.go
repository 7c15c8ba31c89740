package main

import (
	"net/http"
	"os"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/davsync/go-webdav"
	"github.com/davsync/go-webdav/carddav"
	"github.com/davsync/go-webdav/internal/config"
	"github.com/davsync/go-webdav/internal/logging"
)

type Context struct {
	Config *config.Config
	Logger zerolog.Logger
}

type CreateFunc func(ctx *Context) *cobra.Command

var cmds []CreateFunc

func register(cr CreateFunc) {
	cmds = append(cmds, cr)
}

func newRoot() *cobra.Command {
	ctx := &Context{Logger: zerolog.Nop()}

	var url, username, logLevel string
	rootCmd := &cobra.Command{
		Use:          "carddav",
		Short:        "CardDAV synchronization client",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVarP(&url, "url", "u", "", "address book URL (overrides CARDDAV_URL)")
	rootCmd.PersistentFlags().StringVar(&username, "username", "", "user name (overrides CARDDAV_USERNAME)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (overrides CARDDAV_LOG_LEVEL)")

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		conf, err := config.Parse()
		if err != nil {
			return err
		}
		if url != "" {
			conf.URL = url
		}
		if username != "" {
			conf.Username = username
		}
		if logLevel != "" {
			conf.LogLevel = logLevel
		}
		ctx.Config = conf
		ctx.Logger = logging.New(os.Stderr, conf.LogLevel)
		return nil
	}

	for _, cr := range cmds {
		rootCmd.AddCommand(cr(ctx))
	}
	return rootCmd
}

// NewClient builds a client for endpoint, or for the configured URL if
// endpoint is empty.
func (ctx *Context) NewClient(endpoint string) (*carddav.Client, error) {
	if endpoint == "" {
		endpoint = ctx.Config.URL
	}
	if endpoint == "" {
		return nil, errors.New("no address book URL, set CARDDAV_URL or --url")
	}

	var hc webdav.HTTPClient = &http.Client{Timeout: ctx.Config.Timeout}
	if ctx.Config.Username != "" {
		hc = webdav.HTTPClientWithBasicAuth(hc, ctx.Config.Username, ctx.Config.Password)
	}

	c, err := carddav.NewClient(hc, endpoint,
		carddav.WithLogger(ctx.Logger),
		carddav.WithNoneETagQuirk(ctx.Config.NoneETagQuirk),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create client")
	}
	return c, nil
}

func parseIDs(c *carddav.Client, hrefs []string) ([]carddav.ResourceID, error) {
	ids := make([]carddav.ResourceID, 0, len(hrefs))
	for _, href := range hrefs {
		id, err := carddav.NewResourceID(c.Endpoint(), href)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
