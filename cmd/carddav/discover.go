package main

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/davsync/go-webdav/carddav"
)

type discoverArgs struct {
	wellKnown bool
	srv       string
}

func newDiscoverCmd(c *Context) *cobra.Command {
	args := &discoverArgs{}
	subc := &cobra.Command{
		Use:   "discover",
		Short: "List the address books of the current user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed("well-known") {
				args.wellKnown = c.Config.WellKnown
			}
			return onRunDiscover(cmd, c, args)
		},
	}
	subc.Flags().BoolVar(&args.wellKnown, "well-known", false, "start discovery at /.well-known/carddav")
	subc.Flags().StringVar(&args.srv, "srv", "", "look up the server with DNS SRV records for this domain")
	return subc
}

func onRunDiscover(cmd *cobra.Command, c *Context, args *discoverArgs) error {
	ctx := cmd.Context()

	var endpoint string
	if args.srv != "" {
		u, err := carddav.Discover(ctx, args.srv)
		if err != nil {
			return errors.Wrapf(err, "discover server for %q", args.srv)
		}
		c.Logger.Info().Str("domain", args.srv).Str("url", u).Msg("found server")
		endpoint = u
		args.wellKnown = true
	}

	client, err := c.NewClient(endpoint)
	if err != nil {
		return err
	}
	abs, err := client.DiscoverAddressBooks(ctx, args.wellKnown)
	if err != nil {
		return errors.Wrap(err, "discover address books")
	}
	for _, ab := range abs {
		fmt.Fprintf(cmd.OutOrStdout(), "%v\t%v\n", ab.URL, ab.Name)
	}
	c.Logger.Info().Int("count", len(abs)).Msg("discovery done")
	return nil
}

func newSupportedCmd(c *Context) *cobra.Command {
	return &cobra.Command{
		Use:   "supported",
		Short: "Check that the URL is a CardDAV address book",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := c.NewClient("")
			if err != nil {
				return err
			}
			supported, err := client.IsAddressBookAccessSupported(cmd.Context())
			if err != nil {
				return errors.Wrap(err, "check address book access")
			}
			isAddressBook, err := client.IsResourceAddressBook(cmd.Context())
			if err != nil {
				return errors.Wrap(err, "check resource type")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "addressbook access: %v\naddress book: %v\n", supported, isAddressBook)
			return nil
		},
	}
}

func init() {
	register(newDiscoverCmd)
	register(newSupportedCmd)
}
