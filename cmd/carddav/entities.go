package main

import (
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/davsync/go-webdav/carddav"
)

func newVersionsCmd(c *Context) *cobra.Command {
	return &cobra.Command{
		Use:   "versions [href...]",
		Short: "List contact versions, all of them if no href is given",
		RunE: func(cmd *cobra.Command, hrefs []string) error {
			client, err := c.NewClient("")
			if err != nil {
				return err
			}

			var l []carddav.EntityVersion
			if len(hrefs) == 0 {
				l, err = client.ListAllVersions(cmd.Context())
			} else {
				var ids []carddav.ResourceID
				if ids, err = parseIDs(client, hrefs); err != nil {
					return err
				}
				l, err = client.ListVersions(cmd.Context(), ids)
			}
			if err != nil {
				return errors.Wrap(err, "list versions")
			}

			for _, v := range l {
				printVersion(cmd.OutOrStdout(), &v)
			}
			return nil
		},
	}
}

func newFetchCmd(c *Context) *cobra.Command {
	return &cobra.Command{
		Use:   "fetch href...",
		Short: "Print the vCard data of contacts",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, hrefs []string) error {
			client, err := c.NewClient("")
			if err != nil {
				return err
			}
			ids, err := parseIDs(client, hrefs)
			if err != nil {
				return err
			}
			l, err := client.FetchEntities(cmd.Context(), ids)
			if err != nil {
				return errors.Wrap(err, "fetch contacts")
			}
			for _, e := range l {
				io.WriteString(cmd.OutOrStdout(), e.Payload)
			}
			return nil
		},
	}
}

type createArgs struct {
	name string
}

func newCreateCmd(c *Context) *cobra.Command {
	args := &createArgs{}
	subc := &cobra.Command{
		Use:   "create file",
		Short: "Upload a new contact, read from file or - for stdin",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, files []string) error {
			client, err := c.NewClient("")
			if err != nil {
				return err
			}
			payload, err := readPayload(cmd, files[0])
			if err != nil {
				return err
			}
			name := args.name
			if name == "" {
				name = carddav.SuggestName(payload)
			}
			v, err := client.Create(cmd.Context(), payload, name)
			if err != nil {
				return errors.Wrap(err, "create contact")
			}
			printVersion(cmd.OutOrStdout(), v)
			return nil
		},
	}
	subc.Flags().StringVarP(&args.name, "name", "n", "", "resource name, derived from the vCard UID by default")
	return subc
}

func newUpdateCmd(c *Context) *cobra.Command {
	return &cobra.Command{
		Use:   "update href etag file",
		Short: "Replace a contact if its version still matches etag",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := c.NewClient("")
			if err != nil {
				return err
			}
			ids, err := parseIDs(client, args[:1])
			if err != nil {
				return err
			}
			payload, err := readPayload(cmd, args[2])
			if err != nil {
				return err
			}
			v, err := client.Update(cmd.Context(), ids[0], args[1], payload)
			if err != nil {
				return errors.Wrap(err, "update contact")
			}
			if v == nil {
				return errors.Errorf("contact %v was modified or deleted on the server", ids[0])
			}
			printVersion(cmd.OutOrStdout(), v)
			return nil
		},
	}
}

func readPayload(cmd *cobra.Command, name string) (string, error) {
	var (
		b   []byte
		err error
	)
	if name == "-" {
		b, err = io.ReadAll(cmd.InOrStdin())
	} else {
		b, err = os.ReadFile(name)
	}
	if err != nil {
		return "", errors.Wrap(err, "read vCard")
	}
	return string(b), nil
}

func printVersion(w io.Writer, v *carddav.EntityVersion) {
	fmt.Fprintf(w, "%v\t%v\n", v.Version, v.ID)
}

func init() {
	register(newVersionsCmd)
	register(newFetchCmd)
	register(newCreateCmd)
	register(newUpdateCmd)
}
