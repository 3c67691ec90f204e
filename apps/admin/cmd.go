package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"syscall"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/trezcool/schoolhealth/core"
	"github.com/trezcool/schoolhealth/core/drugrequest"
	"github.com/trezcool/schoolhealth/core/user"
	"github.com/trezcool/schoolhealth/services/session"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	conf    *core.Config
	sess    *session.Store
	usrSvc  *user.Service
	drugSvc *drugrequest.Service
	out     io.Writer
}

// run executes the command in args, args[0] being the program name.
func (cli *commandLine) run(args []string) error {
	root := &cobra.Command{
		Use:           "schoolhealth-admin",
		Short:         "Manage the school health dashboard from a terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_ = cmd.Help()
			return errHelp
		},
	}
	root.SetOut(cli.out)
	root.SetErr(cli.out)
	root.AddCommand(cli.loginCmd(), cli.logoutCmd(), cli.requestsCmd(), cli.usersCmd(), cli.childCmd())

	if len(args) > 0 {
		args = args[1:]
	}
	root.SetArgs(args)
	return root.ExecuteContext(context.Background())
}

// groupCmd is a command that only holds subcommands.
func groupCmd(use, short string, subs ...*cobra.Command) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_ = cmd.Help()
			return errHelp
		},
	}
	cmd.AddCommand(subs...)
	return cmd
}

func (cli *commandLine) loginCmd() *cobra.Command {
	var token string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Save the access token used to call the REST API; prompted when --token is not set",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if token == "" {
				fmt.Fprint(cli.out, "Enter access token:")
				raw, err := readPasswordFunc(int(syscall.Stdin))
				fmt.Fprintln(cli.out)
				if err != nil {
					return err
				}
				token = strings.TrimSpace(string(raw))
			}
			if token == "" {
				_ = cmd.Usage()
				return errHelp
			}

			claims, err := cli.sess.Save(cmd.Context(), token)
			if err != nil {
				return err
			}
			usr := claims.User()
			fmt.Fprintf(cli.out, "Signed in as %s (%s).\n", displayName(usr), usr.Role)
			return nil
		},
	}
	cmd.Flags().StringVar(&token, "token", "", "the access token")
	return cmd
}

func (cli *commandLine) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the saved access token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := cli.sess.Clear(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cli.out, "Signed out.")
			return nil
		},
	}
}

func displayName(usr user.User) string {
	switch {
	case usr.Name != "":
		return usr.Name
	case usr.Email != "":
		return usr.Email
	}
	return usr.ID.String()
}
