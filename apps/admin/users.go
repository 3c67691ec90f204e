package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/trezcool/schoolhealth/core"
	"github.com/trezcool/schoolhealth/core/export"
	"github.com/trezcool/schoolhealth/core/listing"
	"github.com/trezcool/schoolhealth/core/user"
)

func (cli *commandLine) usersCmd() *cobra.Command {
	return groupCmd("users", "Browse the dashboard users", cli.usersListCmd(), cli.usersExportCmd())
}

func (cli *commandLine) loadUsers(cmd *cobra.Command, pageSize int, roles []string) (*listing.Controller[user.User], error) {
	for _, role := range roles {
		if !user.IsRole(role) {
			return nil, errors.Wrap(user.ErrUnknownRole, role)
		}
	}
	ctl := listing.NewController[user.User](pageSize)
	for key, cmp := range user.Sorts {
		ctl.RegisterSort(key, cmp)
	}
	if err := ctl.Load(cmd.Context(), cli.usrSvc.Fetchers(roles...)...); err != nil {
		return nil, err
	}
	return ctl, nil
}

func (cli *commandLine) usersListCmd() *cobra.Command {
	var (
		flags listFlags
		roles []string
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the users of all roles, or of the given --role",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctl, err := cli.loadUsers(cmd, cli.conf.Dashboard.PageSize, roles)
			if err != nil {
				return err
			}
			defer ctl.Close()
			if err := flags.apply(ctl); err != nil {
				return err
			}

			users, info := ctl.Page()
			rows := make([][]string, 0, len(users))
			for _, u := range users {
				rows = append(rows, []string{u.ID.String(), u.Name, u.Email, u.Role, u.ClassName, since(u.CreatedAt.Time)})
			}
			if err := printTable(cli.out, []string{"ID", "NAME", "EMAIL", "ROLE", "CLASS", "JOINED"}, rows); err != nil {
				return err
			}
			printPageInfo(cli.out, info)
			return nil
		},
	}
	flags.register(cmd, "narrow to one role")
	cmd.Flags().StringSliceVar(&roles, "role", nil, "roles to fetch (admin, nurse, parent, student)")
	return cmd
}

// usersExportCmd writes the filtered users as CSV, or the backend's XLSX export of
// the students with --xlsx.
func (cli *commandLine) usersExportCmd() *cobra.Command {
	var (
		flags  listFlags
		roles  []string
		output string
		xlsx   bool
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the users to a file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) (err error) {
			if output == "" {
				if xlsx {
					output = "students-" + time.Now().Format("20060102") + ".xlsx"
				} else {
					output = export.Filename("users", time.Now())
				}
			}

			var w io.Writer = cli.out
			if output != "-" {
				f, err := os.Create(output)
				if err != nil {
					return errors.Wrap(err, "creating export file")
				}
				defer func() {
					if cErr := f.Close(); err == nil {
						err = cErr
					}
				}()
				w = f
			}

			if xlsx {
				if err := cli.usrSvc.ExportStudents(cmd.Context(), w); err != nil {
					return err
				}
			} else {
				ctl, err := cli.loadUsers(cmd, 0 /* no pagination */, roles)
				if err != nil {
					return err
				}
				defer ctl.Close()
				flags.page = 1
				if err := flags.apply(ctl); err != nil {
					return err
				}
				if err := export.WriteCSV(w, user.Columns, ctl.Filtered(), export.Options{BOM: true}); err != nil {
					return err
				}
			}
			if output != "-" {
				fmt.Fprintf(cli.out, "Exported to %s.\n", output)
			}
			return nil
		},
	}
	flags.register(cmd, "narrow to one role")
	cmd.Flags().StringSliceVar(&roles, "role", nil, "roles to fetch (admin, nurse, parent, student)")
	cmd.Flags().StringVarP(&output, "output", "o", "", `file to write, "-" for stdout`)
	cmd.Flags().BoolVar(&xlsx, "xlsx", false, "download the students XLSX export of the REST API")
	return cmd
}

func (cli *commandLine) childCmd() *cobra.Command {
	return groupCmd("child", "Pick the child a parent looks after", cli.childSelectCmd(), cli.childShowCmd())
}

func (cli *commandLine) childSelectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "select ID",
		Short: "Select one of the signed-in parent's children",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			claims, err := cli.sess.Claims(cmd.Context())
			if err != nil {
				return err
			}
			child, err := cli.usrSvc.SelectChildOf(cmd.Context(), claims.User().ID, core.ID(args[0]))
			if err != nil {
				return err
			}
			fmt.Fprintf(cli.out, "Selected %s.\n", describeChild(child))
			return nil
		},
	}
}

func (cli *commandLine) childShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the selected child",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			child, err := cli.usrSvc.SelectedChild(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cli.out, describeChild(child))
			return nil
		},
	}
}

func describeChild(child user.Child) string {
	if child.ClassName == "" {
		return fmt.Sprintf("%s (#%s)", child.Name, child.ID)
	}
	return fmt.Sprintf("%s (#%s, class %s)", child.Name, child.ID, child.ClassName)
}
