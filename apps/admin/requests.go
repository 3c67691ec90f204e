package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/trezcool/schoolhealth/core"
	"github.com/trezcool/schoolhealth/core/drugrequest"
	"github.com/trezcool/schoolhealth/core/listing"
)

func (cli *commandLine) requestsCmd() *cobra.Command {
	subs := []*cobra.Command{cli.requestsListCmd()}
	for _, verb := range []string{
		drugrequest.VerbAccept,
		drugrequest.VerbRefuse,
		drugrequest.VerbCancel,
		drugrequest.VerbReceive,
		drugrequest.VerbDone,
	} {
		subs = append(subs, cli.requestTransitionCmd(verb))
	}
	return groupCmd("requests", "Review the drug requests sent by parents", subs...)
}

// loadRequests returns a list controller holding all the drug requests.
func (cli *commandLine) loadRequests(cmd *cobra.Command, pageSize int) (*listing.Controller[drugrequest.DrugRequest], error) {
	ctl := listing.NewController[drugrequest.DrugRequest](pageSize)
	for key, cmp := range drugrequest.Sorts {
		ctl.RegisterSort(key, cmp)
	}
	if err := ctl.Load(cmd.Context(), cli.drugSvc.List); err != nil {
		return nil, err
	}
	return ctl, nil
}

func (cli *commandLine) requestsListCmd() *cobra.Command {
	var flags listFlags
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the drug requests",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctl, err := cli.loadRequests(cmd, cli.conf.Dashboard.PageSize)
			if err != nil {
				return err
			}
			defer ctl.Close()
			if err := flags.apply(ctl); err != nil {
				return err
			}

			reqs, info := ctl.Page()
			rows := make([][]string, 0, len(reqs))
			for _, r := range reqs {
				rows = append(rows, []string{
					r.ID.String(),
					r.StudentName,
					r.Diagnosis,
					date(r.StartDate.Time) + " → " + date(r.EndDate.Time),
					r.Status,
					since(r.CreatedAt.Time),
				})
			}
			if err := printTable(cli.out, []string{"ID", "STUDENT", "DIAGNOSIS", "PERIOD", "STATUS", "SENT"}, rows); err != nil {
				return err
			}
			printPageInfo(cli.out, info)
			return nil
		},
	}
	flags.register(cmd, "PROCESSING, ACCEPTED, REFUSED, CANCELLED, RECEIVED or DONE")
	return cmd
}

// requestTransitionCmd applies verb to a drug request. The requests are loaded first so
// that a transition the current status does not allow is refused locally.
func (cli *commandLine) requestTransitionCmd(verb string) *cobra.Command {
	to, _ := drugrequest.Machine.Target(verb)
	return &cobra.Command{
		Use:   verb + " ID",
		Short: fmt.Sprintf("Move a drug request to %s", to),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctl, err := cli.loadRequests(cmd, 0 /* no pagination */)
			if err != nil {
				return err
			}
			defer ctl.Close()

			id := core.ID(args[0])
			if _, ok := ctl.Find(id); !ok {
				return fmt.Errorf("drug request %s not found", id)
			}
			status, err := cli.drugSvc.Transition(cmd.Context(), ctl, id, verb, nil)
			if err != nil {
				return err
			}
			fmt.Fprintf(cli.out, "Drug request %s is now %s.\n", id, status)
			return nil
		},
	}
}
