package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/internal/store"
)

var (
	leadsCampaignID string
	leadsStatus     string
)

var leadsCmd = &cobra.Command{
	Use:   "leads",
	Short: "Inspect and recover leads",
}

var leadsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List leads",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		leads, err := env.Store.ListLeads(ctx, store.LeadFilter{
			CampaignID: leadsCampaignID,
			Status:     model.LeadStatus(leadsStatus),
		})
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tBUSINESS\tSTATUS\tEMAILS\tCALLS\tDEMO")
		for _, l := range leads {
			demo := "-"
			if l.DemoURL != nil {
				demo = *l.DemoURL
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%s\n",
				l.ID, l.BusinessName, l.Status, l.EmailSentCount, l.CallAttempts, demo)
		}
		return w.Flush()
	},
}

var leadsShowCmd = &cobra.Command{
	Use:   "show <lead-id>",
	Short: "Show a lead and its event history",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		lead, err := env.Store.GetLead(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Printf("%s (%s)\nstatus: %s  emails: %d  calls: %d\n",
			lead.BusinessName, lead.ID, lead.Status, lead.EmailSentCount, lead.CallAttempts)
		if lead.DemoURL != nil {
			fmt.Printf("demo: %s\n", *lead.DemoURL)
		}
		if lead.LastError != nil {
			fmt.Printf("last error: %s\n", *lead.LastError)
		}

		events, err := env.Store.ListEvents(ctx, store.EventFilter{LeadID: lead.ID})
		if err != nil {
			return err
		}
		fmt.Println("\nevents:")
		for _, ev := range events {
			fmt.Printf("  %s  %s\n", ev.CreatedAt.Format("2006-01-02 15:04:05"), ev.Type)
		}
		return nil
	},
}

var leadsRequeueCmd = &cobra.Command{
	Use:   "requeue <lead-id>",
	Short: "Re-enqueue a lead at the stage matching its status",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		stage, err := env.Engine.RequeueLead(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Printf("lead %s requeued at stage %s\n", args[0], stage)
		return nil
	},
}

var leadsReleaseClaimCmd = &cobra.Command{
	Use:   "release-claim <key>",
	Short: "Delete an orphaned idempotency claim so its stage can rerun",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		claim, err := env.Store.GetIdempotencyKey(ctx, args[0])
		if err != nil {
			return err
		}
		if claim == nil {
			return eris.Errorf("no claim found for key %s", args[0])
		}
		if claim.CompletedAt != nil {
			return eris.Errorf("claim %s is completed; releasing it would repeat the %s side effect", args[0], claim.Stage)
		}
		if err := env.Store.DeleteIdempotencyKey(ctx, args[0]); err != nil {
			return err
		}
		fmt.Printf("claim %s released\n", args[0])
		return nil
	},
}

func init() {
	leadsListCmd.Flags().StringVar(&leadsCampaignID, "campaign", "", "filter by campaign id")
	leadsListCmd.Flags().StringVar(&leadsStatus, "status", "", "filter by lead status")

	leadsCmd.AddCommand(leadsListCmd, leadsShowCmd, leadsRequeueCmd, leadsReleaseClaimCmd)
	rootCmd.AddCommand(leadsCmd)
}
