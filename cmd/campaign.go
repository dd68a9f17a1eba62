package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/internal/queue"
	"github.com/sells-group/outreach-cli/internal/store"
)

var (
	campaignNiche string
	campaignCity  string
	campaignLimit int
)

var campaignCmd = &cobra.Command{
	Use:   "campaign",
	Short: "Manage outreach campaigns",
}

var campaignCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a campaign and run its pipeline",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		// With the in-process broker this command is the worker too and
		// drains to completion; tight contact spacing keeps it from
		// blocking for the configured delay.
		callDelay := time.Duration(0)
		if cfg.Queue.Broker == "" || cfg.Queue.Broker == "memory" {
			callDelay = time.Second
		}
		env, err := initEnvWithCallDelay(ctx, callDelay)
		if err != nil {
			return err
		}
		defer env.Close()

		campaign, err := env.Engine.StartCampaign(ctx, campaignNiche, campaignCity, campaignLimit)
		if err != nil {
			return err
		}
		fmt.Printf("campaign %s created (%s in %s, limit %d)\n",
			campaign.ID, campaign.Niche, campaign.City, campaign.Limit)

		if mem, ok := env.Broker.(*queue.MemoryBroker); ok {
			if err := mem.Start(ctx); err != nil {
				return err
			}
			mem.Wait()
			return printCampaignStatus(cmd, env, campaign.ID)
		}

		zap.L().Info("campaign enqueued for workers", zap.String("campaign_id", campaign.ID))
		return nil
	},
}

var campaignStatusCmd = &cobra.Command{
	Use:   "status <campaign-id>",
	Short: "Show a campaign and its funnel",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()
		return printCampaignStatus(cmd, env, args[0])
	},
}

var campaignListCmd = &cobra.Command{
	Use:   "list",
	Short: "List campaigns",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		campaigns, err := env.Store.ListCampaigns(ctx, store.CampaignFilter{})
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNICHE\tCITY\tLIMIT\tSTATUS\tCREATED")
		for _, c := range campaigns {
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\n",
				c.ID, c.Niche, c.City, c.Limit, c.Status, c.CreatedAt.Format("2006-01-02 15:04"))
		}
		return w.Flush()
	},
}

func printCampaignStatus(cmd *cobra.Command, env *env, campaignID string) error {
	ctx := cmd.Context()

	campaign, err := env.Store.GetCampaign(ctx, campaignID)
	if err != nil {
		return err
	}
	counts, err := env.Store.LeadStatusCounts(ctx, campaignID)
	if err != nil {
		return err
	}

	fmt.Printf("campaign %s: %s in %s [%s]\n", campaign.ID, campaign.Niche, campaign.City, campaign.Status)

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "STATUS\tLEADS")
	total := 0
	for rank := 0; ; rank++ {
		status := model.LeadStatusAtRank(rank)
		if status == "" {
			break
		}
		if n := counts[status]; n > 0 {
			fmt.Fprintf(w, "%s\t%d\n", status, n)
			total += n
		}
	}
	if n := counts[model.LeadStatusDoNotContact]; n > 0 {
		fmt.Fprintf(w, "%s\t%d\n", model.LeadStatusDoNotContact, n)
		total += n
	}
	fmt.Fprintf(w, "total\t%d\n", total)
	return w.Flush()
}

func init() {
	campaignCreateCmd.Flags().StringVar(&campaignNiche, "niche", "", "business niche, e.g. plumbers (required)")
	campaignCreateCmd.Flags().StringVar(&campaignCity, "city", "", "target city (required)")
	campaignCreateCmd.Flags().IntVar(&campaignLimit, "limit", 20, "max businesses to scrape")
	_ = campaignCreateCmd.MarkFlagRequired("niche")
	_ = campaignCreateCmd.MarkFlagRequired("city")

	campaignCmd.AddCommand(campaignCreateCmd, campaignStatusCmd, campaignListCmd)
	rootCmd.AddCommand(campaignCmd)
}
