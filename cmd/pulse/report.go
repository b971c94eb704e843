package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/hyperengineering/pulse/internal/types"
	"github.com/hyperengineering/pulse/pkg/client"
)

var (
	reportURL       string
	reportAPIKey    string
	reportWorkspace string
	reportUser      string
	reportJSON      bool

	reportArchived    bool
	reportObjectiveID string

	reportActivity client.ActivityQuery
	reportAllPages bool
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print reports from a running Pulse server",
	Long: "Query a running Pulse server and print styled tables.\n" +
		"Connection flags default to PULSE_URL, PULSE_API_KEY, PULSE_WORKSPACE_ID and PULSE_USER_ID.",
}

var reportObjectivesCmd = &cobra.Command{
	Use:   "objectives",
	Short: "Objective and key result progress",
	Args:  cobra.NoArgs,
	RunE:  runReportObjectives,
}

var reportActivityCmd = &cobra.Command{
	Use:   "activity",
	Short: "Recent workspace activity, newest first",
	Args:  cobra.NoArgs,
	RunE:  runReportActivity,
}

var reportApproachesCmd = &cobra.Command{
	Use:   "approaches",
	Short: "Approach statistics and goal achievement for the user",
	Args:  cobra.NoArgs,
	RunE:  runReportApproaches,
}

func init() {
	pf := reportCmd.PersistentFlags()
	pf.StringVar(&reportURL, "url", envOr("PULSE_URL", "http://localhost:8080"), "Pulse server URL")
	pf.StringVar(&reportAPIKey, "api-key", os.Getenv("PULSE_API_KEY"), "API key")
	pf.StringVar(&reportWorkspace, "workspace", os.Getenv("PULSE_WORKSPACE_ID"), "Workspace UUID")
	pf.StringVar(&reportUser, "user", os.Getenv("PULSE_USER_ID"), "User UUID")
	pf.BoolVar(&reportJSON, "json", false, "Output in JSON format")

	reportObjectivesCmd.Flags().BoolVar(&reportArchived, "archived", false, "Include archived objectives")
	reportObjectivesCmd.Flags().StringVar(&reportObjectiveID, "objective", "", "Show one objective's key results")

	af := reportActivityCmd.Flags()
	af.IntVar(&reportActivity.Limit, "limit", 0, "Entries per page (server default when 0)")
	af.StringVar(&reportActivity.Cursor, "cursor", "", "Continue from this cursor")
	af.StringVar(&reportActivity.CursorID, "cursor-id", "", "Continue from this entry id")
	af.StringVar(&reportActivity.Action, "action", "", "Filter by action")
	af.StringVar(&reportActivity.ResourceType, "resource-type", "", "Filter by resource type")
	af.StringVar(&reportActivity.UserID, "by", "", "Filter by acting user UUID")
	af.StringVar(&reportActivity.FromDate, "from", "", "Earliest date, e.g. 2026-04-01 or 'last monday'")
	af.StringVar(&reportActivity.ToDate, "to", "", "Latest date")
	af.BoolVar(&reportAllPages, "all", false, "Follow cursors until the feed is exhausted")

	reportCmd.AddCommand(reportObjectivesCmd)
	reportCmd.AddCommand(reportActivityCmd)
	reportCmd.AddCommand(reportApproachesCmd)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func newReportClient() (*client.Client, error) {
	return client.New(client.Config{
		BaseURL:     reportURL,
		APIKey:      reportAPIKey,
		WorkspaceID: reportWorkspace,
		UserID:      reportUser,
	})
}

func runReportObjectives(cmd *cobra.Command, args []string) error {
	c, err := newReportClient()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	w := cmd.OutOrStdout()

	if reportObjectiveID != "" {
		detail, err := c.GetObjective(ctx, reportObjectiveID)
		if err != nil {
			return err
		}
		if reportJSON {
			return printJSON(w, detail)
		}
		return renderObjectiveDetail(w, detail)
	}

	objectives, err := c.ListObjectives(ctx, client.ObjectiveQuery{IncludeArchived: reportArchived})
	if err != nil {
		return err
	}
	if reportJSON {
		return printJSON(w, objectives)
	}
	return renderObjectives(w, objectives)
}

func renderObjectives(w io.Writer, objectives []types.ObjectiveRollup) error {
	fmt.Fprintln(w, headingStyle.Render("OBJECTIVES"))
	if len(objectives) == 0 {
		fmt.Fprintln(w, mutedStyle.Render("No objectives found."))
		return nil
	}
	tw := newTabWriter(w)
	fmt.Fprintln(tw, "ID\tTITLE\tPERIOD\tKRS\tPROGRESS")
	for _, o := range objectives {
		title := o.Title
		if o.Archived {
			title += " (archived)"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", o.ID, title, dash(o.Period), o.KeyResultCount, renderRate(o.ProgressRate))
	}
	return tw.Flush()
}

func renderObjectiveDetail(w io.Writer, d *types.ObjectiveDetail) error {
	fmt.Fprintf(w, "%s  %s\n", headingStyle.Render(d.Title), renderRate(d.ProgressRate))
	if len(d.KeyResults) == 0 {
		fmt.Fprintln(w, mutedStyle.Render("No key results."))
		return nil
	}
	tw := newTabWriter(w)
	fmt.Fprintln(tw, "ID\tKEY RESULT\tCURRENT/TARGET\tMAPS\tPROGRESS")
	for _, kr := range d.KeyResults {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n",
			kr.ID, kr.Title, strings.TrimSpace(fmt.Sprintf("%g/%g %s", kr.CurrentValue, kr.TargetValue, kr.Unit)),
			kr.ActionMapCount, renderRate(kr.ProgressRate))
	}
	return tw.Flush()
}

func runReportActivity(cmd *cobra.Command, args []string) error {
	c, err := newReportClient()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	w := cmd.OutOrStdout()

	q := reportActivity
	var pages []*types.ActivityPage
	for {
		page, err := c.Activity(ctx, q)
		if err != nil {
			return err
		}
		pages = append(pages, page)
		next, more := client.NextActivity(q, page)
		if !more || !reportAllPages {
			break
		}
		q = next
	}

	if reportJSON {
		if len(pages) == 1 {
			return printJSON(w, pages[0])
		}
		return printJSON(w, pages)
	}
	return renderActivity(w, pages)
}

func renderActivity(w io.Writer, pages []*types.ActivityPage) error {
	fmt.Fprintln(w, headingStyle.Render("ACTIVITY"))
	tw := newTabWriter(w)
	fmt.Fprintln(tw, "WHEN\tWHO\tACTION\tRESOURCE")
	n := 0
	for _, page := range pages {
		for _, l := range page.Logs {
			who := l.UserID
			if l.User != nil && l.User.Name != "" {
				who = l.User.Name
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s %s\n",
				l.CreatedAt.UTC().Format(time.DateTime), who, l.Action, l.ResourceType, l.ResourceID)
			n++
		}
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if n == 0 {
		fmt.Fprintln(w, mutedStyle.Render("No activity found."))
	}

	last := pages[len(pages)-1]
	if last.HasMore && last.NextCursor != nil {
		next := "--cursor " + *last.NextCursor
		if last.NextCursorID != nil {
			next += " --cursor-id " + *last.NextCursorID
		}
		fmt.Fprintln(w, mutedStyle.Render("More: "+next))
	}
	return nil
}

func runReportApproaches(cmd *cobra.Command, args []string) error {
	c, err := newReportClient()
	if err != nil {
		return err
	}
	stats, err := c.ApproachStats(cmd.Context())
	if err != nil {
		return err
	}
	if reportJSON {
		return printJSON(cmd.OutOrStdout(), stats)
	}
	return renderApproaches(cmd.OutOrStdout(), stats)
}

func renderApproaches(w io.Writer, s *types.ApproachStats) error {
	fmt.Fprintln(w, headingStyle.Render("APPROACHES"))
	tw := newTabWriter(w)
	fmt.Fprintf(tw, "Total\t%d\n", s.Total)
	fmt.Fprintf(tw, "This week\t%d\t%s\n", s.ThisWeek, goalProgress(s.WeeklyGoal, s.WeeklyAchievementRate))
	fmt.Fprintf(tw, "This month\t%d\t%s\n", s.ThisMonth, goalProgress(s.MonthlyGoal, s.MonthlyAchievementRate))
	fmt.Fprintf(tw, "Success rate\t%s\n", renderRate(s.SuccessRate))
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(w)
	tw = newTabWriter(w)
	fmt.Fprintln(tw, "TYPE\tCOUNT")
	for _, t := range types.ApproachTypes {
		fmt.Fprintf(tw, "%s\t%d\n", t, s.ByType[t])
	}
	fmt.Fprintln(tw, "\t")
	fmt.Fprintln(tw, "RESULT\tCOUNT")
	for _, r := range types.ResultStatuses {
		fmt.Fprintf(tw, "%s\t%d\n", r, s.ByResultStatus[r])
	}
	return tw.Flush()
}

func goalProgress(goal, rate *int) string {
	if goal == nil || rate == nil {
		return mutedStyle.Render("no goal")
	}
	return fmt.Sprintf("goal %d %s", *goal, renderRate(*rate))
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
