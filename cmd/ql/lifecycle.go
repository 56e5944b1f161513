package main

import (
	"context"
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"qualityline/internal/app"
	"qualityline/internal/domain"
	"qualityline/internal/engine"
	"qualityline/internal/lifecycle"
	"qualityline/internal/report"
	"qualityline/internal/risk"
)

func issueCmd() *cobra.Command {
	issue := &cobra.Command{Use: "issue", Short: "Context issues: risks and opportunities"}
	issue.AddCommand(issueCreateCmd())
	issue.AddCommand(issueListCmd())
	issue.AddCommand(issueShowCmd())
	issue.AddCommand(issueScoreCmd(false))
	issue.AddCommand(issueScoreCmd(true))
	issue.AddCommand(issueControlsCmd())
	return issue
}

func issueCreateCmd() *cobra.Command {
	var in engine.IssueInput
	var typ string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Record a risk or opportunity",
		RunE: func(cmd *cobra.Command, args []string) error {
			in.Type = domain.IssueType(typ)
			return withSession(cmd.Context(), func(ctx context.Context, s *app.Session) error {
				i, err := s.Engine.CreateIssue(in)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(i)
				}
				fmt.Printf("Created %s %s (priority %s)\n", i.Type, i.ID, orDash(i.Priority))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&in.ProcessID, "process", "", "process id")
	cmd.Flags().StringVar(&typ, "type", string(domain.IssueRisk), "risk or opportunity")
	cmd.Flags().StringVar(&in.Title, "title", "", "title")
	cmd.Flags().StringVar(&in.Description, "description", "", "description")
	cmd.Flags().IntVar(&in.Severity, "severity", 0, "severity 1-3 (risks)")
	cmd.Flags().IntVar(&in.Probability, "probability", 0, "probability 1-3 (risks)")
	cmd.Flags().StringVar(&in.EvaluatorName, "evaluator", "", "evaluator name")
	_ = cmd.MarkFlagRequired("process")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func issueListCmd() *cobra.Command {
	var processID string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List context issues",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), func(ctx context.Context, s *app.Session) error {
				items := s.Engine.Issues()
				if processID != "" {
					items = s.Engine.IssuesForProcess(processID)
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := newTable("ID", "Type", "Title", "Process", "Criticity", "Priority", "Version")
				for _, i := range items {
					tw.AppendRow(table.Row{i.ID, i.Type, i.Title, i.ProcessID, i.Criticity, orDash(i.Priority), i.Version})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&processID, "process", "", "process filter")
	return cmd
}

func issueShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <issue-id>",
		Short: "Show issue with its risk history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), func(ctx context.Context, s *app.Session) error {
				i, ok := s.Engine.Issue(args[0])
				if !ok {
					return fmt.Errorf("issue %s: %w", args[0], domain.ErrNotFound)
				}
				history := s.Engine.RiskHistory(args[0])
				if viper.GetBool("json") {
					return printJSON(map[string]any{"issue": i, "risk_versions": history})
				}
				fmt.Printf("%s  %s  [%s]  process=%s\n", i.ID, i.Title, i.Type, i.ProcessID)
				tw := newTable("Version", "Date", "Trigger", "Severity", "Probability", "Criticity", "Priority")
				for _, v := range history {
					tw.AppendRow(table.Row{v.VersionNumber, v.Date, v.Trigger, v.Severity, v.Probability, v.Criticity, v.Priority})
				}
				tw.Render()
				fmt.Printf("residual risk review possible: %t\n", s.Engine.CanEvaluateResidualRisk(args[0]))
				return nil
			})
		},
	}
}

// issueScoreCmd builds "score" (a plain new version) or "review" (the
// post-action residual risk evaluation).
func issueScoreCmd(review bool) *cobra.Command {
	var in risk.Input
	use, short := "score <issue-id>", "Append a risk evaluation"
	if review {
		use, short = "review <issue-id>", "Record the residual risk after evaluated actions"
	}
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), func(ctx context.Context, s *app.Session) error {
				var (
					v   domain.RiskVersion
					err error
				)
				if review {
					v, err = s.Engine.ReviewResidualRisk(args[0], in)
				} else {
					v, err = s.Engine.AddRiskVersion(args[0], in)
				}
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(v)
				}
				fmt.Printf("Recorded version %d: criticity %d, priority %s\n", v.VersionNumber, v.Criticity, v.Priority)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&in.Severity, "severity", 0, "severity 1-3")
	cmd.Flags().IntVar(&in.Probability, "probability", 0, "probability 1-3")
	cmd.Flags().StringVar(&in.Description, "description", "", "description")
	cmd.Flags().StringVar(&in.EvaluatorName, "evaluator", "", "evaluator name")
	cmd.Flags().StringVar(&in.Notes, "notes", "", "notes")
	_ = cmd.MarkFlagRequired("severity")
	_ = cmd.MarkFlagRequired("probability")
	return cmd
}

func issueControlsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "controls <issue-id>",
		Short: "Evaluated effective actions for an issue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), func(ctx context.Context, s *app.Session) error {
				return printActions(s.Engine.ImplementedControls(args[0]))
			})
		},
	}
}

func actionCmd() *cobra.Command {
	act := &cobra.Command{Use: "action", Short: "Corrective and preventive actions"}
	act.AddCommand(actionCreateCmd())
	act.AddCommand(actionListCmd())
	act.AddCommand(actionShowCmd())
	act.AddCommand(actionUpdateCmd())
	act.AddCommand(actionCompleteCmd())
	act.AddCommand(actionEvaluateCmd())
	return act
}

func actionCreateCmd() *cobra.Command {
	var in engine.ActionInput
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Plan an action",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), func(ctx context.Context, s *app.Session) error {
				a, err := s.Engine.CreateAction(in)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(a)
				}
				fmt.Printf("Created action %s due %s\n", a.ID, a.Deadline)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&in.Title, "title", "", "title")
	cmd.Flags().StringVar(&in.Description, "description", "", "description")
	cmd.Flags().StringVar(&in.ProcessID, "process", "", "process id")
	cmd.Flags().StringVar(&in.Owner, "owner", "", "owner")
	cmd.Flags().StringVar(&in.Deadline, "deadline", "", "deadline (YYYY-MM-DD)")
	cmd.Flags().StringArrayVar(&in.LinkedIssueIDs, "issue", nil, "linked issue id (repeatable)")
	_ = cmd.MarkFlagRequired("title")
	_ = cmd.MarkFlagRequired("process")
	_ = cmd.MarkFlagRequired("deadline")
	return cmd
}

func actionListCmd() *cobra.Command {
	var overdue bool
	var issueID string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List actions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), func(ctx context.Context, s *app.Session) error {
				items := s.Engine.Actions()
				switch {
				case overdue:
					items = s.Engine.OverdueActions()
				case issueID != "":
					items = s.Engine.ActionsForIssue(issueID)
				}
				return printActions(items)
			})
		},
	}
	cmd.Flags().BoolVar(&overdue, "overdue", false, "only overdue actions")
	cmd.Flags().StringVar(&issueID, "issue", "", "actions linked to an issue")
	return cmd
}

func actionShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <action-id>",
		Short: "Show action with its status history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), func(ctx context.Context, s *app.Session) error {
				a, ok := s.Engine.Action(args[0])
				if !ok {
					return fmt.Errorf("action %s: %w", args[0], domain.ErrNotFound)
				}
				if viper.GetBool("json") {
					return printJSON(a)
				}
				fmt.Printf("%s  %s  [%s]  due %s  v%d\n", a.ID, a.Title, a.Status, a.Deadline, a.Version)
				tw := newTable("Date", "From", "To", "Notes")
				for _, c := range a.StatusHistory.Entries() {
					tw.AppendRow(table.Row{c.Date, c.FromStatus, c.ToStatus, c.Notes})
				}
				tw.Render()
				if ev := a.EfficiencyEvaluation; ev != nil {
					fmt.Printf("evaluated %s by %s: %s\n", ev.Date, orDash(ev.EvaluatorName), ev.Result)
				}
				return nil
			})
		},
	}
}

func actionUpdateCmd() *cobra.Command {
	var title, description, owner, deadline, status, note string
	var issues []string
	cmd := &cobra.Command{
		Use:   "update <action-id>",
		Short: "Update action fields or status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			patch := lifecycle.Patch{
				Title:          optionalString(cmd, "title", title),
				Description:    optionalString(cmd, "description", description),
				Owner:          optionalString(cmd, "owner", owner),
				Deadline:       optionalString(cmd, "deadline", deadline),
				LinkedIssueIDs: issues,
			}
			if cmd.Flags().Changed("status") {
				st := domain.ActionStatus(status)
				patch.Status = &st
			}
			return withSession(cmd.Context(), func(ctx context.Context, s *app.Session) error {
				a, err := s.Engine.UpdateAction(args[0], patch, note)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(a)
				}
				fmt.Printf("Action %s is %s (v%d)\n", a.ID, a.Status, a.Version)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "title")
	cmd.Flags().StringVar(&description, "description", "", "description")
	cmd.Flags().StringVar(&owner, "owner", "", "owner")
	cmd.Flags().StringVar(&deadline, "deadline", "", "deadline (YYYY-MM-DD)")
	cmd.Flags().StringVar(&status, "status", "", "new status")
	cmd.Flags().StringVar(&note, "note", "", "note recorded with a status change")
	cmd.Flags().StringArrayVar(&issues, "issue", nil, "replace linked issues (repeatable)")
	return cmd
}

func actionCompleteCmd() *cobra.Command {
	var note string
	cmd := &cobra.Command{
		Use:   "complete <action-id>",
		Short: "Mark action completed, pending evaluation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), func(ctx context.Context, s *app.Session) error {
				a, err := s.Engine.CompleteAction(args[0], note)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(a)
				}
				fmt.Printf("Action %s completed, awaiting efficiency evaluation\n", a.ID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&note, "note", "", "note")
	return cmd
}

func actionEvaluateCmd() *cobra.Command {
	var in lifecycle.EvaluationInput
	var result string
	cmd := &cobra.Command{
		Use:   "evaluate <action-id>",
		Short: "Record the efficiency evaluation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in.Result = domain.EfficiencyResult(result)
			return withSession(cmd.Context(), func(ctx context.Context, s *app.Session) error {
				a, err := s.Engine.EvaluateActionEfficiency(args[0], in)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(a)
				}
				fmt.Printf("Action %s evaluated %s\n", a.ID, result)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&result, "result", "", "effective or ineffective")
	cmd.Flags().StringVar(&in.Evidence, "evidence", "", "evidence")
	cmd.Flags().StringVar(&in.EvidenceType, "evidence-type", "", "evidence type")
	cmd.Flags().StringVar(&in.EvaluatorName, "evaluator", "", "evaluator name")
	cmd.Flags().StringVar(&in.Notes, "notes", "", "notes")
	_ = cmd.MarkFlagRequired("result")
	return cmd
}

func functionCmd() *cobra.Command {
	fn := &cobra.Command{Use: "function", Short: "Standard function instances"}

	var functionID, processID string
	ensure := &cobra.Command{
		Use:   "ensure",
		Short: "Attach a standard function to a process",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), func(ctx context.Context, s *app.Session) error {
				fi, created, err := s.Engine.EnsureFunctionInstance(functionID, processID)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(fi)
				}
				verb := "Found"
				if created {
					verb = "Created"
				}
				fmt.Printf("%s instance %s\n", verb, fi.ID)
				return nil
			})
		},
	}
	ensure.Flags().StringVar(&functionID, "function", "", "standard function id")
	ensure.Flags().StringVar(&processID, "process", "", "process id")
	_ = ensure.MarkFlagRequired("function")
	_ = ensure.MarkFlagRequired("process")

	var listProcess string
	list := &cobra.Command{
		Use:   "list",
		Short: "List function instances",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), func(ctx context.Context, s *app.Session) error {
				items := s.Engine.FunctionInstances()
				if listProcess != "" {
					items = s.Engine.InstancesForProcess(listProcess)
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := newTable("ID", "Function", "Process", "Status", "Evidence")
				for _, fi := range items {
					tw.AppendRow(table.Row{fi.ID, fi.FunctionID, fi.ProcessID, fi.Status, fi.Evidence.Len()})
				}
				tw.Render()
				return nil
			})
		},
	}
	list.Flags().StringVar(&listProcess, "process", "", "process filter")

	var notes string
	status := &cobra.Command{
		Use:   "status <instance-id> <status>",
		Short: "Set implementation status",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), func(ctx context.Context, s *app.Session) error {
				fi, err := s.Engine.SetFunctionStatus(args[0], domain.InstanceStatus(args[1]), notes)
				if err != nil {
					return err
				}
				fmt.Printf("Instance %s is %s\n", fi.ID, fi.Status)
				return nil
			})
		},
	}
	status.Flags().StringVar(&notes, "notes", "", "notes")

	var ev engine.EvidenceInput
	evidence := &cobra.Command{
		Use:   "evidence <instance-id>",
		Short: "Attach evidence",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), func(ctx context.Context, s *app.Session) error {
				fi, err := s.Engine.AddFunctionEvidence(args[0], ev)
				if err != nil {
					return err
				}
				fmt.Printf("Instance %s has %d evidence items\n", fi.ID, fi.Evidence.Len())
				return nil
			})
		},
	}
	evidence.Flags().StringVar(&ev.Kind, "kind", "", "evidence kind")
	evidence.Flags().StringVar(&ev.Reference, "ref", "", "reference (document id, URL)")
	evidence.Flags().StringVar(&ev.Description, "description", "", "description")
	evidence.Flags().StringVar(&ev.AddedBy, "by", "", "added by")
	_ = evidence.MarkFlagRequired("kind")
	_ = evidence.MarkFlagRequired("ref")

	var links engine.FunctionLinks
	link := &cobra.Command{
		Use:   "link <instance-id>",
		Short: "Link actions, objectives and KPIs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), func(ctx context.Context, s *app.Session) error {
				_, err := s.Engine.LinkFunctionItems(args[0], links)
				return err
			})
		},
	}
	link.Flags().StringArrayVar(&links.ActionIDs, "action", nil, "action id (repeatable)")
	link.Flags().StringArrayVar(&links.ObjectiveIDs, "objective", nil, "objective id (repeatable)")
	link.Flags().StringArrayVar(&links.KPIIDs, "kpi", nil, "KPI id (repeatable)")

	fn.AddCommand(ensure, list, status, evidence, link)
	return fn
}

func complianceCmd() *cobra.Command {
	var by, processID string
	cmd := &cobra.Command{
		Use:   "compliance",
		Short: "Compliance percentages",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), func(ctx context.Context, s *app.Session) error {
				e := s.Engine
				switch {
				case processID != "":
					return printMetrics("process "+processID, e.ComplianceByProcess(processID))
				case by == "category":
					rows := e.ComplianceByCategory()
					if viper.GetBool("json") {
						return printJSON(rows)
					}
					tw := newTable("Category", "Functions", "Implemented", "Partial", "Compliance %")
					for _, r := range rows {
						tw.AppendRow(table.Row{r.Category, r.Metrics.TotalFunctions, r.Metrics.ImplementedCount,
							r.Metrics.PartiallyImplementedCount, r.Metrics.CompliancePercentage})
					}
					tw.Render()
					return nil
				case by == "clause":
					rows := e.ComplianceByClause()
					if viper.GetBool("json") {
						return printJSON(rows)
					}
					tw := newTable("Clause", "Functions", "Implemented", "Partial", "Compliance %")
					for _, r := range rows {
						tw.AppendRow(table.Row{r.Clause, r.Metrics.TotalFunctions, r.Metrics.ImplementedCount,
							r.Metrics.PartiallyImplementedCount, r.Metrics.CompliancePercentage})
					}
					tw.Render()
					return nil
				case by == "":
					return printMetrics("overall", e.ComplianceMetrics())
				default:
					return fmt.Errorf("--by must be category or clause (got %q)", by)
				}
			})
		},
	}
	cmd.Flags().StringVar(&by, "by", "", "category or clause")
	cmd.Flags().StringVar(&processID, "process", "", "compliance of one process")
	cmd.AddCommand(complianceExportCmd())
	return cmd
}

func complianceExportCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the compliance workbook (xlsx)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), func(ctx context.Context, s *app.Session) error {
				f, err := report.Build(s.Engine)
				if err != nil {
					return err
				}
				defer f.Close()
				if err := f.SaveAs(out); err != nil {
					return err
				}
				fmt.Printf("Wrote %s\n", out)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "compliance.xlsx", "output file")
	return cmd
}

func printMetrics(scope string, m domain.ComplianceMetrics) error {
	if viper.GetBool("json") {
		return printJSON(m)
	}
	tw := newTable("Scope", "Functions", "Implemented", "Partial", "Not implemented", "Nonconformity", "Improvement", "Compliance %")
	tw.AppendRow(table.Row{scope, m.TotalFunctions, m.ImplementedCount, m.PartiallyImplementedCount,
		m.NotImplementedCount, m.NonconformityCount, m.ImprovementOpportunityCount, m.CompliancePercentage})
	tw.Render()
	return nil
}

func printActions(items []domain.Action) error {
	if viper.GetBool("json") {
		return printJSON(items)
	}
	tw := newTable("ID", "Title", "Process", "Status", "Deadline", "Owner")
	for _, a := range items {
		tw.AppendRow(table.Row{a.ID, a.Title, a.ProcessID, a.Status, a.Deadline, orDash(a.Owner)})
	}
	tw.Render()
	return nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
