package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"qualityline/internal/app"
	"qualityline/internal/domain"
	"qualityline/internal/engine"
)

func catalogCmd() *cobra.Command {
	cat := &cobra.Command{Use: "catalog", Short: "ISO 9001 requirements and standard functions"}
	var reqType string
	reqs := &cobra.Command{
		Use:   "requirements",
		Short: "List requirements",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), func(ctx context.Context, s *app.Session) error {
				items := s.Engine.Catalog.Requirements()
				if reqType != "" {
					items = s.Engine.Catalog.RequirementsOfType(domain.RequirementType(reqType))
				}
				return printRequirements(items)
			})
		},
	}
	reqs.Flags().StringVar(&reqType, "type", "", "generic, unique or duplicable")

	var processType string
	fns := &cobra.Command{
		Use:   "functions",
		Short: "List standard functions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), func(ctx context.Context, s *app.Session) error {
				items := s.Engine.Catalog.Functions()
				if processType != "" {
					items = s.Engine.Catalog.MandatoryFunctionsFor(processType)
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := newTable("ID", "Title", "Clauses", "Rule", "Mandatory", "Category")
				for _, f := range items {
					tw.AppendRow(table.Row{f.ID, f.Title, strings.Join(f.ClauseReferences, ","), f.DuplicationRule, f.Mandatory, f.Category})
				}
				tw.Render()
				return nil
			})
		},
	}
	fns.Flags().StringVar(&processType, "mandatory-for", "", "only mandatory functions eligible for a process type")

	cat.AddCommand(reqs, fns)
	return cat
}

func processCmd() *cobra.Command {
	proc := &cobra.Command{Use: "process", Short: "Manage processes and activities"}
	proc.AddCommand(processCreateCmd())
	proc.AddCommand(processListCmd())
	proc.AddCommand(processShowCmd())
	proc.AddCommand(processUpdateCmd())
	proc.AddCommand(processSyncCmd())
	proc.AddCommand(activityAddCmd())
	proc.AddCommand(allocateCmd())
	proc.AddCommand(deallocateCmd())
	proc.AddCommand(availableCmd())
	proc.AddCommand(overviewCmd())
	proc.AddCommand(fulfillmentCmd())
	return proc
}

func processCreateCmd() *cobra.Command {
	var in engine.ProcessInput
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create process",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), func(ctx context.Context, s *app.Session) error {
				p, created, err := s.Engine.CreateProcess(in)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(map[string]any{"process": p, "functions_created": created})
				}
				fmt.Printf("Created process %s (%s) with %d function instances\n", p.ID, p.Name, len(created))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&in.Name, "name", "", "process name")
	cmd.Flags().StringVar(&in.Type, "type", "", "process type")
	cmd.Flags().StringVar(&in.Owner, "owner", "", "process owner")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("type")
	return cmd
}

func processListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List processes",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), func(ctx context.Context, s *app.Session) error {
				items := s.Engine.Processes()
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := newTable("ID", "Name", "Type", "Owner", "Activities")
				for _, p := range items {
					tw.AppendRow(table.Row{p.ID, p.Name, p.Type, p.Owner, len(p.Activities)})
				}
				tw.Render()
				return nil
			})
		},
	}
}

func processShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <process-id>",
		Short: "Show process with its activities",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), func(ctx context.Context, s *app.Session) error {
				p, ok := s.Engine.Process(args[0])
				if !ok {
					return fmt.Errorf("process %s: %w", args[0], domain.ErrNotFound)
				}
				if viper.GetBool("json") {
					return printJSON(p)
				}
				fmt.Printf("%s  %s  [%s]  owner=%s\n", p.ID, p.Name, p.Type, p.Owner)
				tw := newTable("Activity", "Name", "Governance", "Requirements")
				for _, a := range p.Activities {
					tw.AppendRow(table.Row{a.ID, a.Name, a.Governance, strings.Join(a.RequirementIDs, ",")})
				}
				tw.Render()
				return nil
			})
		},
	}
}

func processUpdateCmd() *cobra.Command {
	var name, typ, owner string
	cmd := &cobra.Command{
		Use:   "update <process-id>",
		Short: "Update process",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			patch := engine.ProcessPatch{
				Name:  optionalString(cmd, "name", name),
				Type:  optionalString(cmd, "type", typ),
				Owner: optionalString(cmd, "owner", owner),
			}
			return withSession(cmd.Context(), func(ctx context.Context, s *app.Session) error {
				p, created, err := s.Engine.UpdateProcess(args[0], patch)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(map[string]any{"process": p, "functions_created": created})
				}
				fmt.Printf("Updated process %s (%d function instances attached)\n", p.ID, len(created))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "process name")
	cmd.Flags().StringVar(&typ, "type", "", "process type")
	cmd.Flags().StringVar(&owner, "owner", "", "process owner")
	return cmd
}

func processSyncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync <process-id>",
		Short: "Attach missing mandatory functions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), func(ctx context.Context, s *app.Session) error {
				created, err := s.Engine.SyncProcessFunctions(args[0])
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(created)
				}
				fmt.Printf("Attached %d function instances\n", len(created))
				return nil
			})
		},
	}
}

func activityAddCmd() *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "activity <process-id>",
		Short: "Add activity to a process",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), func(ctx context.Context, s *app.Session) error {
				a, err := s.Engine.AddActivity(args[0], name)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(a)
				}
				fmt.Printf("Added activity %s (%s)\n", a.ID, a.Name)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "activity name")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func allocateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "allocate <process-id> <activity-id> <requirement-id>",
		Short: "Allocate a requirement to an activity",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), func(ctx context.Context, s *app.Session) error {
				if _, err := s.Engine.AllocateRequirement(args[0], args[1], args[2]); err != nil {
					return err
				}
				fmt.Printf("Allocated %s to %s\n", args[2], args[1])
				return nil
			})
		},
	}
}

func deallocateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "deallocate <process-id> <activity-id> <requirement-id>",
		Short: "Remove a requirement from an activity",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), func(ctx context.Context, s *app.Session) error {
				if _, err := s.Engine.DeallocateRequirement(args[0], args[1], args[2]); err != nil {
					return err
				}
				fmt.Printf("Removed %s from %s\n", args[2], args[1])
				return nil
			})
		},
	}
}

func availableCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "available <process-id> <activity-id>",
		Short: "Requirements that can still be allocated to an activity",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), func(ctx context.Context, s *app.Session) error {
				return printRequirements(s.Engine.AvailableRequirements(args[0], args[1]))
			})
		},
	}
}

func overviewCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "overview <process-id>",
		Short: "Requirement allocation and fulfillment overview",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), func(ctx context.Context, s *app.Session) error {
				ov, ok := s.Engine.RequirementsOverview(args[0])
				if !ok {
					return fmt.Errorf("process %s: %w", args[0], domain.ErrNotFound)
				}
				if viper.GetBool("json") {
					return printJSON(ov)
				}
				fmt.Printf("total=%d allocated=%d satisfied=%d not_satisfied=%d\n",
					ov.Total, ov.Allocated, ov.Satisfied, ov.NotSatisfied)
				tw := newTable("Requirement", "Clause", "Type", "Activities", "State")
				for _, rs := range ov.Requirements {
					tw.AppendRow(table.Row{rs.Requirement.ID, rs.Requirement.ClauseNumber, rs.Requirement.Type,
						strings.Join(rs.ActivityIDs, ","), rs.Fulfillment.State})
				}
				tw.Render()
				return nil
			})
		},
	}
}

func fulfillmentCmd() *cobra.Command {
	var function bool
	cmd := &cobra.Command{
		Use:   "fulfillment <process-id> <requirement-or-function-id>",
		Short: "Infer fulfillment of a requirement or standard function",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), func(ctx context.Context, s *app.Session) error {
				infer := s.Engine.InferFulfillment
				if function {
					infer = s.Engine.InferFunctionFulfillment
				}
				f, err := infer(args[1], args[0])
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(f)
				}
				fmt.Println(f.State)
				for _, ref := range f.InferredFrom {
					fmt.Printf("  %s %s %s\n", ref.Kind, ref.ID, ref.Title)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&function, "function", false, "treat the id as a standard function")
	return cmd
}

func documentCmd() *cobra.Command {
	doc := &cobra.Command{Use: "document", Short: "Evidence documents"}

	var in engine.DocumentInput
	add := &cobra.Command{
		Use:   "add",
		Short: "Register document",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), func(ctx context.Context, s *app.Session) error {
				d, err := s.Engine.AddDocument(in)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(d)
				}
				fmt.Printf("Added document %s\n", d.ID)
				return nil
			})
		},
	}
	add.Flags().StringVar(&in.Title, "title", "", "document title")
	add.Flags().StringArrayVar(&in.ProcessIDs, "process", nil, "process id (repeatable)")
	add.Flags().StringArrayVar(&in.ISOClauseReferences, "clause", nil, "ISO clause reference (repeatable)")
	_ = add.MarkFlagRequired("title")

	list := &cobra.Command{
		Use:   "list",
		Short: "List documents",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), func(ctx context.Context, s *app.Session) error {
				items := s.Engine.Documents()
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := newTable("ID", "Title", "Processes", "Clauses")
				for _, d := range items {
					tw.AppendRow(table.Row{d.ID, d.Title, strings.Join(d.ProcessIDs, ","), strings.Join(d.ISOClauseReferences, ",")})
				}
				tw.Render()
				return nil
			})
		},
	}

	remove := &cobra.Command{
		Use:   "remove <document-id>",
		Short: "Remove document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), func(ctx context.Context, s *app.Session) error {
				return s.Engine.RemoveDocument(args[0])
			})
		},
	}

	doc.AddCommand(add, list, remove)
	return doc
}

func printRequirements(items []domain.Requirement) error {
	if viper.GetBool("json") {
		return printJSON(items)
	}
	tw := newTable("ID", "Clause", "Title", "Type")
	for _, r := range items {
		tw.AppendRow(table.Row{r.ID, r.ClauseNumber, r.ClauseTitle, r.Type})
	}
	tw.Render()
	return nil
}
