package cli

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/spec-kit/ticketapp/internal/domain"
	"github.com/spec-kit/ticketapp/internal/service"
	apperrors "github.com/spec-kit/ticketapp/pkg/util"
)

func ticketsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "tickets",
		Aliases: []string{"t"},
		Short:   "Manage your tickets",
	}
	cmd.AddCommand(
		ticketsListCmd(app),
		ticketsShowCmd(app),
		ticketsAddCmd(app),
		ticketsUpdateCmd(app),
		ticketsDeleteCmd(app),
	)
	return cmd
}

func ticketsListCmd(app *App) *cobra.Command {
	var filter service.TicketFilter

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tickets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := app.signedIn(cmd)
			if err != nil {
				return err
			}
			tickets := ws.Filter(filter)
			if len(tickets) == 0 {
				fmt.Fprintln(app.out, "No tickets found")
				return nil
			}
			tw := tabwriter.NewWriter(app.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tTITLE\tSTATUS\tPRIORITY\tUPDATED")
			for _, t := range tickets {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", t.ID, t.Title, t.Status, orDash(string(t.Priority)), t.UpdatedAt.Format(time.DateTime))
			}
			return tw.Flush()
		},
	}

	cmd.Flags().StringVarP(&filter.Status, "status", "s", service.StatusAll, "open, in_progress, closed or all")
	cmd.Flags().StringVarP(&filter.Search, "search", "q", "", "match title or description")
	return cmd
}

func ticketsShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one ticket",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := app.signedIn(cmd)
			if err != nil {
				return err
			}
			t, ok := ws.Ticket(args[0])
			if !ok {
				return apperrors.NewNotFound("ticket", nil)
			}
			printTicket(app, t)
			return nil
		},
	}
}

func ticketsAddCmd(app *App) *cobra.Command {
	var title, description, status, priority string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a ticket",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := app.signedIn(cmd)
			if err != nil {
				return err
			}
			if title, err = app.valueOrPrompt(title, "Title", false); err != nil {
				return err
			}
			t, err := ws.AddTicket(cmd.Context(), domain.TicketInput{
				Title:       title,
				Description: description,
				Status:      domain.TicketStatus(status),
				Priority:    domain.TicketPriority(priority),
			})
			if err != nil {
				return err
			}
			if t != nil {
				fmt.Fprintln(app.out, t.ID)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "ticket title")
	cmd.Flags().StringVar(&description, "description", "", "ticket description")
	cmd.Flags().StringVar(&status, "status", string(domain.TicketStatusOpen), "open, in_progress or closed")
	cmd.Flags().StringVar(&priority, "priority", "", "low, medium or high")
	return cmd
}

func ticketsUpdateCmd(app *App) *cobra.Command {
	var title, description, status, priority string

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change fields of a ticket",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := app.signedIn(cmd)
			if err != nil {
				return err
			}
			var update domain.TicketUpdate
			flags := cmd.Flags()
			if flags.Changed("title") {
				update.Title = &title
			}
			if flags.Changed("description") {
				update.Description = &description
			}
			if flags.Changed("status") {
				s := domain.TicketStatus(status)
				update.Status = &s
			}
			if flags.Changed("priority") {
				p := domain.TicketPriority(priority)
				update.Priority = &p
			}

			t, err := ws.UpdateTicket(cmd.Context(), args[0], update)
			if err != nil {
				return err
			}
			if t == nil {
				return apperrors.NewNotFound("ticket", nil)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "new title")
	cmd.Flags().StringVar(&description, "description", "", "new description")
	cmd.Flags().StringVar(&status, "status", "", "new status")
	cmd.Flags().StringVar(&priority, "priority", "", "new priority")
	return cmd
}

func ticketsDeleteCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   "Delete a ticket",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := app.signedIn(cmd)
			if err != nil {
				return err
			}
			return ws.DeleteTicket(cmd.Context(), args[0])
		},
	}
}

func statsCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Summarize your tickets by status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := app.signedIn(cmd)
			if err != nil {
				return err
			}
			s := ws.Stats()
			fmt.Fprintf(app.out, "Total:       %d\n", s.Total)
			fmt.Fprintf(app.out, "Open:        %d\n", s.Open)
			fmt.Fprintf(app.out, "In progress: %d\n", s.InProgress)
			fmt.Fprintf(app.out, "Closed:      %d\n", s.Closed)
			return nil
		},
	}
}

func printTicket(app *App, t domain.Ticket) {
	fmt.Fprintf(app.out, "ID:          %s\n", t.ID)
	fmt.Fprintf(app.out, "Title:       %s\n", t.Title)
	fmt.Fprintf(app.out, "Status:      %s\n", t.Status)
	fmt.Fprintf(app.out, "Priority:    %s\n", orDash(string(t.Priority)))
	fmt.Fprintf(app.out, "Created:     %s\n", t.CreatedAt.Format(time.DateTime))
	fmt.Fprintf(app.out, "Updated:     %s\n", t.UpdatedAt.Format(time.DateTime))
	if t.Description != "" {
		fmt.Fprintf(app.out, "\n%s\n", t.Description)
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
