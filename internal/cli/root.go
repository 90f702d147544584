// Package cli implements the ticketapp command line client over a workspace
// of the configured store.
package cli

import (
	"bufio"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/spec-kit/ticketapp/internal/service"
)

// App carries what every command needs.
type App struct {
	workspaces *service.Workspaces
	out        io.Writer
	in         *bufio.Reader

	workspace string
}

// NewApp builds an App over the registry, reading prompts from in and
// writing to out.
func NewApp(workspaces *service.Workspaces, in io.Reader, out io.Writer) *App {
	return &App{workspaces: workspaces, in: bufio.NewReader(in), out: out}
}

// Notify prints a notice; it is registered as a notification sink.
func (a *App) Notify(n service.Notice) {
	fmt.Fprintf(a.out, "✓ %s\n", n.Message)
}

// NewRootCommand assembles the command tree.
func NewRootCommand(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:   "ticketapp",
		Short: "Manage your tickets from the terminal",
		Long: `ticketapp signs you in to a workspace and manages the tickets you own.

The session is persisted in the configured store, so it survives between
invocations until you log out.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&app.workspace, "workspace", "w", service.DefaultWorkspace, "workspace to operate on")

	root.AddCommand(
		signupCmd(app),
		loginCmd(app),
		logoutCmd(app),
		whoamiCmd(app),
		ticketsCmd(app),
		statsCmd(app),
	)
	return root
}

// current resolves the selected workspace and restores its session.
func (a *App) current(cmd *cobra.Command) (*service.Workspace, error) {
	ws, err := a.workspaces.Get(a.workspace)
	if err != nil {
		return nil, err
	}
	if _, err := ws.CheckAuth(cmd.Context()); err != nil {
		return nil, err
	}
	return ws, nil
}

// signedIn is current plus the requirement of an active session.
func (a *App) signedIn(cmd *cobra.Command) (*service.Workspace, error) {
	ws, err := a.current(cmd)
	if err != nil {
		return nil, err
	}
	if !ws.Session.IsAuthenticated() {
		return nil, errNotSignedIn
	}
	return ws, nil
}
