package main

import (
	"Beacon/pkg/core"
	"Beacon/pkg/dispatch"
	"Beacon/pkg/groups"
	"Beacon/pkg/login"
	"Beacon/pkg/models"
	"Beacon/pkg/session"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/gookit/color"
	"github.com/olekukonko/tablewriter"
	"github.com/samber/lo"
)

const qrWidth = 50

func execute(ctx context.Context, app *App, name string, args []string, out io.Writer) error {
	switch name {
	case "status":
		return statusCommand(app, out)
	case "login":
		return loginCommand(ctx, app, out)
	case "contacts":
		return contactsCommand(ctx, app, out)
	case "import-contacts":
		return importCommand(ctx, app, args, out)
	case "groups":
		return groupsCommand(ctx, app, args, out)
	case "create-group":
		return createGroupCommand(ctx, app, args, out)
	case "members":
		return membersCommand(ctx, app, args, out)
	case "send":
		return sendCommand(ctx, app, args, out)
	default:
		return fmt.Errorf("%w: unknown command %q", core.ErrValidation, name)
	}
}

func newFlags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	return fs
}

func statusCommand(app *App, out io.Writer) error {
	if app.Mode() == session.ModeMain {
		color.Fprintln(out, "<green>Logged in</>")
		return nil
	}
	color.Fprintln(out, "<yellow>Not logged in</>, run `beacon login`")
	return nil
}

func loginCommand(ctx context.Context, app *App, out io.Writer) error {
	updates := make(chan login.Update)
	result := make(chan error, 1)
	go func() {
		defer close(updates)
		state, err := app.Login(ctx, updates)
		if err == nil && state != login.StateSuccess {
			err = &core.ProcessError{Op: fmt.Sprintf("login ended in state %s", state)}
		}
		result <- err
	}()

	for u := range updates {
		switch {
		case u.Image != "":
			qr, err := login.RenderQR(u.Image, qrWidth)
			if err != nil {
				color.Warn.Println("QR code not readable yet:", err)
				continue
			}
			fmt.Fprintln(out, "Scan this code with WhatsApp:")
			fmt.Fprint(out, qr)
		case u.State == login.StateAwaitingCode:
			fmt.Fprintln(out, "Waiting for QR Code...")
		case u.State == login.StateSuccess:
			color.Fprintln(out, "<green>QR code scanned successfully!</>")
		}
	}
	return <-result
}

func contactsCommand(ctx context.Context, app *App, out io.Writer) error {
	contacts, err := app.Contacts(ctx)
	if err != nil {
		return err
	}
	renderContacts(out, contacts)
	return nil
}

func importCommand(ctx context.Context, app *App, args []string, out io.Writer) error {
	fs := newFlags("import-contacts")
	file := fs.String("file", "", "JSON file with [{\"name\":..., \"phone\":...}]")
	if err := fs.Parse(args); err != nil {
		return usageError(err)
	}
	if *file == "" {
		return fmt.Errorf("%w: -file is required", core.ErrValidation)
	}
	n, err := app.ImportContacts(ctx, *file)
	if err != nil {
		return err
	}
	color.Fprintf(out, "<green>%d contacts have been saved to the database</>\n", n)
	return nil
}

func groupsCommand(ctx context.Context, app *App, args []string, out io.Writer) error {
	fs := newFlags("groups")
	tree := fs.Bool("tree", false, "show group members")
	if err := fs.Parse(args); err != nil {
		return usageError(err)
	}
	nodes, err := app.Groups(ctx, *tree)
	if err != nil {
		return err
	}
	renderGroups(out, nodes, *tree)
	return nil
}

func createGroupCommand(ctx context.Context, app *App, args []string, out io.Writer) error {
	fs := newFlags("create-group")
	name := fs.String("name", "", "group name")
	ids := fs.String("contacts", "", "comma separated contact ids")
	if err := fs.Parse(args); err != nil {
		return usageError(err)
	}
	selected, err := parseIDs(*ids)
	if err != nil {
		return err
	}
	group, err := app.CreateGroup(ctx, *name, selected)
	if err != nil {
		return err
	}
	color.Fprintf(out, "<green>Group %q created with id %d</>\n", group.Name, group.ID)
	return nil
}

func membersCommand(ctx context.Context, app *App, args []string, out io.Writer) error {
	fs := newFlags("members")
	id := fs.Uint("group", 0, "group id")
	if err := fs.Parse(args); err != nil {
		return usageError(err)
	}
	members, err := app.Members(ctx, uint(*id))
	if err != nil {
		return err
	}
	renderContacts(out, members)
	return nil
}

func sendCommand(ctx context.Context, app *App, args []string, out io.Writer) error {
	fs := newFlags("send")
	id := fs.Uint("group", 0, "group id")
	message := fs.String("message", "", "message text or HTML")
	file := fs.String("file", "", "file with the message text or HTML")
	if err := fs.Parse(args); err != nil {
		return usageError(err)
	}
	if *file != "" {
		data, err := os.ReadFile(*file)
		if err != nil {
			return fmt.Errorf("%w: %v", core.ErrValidation, err)
		}
		*message = string(data)
	}

	if app.Mode() == session.ModeLogin {
		color.Warn.Println("Not logged in, starting the QR login first")
		if err := loginCommand(ctx, app, out); err != nil {
			return err
		}
	}

	run, err := app.Send(ctx, uint(*id), *message)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Sending to %d recipients (run %s)\n", run.Recipients(), run.ID())

	var tracker dispatch.Tracker
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-run.Events():
			if !ok {
				return outcome(tracker.Outcome())
			}
			tracker.Apply(ev)
			printEvent(out, ev, tracker.Percent())
		}
	}
}

func outcome(ev core.DispatchEvent) error {
	switch e := ev.(type) {
	case core.CompletedEvent:
		return nil
	case core.FailedEvent:
		return e.Err
	default:
		return &core.ProcessError{Op: "send ended without a result"}
	}
}

func printEvent(out io.Writer, ev core.DispatchEvent, percent int) {
	switch e := ev.(type) {
	case core.ProgressEvent:
		fmt.Fprintf(out, "Progress: %d%%\n", percent)
	case core.NoticeEvent:
		if e.Level == core.NoticeError {
			color.Fprintf(out, "<red>%s</>\n", e.Text)
		} else {
			color.Fprintf(out, "<cyan>%s</>\n", e.Text)
		}
	case core.CompletedEvent:
		color.Fprintf(out, "<green>Messages sent successfully!</> (%d%%)\n", percent)
	case core.FailedEvent:
		color.Fprintf(out, "<red>%s</>\n", e.String())
	}
}

// parseIDs reads "1, 2,3" into contact ids.
func parseIDs(raw string) ([]uint, error) {
	parts := lo.Filter(strings.Split(raw, ","), func(s string, _ int) bool {
		return strings.TrimSpace(s) != ""
	})
	ids := make([]uint, 0, len(parts))
	for _, p := range parts {
		id, err := strconv.ParseUint(strings.TrimSpace(p), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid contact id %q", core.ErrValidation, p)
		}
		ids = append(ids, uint(id))
	}
	return ids, nil
}

func newTable(out io.Writer, header ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(out)
	table.SetHeader(header)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")
	return table
}

func renderContacts(out io.Writer, contacts []models.Contact) {
	table := newTable(out, "ID", "Name", "Phone")
	for _, c := range contacts {
		table.Append([]string{strconv.FormatUint(uint64(c.ID), 10), c.Name, c.Phone})
	}
	table.Render()
}

func renderGroups(out io.Writer, nodes []groups.Node, tree bool) {
	header := []string{"ID", "Name"}
	if tree {
		header = append(header, "Members")
	}
	table := newTable(out, header...)
	for _, n := range nodes {
		row := []string{strconv.FormatUint(uint64(n.Group.ID), 10), n.Group.Name}
		if tree {
			names := lo.Map(n.Members, func(c models.Contact, _ int) string { return c.Name })
			row = append(row, strings.Join(names, ", "))
		}
		table.Append(row)
	}
	table.Render()
}
