package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/temple/internal"
	"github.com/starford/temple/internal/commands"
	"github.com/starford/temple/internal/index"
	"github.com/starford/temple/internal/mcpserver"
	"github.com/starford/temple/internal/noteservice"
	"github.com/starford/temple/internal/picker"
	"github.com/starford/temple/internal/render"
	"github.com/starford/temple/internal/resolver"
	"github.com/starford/temple/internal/settings"
	pkgconfig "github.com/starford/temple/pkg/config"
)

var version = "dev"

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.Load(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	opts := []internal.Option{
		internal.WithConfig(cfg),
	}

	if err := internal.Run(ctx, opts...); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}

	return nil
}

// withRuntime opens the shared components with logs on stderr, so stdout
// carries only command output.
func withRuntime(fn func(ctx context.Context, cmd *cli.Command, rt *internal.Runtime) error) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		rt, err := internal.Open(internal.WithConfig(cfg), internal.WithLogOutput(os.Stderr))
		if err != nil {
			return err
		}
		defer rt.Close()
		return fn(ctx, cmd, rt)
	}
}

func requireArg(cmd *cli.Command, n int, name string) (string, error) {
	v := cmd.Args().Get(n)
	if v == "" {
		return "", fmt.Errorf("missing argument %s", name)
	}
	return v, nil
}

func printOutcome(w io.Writer, out noteservice.Outcome) error {
	switch {
	case out.Cancelled():
		_, err := fmt.Fprintf(w, "%s: cancelled\n", out.Command)
		return err
	case out.Target != "":
		_, err := fmt.Fprintf(w, "%s: %s rendered in %s\n", out.Command, out.Target, out.Duration.Round(time.Microsecond))
		return err
	default:
		_, err := fmt.Fprint(w, out.Output)
		return err
	}
}

func listTemplates(ctx context.Context, cmd *cli.Command, rt *internal.Runtime) error {
	docs, err := rt.Service.Templates(ctx)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(cmd.Root().Writer, 0, 4, 2, ' ', 0)
	for _, d := range docs {
		fmt.Fprintf(w, "%s\t%s\n", resolver.Label(d), d.Path)
	}
	return w.Flush()
}

// runCommand executes a registry command against the editor state the flags describe.
func runCommand(id string, state func(cmd *cli.Command) commands.State) func(context.Context, *cli.Command, *internal.Runtime) error {
	return func(ctx context.Context, cmd *cli.Command, rt *internal.Runtime) error {
		path, err := requireArg(cmd, 0, "PATH")
		if err != nil {
			return err
		}
		st := state(cmd)
		st.Path = path
		out, err := commands.NewRegistry(rt.Service).Execute(ctx, id, st)
		if err != nil {
			return err
		}
		return printOutcome(cmd.Root().Writer, out)
	}
}

func insertState(cmd *cli.Command) commands.State {
	var p picker.Picker = picker.Prompt{In: os.Stdin, Out: os.Stderr}
	if name := cmd.String("template"); name != "" {
		p = picker.ByName(name)
	}
	at := int(cmd.Int("at"))
	return commands.State{Selection: render.Span{Start: at, End: at}, Picker: p}
}

func selectionState(cmd *cli.Command) commands.State {
	return commands.State{Selection: render.Span{Start: int(cmd.Int("start")), End: int(cmd.Int("end"))}}
}

func noSelection(*cli.Command) commands.State { return commands.State{} }

// listCommands shows which commands the given state enables.
func listCommands(_ context.Context, cmd *cli.Command, rt *internal.Runtime) error {
	st := selectionState(cmd)
	st.Path = cmd.String("path")
	w := tabwriter.NewWriter(cmd.Root().Writer, 0, 4, 2, ' ', 0)
	for _, c := range commands.NewRegistry(rt.Service).List() {
		state := "disabled"
		if c.Check(st) {
			state = "enabled"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", c.ID, c.Name, state)
	}
	return w.Flush()
}

func renderText(ctx context.Context, cmd *cli.Command, rt *internal.Runtime) error {
	text := cmd.String("text")
	if text == "" {
		data, err := io.ReadAll(cmd.Root().Reader)
		if err != nil {
			return fmt.Errorf("read template from stdin: %w", err)
		}
		text = string(data)
	}
	out, err := rt.Service.RenderText(ctx, text, cmd.String("path"))
	if err != nil {
		return err
	}
	return printOutcome(cmd.Root().Writer, out)
}

func showSettings(_ context.Context, cmd *cli.Command, rt *internal.Runtime) error {
	enc := json.NewEncoder(cmd.Root().Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(rt.Service.Settings().Snapshot())
}

func getSetting(_ context.Context, cmd *cli.Command, rt *internal.Runtime) error {
	key, err := requireArg(cmd, 0, "KEY")
	if err != nil {
		return err
	}
	v, err := settings.Get(rt.Service.Settings().Snapshot(), key)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.Root().Writer, v)
	return err
}

func setSetting(_ context.Context, cmd *cli.Command, rt *internal.Runtime) error {
	key, err := requireArg(cmd, 0, "KEY")
	if err != nil {
		return err
	}
	if cmd.Args().Len() < 2 {
		return errors.New("missing argument VALUE")
	}
	next, err := rt.Service.Settings().Set(key, cmd.Args().Get(1))
	if err != nil {
		return err
	}
	v, _ := settings.Get(next, key)
	_, err = fmt.Fprintf(cmd.Root().Writer, "%s = %s\n", key, v)
	return err
}

func listSettingFields(_ context.Context, cmd *cli.Command, rt *internal.Runtime) error {
	current := rt.Service.Settings().Snapshot()
	w := tabwriter.NewWriter(cmd.Root().Writer, 0, 4, 2, ' ', 0)
	for _, f := range settings.Fields() {
		fmt.Fprintf(w, "%s\t%s\t%s\n", f.Key, f.Get(current), f.Description)
	}
	return w.Flush()
}

func history(ctx context.Context, cmd *cli.Command, rt *internal.Runtime) error {
	records, err := rt.DB.Renders(ctx, index.RenderQuery{
		Target: cmd.String("target"),
		Status: cmd.String("status"),
		Limit:  int(cmd.Int("limit")),
	})
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(cmd.Root().Writer, 0, 4, 2, ' ', 0)
	for _, rec := range records {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			humanize.Time(rec.RenderedAt), rec.Command, rec.Status, rec.Target, rec.Template, rec.Duration.Round(time.Microsecond), rec.Error)
	}
	return w.Flush()
}

func serveMCP(_ context.Context, _ *cli.Command, rt *internal.Runtime) error {
	rt.Logger.Info("mcp: serving on stdio")
	return mcpserver.New(rt.Service, version).ServeStdio()
}

func main() {
	cmd := &cli.Command{
		Name:    "temple",
		Usage:   "Template rendering for Markdown vaults",
		Version: version,
		Action:  serve,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP API, the vault watcher and auto-render",
				Action: serve,
			},
			{
				Name:   "templates",
				Usage:  "List templates available for insertion",
				Action: withRuntime(listTemplates),
			},
			{
				Name:      "insert",
				Usage:     "Render a template against a document and insert it",
				ArgsUsage: "PATH",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "template", Aliases: []string{"t"}, Usage: "Template label or path; prompts when empty"},
					&cli.IntFlag{Name: "at", Usage: "Byte offset to insert at"},
				},
				Action: withRuntime(runCommand(noteservice.CommandInsertTemplate, insertState)),
			},
			{
				Name:      "render-file",
				Usage:     "Render a document in place",
				ArgsUsage: "PATH",
				Action:    withRuntime(runCommand(noteservice.CommandRenderFile, noSelection)),
			},
			{
				Name:      "render-selection",
				Usage:     "Render a byte range of a document in place",
				ArgsUsage: "PATH",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "start", Usage: "Start byte offset", Required: true},
					&cli.IntFlag{Name: "end", Usage: "End byte offset (exclusive)", Required: true},
				},
				Action: withRuntime(runCommand(noteservice.CommandRenderSelection, selectionState)),
			},
			{
				Name:  "commands",
				Usage: "List commands and whether a document state enables them",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "path", Usage: "Active document"},
					&cli.IntFlag{Name: "start", Usage: "Selection start"},
					&cli.IntFlag{Name: "end", Usage: "Selection end"},
				},
				Action: withRuntime(listCommands),
			},
			{
				Name:  "render",
				Usage: "Render template text and print the result (reads stdin without --text)",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "text", Usage: "Template text"},
					&cli.StringFlag{Name: "path", Usage: "Document whose context the text sees"},
				},
				Action: withRuntime(renderText),
			},
			{
				Name:  "settings",
				Usage: "Inspect and change render settings",
				Commands: []*cli.Command{
					{Name: "show", Usage: "Print all settings as JSON", Action: withRuntime(showSettings)},
					{Name: "get", Usage: "Print one setting", ArgsUsage: "KEY", Action: withRuntime(getSetting)},
					{Name: "set", Usage: "Change and persist one setting", ArgsUsage: "KEY VALUE", Action: withRuntime(setSetting)},
					{Name: "fields", Usage: "List setting keys", Action: withRuntime(listSettingFields)},
				},
			},
			{
				Name:  "history",
				Usage: "Show the render journal, newest first",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "target", Usage: "Only renders of this document"},
					&cli.StringFlag{Name: "status", Usage: "rendered, cancelled or failed"},
					&cli.IntFlag{Name: "limit", Value: 20, Usage: "Maximum rows"},
				},
				Action: withRuntime(history),
			},
			{
				Name:   "mcp",
				Usage:  "Serve the MCP tools on stdio",
				Action: withRuntime(serveMCP),
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
