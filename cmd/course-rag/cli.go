package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/SaiNageswarS/course-rag/agent"
	"github.com/SaiNageswarS/course-rag/appconfig"
	"github.com/SaiNageswarS/course-rag/mcpserver"
	"github.com/SaiNageswarS/course-rag/metrics"
	"github.com/SaiNageswarS/course-rag/rag"
	"github.com/SaiNageswarS/course-rag/schema"
	"github.com/SaiNageswarS/go-api-boot/logger"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

// env carries what commands need; tests replace collaborators.
type env struct {
	cfg        *appconfig.AppConfig
	components rag.Components
	in         io.Reader
	out        io.Writer
	errOut     io.Writer
}

func (e *env) system(ctx context.Context, withLLM bool) (*rag.System, error) {
	return rag.NewFromConfig(ctx, e.cfg, e.components, withLLM)
}

// newCLIApp creates the CLI application with all commands.
func newCLIApp(e *env) *cli.App {
	app := &cli.App{
		Name:    "course-rag",
		Usage:   "Answer questions about course transcripts",
		Version: Version,
		Writer:  e.out,
		Commands: []*cli.Command{
			ingestCmd(e),
			askCmd(e),
			coursesCmd(e),
			mcpCmd(e),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

func ingestCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:  "ingest",
		Usage: "Index every transcript in a folder",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "docs", Aliases: []string{"d"}, Value: e.cfg.DocsPath, Usage: "Folder with .txt/.md transcripts"},
			&cli.BoolFlag{Name: "clear", Usage: "Remove all indexed courses first"},
			&cli.BoolFlag{Name: "skip-existing", Value: true, Usage: "Leave already indexed courses untouched"},
		},
		Action: func(c *cli.Context) error {
			sys, err := e.system(c.Context, false)
			if err != nil {
				return outputError(err)
			}
			defer sys.Close()

			if c.Bool("clear") {
				if err := sys.Clear(c.Context); err != nil {
					return outputError(err)
				}
			}

			summary, err := sys.AddCourseFolder(c.Context, c.String("docs"), c.Bool("skip-existing"))
			if err != nil {
				return outputError(err)
			}

			failed := make([]string, 0, len(summary.Failed))
			for _, f := range summary.Failed {
				failed = append(failed, fmt.Sprintf("%s: %v", f.Path, f.Err))
			}
			return outputJSON(e.out, map[string]any{
				"courses": summary.Courses,
				"chunks":  summary.Chunks,
				"skipped": summary.Skipped,
				"failed":  failed,
			})
		},
	}
}

func askCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:      "ask",
		Usage:     "Ask a question; without arguments reads questions from stdin",
		ArgsUsage: "[question]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "session", Aliases: []string{"s"}, Usage: "Continue an existing session"},
			&cli.BoolFlag{Name: "load-docs", Value: true, Usage: "Index new transcripts from docs_path before answering"},
			&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "Print tool activity to stderr"},
		},
		Action: func(c *cli.Context) error {
			ctx := c.Context
			if e.components.Metrics == nil {
				e.components.Metrics = metrics.New()
			}
			if e.cfg.MetricsAddr != "" {
				e.components.Metrics.Serve(ctx, e.cfg.MetricsAddr)
			}

			sys, err := e.system(ctx, true)
			if err != nil {
				return outputError(err)
			}
			defer sys.Close()

			if c.Bool("load-docs") {
				loadDocs(ctx, sys, e.cfg.DocsPath)
			}

			sessionID := c.String("session")
			if c.NArg() > 0 {
				_, err := ask(ctx, e, sys, strings.Join(c.Args().Slice(), " "), sessionID, c.Bool("verbose"))
				return err
			}

			scanner := bufio.NewScanner(e.in)
			fmt.Fprint(e.out, "> ")
			for scanner.Scan() {
				question := strings.TrimSpace(scanner.Text())
				switch question {
				case "":
				case "quit", "exit":
					return nil
				default:
					id, err := ask(ctx, e, sys, question, sessionID, c.Bool("verbose"))
					if err != nil {
						fmt.Fprintf(e.errOut, "error: %v\n", err)
					} else {
						sessionID = id
					}
				}
				fmt.Fprint(e.out, "> ")
			}
			return scanner.Err()
		},
	}
}

func ask(ctx context.Context, e *env, sys *rag.System, question, sessionID string, verbose bool) (string, error) {
	reporter := agent.NewChannelReporter(16)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for event := range reporter.Events() {
			if tr := event.GetToolResult(); tr != nil && verbose {
				fmt.Fprintf(e.errOut, "[tool] %s %v\n", tr.ToolName, tr.Arguments)
			}
		}
	}()

	res, err := sys.Ask(ctx, reporter, &schema.GenerateAnswerRequest{Question: question, SessionId: sessionID})
	reporter.Close()
	<-done
	if err != nil {
		return sessionID, outputError(err)
	}

	fmt.Fprintln(e.out, res.Answer)
	if len(res.Sources) > 0 {
		fmt.Fprintln(e.out, "\nSources:")
		for _, s := range res.Sources {
			if s.Link != "" {
				fmt.Fprintf(e.out, "  - %s (%s)\n", s.Text, s.Link)
			} else {
				fmt.Fprintf(e.out, "  - %s\n", s.Text)
			}
		}
	}
	fmt.Fprintf(e.errOut, "session: %s\n", res.SessionId)
	return res.SessionId, nil
}

func loadDocs(ctx context.Context, sys *rag.System, dir string) {
	if _, err := os.Stat(dir); err != nil {
		logger.Info("No docs folder, skipping ingestion", zap.String("dir", dir))
		return
	}
	if _, err := sys.AddCourseFolder(ctx, dir, true); err != nil {
		logger.Error("Failed to load docs", zap.String("dir", dir), zap.Error(err))
	}
}

func coursesCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:  "courses",
		Usage: "List indexed courses",
		Action: func(c *cli.Context) error {
			sys, err := e.system(c.Context, false)
			if err != nil {
				return outputError(err)
			}
			defer sys.Close()

			analytics, err := sys.CourseAnalytics(c.Context)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(e.out, analytics)
		},
	}
}

func mcpCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "Serve the course tools over MCP on stdio",
		Action: func(c *cli.Context) error {
			sys, err := e.system(c.Context, false)
			if err != nil {
				return outputError(err)
			}
			defer sys.Close()

			return mcpserver.Run(sys.Index(), Version)
		},
	}
}

func outputJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	return cli.Exit(err.Error(), 1)
}
