// Command abnfgraph reads an ABNF grammar and reports which rules depend on
// which. By default it prints the dependency graph in Graphviz DOT format:
//
//	abnfgraph grammar.abnf | dot -Tsvg > grammar.svg
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/google/uuid"

	"github.com/l-donovan/abnf"
	"github.com/l-donovan/abnf/ast"
	"github.com/l-donovan/abnf/deps"
	"github.com/l-donovan/abnf/graph"
	"github.com/l-donovan/abnf/internal/logging"
	"github.com/l-donovan/abnf/internal/source"
	"github.com/l-donovan/abnf/internal/store"
)

const version = "0.2.0"

// errSyntax marks a grammar syntax failure whose diagnostic was already
// printed.
var errSyntax = errors.New("grammar syntax error")

// exitCode is raised by kong's exit hook and recovered in run.
type exitCode int

// CLI defines the command-line interface for abnfgraph.
type CLI struct {
	LogLevel  string `name:"log-level" default:"warn" enum:"debug,info,warn,error" help:"Log level (${enum})"`
	LogFormat string `name:"log-format" default:"text" enum:"text,json" help:"Log format (${enum})"`

	Graph   GraphCmd   `cmd:"" default:"withargs" help:"Print the rule dependency graph in DOT format"`
	Render  RenderCmd  `cmd:"" help:"Print every rule in canonical ABNF form"`
	Deps    DepsCmd    `cmd:"" help:"List the dependencies of every rule"`
	Store   StoreCmd   `cmd:"" help:"Record rules and dependencies in a SQLite database"`
	Version VersionCmd `cmd:"" help:"Print version information"`
}

// Input is the grammar argument shared by every command.
type Input struct {
	Path string `arg:"" help:"Path to the grammar (.abnf, .xz, or RFC .xml)" type:"path"`
	XML  bool   `name:"xml" help:"Extract ABNF from RFC XML regardless of file extension"`
}

// Env carries what commands need from main.
type Env struct {
	Ctx    context.Context
	Stdout io.Writer
	Stderr io.Writer
}

// load reads and parses the grammar. Syntax failures are reported on stderr
// and returned as errSyntax.
func (in *Input) load(env *Env) (*source.Grammar, *abnf.Grammar, error) {
	src, err := source.Load(in.Path, source.Options{XML: in.XML})
	if err != nil {
		logging.GrammarError(env.Ctx, in.Path, err)
		return nil, nil, err
	}

	logging.DebugContext(env.Ctx, "grammar_read", "path", src.Path, "bytes", len(src.Data), "xml", in.XML)

	g, err := abnf.ParseGrammarNamed(in.Path, src.Data)
	if err != nil {
		var parseErr *abnf.ParseError
		if errors.As(err, &parseErr) && errors.Is(err, abnf.ErrTrailingData) {
			logging.WarnContext(env.Ctx, "trailing_data",
				"path", in.Path,
				"last_rule", parseErr.LastRule,
				"line", parseErr.Loc.Line,
				"offset", parseErr.Loc.Offset)
		} else {
			logging.GrammarError(env.Ctx, in.Path, err)
		}
		reportSyntaxError(env.Stderr, err)
		return nil, nil, errSyntax
	}

	logging.GrammarLoaded(env.Ctx, src.Path, src.Digest, len(g.Rules))
	return src, g, nil
}

func reportSyntaxError(w io.Writer, err error) {
	var parseErr *abnf.ParseError
	if !errors.As(err, &parseErr) {
		fmt.Fprintln(w, err)
		return
	}

	if errors.Is(err, abnf.ErrTrailingData) {
		fmt.Fprintln(w, "Trailing data at the end. You might have an error in your syntax.")
		fmt.Fprintf(w, "Note: The error must be after rule `%s`\n", parseErr.LastRule)
	} else {
		fmt.Fprintln(w, "Could not parse any data. Please check your ABNF syntax.")
		fmt.Fprintln(w, parseErr.Err)
	}
	fmt.Fprintln(w, "Note: Try adding a newline at the end.")
	parseErr.PrintContext(w, 2)
}

// GraphCmd prints the DOT dependency graph.
type GraphCmd struct {
	Input
}

func (c *GraphCmd) Run(env *Env) error {
	_, g, err := c.load(env)
	if err != nil {
		return err
	}
	return graph.Write(env.Stdout, g.Rules)
}

// RenderCmd prints the canonical form of every rule.
type RenderCmd struct {
	Input
	CRLF bool `name:"crlf" help:"Terminate rules with CRLF as RFC 5234 requires"`
}

func (c *RenderCmd) Run(env *Env) error {
	_, g, err := c.load(env)
	if err != nil {
		return err
	}
	return ast.RenderRules(env.Stdout, g.Rules, &ast.RenderConfig{CRLF: c.CRLF})
}

// DepsCmd lists each rule's dependencies.
type DepsCmd struct {
	Input
	JSON bool `name:"json" help:"Print a JSON array instead of text"`
}

type ruleDeps struct {
	Rule         string   `json:"rule"`
	Definition   string   `json:"definition"`
	Dependencies []string `json:"dependencies"`
}

func (c *DepsCmd) Run(env *Env) error {
	_, g, err := c.load(env)
	if err != nil {
		return err
	}

	report := make([]ruleDeps, len(g.Rules))
	for i, rule := range g.Rules {
		names := deps.OfRule(rule)
		if names == nil {
			names = []string{}
		}
		report[i] = ruleDeps{Rule: rule.Name, Definition: rule.Definition.String(), Dependencies: names}
	}

	if c.JSON {
		enc := json.NewEncoder(env.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	for _, r := range report {
		line := r.Rule + " " + r.Definition
		if len(r.Dependencies) > 0 {
			line += " " + strings.Join(r.Dependencies, ", ")
		}
		if _, err := fmt.Fprintln(env.Stdout, line); err != nil {
			return err
		}
	}
	return nil
}

// StoreCmd records the grammar in a SQLite database.
type StoreCmd struct {
	Input
	DB string `name:"db" required:"" help:"SQLite database file" type:"path"`
}

func (c *StoreCmd) Run(env *Env) error {
	src, g, err := c.load(env)
	if err != nil {
		return err
	}

	s, err := store.Open(c.DB)
	if err != nil {
		logging.ErrorContext(env.Ctx, "store_failed", "db", c.DB, "error", err.Error())
		return err
	}
	defer s.Close()

	id, err := s.Save(env.Ctx, store.Import{
		Path:   src.Path,
		Digest: src.Digest,
		RunID:  logging.GetRunID(env.Ctx),
		Rules:  g.Rules,
	})
	if err != nil {
		logging.ErrorContext(env.Ctx, "store_failed", "db", c.DB, "error", err.Error())
		return err
	}

	logging.InfoContext(env.Ctx, "grammar_stored", "db", c.DB, "import_id", id)
	_, err = fmt.Fprintf(env.Stdout, "import %d: %d rules\n", id, len(g.Rules))
	return err
}

// VersionCmd prints version information.
type VersionCmd struct{}

func (c *VersionCmd) Run(env *Env) error {
	_, err := fmt.Fprintf(env.Stdout, "abnfgraph version %s\n", version)
	return err
}

// run parses args and executes the selected command, returning the process
// exit code.
func run(args []string, stdout, stderr io.Writer) (code int) {
	defer func() {
		if r := recover(); r != nil {
			c, ok := r.(exitCode)
			if !ok {
				panic(r)
			}
			code = int(c)
		}
	}()

	var cli CLI
	parser, err := kong.New(&cli,
		kong.Name("abnfgraph"),
		kong.Description("Dependency graphs for ABNF grammars"),
		kong.UsageOnError(),
		kong.Writers(stdout, stderr),
		kong.Exit(func(code int) { panic(exitCode(code)) }),
		kong.ConfigureHelp(kong.HelpOptions{Compact: true}),
	)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}

	ctx, err := parser.Parse(args)
	if err != nil {
		fmt.Fprintf(stderr, "abnfgraph: error: %v\n", err)
		return 1
	}
	if ctx.Command() == "" {
		return 0
	}

	level, _ := logging.ParseLevel(cli.LogLevel)
	format, _ := logging.ParseFormat(cli.LogFormat)
	logging.InitLogger(stderr, level, format)

	env := &Env{
		Ctx:    logging.WithRunID(context.Background(), uuid.New().String()),
		Stdout: stdout,
		Stderr: stderr,
	}

	if err := ctx.Run(env); err != nil {
		if !errors.Is(err, errSyntax) {
			fmt.Fprintf(stderr, "abnfgraph: error: %v\n", err)
		}
		return 1
	}
	return 0
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}
