// Command gradecli edits and inspects semester documents from a shell,
// using the same storage drivers as the server.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/stemsi/gradebook/internal/config"
	"github.com/stemsi/gradebook/internal/database"
	"github.com/stemsi/gradebook/internal/logger"
	"github.com/stemsi/gradebook/internal/model"
	"github.com/stemsi/gradebook/internal/service"
	"github.com/stemsi/gradebook/internal/validator"
	"golang.org/x/term"
)

const usage = `Usage: gradecli [flags] <command> [args]

Commands:
  list                                    stored semesters
  subjects                                subjects of the active semester
  stats <subject>                         progress and needed average
  add-subject [title]                     add a subject ("New Subject" when blank)
  add <subject> <name> <kind> <weight> [mark]
                                          add an assessment; mark is "75" or "15/20"
  delete <subject> <index>                delete an assessment
  export                                  write the active semester document to stdout
  import <file|->                         replace the active semester from a document

Flags:
`

// cli carries what a command needs: the service plus where to write.
type cli struct {
	svc    *service.SemesterService
	out    io.Writer
	in     io.Reader
	pretty bool // human output instead of JSON
	yes    bool // skip confirmations
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	cfg := config.Load()

	fs := flag.NewFlagSet("gradecli", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprint(stderr, usage)
		fs.PrintDefaults()
	}
	driver := fs.String("driver", cfg.StorageDriver, "storage driver: fs, bolt, redis or postgres")
	dir := fs.String("dir", cfg.SavesDir, "saves directory for the fs driver")
	pass := fs.Float64("pass", cfg.PassMark, "pass mark used by stats")
	semester := fs.String("semester", "", "semester to open instead of the most recent one")
	asJSON := fs.Bool("json", false, "print JSON even on a terminal")
	yes := fs.Bool("y", false, "do not ask for confirmation")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return 2
	}
	if math.IsNaN(*pass) || *pass < 0 || *pass > 100 {
		fmt.Fprintf(stderr, "gradecli: -pass must be between 0 and 100, got %g\n", *pass)
		return 2
	}
	cfg.StorageDriver, cfg.SavesDir, cfg.PassMark = *driver, *dir, *pass

	// quiet unless LOG_LEVEL asks otherwise
	level := os.Getenv("LOG_LEVEL")
	if level == "" {
		level = "warn"
	}
	log := logger.New(stderr, level, logFormat(stderr))
	if err := validator.Setup(); err != nil {
		log.Error().Err(err).Msg("Failed to set up validation")
		return 1
	}

	ctx := context.Background()
	store, closeStore, err := database.OpenDocumentStore(ctx, cfg, log)
	if err != nil {
		log.Error().Err(err).Str("driver", cfg.StorageDriver).Msg("Failed to open document store")
		return 1
	}
	defer closeStore()

	svc := service.NewSemesterService(store, cfg.PassMark, log)
	if err := svc.Startup(ctx); err != nil {
		log.Error().Err(err).Msg("Failed to load semesters")
		return 1
	}
	if *semester != "" {
		if err := svc.Open(ctx, *semester); err != nil {
			log.Error().Err(err).Str("semester", *semester).Msg("Failed to open semester")
			return 1
		}
	}

	c := &cli{svc: svc, out: stdout, in: stdin, pretty: isTerminal(stdout) && !*asJSON, yes: *yes}
	if err := c.dispatch(ctx, fs.Arg(0), fs.Args()[1:]); err != nil {
		var ue usageError
		if errors.As(err, &ue) {
			fmt.Fprintln(stderr, err)
			fs.Usage()
			return 2
		}
		log.Error().Err(err).Str("command", fs.Arg(0)).Msg("Command failed")
		return 1
	}
	return 0
}

type usageError string

func (e usageError) Error() string { return string(e) }

func (c *cli) dispatch(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "list":
		return c.list(ctx)
	case "subjects":
		return c.subjects()
	case "stats":
		if len(args) != 1 {
			return usageError("stats takes one subject")
		}
		return c.stats(args[0])
	case "add-subject":
		return c.addSubject(ctx, strings.Join(args, " "))
	case "add":
		if len(args) < 4 || len(args) > 5 {
			return usageError("add takes <subject> <name> <kind> <weight> [mark]")
		}
		return c.addAssessment(ctx, args)
	case "delete":
		if len(args) != 2 {
			return usageError("delete takes <subject> <index>")
		}
		return c.deleteAssessment(ctx, args[0], args[1])
	case "export":
		data, err := c.svc.Export()
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(c.out, "%s\n", data)
		return err
	case "import":
		if len(args) != 1 {
			return usageError("import takes a file name or -")
		}
		return c.importDocument(ctx, args[0])
	default:
		return usageError(fmt.Sprintf("unknown command %q", cmd))
	}
}

func (c *cli) list(ctx context.Context) error {
	docs, err := c.svc.ListSemesters(ctx)
	if err != nil {
		return err
	}
	if !c.pretty {
		return c.json(map[string]any{"semesters": docs, "active": c.svc.Active()})
	}
	tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	for _, d := range docs {
		marker := " "
		if d.Name == c.svc.Active() {
			marker = "*"
		}
		fmt.Fprintf(tw, "%s %s\t%s\n", marker, d.Name, d.ModifiedAt.Local().Format("2006-01-02 15:04"))
	}
	return tw.Flush()
}

func (c *cli) subjects() error {
	subjects := c.svc.Subjects()
	if !c.pretty {
		return c.json(subjects)
	}
	tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	for _, s := range subjects {
		fmt.Fprintf(tw, "%s\n", s.Title)
		for i, a := range s.Assessments {
			mark := "-"
			if a.Mark != nil {
				mark = strconv.FormatFloat(*a.Mark, 'f', -1, 64) + "%"
			}
			fmt.Fprintf(tw, "  %d\t%s\t%s\t%g%%\t%s\n", i, a.Name, a.Kind, a.Weight, mark)
		}
	}
	return tw.Flush()
}

func (c *cli) stats(title string) error {
	st, err := c.svc.Stats(title, nil)
	if err != nil {
		return err
	}
	if !c.pretty {
		return c.json(st)
	}
	current := "-"
	if st.CurrentAvgCompleted != nil {
		current = fmt.Sprintf("%.2f%%", *st.CurrentAvgCompleted)
	}
	tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Subject\t%s\n", st.Title)
	fmt.Fprintf(tw, "Completed weight\t%.2f\n", st.CompletedWeight)
	fmt.Fprintf(tw, "Planned weight\t%.2f\n", st.PlannedWeight)
	fmt.Fprintf(tw, "Contributed\t%.2f / 100\n", st.Contributed)
	fmt.Fprintf(tw, "Current average\t%s\n", current)
	fmt.Fprintf(tw, "Needed on remaining\t%s (pass mark %g)\n", st.NeededAvgRemaining, st.PassMark)
	return tw.Flush()
}

func (c *cli) addSubject(ctx context.Context, title string) error {
	title, err := c.svc.AddSubject(ctx, strings.TrimSpace(title))
	if err != nil {
		return err
	}
	return c.done(map[string]any{"subject": title, "semester": c.svc.Active()},
		fmt.Sprintf("Added %q to %s", title, c.svc.Active()))
}

func (c *cli) addAssessment(ctx context.Context, args []string) error {
	weight, err := strconv.ParseFloat(args[3], 64)
	if err != nil {
		return fmt.Errorf("weight %q is not a number: %w", args[3], model.ErrValidation)
	}
	req := model.AssessmentRequest{Name: args[1], Kind: args[2], Weight: &weight}
	if len(args) == 5 {
		req.Mark = model.MarkInput(args[4])
	}
	a, err := validator.Assessment(req)
	if err != nil {
		return err
	}

	idx, err := c.svc.AddAssessment(ctx, args[0], a)
	if err != nil {
		return err
	}
	return c.done(map[string]any{"subject": args[0], "index": idx, "assessment": a},
		fmt.Sprintf("Added %q to %q at index %d", a.Name, args[0], idx))
}

func (c *cli) deleteAssessment(ctx context.Context, title, rawIndex string) error {
	idx, err := strconv.Atoi(rawIndex)
	if err != nil || idx < 0 {
		return usageError(fmt.Sprintf("index %q must be a non-negative integer", rawIndex))
	}
	subj, err := c.svc.Subject(title)
	if err != nil {
		return err
	}
	if idx >= len(subj.Assessments) {
		return fmt.Errorf("subject %q index %d: %w", title, idx, model.ErrIndexOutOfRange)
	}

	if !c.confirm(fmt.Sprintf("Delete %q from %q?", subj.Assessments[idx].Name, title)) {
		fmt.Fprintln(c.out, "Cancelled")
		return nil
	}
	if err := c.svc.DeleteAssessment(ctx, title, idx); err != nil {
		return err
	}
	return c.done(map[string]any{"subject": title, "deleted": idx},
		fmt.Sprintf("Deleted assessment %d from %q", idx, title))
}

func (c *cli) importDocument(ctx context.Context, path string) error {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(c.in)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return err
	}
	if err := c.svc.Import(ctx, data); err != nil {
		return err
	}
	return c.done(map[string]any{"semester": c.svc.Active(), "subjects": len(c.svc.Subjects())},
		fmt.Sprintf("Imported %d subjects into %s", len(c.svc.Subjects()), c.svc.Active()))
}

// confirm asks on an interactive stdin; anything else counts as yes.
func (c *cli) confirm(prompt string) bool {
	f, ok := c.in.(*os.File)
	if c.yes || !ok || !term.IsTerminal(int(f.Fd())) {
		return true
	}
	fmt.Fprintf(c.out, "%s [y/N] ", prompt)
	answer, _ := bufio.NewReader(c.in).ReadString('\n')
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}

func (c *cli) done(v any, msg string) error {
	if !c.pretty {
		return c.json(v)
	}
	_, err := fmt.Fprintln(c.out, msg)
	return err
}

func (c *cli) json(v any) error {
	enc := json.NewEncoder(c.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// logFormat picks console output for a person watching stderr and JSON
// for anything else.
func logFormat(w io.Writer) string {
	if isTerminal(w) {
		return "pretty"
	}
	return "json"
}
