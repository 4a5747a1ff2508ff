// Command ideactl drives the analyze and refine loop from a terminal.
//
//	ideactl [global flags] <command> [flags] [args]
//
// Commands: submit, refine, history, view, lineage, plan, recommend, usage,
// validate, unvalidate, status, projects.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/bryanwahyu/launchlens/internal/domain/apperr"
	"github.com/bryanwahyu/launchlens/internal/domain/ideas"
	"github.com/bryanwahyu/launchlens/internal/infra/apiclient"
	"github.com/bryanwahyu/launchlens/internal/infra/logger"
	"github.com/bryanwahyu/launchlens/internal/middleware"
	"github.com/bryanwahyu/launchlens/internal/orchestrator"
)

type app struct {
	client  *apiclient.Client
	session *orchestrator.Session
	out     io.Writer
}

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		var ae *apperr.Error
		if errors.As(err, &ae) && ae.Raw != "" {
			fmt.Fprintln(os.Stderr, "raw upstream response:")
			fmt.Fprintln(os.Stderr, ae.Raw)
		}
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	global := flag.NewFlagSet("ideactl", flag.ContinueOnError)
	baseURL := global.String("url", envOr("LAUNCHLENS_URL", "http://localhost:8080"), "API base URL")
	token := global.String("token", os.Getenv("LAUNCHLENS_TOKEN"), "bearer token")
	user := global.String("user", os.Getenv("LAUNCHLENS_USER"), "user id to mint a token for (needs LAUNCHLENS_JWT_SECRET)")
	verbose := global.Bool("v", false, "debug logging")
	if err := global.Parse(args); err != nil {
		return err
	}
	if global.NArg() == 0 {
		global.Usage()
		return errors.New("missing command")
	}

	tok := *token
	if tok == "" && *user != "" {
		secret := os.Getenv("LAUNCHLENS_JWT_SECRET")
		if secret == "" {
			return errors.New("LAUNCHLENS_JWT_SECRET is required to mint a token")
		}
		var err error
		if tok, err = middleware.IssueToken(secret, *user, time.Hour); err != nil {
			return err
		}
	}
	if tok == "" {
		return errors.New("set -token/LAUNCHLENS_TOKEN or -user with LAUNCHLENS_JWT_SECRET")
	}

	log := logger.Nop()
	if *verbose {
		l, err := logger.New("dev")
		if err != nil {
			return err
		}
		defer l.Sync()
		log = l
	}

	client := apiclient.New(*baseURL, tok)
	a := &app{client: client, session: orchestrator.NewSession(client, log), out: out}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	cmd, rest := global.Arg(0), global.Args()[1:]
	switch cmd {
	case "submit":
		return a.submit(ctx, rest)
	case "refine":
		return a.refine(ctx, rest)
	case "history":
		return a.history(ctx)
	case "view":
		return a.view(ctx, rest)
	case "lineage":
		return a.lineage(ctx, rest)
	case "plan":
		return a.plan(ctx, rest)
	case "recommend":
		return a.recommend(ctx)
	case "usage":
		return a.usage(ctx)
	case "validate":
		return a.validate(ctx, rest)
	case "unvalidate":
		return a.unvalidate(ctx, rest)
	case "status":
		return a.status(ctx, rest)
	case "projects":
		return a.projects(ctx, rest)
	}
	return fmt.Errorf("unknown command %q", cmd)
}

func (a *app) submit(ctx context.Context, args []string) error {
	a.session.SetInput(strings.Join(args, " "))
	res, err := a.session.Submit(ctx)
	if err != nil {
		if a.session.View().LimitReached {
			fmt.Fprintln(a.out, "Free analysis limit reached for this month. Upgrade to keep analyzing.")
		}
		return err
	}
	return a.printJSON(res)
}

func (a *app) refine(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("refine", flag.ContinueOnError)
	id := fs.String("id", "", "analysis to refine")
	idea := fs.String("idea", "", "refined idea text")
	problem := fs.String("problem-fit", "", "problem fit")
	primary := fs.String("audience", "", "primary audience")
	secondary := fs.String("audience-secondary", "", "secondary audience")
	mvp := fs.String("mvp", "", "lean MVP features, comma separated")
	dist := fs.String("distribution", "", "distribution channels, comma separated")
	money := fs.String("monetization", "", "monetization models, comma separated")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := a.open(ctx, *id); err != nil {
		return err
	}
	if err := a.session.StartRefine(); err != nil {
		return err
	}

	form := a.session.View().RefineDraft
	override(&form.IdeaText, *idea)
	override(&form.ProblemFit, *problem)
	override(&form.AudiencePrimary, *primary)
	override(&form.AudienceSecondary, *secondary)
	override(&form.LeanMVP, *mvp)
	override(&form.Distribution, *dist)
	override(&form.Monetization, *money)

	res, err := a.session.Refine(ctx, form)
	if err != nil {
		return err
	}
	return a.printJSON(res)
}

func (a *app) history(ctx context.Context) error {
	if err := a.session.LoadHistory(ctx); err != nil {
		return err
	}
	for _, h := range a.session.View().History {
		marker := " "
		if !h.IsRoot() {
			marker = "↳"
		}
		fmt.Fprintf(a.out, "%s %s  %2d/10  %-10s  %s\n", marker, h.ID, h.ViabilityScore, h.ProjectStatus, firstLine(h.IdeaText, 60))
	}
	return nil
}

func (a *app) view(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("view", flag.ContinueOnError)
	id := fs.String("id", "", "analysis id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := a.open(ctx, *id); err != nil {
		return err
	}
	return a.printJSON(a.session.View().Current)
}

func (a *app) lineage(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("lineage", flag.ContinueOnError)
	id := fs.String("id", "", "analysis id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	chain, err := a.client.Lineage(ctx, ideas.AnalysisID(*id))
	if err != nil {
		return err
	}
	for i, h := range chain {
		fmt.Fprintf(a.out, "%s%s  %2d/10  %s\n", strings.Repeat("  ", i), h.ID, h.ViabilityScore, firstLine(h.IdeaText, 60))
	}
	return nil
}

func (a *app) plan(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("plan", flag.ContinueOnError)
	id := fs.String("id", "", "analysis id")
	generate := fs.Bool("generate", false, "generate a new plan instead of loading the latest")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := a.open(ctx, *id); err != nil {
		return err
	}
	if *generate {
		p, err := a.session.GeneratePlan(ctx)
		if err != nil {
			return err
		}
		return a.printJSON(p)
	}
	p, err := a.session.LoadPlan(ctx)
	if err != nil {
		return err
	}
	if p == nil {
		fmt.Fprintln(a.out, "No plan yet. Run with -generate to create one.")
		return nil
	}
	return a.printJSON(p)
}

func (a *app) recommend(ctx context.Context) error {
	recs, err := a.session.LoadRecommendations(ctx)
	if err != nil {
		return err
	}
	if len(recs) == 0 {
		fmt.Fprintln(a.out, "Nothing to validate next.")
		return nil
	}
	for i, r := range recs {
		fmt.Fprintf(a.out, "%d. %s  score %.1f  %s\n   %s\n", i+1, r.AnalysisID, r.Score, firstLine(r.IdeaText, 60), r.Reason)
	}
	return nil
}

func (a *app) usage(ctx context.Context) error {
	u, err := a.session.RefreshUsage(ctx)
	if err != nil {
		return err
	}
	if u.Subscribed {
		fmt.Fprintln(a.out, "Subscribed: unlimited analyses.")
		return nil
	}
	fmt.Fprintf(a.out, "%d of %d free analyses used since %s\n", u.Used, u.Limit, u.WindowStart.Format("2006-01-02"))
	return nil
}

func (a *app) validate(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("validate", flag.ContinueOnError)
	id := fs.String("id", "", "analysis id")
	notes := fs.String("notes", "", "validation notes")
	if err := fs.Parse(args); err != nil {
		return err
	}
	res, err := a.client.Validate(ctx, ideas.AnalysisID(*id), *notes)
	if err != nil {
		return err
	}
	return a.printJSON(res)
}

func (a *app) unvalidate(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("unvalidate", flag.ContinueOnError)
	id := fs.String("id", "", "analysis id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	res, err := a.client.Unvalidate(ctx, ideas.AnalysisID(*id))
	if err != nil {
		return err
	}
	return a.printJSON(res)
}

func (a *app) status(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	id := fs.String("id", "", "analysis id")
	status := fs.String("set", "", "none|validated|planning|building|testing|launched|paused")
	if err := fs.Parse(args); err != nil {
		return err
	}
	res, err := a.client.UpdateStatus(ctx, ideas.AnalysisID(*id), ideas.ProjectStatus(*status))
	if err != nil {
		return err
	}
	return a.printJSON(res)
}

func (a *app) projects(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("projects", flag.ContinueOnError)
	status := fs.String("status", "", "filter by project status")
	if err := fs.Parse(args); err != nil {
		return err
	}
	list, err := a.client.Projects(ctx, ideas.ProjectStatus(*status))
	if err != nil {
		return err
	}
	for _, p := range list {
		fmt.Fprintf(a.out, "%s  %-10s  %s\n", p.ID, p.ProjectStatus, firstLine(p.IdeaText, 60))
	}
	return nil
}

// open loads history and selects id in the session, fetching ids beyond the
// loaded page from the server.
func (a *app) open(ctx context.Context, id string) error {
	if id == "" {
		return apperr.Validation("-id is required")
	}
	if err := a.session.LoadHistory(ctx); err != nil {
		return err
	}
	return a.session.Open(ctx, ideas.AnalysisID(id))
}

func (a *app) printJSON(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func override(dst *string, v string) {
	if strings.TrimSpace(v) != "" {
		*dst = v
	}
}

func firstLine(s string, n int) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	if r := []rune(s); len(r) > n {
		return string(r[:n-1]) + "…"
	}
	return s
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
