package main

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/labstack/gommon/color"
	"github.com/pkg/errors"
	"github.com/pmezard/go-difflib/difflib"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/trezcool/schooladmin/core"
	"github.com/trezcool/schooladmin/core/icon"
	"github.com/trezcool/schooladmin/core/school"
	"github.com/trezcool/schooladmin/core/session"
	apisvc "github.com/trezcool/schooladmin/services/api"
	sessionstore "github.com/trezcool/schooladmin/storage/session"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

// reportedError has already been printed to the admin.
type reportedError struct{ err error }

func (e *reportedError) Error() string { return e.err.Error() }

func (e *reportedError) Unwrap() error { return e.err }

type commandLine struct {
	conf   *core.Config
	logger core.Logger
	out    io.Writer
	color  *color.Color

	// store overrides the session store picked from the flags
	store session.Store

	// persistent flags
	apiURL      string
	sessionFile string
	ephemeral   bool
	stats       bool

	sess    *session.Manager
	client  *apisvc.Client
	svc     *school.Service
	metrics *prometheus.Registry
}

func newCommandLine(conf *core.Config, logger core.Logger, out io.Writer) *commandLine {
	return &commandLine{conf: conf, logger: logger, out: out, color: color.New()}
}

func (cli *commandLine) run(args []string) error {
	root := cli.rootCommand()
	root.SetArgs(args[1:])
	root.SetOut(cli.out)
	root.SetErr(cli.out)

	err := root.ExecuteContext(context.Background())
	if cli.stats && cli.metrics != nil {
		cli.printStats()
	}

	var reported *reportedError
	switch {
	case err == nil, err == errHelp:
	case errors.As(err, &reported):
		return reported.err
	default:
		fmt.Fprintln(cli.out, cli.color.Red(err.Error()))
	}
	return err
}

func (cli *commandLine) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "schooladmin",
		Short:         "Manage your school on the school platform",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			_ = cmd.Help()
			return errHelp
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return cli.setup()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&cli.apiURL, "api-url", cli.conf.APIURL, "base URL of the school platform API")
	flags.StringVar(&cli.sessionFile, "session-file", cli.conf.SessionFile, "where the session is kept between runs")
	flags.BoolVar(&cli.ephemeral, "ephemeral", false, "keep the session in memory only")
	flags.BoolVar(&cli.stats, "stats", false, "print API request statistics when done")

	root.AddCommand(
		cli.signInCommand(),
		cli.signOutCommand(),
		cli.registerCommand(),
		cli.resetPasswordCommand(),
		cli.acceptInviteCommand(),
		cli.whoAmICommand(),
		cli.schoolsCommand(),
		cli.dashboardCommand(),
		cli.teachersCommand(),
		cli.locationsCommand(),
		cli.classesCommand(),
		cli.studentsCommand(),
		cli.teamCommand(),
		cli.brandingCommand(),
		cli.paymentsCommand(),
	)
	return root
}

// setup builds the session, the API client and the service from the flags.
func (cli *commandLine) setup() error {
	store := cli.store
	if store == nil {
		if cli.ephemeral {
			store = sessionstore.NewMemoryStore()
		} else {
			store = sessionstore.NewFileStore(cli.sessionFile)
		}
	}
	sess, err := session.NewManager(store)
	if err != nil {
		return err
	}

	cli.metrics = prometheus.NewRegistry()
	client, err := apisvc.New(sess, apisvc.Options{
		BaseURL:       cli.apiURL,
		Timeout:       cli.conf.RequestTimeout,
		UserAgent:     cli.conf.AppName + "/" + cli.conf.Build,
		Logger:        cli.logger,
		Registerer:    cli.metrics,
		ThemeCacheTTL: cli.conf.ThemeCacheTTL,
		OnUnauthorized: func() {
			cli.logger.Info("session cleared after the backend answered 401")
		},
	})
	if err != nil {
		return err
	}
	gen := icon.NewGenerator(client, icon.GeneratorOptions{
		Logger:      cli.logger,
		MaxFailures: cli.conf.Breaker.MaxFailures,
		OpenTimeout: cli.conf.Breaker.OpenTimeout,
		Registerer:  cli.metrics,
	})

	cli.sess = sess
	cli.client = client
	cli.svc = school.NewService(client, sess, gen, cli.logger)
	return nil
}

// output

func (cli *commandLine) printf(format string, a ...interface{}) {
	fmt.Fprintf(cli.out, format, a...)
}

func (cli *commandLine) success(format string, a ...interface{}) {
	fmt.Fprintln(cli.out, cli.color.Green(fmt.Sprintf(format, a...)))
}

func (cli *commandLine) notice(format string, a ...interface{}) {
	fmt.Fprintln(cli.out, cli.color.Yellow(fmt.Sprintf(format, a...)))
}

// fail prints err for the admin, using fallback when err says nothing readable.
func (cli *commandLine) fail(err error, fallback string) error {
	if errors.Is(err, core.ErrNoChanges) {
		cli.notice("Nothing to update")
		return nil
	}
	fmt.Fprintln(cli.out, cli.color.Red(core.ErrorMessage(err, fallback)))
	switch {
	case errors.Is(err, core.ErrUnauthenticated):
		cli.printf("Run `schooladmin signin` to sign in again.\n")
	case errors.Is(err, core.ErrNoSchool):
		cli.printf("Run `schooladmin schools list` and `schooladmin schools select ID`.\n")
	}
	return &reportedError{err}
}

func (cli *commandLine) table(header ...string) *tabwriter.Writer {
	tw := tabwriter.NewWriter(cli.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(header, "\t"))
	return tw
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// codeText shows a registration code in order: glyphs, then numbered icon names.
func codeText(seq icon.Sequence) string {
	if seq.Empty() {
		return "none"
	}
	names := make([]string, len(seq))
	for i, id := range seq {
		ic, _ := icon.ByID(id)
		names[i] = fmt.Sprintf("%d. %s", i+1, ic.Name)
	}
	return strings.Join(seq.Glyphs(), " ") + "  (" + strings.Join(names, ", ") + ")"
}

// prompts

// password returns val, or asks for it on the terminal.
func (cli *commandLine) password(val, prompt string) (string, error) {
	if val != "" {
		return val, nil
	}
	cli.printf("%s: ", prompt)
	pwd, err := readPasswordFunc(int(os.Stdin.Fd()))
	cli.printf("\n")
	if err != nil {
		return "", errors.Wrap(err, "reading password")
	}
	return string(pwd), nil
}

// dry-run previews

func fieldLines(fields map[string]string) []string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	lines := make([]string, len(keys))
	for i, k := range keys {
		lines[i] = k + ": " + fields[k] + "\n"
	}
	return lines
}

// preview prints the unified diff between current and current with changes applied.
func (cli *commandLine) preview(name string, current map[string]string, changes url.Values) error {
	updated := make(map[string]string, len(current))
	for k, v := range current {
		updated[k] = v
	}
	for k := range changes {
		updated[k] = changes.Get(k)
	}
	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        fieldLines(current),
		B:        fieldLines(updated),
		FromFile: name,
		ToFile:   name + " (updated)",
		Context:  3,
	})
	if err != nil {
		return errors.Wrap(err, "rendering preview")
	}
	cli.printf("%s", diff)
	cli.notice("Dry run: nothing was saved")
	return nil
}

// stats

func (cli *commandLine) printStats() {
	families, err := cli.metrics.Gather()
	if err != nil {
		cli.logger.Warn("gathering metrics", err)
		return
	}
	tw := cli.table("METRIC", "LABELS", "VALUE")
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			labels := make([]string, 0, len(m.GetLabel()))
			for _, lp := range m.GetLabel() {
				labels = append(labels, lp.GetName()+"="+lp.GetValue())
			}
			var value string
			switch {
			case m.GetCounter() != nil:
				value = fmt.Sprintf("%.0f", m.GetCounter().GetValue())
			case m.GetHistogram() != nil:
				h := m.GetHistogram()
				value = fmt.Sprintf("%d in %.3fs", h.GetSampleCount(), h.GetSampleSum())
			default:
				continue
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\n", mf.GetName(), strings.Join(labels, ","), value)
		}
	}
	_ = tw.Flush()
}
