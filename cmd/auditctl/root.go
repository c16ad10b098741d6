package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"complyscan/internal/audit/workflow"
	"complyscan/internal/consent/gate"
	"complyscan/internal/platform/config"
	"complyscan/internal/platform/logger"
	"complyscan/internal/remote"
	"complyscan/internal/session"
	sessionMemory "complyscan/internal/session/store/memory"
)

const (
	flagConfig   = "config"
	flagEmail    = "email"
	flagPassword = "password"
	flagYes      = "yes"
	flagRemote   = "remote"
	flagLogLevel = "log-level"
)

// errRunFailed makes the process exit non-zero without repeating the failure
// already printed with the final state.
var errRunFailed = errors.New("audit run failed")

type options struct {
	configPath string
	email      string
	password   string
	remoteURL  string
	logLevel   string
	assumeYes  bool
}

func newRootCommand(in io.Reader, out io.Writer) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("AUDITCTL")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "auditctl <url>",
		Short:         "Run a consent-gated GDPR audit of a website",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			return v.BindPFlags(cmd.Flags())
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := options{
				configPath: v.GetString(flagConfig),
				email:      v.GetString(flagEmail),
				password:   v.GetString(flagPassword),
				remoteURL:  v.GetString(flagRemote),
				logLevel:   v.GetString(flagLogLevel),
				assumeYes:  v.GetBool(flagYes),
			}
			return runAudit(cmd, opts, args[0], bufio.NewReader(in), out)
		},
	}

	flags := cmd.Flags()
	flags.String(flagConfig, "", "Optional path to a YAML configuration file.")
	flags.String(flagEmail, "", "Account email (env AUDITCTL_EMAIL).")
	flags.String(flagPassword, "", "Account password (env AUDITCTL_PASSWORD).")
	flags.String(flagRemote, "", "Override the remote service base URL.")
	flags.String(flagLogLevel, "warn", "Log level for diagnostics on stderr.")
	flags.BoolP(flagYes, "y", false, "Grant consent without prompting when it is missing.")
	return cmd
}

func runAudit(cmd *cobra.Command, opts options, targetURL string, in *bufio.Reader, out io.Writer) error {
	ctx := cmd.Context()

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	if opts.remoteURL != "" {
		cfg.Remote.BaseURL = opts.remoteURL
	}
	log := logger.NewWithWriter(cmd.ErrOrStderr(), opts.logLevel, cfg.Log.Format)

	client := remote.New(cfg.Remote.BaseURL, cfg.Remote.Timeout, log)
	manager := session.NewManager(
		sessionMemory.NewInMemoryStore(),
		client,
		session.NewTokenSigner(cfg.Session.SigningKey, "auditctl"),
		cfg.Session.TTL,
		log,
	)
	sess, _, err := manager.SignIn(ctx, opts.email, opts.password)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "signed in as %s\n", sess.Identity.DisplayName)

	backend := client.For(sess.Identity.Credential)
	orch := workflow.New(workflow.Config{
		SubjectID:   sess.Identity.ID,
		ConsentText: cfg.Consent.Text,
		StepTimeout: cfg.Workflow.StepTimeout,
	}, backend, gate.New(backend, log), log)
	unsubscribe := orch.Subscribe(func(s workflow.State) { renderState(out, s) })
	defer unsubscribe()

	if err := orch.Submit(ctx, targetURL); err != nil {
		return err
	}
	if orch.CurrentState().Phase == workflow.PhaseConsentMissing {
		if !opts.assumeYes && !confirm(in, out, fmt.Sprintf("Grant consent with the text %q? [y/N] ", cfg.Consent.Text)) {
			fmt.Fprintln(out, "consent not granted; no audit was created")
			return nil
		}
		if err := orch.GrantConsent(ctx); err != nil {
			return err
		}
	}

	if orch.CurrentState().Phase == workflow.PhaseFailed {
		return errRunFailed
	}
	return nil
}

func confirm(in *bufio.Reader, out io.Writer, prompt string) bool {
	fmt.Fprint(out, prompt)
	line, err := in.ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

func renderState(out io.Writer, s workflow.State) {
	switch s.Phase {
	case workflow.PhaseConsentMissing:
		fmt.Fprintf(out, "[%s] %s\n", s.Phase, s.CallToAction)
	case workflow.PhaseFailed:
		if s.Failure != nil {
			fmt.Fprintf(out, "[%s] %s: %s\n", s.Phase, s.Failure.Kind, s.Failure.Message)
			return
		}
		fmt.Fprintf(out, "[%s]\n", s.Phase)
	case workflow.PhaseReady:
		fmt.Fprintf(out, "[%s] audit %s\n", s.Phase, s.AuditID)
		if s.Summary == nil {
			return
		}
		fmt.Fprintf(out, "  score %g (%s)\n", s.Summary.Score, s.Summary.Status)
		for _, v := range s.Summary.Violations {
			fmt.Fprintf(out, "  violation [%s] %s: %s\n", v.Severity, v.Article, v.Description)
		}
		for _, r := range s.Summary.Recommendations {
			fmt.Fprintf(out, "  recommendation [%s] %s\n", r.Priority, r.Title)
		}
	default:
		fmt.Fprintf(out, "[%s]\n", s.Phase)
	}
}
