package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"

	"github.com/kbukum/apikit/errors"
	"github.com/kbukum/apikit/httpclient"
	"github.com/kbukum/apikit/version"
)

const serviceName = "apicall"

// options holds the command line flags. Non-empty values override the
// loaded configuration.
type options struct {
	configFile   string
	baseURL      string
	headers      []string
	query        []string
	data         string
	logLevel     string
	bearer       string
	apiKey       string
	otlpEndpoint string
	fetch        bool
	empty        bool
	errorJSON    bool
}

func newRootCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apicall <method> <path> [flags]",
		Short: "Send a request through the apikit HTTP client",
		Long: heredoc.Doc(`
			apicall sends a single request through the apikit client pipeline
			and prints the decoded JSON response on stdout.

			Settings are read from config.yml, .env and APICALL_* environment
			variables; flags take precedence.
		`),
		Version:       version.Get().String(),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.configFile, "config", "", "Config file (default: config.yml, then $HOME/.apicall.yml)")
	flags.StringVar(&opts.baseURL, "base-url", "", "Base URL that request paths are resolved against")
	flags.StringArrayVarP(&opts.headers, "header", "H", nil, "Request header as 'Name: value' (repeatable)")
	flags.StringArrayVarP(&opts.query, "query", "q", nil, "Query parameter as 'name=value' (repeatable, order kept)")
	flags.StringVarP(&opts.data, "data", "d", "", "Raw request body; '@file' reads a file, '@-' reads stdin")
	flags.StringVar(&opts.logLevel, "log-level", "", "Request logging: none, info or debug")
	flags.StringVar(&opts.bearer, "bearer", "", "Bearer token")
	flags.StringVar(&opts.apiKey, "api-key", "", "API key sent in the X-API-Key header")
	flags.StringVar(&opts.otlpEndpoint, "otlp-endpoint", "", "Export traces and metrics to this OTLP HTTP endpoint (host:port)")
	flags.BoolVar(&opts.fetch, "fetch", false, "Use the lightweight path: no adapters, any 2xx succeeds")
	flags.BoolVar(&opts.empty, "empty", false, "Expect an empty response body")
	flags.BoolVar(&opts.errorJSON, "error-json", false, "Report request failures as a JSON error document on stderr")

	for _, m := range []httpclient.Method{
		httpclient.MethodGet,
		httpclient.MethodPost,
		httpclient.MethodPut,
		httpclient.MethodDelete,
	} {
		cmd.AddCommand(newMethodCmd(m, opts))
	}

	return cmd
}

// run executes the command line and returns the process exit code.
func run(ctx context.Context, args []string, in io.Reader, out, errOut io.Writer) int {
	opts := &options{}
	cmd := newRootCmd(opts)
	cmd.SetArgs(args)
	cmd.SetIn(in)
	cmd.SetOut(out)
	cmd.SetErr(errOut)

	if err := cmd.ExecuteContext(ctx); err != nil {
		reportError(errOut, err, opts.errorJSON)
		return 1
	}
	return 0
}

// reportError prints client failures in their application error form and
// everything else as is.
func reportError(w io.Writer, err error, asJSON bool) {
	var clientErr *httpclient.Error
	if !stderrors.As(err, &clientErr) {
		fmt.Fprintf(w, "Error: %v\n", err)
		return
	}
	appErr := errors.Wrap(clientErr)
	if asJSON {
		if printJSON(w, appErr.Envelope()) == nil {
			return
		}
	}
	fmt.Fprintf(w, "Error [%s]: %s\n", appErr.Code, appErr.Message)
	if status, ok := appErr.Details["http_status"]; ok {
		fmt.Fprintf(w, "HTTP status: %v\n", status)
	}
	if appErr.Retryable {
		fmt.Fprintln(w, "The request may succeed if retried.")
	}
}
