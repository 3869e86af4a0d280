package main

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/MakeNowJust/heredoc/v2"
	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"

	"github.com/kbukum/apikit/httpclient"
	"github.com/kbukum/apikit/logger"
	"github.com/kbukum/apikit/observability"
	"github.com/kbukum/apikit/version"
)

const shutdownTimeout = 5 * time.Second

func newMethodCmd(method httpclient.Method, opts *options) *cobra.Command {
	name := strings.ToLower(method.String())
	return &cobra.Command{
		Use:   name + " <path>",
		Short: "Send a " + method.String() + " request",
		Example: heredoc.Docf(`
			# Resolve the path against a base URL
			$ apicall %[1]s --base-url https://api.example.com/v1 items -q page=2

			# Use an absolute URL with a bearer token and debug logging
			$ apicall %[1]s https://api.example.com/v1/items --bearer "$TOKEN" --log-level debug
		`, name),
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCall(cmd, method, args[0], opts)
		},
	}
}

func runCall(cmd *cobra.Command, method httpclient.Method, target string, opts *options) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	log := logger.NewWithWriter(&cfg.Logging, cfg.Name, cmd.ErrOrStderr())

	base, path, err := resolveTarget(cfg.BaseURL, target)
	if err != nil {
		return err
	}
	reqOpts, err := requestOptions(cmd.InOrStdin(), cfg, opts, method)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	adapters, shutdown, err := buildAdapters(ctx, cfg, log, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer shutdown()

	client, err := httpclient.New(cfg.Client,
		httpclient.WithLogger(log),
		httpclient.WithAdapters(adapters...),
	)
	if err != nil {
		return err
	}
	defer func() { _ = client.Close(ctx) }()

	req := newRequest(method, base, path, reqOpts)
	if opts.empty {
		if opts.fetch {
			_, err = httpclient.Fetch[httpclient.Empty](ctx, client, req)
		} else {
			_, err = httpclient.Send[httpclient.Empty](ctx, client, req)
		}
		return err
	}

	var result any
	if opts.fetch {
		result, err = httpclient.Fetch[any](ctx, client, req)
	} else {
		result, err = httpclient.Send[any](ctx, client, req)
	}
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), result)
}

// resolveTarget splits target into a base URL and a path. An absolute
// target carries its own base.
func resolveTarget(baseURL, target string) (*url.URL, string, error) {
	if u, err := url.Parse(target); err == nil && u.Scheme != "" && u.Host != "" {
		path := strings.TrimPrefix(u.Path, "/")
		u.Path, u.RawPath = "", ""
		if u.RawQuery != "" {
			return nil, "", fmt.Errorf("put query parameters in --query, not in the URL: %s", target)
		}
		return u, path, nil
	}
	if baseURL == "" {
		return nil, "", fmt.Errorf("%q is not an absolute URL and no base URL is configured", target)
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, "", fmt.Errorf("invalid base URL: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, "", fmt.Errorf("base URL must be absolute: %s", baseURL)
	}
	return base, target, nil
}

func requestOptions(in io.Reader, cfg *appConfig, opts *options, method httpclient.Method) ([]httpclient.RequestOption, error) {
	reqOpts := []httpclient.RequestOption{
		httpclient.WithHeader("User-Agent", version.UserAgent(serviceName)),
		httpclient.WithHeaders(cfg.Headers),
	}

	for _, h := range opts.headers {
		name, value, ok := strings.Cut(h, ":")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("invalid header %q, expected 'Name: value'", h)
		}
		reqOpts = append(reqOpts, httpclient.WithHeader(strings.TrimSpace(name), strings.TrimSpace(value)))
	}

	for _, q := range opts.query {
		name, value, ok := strings.Cut(q, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid query parameter %q, expected 'name=value'", q)
		}
		reqOpts = append(reqOpts, httpclient.WithQueryParam(name, value))
	}

	if opts.data != "" {
		if method == httpclient.MethodGet {
			return nil, fmt.Errorf("--data cannot be used with GET")
		}
		data, err := readData(in, opts.data)
		if err != nil {
			return nil, err
		}
		reqOpts = append(reqOpts, httpclient.WithData(data))
	}
	return reqOpts, nil
}

func readData(in io.Reader, data string) ([]byte, error) {
	switch {
	case data == "@-":
		return io.ReadAll(in)
	case strings.HasPrefix(data, "@"):
		b, err := os.ReadFile(data[1:])
		if err != nil {
			return nil, fmt.Errorf("reading request body: %w", err)
		}
		return b, nil
	default:
		return []byte(data), nil
	}
}

func newRequest(method httpclient.Method, base *url.URL, path string, opts []httpclient.RequestOption) httpclient.Request {
	switch method {
	case httpclient.MethodPost:
		return httpclient.Post[any](base, path, nil, opts...)
	case httpclient.MethodPut:
		return httpclient.Put[any](base, path, nil, opts...)
	case httpclient.MethodDelete:
		return httpclient.Delete[any](base, path, nil, opts...)
	default:
		return httpclient.Basic(base, path, opts...)
	}
}

// buildAdapters assembles the adapter chain. The returned function flushes
// and stops telemetry exporters.
func buildAdapters(ctx context.Context, cfg *appConfig, log *logger.Logger, errOut io.Writer) ([]httpclient.Adapter, func(), error) {
	level, err := httpclient.ParseLogLevel(cfg.LogLevel)
	if err != nil {
		return nil, nil, err
	}

	adapters := []httpclient.Adapter{httpclient.RequestIDAdapter{}}
	if auth := cfg.Auth.credentials(); auth != nil {
		adapters = append(adapters, httpclient.NewAuthAdapter(auth, log))
	}

	shutdown := func() {}
	if cfg.telemetryEnabled() {
		tp, err := observability.InitTracer(ctx, &cfg.Tracing, log)
		if err != nil {
			return nil, nil, err
		}
		mp, err := observability.InitMeter(ctx, &cfg.Metrics, log)
		if err != nil {
			_ = tp.Shutdown(ctx)
			return nil, nil, err
		}
		metrics, err := observability.NewMetricsAdapter(mp.Meter(serviceName))
		if err != nil {
			_ = tp.Shutdown(ctx)
			_ = mp.Shutdown(ctx)
			return nil, nil, err
		}
		adapters = append(adapters, observability.NewTracingAdapter(tp, nil), metrics)

		shutdown = func() {
			sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := tp.Shutdown(sctx); err != nil {
				log.Warn("tracer shutdown failed", logger.Fields(logger.FieldError, err.Error()))
			}
			if err := mp.Shutdown(sctx); err != nil {
				log.Warn("meter shutdown failed", logger.Fields(logger.FieldError, err.Error()))
			}
		}
	}

	adapters = append(adapters, httpclient.NewLoggingAdapter(level, httpclient.LogSinkFunc(
		func(msg string, _ httpclient.LogLevel) {
			fmt.Fprintln(errOut, msg)
		},
	)))
	return adapters, shutdown, nil
}

func printJSON(w io.Writer, v any) error {
	out, err := jsoniter.ConfigCompatibleWithStandardLibrary.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}
