package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/example/instructsheet/internal/inference"
	"github.com/example/instructsheet/internal/render"
	"github.com/example/instructsheet/internal/server"
)

type serveCmd struct {
	*root
	fs *flag.FlagSet

	addr      string
	maxBody   int64
	maxPixels int
}

func parseServeCmd(args []string, r *root) (*serveCmd, error) {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(r.stderr)
	s := &serveCmd{root: r, fs: fs}
	fs.Usage = usageFunc(s)
	fs.StringVar(&s.addr, "addr", r.config.Server.Addr, "listen address")
	fs.Int64Var(&s.maxBody, "max-body", r.config.Server.MaxBodyBytes, "largest accepted request body in bytes")
	fs.IntVar(&s.maxPixels, "max-pixels", r.config.Server.MaxPixels, "largest accepted image area in pixels")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() != 0 {
		return nil, &UsageError{of: s}
	}
	return s, nil
}

func (s *serveCmd) Program() string {
	return s.subcommand("serve")
}

func (s *serveCmd) FlagSet() *flag.FlagSet {
	return s.fs
}

// newServer builds the API server. Without credentials the analyze endpoint
// answers with a configuration error while render keeps working.
func (s *serveCmd) newServer() (*server.Server, error) {
	analyzer, err := newAnalyzer(s.root, "")
	switch {
	case errors.Is(err, inference.ErrNoAPIKey):
		s.log.Warn().Str("env", s.config.Inference.APIKeyEnv).Msg("no API key, analyze requests will fail")
		analyzer = nil
	case err != nil:
		return nil, err
	}
	return server.New(analyzer,
		server.WithLogger(s.log),
		server.WithRenderer(render.New(render.WithTheme(s.activeTheme))),
		server.WithStyle(s.style()),
		server.WithMaxBodyBytes(s.maxBody),
		server.WithMaxPixels(s.maxPixels),
	), nil
}

func (s *serveCmd) Run() error {
	srv, err := s.newServer()
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return srv.ListenAndServe(ctx, s.addr)
}
