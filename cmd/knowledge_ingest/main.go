package main

import (
	"context"
	"errors"
	"log"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/wrenlab/knowledge"
	"github.com/wrenlab/knowledge/document"
	"github.com/wrenlab/knowledge/embedding"
	"github.com/wrenlab/knowledge/embedding/hash"
	"github.com/wrenlab/knowledge/embedding/ollama"
	"github.com/wrenlab/knowledge/persistence/chromem"

	natsT "github.com/wrenlab/knowledge/transport/nats"
)

func main() {
	godotenv.Load()

	cmd := &cli.Command{
		Name:  "knowledge_ingest",
		Usage: "Rebuild the knowledge index from the configured document set",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "path",
				Usage: "Path to the knowledge service data directory",
			},
			&cli.StringFlag{
				Name:    "docs",
				Usage:   "Source documents directory",
				Sources: cli.EnvVars("KNOWLEDGE_DOCS"),
			},
			&cli.BoolFlag{
				Name:  "remote",
				Usage: "Run ingestion on a running knowledged instance over NATS",
				Value: false,
			},
			&cli.StringFlag{
				Name:    "nats",
				Usage:   "NATS server URL",
				Sources: cli.EnvVars("NATS_URL"),
			},
			&cli.StringFlag{
				Name:    "nats-creds",
				Usage:   "NATS user credentials file",
				Sources: cli.EnvVars("NATS_CREDS"),
			},
		},
		Action: run,
	}

	err := cmd.Run(context.Background(), os.Args)
	if err != nil {
		log.Fatal(err.Error())
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	log, err := zap.NewDevelopment()
	if err != nil {
		return err
	}
	defer log.Sync()

	zap.ReplaceGlobals(log)

	var svc knowledge.Service

	if cmd.Bool("remote") {
		remote, err := newRemoteService(cmd)
		if err != nil {
			return err
		}

		svc = remote
	} else {
		local, err := newLocalService(cmd)
		if err != nil {
			return err
		}

		svc = local
	}
	defer svc.Close()

	svc = knowledge.LoggingMiddleware(log)(svc)

	count, err := svc.Ingest(ctx)
	if err != nil {
		return err
	}

	if count == 0 {
		log.Warn("no qualifying chunks found, index left unchanged")
		return nil
	}

	log.Info("ingestion finished", zap.Int("chunks", count))
	return nil
}

func newLocalService(cmd *cli.Command) (knowledge.Service, error) {
	path := cmd.String("path")
	if path == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}

		path = filepath.Join(homeDir, ".wrenlab", "knowledge")
	}

	cfg, err := loadConfig(filepath.Join(path, "config.yaml"))
	if err != nil {
		return nil, err
	}

	if docs := cmd.String("docs"); docs != "" {
		cfg.Docs.Path = docs
	}

	if cfg.Vector.Path == "" {
		cfg.Vector.Path = filepath.Join(path, "vectors")
		cfg.Vector.Persistent = true
	}

	provider, err := newProvider(cfg.Embedding)
	if err != nil {
		return nil, err
	}

	index, err := chromem.NewChromemIndex(cfg.Vector)
	if err != nil {
		return nil, err
	}

	loader := document.NewDirLoader(cfg.Docs.Path)

	return knowledge.NewService(*cfg, loader, provider, index), nil
}

func newRemoteService(cmd *cli.Command) (knowledge.Service, error) {
	natsURL := cmd.String("nats")
	if natsURL == "" {
		return nil, errors.New("remote ingestion requires a NATS URL")
	}

	opts := []nats.Option{
		nats.Name("Knowledge Ingest"),
	}

	if creds := cmd.String("nats-creds"); creds != "" {
		opts = append(opts, nats.UserCredentials(creds))
	}

	nc, err := nats.Connect(natsURL, opts...)
	if err != nil {
		return nil, err
	}

	endpoints := natsT.MakeEndpoints(nc, "knowledge")

	var svc knowledge.Service
	svc = knowledge.ProxyMiddleware(endpoints)(svc)

	return &remoteService{Service: svc, nc: nc}, nil
}

type drainer interface {
	Drain() error
}

// remoteService ties the NATS connection's lifetime to the service handle,
// so the one-shot client flushes in-flight requests before exiting.
type remoteService struct {
	knowledge.Service
	nc drainer
}

func (svc *remoteService) Close() error {
	if err := svc.Service.Close(); err != nil {
		return err
	}

	return svc.nc.Drain()
}

func loadConfig(path string) (*knowledge.Config, error) {
	var cfg knowledge.Config

	f, err := os.Open(path)
	if err == nil {
		defer f.Close()

		if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
			return nil, err
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	cfg.ApplyDefaults()

	return &cfg, nil
}

func newProvider(cfg embedding.Config) (embedding.Provider, error) {
	switch cfg.Provider {
	case "ollama":
		return ollama.NewProvider(cfg), nil

	case "hash":
		return hash.NewProvider(cfg.Dimension), nil

	default:
		return nil, errors.New("unsupported embedding provider: " + cfg.Provider)
	}
}
