// Package document loads source documents from disk and extracts their
// frontmatter metadata.
package document

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Document is a raw source text with its structured metadata. Documents are
// read-only inputs to ingestion; only derived chunks persist.
type Document struct {
	Path  string
	Title string
	Body  string
}

type Loader interface {
	Load(ctx context.Context) ([]Document, error)
}

var defaultExtensions = []string{".md", ".mdx", ".txt"}

func NewDirLoader(root string) *DirLoader {
	log := zap.L().With(
		zap.String("loader", "dir"),
		zap.String("root", root),
	)

	return &DirLoader{
		root:       root,
		extensions: defaultExtensions,
		log:        log,
	}
}

// DirLoader walks a directory tree and loads every Markdown or plain-text
// file it finds, in lexical walk order.
type DirLoader struct {
	root       string
	extensions []string
	log        *zap.Logger
}

func (l *DirLoader) Load(ctx context.Context) ([]Document, error) {
	var docs []Document

	err := filepath.WalkDir(l.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if err := ctx.Err(); err != nil {
			return err
		}

		if d.IsDir() || !l.matches(path) {
			return nil
		}

		raw, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}

		meta, body := ParseFrontmatter(string(raw))

		docs = append(docs, Document{
			Path:  path,
			Title: meta.Title,
			Body:  body,
		})

		return nil
	})

	if err != nil {
		return nil, fmt.Errorf("load documents from %s: %w", l.root, err)
	}

	l.log.Info("documents loaded", zap.Int("count", len(docs)))

	return docs, nil
}

func (l *DirLoader) matches(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range l.extensions {
		if ext == e {
			return true
		}
	}

	return false
}

type Frontmatter struct {
	Title string `yaml:"title"`
}

const frontmatterFence = "---"

// ParseFrontmatter splits a document into its YAML frontmatter and body.
// Documents without a leading fence, and documents whose frontmatter fails to
// parse, keep their full text as body with empty metadata.
func ParseFrontmatter(raw string) (Frontmatter, string) {
	var meta Frontmatter

	rest, ok := strings.CutPrefix(raw, frontmatterFence+"\n")
	if !ok {
		rest, ok = strings.CutPrefix(raw, frontmatterFence+"\r\n")
		if !ok {
			return meta, raw
		}
	}

	head, body, ok := cutFence(rest)
	if !ok {
		return meta, raw
	}

	if err := yaml.Unmarshal([]byte(head), &meta); err != nil {
		return Frontmatter{}, raw
	}

	return meta, body
}

func cutFence(text string) (head, body string, ok bool) {
	for _, fence := range []string{"\n" + frontmatterFence + "\n", "\n" + frontmatterFence + "\r\n"} {
		if h, b, found := strings.Cut(text, fence); found {
			return h, b, true
		}
	}

	// Frontmatter-only documents end with the closing fence.
	if h, found := strings.CutSuffix(text, "\n"+frontmatterFence); found {
		return h, "", true
	}

	return "", "", false
}
