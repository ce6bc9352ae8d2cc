package codegen

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"sort"

	"github.com/pkg/errors"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/parser"
	"go.uber.org/zap"

	"shopify-storefront/internal/documents"
	"shopify-storefront/internal/shopify"
)

type Log interface {
	Info(string, ...zap.Field)
	Warn(string, ...zap.Field)
}

var builtinScalars = []string{"Boolean", "Float", "ID", "Int", "String"}

// CustomScalars lists the non-builtin scalar types of an introspection
// result, sorted by name.
func CustomScalars(schema json.RawMessage) ([]string, error) {
	var data struct {
		Schema struct {
			Types []struct {
				Kind string `json:"kind"`
				Name string `json:"name"`
			} `json:"types"`
		} `json:"__schema"`
	}
	if err := json.Unmarshal(schema, &data); err != nil {
		return nil, errors.Wrap(err, "decoding schema")
	}

	var names []string
	for _, t := range data.Schema.Types {
		if t.Kind == "SCALAR" && !slices.Contains(builtinScalars, t.Name) {
			names = append(names, t.Name)
		}
	}
	sort.Strings(names)
	return names, nil
}

// CheckDocuments parses every file matched by the config and every registry
// document.
func CheckDocuments(cfg *Config, dir string) (int, error) {
	files, err := cfg.DocumentFiles(dir)
	if err != nil {
		return 0, err
	}
	for _, f := range files {
		src, err := os.ReadFile(f)
		if err != nil {
			return 0, errors.Wrap(err, "reading document")
		}
		if _, gqlErr := parser.ParseQuery(&ast.Source{Name: f, Input: string(src)}); gqlErr != nil {
			return 0, errors.Wrapf(gqlErr, "parsing %s", f)
		}
	}
	if err := documents.ValidateAll(); err != nil {
		return 0, err
	}
	return len(files), nil
}

// Introspect checks the documents, runs the introspection query and writes
// the indented result to cfg.Output.
func Introspect(ctx context.Context, client *shopify.Client, cfg *Config, dir string, log Log) error {
	n, err := CheckDocuments(cfg, dir)
	if err != nil {
		return err
	}
	log.Info("documents valid", zap.Int("files", n), zap.Int("operations", len(documents.All())))

	headers := make(http.Header)
	for k, v := range cfg.Schema.Headers {
		headers.Set(k, v)
	}

	schema, err := shopify.Query[json.RawMessage](ctx, client, shopify.Request{
		Operation: documents.IntrospectionQuery.Name(),
		Query:     documents.IntrospectionQuery.String(),
		Headers:   headers,
	})
	if err != nil {
		return errors.Wrap(err, "introspection failed")
	}

	custom, err := CustomScalars(schema)
	if err != nil {
		return err
	}
	for _, name := range cfg.UnmappedScalars(custom) {
		log.Warn("schema scalar has no mapping", zap.String("scalar", name))
	}

	var out bytes.Buffer
	if err := json.Indent(&out, schema, "", "  "); err != nil {
		return errors.Wrap(err, "formatting schema")
	}
	out.WriteByte('\n')

	path := cfg.Output
	if !filepath.IsAbs(path) {
		path = filepath.Join(dir, path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, "creating output directory")
	}
	if err := os.WriteFile(path, out.Bytes(), 0o644); err != nil {
		return errors.Wrap(err, "writing schema")
	}

	log.Info("schema written", zap.String("path", path), zap.Int("bytes", out.Len()))
	return nil
}
