// Package export renders the public marketing pages to static HTML for
// hosting without the server (e.g. GitHub Pages under /LogicLoom).
package export

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/logicloom/logicloom/internal/view"
)

// GitHubPagesBasePath is the sub-path the site is served under on GitHub Pages.
const GitHubPagesBasePath = "/LogicLoom"

// Options configures an export.
type Options struct {
	OutDir   string
	BasePath string
	// Concurrency bounds parallel page renders; zero means 4.
	Concurrency int
	Logger      *slog.Logger
}

// Result lists the written files relative to OutDir, sorted.
type Result struct {
	Files []string
}

// page is one exported HTML file.
type page struct {
	file  string
	name  string
	title string
	path  string
	data  func(c *view.Content) any
}

// pages are the statically exportable routes. Dashboard, bio and API routes
// need the server.
var pages = []page{
	{file: "index.html", name: view.PageHome, path: "/", data: func(c *view.Content) any { return c }},
	{file: "pricing/index.html", name: view.PagePricing, title: "Pricing", path: "/pricing",
		data: func(c *view.Content) any { return c.Pricing(view.IntervalMonthly, "") }},
	{file: "pricing/annual/index.html", name: view.PagePricing, title: "Pricing", path: "/pricing/annual",
		data: func(c *view.Content) any { return c.Pricing(view.IntervalAnnual, "") }},
	{file: "login/index.html", name: view.PageLogin, title: "Sign in", path: "/login",
		data: func(*view.Content) any { return view.AuthForm{Demo: true} }},
	{file: "signup/index.html", name: view.PageSignup, title: "Sign up", path: "/signup",
		data: func(*view.Content) any { return view.AuthForm{Demo: true} }},
	{file: "404.html", name: view.PageNotFound, title: "Not Found", path: "/404",
		data: func(*view.Content) any { return nil }},
}

// Run writes the static site to opts.OutDir. Pages render concurrently.
func Run(ctx context.Context, opts Options) (*Result, error) {
	if opts.OutDir == "" {
		return nil, errors.New("export: output directory is required")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}

	renderer, err := view.New(view.Options{BasePath: opts.BasePath, TrailingSlash: true})
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(opts.OutDir, 0o755); err != nil {
		return nil, fmt.Errorf("export: create output directory: %w", err)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Concurrency)

	for _, p := range pages {
		p := p
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return writePage(renderer, opts.OutDir, p)
		})
	}
	g.Go(func() error {
		return copyStatic(ctx, opts.OutDir)
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	// GitHub Pages would otherwise skip files and directories starting with "_".
	if err := os.WriteFile(filepath.Join(opts.OutDir, ".nojekyll"), nil, 0o644); err != nil {
		return nil, fmt.Errorf("export: write .nojekyll: %w", err)
	}

	files, err := listFiles(opts.OutDir)
	if err != nil {
		return nil, err
	}

	opts.Logger.Info("export_completed",
		slog.String("out_dir", opts.OutDir),
		slog.String("base_path", opts.BasePath),
		slog.Int("files", len(files)),
	)
	return &Result{Files: files}, nil
}

func writePage(renderer *view.Renderer, outDir string, p page) error {
	dst := filepath.Join(outDir, filepath.FromSlash(p.file))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("export: %s: %w", p.file, err)
	}

	f, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("export: %s: %w", p.file, err)
	}

	err = renderer.Render(f, p.name, view.Page{
		Title: p.title,
		Path:  p.path,
		Data:  p.data(renderer.Content()),
	})
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("export: %s: %w", p.file, err)
	}
	return nil
}

// copyStatic copies the embedded assets to <outDir>/static.
func copyStatic(ctx context.Context, outDir string) error {
	src := view.StaticFS()
	return fs.WalkDir(src, ".", func(name string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		dst := filepath.Join(outDir, "static", filepath.FromSlash(name))
		if d.IsDir() {
			return os.MkdirAll(dst, 0o755)
		}

		data, err := fs.ReadFile(src, name)
		if err != nil {
			return fmt.Errorf("export: read %s: %w", path.Join("static", name), err)
		}
		return os.WriteFile(dst, data, 0o644)
	})
}

func listFiles(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("export: list output: %w", err)
	}
	sort.Strings(files)
	return files, nil
}
