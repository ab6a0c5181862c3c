package deploy

import (
	"context"
	"fmt"
	"strings"

	"github.com/specialistvlad/blockgrid/internal/compiler"
	"github.com/specialistvlad/blockgrid/internal/ctxlog"
	"github.com/specialistvlad/blockgrid/internal/naming"
	"github.com/specialistvlad/blockgrid/internal/normalize"
	"github.com/specialistvlad/blockgrid/internal/project"
	"github.com/specialistvlad/blockgrid/internal/storage"
	"github.com/specialistvlad/blockgrid/internal/tfwrite"
	"github.com/specialistvlad/blockgrid/router/routing"
)

const (
	// TerraformFile is the generated configuration inside the deploy dir.
	TerraformFile = "terraform.tf"
	// RoutingFile is the routing table path inside a block folder.
	RoutingFile = "_lib/routing.json"
)

// sourceExcludes keep build output, local tooling and overrides out of the
// deployed block sources.
var sourceExcludes = []string{
	"**/dist/**",
	"**/_lib/**",
	"**/.blockgrid/**",
	"**/samples/**",
	"*_test.go",
	"*.env",
}

// Progress is one progress report.
type Progress struct {
	Percent int
	Message string
}

// ProgressFunc receives progress reports. It may be nil.
type ProgressFunc func(Progress)

// Params describe a deploy generation.
type Params struct {
	// ProjectDir holds project.json and the blocks folder.
	ProjectDir string
	// DeployDir receives the output, usually `<project>/deploy/aws`.
	DeployDir string
	Region    string
	// Env is injected into every function.
	Env map[string]string
}

// Generator writes deploy and library output through a Store.
type Generator struct {
	Store storage.Store
}

// New creates a Generator.
func New(s storage.Store) *Generator {
	return &Generator{Store: s}
}

func (g *Generator) blocksDir(root string) string {
	return g.Store.Join(root, "blocks")
}

func (g *Generator) blockDir(root string, fn *project.Function) string {
	return g.Store.Join(g.blocksDir(root), project.FolderName(fn.Title, fn.ID))
}

// LoadProject reads and parses `<dir>/project.json`.
func (g *Generator) LoadProject(dir string) (*project.Project, error) {
	data, err := g.Store.ReadFile(g.Store.Join(dir, "project.json"))
	if err != nil {
		return nil, fmt.Errorf("failed to read project: %w", err)
	}
	return project.Parse(data)
}

// Deploy compiles p and writes the full deploy output. Nothing is written
// when compilation fails.
func (g *Generator) Deploy(ctx context.Context, p *project.Project, params Params, progress ProgressFunc) error {
	ctx, logger := ctxlog.With(ctx, "project_id", p.Settings.ID, "region", params.Region)
	report := func(percent int, msg string) {
		logger.Info(msg, "progress", percent)
		if progress != nil {
			progress(Progress{Percent: percent, Message: msg})
		}
	}

	report(25, "Generating deploy code...")

	res, err := compiler.Compile(ctx, p, compiler.Options{
		Region:     params.Region,
		Env:        params.Env,
		Properties: &compiler.YAMLProperties{Store: g.Store, BlocksDir: g.blocksDir(params.ProjectDir)},
	})
	if err != nil {
		return fmt.Errorf("compilation failed: %w", err)
	}

	src := tfwrite.Format([]byte(tfwrite.Serialize(res.Items)))
	if err := tfwrite.Validate(src, TerraformFile); err != nil {
		return err
	}

	for i, fn := range res.Functions {
		if err := g.writeBlock(ctx, fn, res.Routing[fn.ID], params); err != nil {
			return fmt.Errorf("block %q: %w", fn.ID, err)
		}
		report(25+(i+1)*50/len(res.Functions), "Generating deploy code...")
	}

	report(75, "Generating deploy code...")
	if err := g.Store.WriteFile(g.Store.Join(params.DeployDir, TerraformFile), src); err != nil {
		return fmt.Errorf("failed to write terraform file: %w", err)
	}

	report(100, "Deploy code generated successfully")
	return nil
}

// writeBlock copies the block sources and writes its routing table and,
// for container functions without one, a Dockerfile.
func (g *Generator) writeBlock(ctx context.Context, fn *project.Function, table *routing.Table, params Params) error {
	src := g.blockDir(params.ProjectDir, fn)
	dst := g.blockDir(params.DeployDir, fn)

	if err := g.Store.Remove(dst); err != nil {
		return err
	}
	ok, err := g.Store.Exists(src)
	if err != nil {
		return err
	}
	if ok {
		if err := g.Store.Copy(src, dst, storage.CopyOptions{Exclude: sourceExcludes}); err != nil {
			return fmt.Errorf("failed to copy sources: %w", err)
		}
	}

	if err := g.writeRoutingTable(dst, table); err != nil {
		return err
	}

	sources, err := g.Source(dst)
	if err != nil {
		return err
	}
	if len(sources) == 0 {
		ctxlog.FromContext(ctx).Warn("Block has no Go sources, its build step will fail.", "block", fn.ID, "dir", dst)
	}

	if fn.LambdaOrZero().DeployAsDockerImage {
		return g.ensureDockerfile(dst, fn)
	}
	return nil
}

// Source lists the Go files of a block folder, relative to it. Test files
// are never deployed and are left out.
func (g *Generator) Source(blockDir string) ([]string, error) {
	files, err := storage.FindFilesByExtension(g.Store, blockDir, ".go")
	if err != nil {
		return nil, fmt.Errorf("failed to list block sources: %w", err)
	}
	out := files[:0]
	for _, f := range files {
		if !strings.HasSuffix(f, "_test.go") {
			out = append(out, f)
		}
	}
	return out, nil
}

func (g *Generator) writeRoutingTable(blockDir string, table *routing.Table) error {
	data, err := table.Marshal()
	if err != nil {
		return fmt.Errorf("failed to encode routing table: %w", err)
	}
	return g.Store.WriteFile(g.Store.Join(blockDir, RoutingFile), data)
}

// GenerateLibrary writes the routing table of every function block into
// its source folder so blocks can run locally. Unlike Deploy it includes
// functions that are not deployed yet.
func (g *Generator) GenerateLibrary(ctx context.Context, p *project.Project, projectDir string) error {
	logger := ctxlog.FromContext(ctx)
	normalized := normalize.Project(ctx, p)
	namer := naming.New(p.Settings.ID, p.Settings.Name)
	props := &compiler.YAMLProperties{Store: g.Store, BlocksDir: g.blocksDir(projectDir)}

	for _, b := range normalized.Blocks {
		fn, ok := b.(*project.Function)
		if !ok {
			continue
		}
		table := compiler.BuildRoutingTable(normalized, fn, namer)
		overrides, err := props.BlockProperties(fn)
		if err != nil {
			return fmt.Errorf("block %q: %w", fn.ID, err)
		}
		for k, v := range overrides {
			table.Properties[k] = v
		}
		if err := g.writeRoutingTable(g.blockDir(projectDir, fn), table); err != nil {
			return fmt.Errorf("block %q: %w", fn.ID, err)
		}
		logger.Debug("Generated block library.", "block", fn.ID)
	}
	return nil
}
