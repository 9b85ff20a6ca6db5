package generator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/yourorg/restdoc/internal/classify"
	"github.com/yourorg/restdoc/internal/config"
	"github.com/yourorg/restdoc/internal/example"
	"github.com/yourorg/restdoc/internal/filter"
	"github.com/yourorg/restdoc/internal/manifest"
	"github.com/yourorg/restdoc/internal/registry"
	"github.com/yourorg/restdoc/internal/store"
	"github.com/yourorg/restdoc/pkg/types"
)

// ProgressFunc reports generation progress.
type ProgressFunc func(stage string)

// Source is one documentation input: the controllers to document and the
// provider serving their types.
type Source struct {
	Name        string
	Title       string
	Version     string
	Provider    registry.Provider
	Controllers []manifest.Controller
}

// ManifestSource builds a Source from a parsed manifest. Extra providers are
// consulted after the manifest's own classes.
func ManifestSource(name string, m *manifest.Manifest, extra ...registry.Provider) (Source, error) {
	if m == nil {
		return Source{}, errors.New("manifest is nil")
	}
	p, err := manifest.NewProvider(m.Classes)
	if err != nil {
		return Source{}, wrapManifestErr(err)
	}
	ctrls, err := m.ParseControllers()
	if err != nil {
		return Source{}, wrapManifestErr(err)
	}
	providers := append([]registry.Provider{p}, extra...)
	return Source{
		Name:        name,
		Title:       m.Title,
		Version:     m.Version,
		Provider:    registry.Chain(providers...),
		Controllers: ctrls,
	}, nil
}

func wrapManifestErr(err error) error {
	if errors.Is(err, ErrInvalidManifest) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrInvalidManifest, err)
}

// BuildOptions carry the collaborators NewAssemblerFromConfig cannot derive
// from configuration.
type BuildOptions struct {
	Provider registry.Provider
	// Cache stores llm-refined examples; nil disables caching.
	Cache example.Cache
	// Refiner overrides the configured llm client.
	Refiner example.Refiner
	Logger  *slog.Logger
}

// NewAssemblerFromConfig wires the registry, classifier, body filter and
// example generator selected by cfg.
func NewAssemblerFromConfig(cfg *config.Config, opts BuildOptions) (*Assembler, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if opts.Provider == nil {
		return nil, errors.New("provider is nil")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	exclusions, err := filter.NewExclusions(cfg.Engine.Exclude)
	if err != nil {
		return nil, fmt.Errorf("engine.exclude: %w", err)
	}
	reg := registry.New(opts.Provider, registry.WithExclusions(exclusions), registry.WithLogger(logger))

	var classOpts []classify.Option
	if len(cfg.Engine.MapTypes) > 0 {
		classOpts = append(classOpts, classify.WithMapTypes(cfg.Engine.MapTypes))
	}
	if len(cfg.Engine.CollectionTypes) > 0 {
		classOpts = append(classOpts, classify.WithCollectionTypes(cfg.Engine.CollectionTypes))
	}
	oracle := classify.New(reg, classOpts...)

	body, err := filter.NewRequestBodyFilter(cfg.Engine.RequestBodyFilter, oracle)
	if err != nil {
		return nil, err
	}
	format, err := example.ParseFormat(cfg.Example.Format)
	if err != nil {
		return nil, err
	}
	deps := example.Deps{
		Synth:  example.NewSynthesizer(oracle, example.WithLogger(logger)),
		Format: format,
		Logger: logger,
	}
	if cfg.Example.Generator == example.GeneratorLLM {
		deps.Refiner = opts.Refiner
		if deps.Refiner == nil {
			deps.Refiner = &example.Client{
				BaseURL:     cfg.LLM.BaseURL,
				APIKey:      cfg.LLM.APIKey,
				Model:       cfg.LLM.Model,
				MaxTokens:   cfg.LLM.MaxTokens,
				Temperature: cfg.LLM.Temperature,
				Logger:      logger,
			}
		}
		deps.Model = cfg.LLM.Model
		deps.Cache = opts.Cache
		deps.Redactor = filter.NewRedactor(cfg.Sanitize)
	}
	gen, err := example.NewGenerator(cfg.Example.Generator, deps)
	if err != nil {
		return nil, err
	}
	return NewAssembler(Options{
		Oracle:     oracle,
		BodyFilter: body,
		Examples:   gen,
		Format:     format,
		Logger:     logger,
	})
}

// Outcome is the result of a generation run. Run is nil when no store is used.
type Outcome struct {
	Run   *types.Run
	Doc   *types.Documentation
	Files []string
}

// Pipeline runs generation end to end: assembly, persistence and rendering.
type Pipeline struct {
	cfg     *config.Config
	store   store.Store
	refiner example.Refiner
	logger  *slog.Logger
}

// NewPipeline returns a pipeline for cfg. st may be nil to skip run history.
func NewPipeline(cfg *config.Config, st store.Store, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Pipeline{cfg: cfg, store: st, logger: logger}
}

// WithRefiner replaces the configured llm client of the llm generator.
func (p *Pipeline) WithRefiner(r example.Refiner) *Pipeline {
	p.refiner = r
	return p
}

// Run documents src. Assembly and rendering failures mark the run failed.
func (p *Pipeline) Run(ctx context.Context, src Source, onProgress ProgressFunc) (*Outcome, error) {
	if p.cfg == nil {
		return nil, errors.New("config is nil")
	}
	title, version := src.Title, src.Version
	if title == "" {
		title = p.cfg.Doc.Title
	}
	if version == "" {
		version = p.cfg.Doc.Version
	}

	opts := BuildOptions{Provider: src.Provider, Refiner: p.refiner, Logger: p.logger}
	if p.store != nil {
		opts.Cache = p.store
	}
	report(onProgress, "building type registry")
	asm, err := NewAssemblerFromConfig(p.cfg, opts)
	if err != nil {
		return nil, err
	}

	out := &Outcome{}
	if p.store != nil {
		run, err := p.store.CreateRun(src.Name, title, version)
		if err != nil {
			return nil, err
		}
		out.Run = run
	}

	report(onProgress, fmt.Sprintf("documenting %d controllers", len(src.Controllers)))
	doc, err := asm.Assemble(ctx, title, version, src.Controllers)
	if err != nil {
		return nil, p.fail(out.Run, err)
	}
	out.Doc = doc

	if p.store != nil {
		report(onProgress, "saving run")
		if err := p.store.SaveOperations(out.Run.ID, Records(doc)); err != nil {
			return nil, p.fail(out.Run, err)
		}
		if err := p.store.FinishRun(out.Run.ID, doc.Enums); err != nil {
			return nil, err
		}
		if out.Run, err = p.store.GetRun(out.Run.ID); err != nil {
			return nil, err
		}
	}

	report(onProgress, "rendering outputs")
	files, err := Render(doc, p.cfg.Output.Formats, RenderOptions{
		OutputDir:    p.cfg.Output.Dir,
		CSSPath:      p.cfg.Doc.CSSPath,
		TemplatePath: p.cfg.Doc.TemplatePath,
	})
	if err != nil {
		return nil, p.fail(out.Run, err)
	}
	out.Files = files
	p.logger.Info("documentation generated", "source", src.Name, "controllers", len(doc.Controllers), "files", len(files))
	return out, nil
}

func (p *Pipeline) fail(run *types.Run, cause error) error {
	if run == nil || p.store == nil {
		return cause
	}
	if err := p.store.UpdateRunStatus(run.ID, store.StatusFailed, cause.Error()); err != nil {
		p.logger.Error("mark run failed", "run", run.ID, "err", err)
	}
	return cause
}

func report(fn ProgressFunc, msg string) {
	if fn != nil {
		fn(msg)
	}
}
