package binding

import (
	"context"
	stderrors "errors"
	"io"
	"sort"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"github.com/tetratelabs/wazero/sys"
	"go.uber.org/zap"

	"github.com/wippyai/canvas-host/errors"
	"github.com/wippyai/canvas-host/host"
)

const wasiPreview1 = "wasi_snapshot_preview1"

// Entry points tried in order when running a guest.
var entryPoints = []string{"start", "_start"}

// Options configures guest linking.
type Options struct {
	Logger    *zap.Logger
	Allocator Allocator
	Stdout    io.Writer
	Stderr    io.Writer
	// ModuleName names the guest instance. Defaults to "guest".
	ModuleName string
}

// Linker binds one host to one wazero runtime.
type Linker struct {
	runtime  wazero.Runtime
	registry *Registry
	logger   *zap.Logger
	opts     Options
}

// NewLinker lowers every interface of h into a registry for rt.
func NewLinker(rt wazero.Runtime, h *host.Host, opts Options) (*Linker, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.ModuleName == "" {
		opts.ModuleName = "guest"
	}

	reg := NewRegistry()
	if err := Define(reg, h, opts.Allocator, logger); err != nil {
		return nil, err
	}
	return &Linker{runtime: rt, registry: reg, logger: logger, opts: opts}, nil
}

// Registry returns the lowered host functions.
func (l *Linker) Registry() *Registry {
	return l.registry
}

// CheckImports reports every function compiled imports that neither the
// registry nor WASI preview1 provides.
func (l *Linker) CheckImports(compiled wazero.CompiledModule) error {
	var missing []string
	for _, fn := range compiled.ImportedFunctions() {
		module, name, _ := fn.Import()
		if module == wasiPreview1 {
			continue
		}
		if _, _, ok := l.registry.Resolve(module, name); !ok {
			missing = append(missing, module+"#"+name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return errors.NewMissingImportsError(missing)
	}
	return nil
}

// Instantiate builds a host module for every namespace compiled imports,
// under the name the guest uses. Modules already present in the runtime
// are reused.
func (l *Linker) Instantiate(ctx context.Context, compiled wazero.CompiledModule) error {
	if err := l.CheckImports(compiled); err != nil {
		return err
	}

	imports := map[string][]string{}
	for _, fn := range compiled.ImportedFunctions() {
		module, name, _ := fn.Import()
		imports[module] = append(imports[module], name)
	}

	for module, names := range imports {
		if l.runtime.Module(module) != nil {
			continue
		}
		if module == wasiPreview1 {
			if _, err := wasi_snapshot_preview1.Instantiate(ctx, l.runtime); err != nil {
				return errors.Instantiation(err)
			}
			continue
		}

		builder := l.runtime.NewHostModuleBuilder(module)
		for _, name := range names {
			f, provided, _ := l.registry.Resolve(module, name)
			if provided != module {
				l.logger.Debug("import linked to compatible version",
					zap.String("import", module), zap.String("provider", provided))
			}
			builder.NewFunctionBuilder().
				WithGoModuleFunction(f.Handler, f.ParamTypes, f.ResultTypes).
				Export(name)
		}
		if _, err := builder.Instantiate(ctx); err != nil {
			return errors.Instantiation(err)
		}
		l.logger.Debug("host module instantiated", zap.String("module", module), zap.Int("funcs", len(names)))
	}
	return nil
}

// Run compiles wasm, links it against the host and calls its entry point.
// A guest that exits with code 0 is a clean run.
func (l *Linker) Run(ctx context.Context, wasm []byte) error {
	compiled, err := l.runtime.CompileModule(ctx, wasm)
	if err != nil {
		return errors.Instantiation(err)
	}
	defer compiled.Close(ctx)

	if err := l.Instantiate(ctx, compiled); err != nil {
		return err
	}

	cfg := wazero.NewModuleConfig().
		WithName(l.opts.ModuleName).
		WithStartFunctions()
	if l.opts.Stdout != nil {
		cfg = cfg.WithStdout(l.opts.Stdout)
	}
	if l.opts.Stderr != nil {
		cfg = cfg.WithStderr(l.opts.Stderr)
	}

	mod, err := l.runtime.InstantiateModule(ctx, compiled, cfg)
	if err != nil {
		return errors.Instantiation(err)
	}
	defer mod.Close(ctx)

	entry := entryPoint(mod)
	if entry == nil {
		return errors.New(errors.PhaseBinding, errors.KindMissingImport).
			Detail("guest exports none of %v", entryPoints).
			Build()
	}

	l.logger.Info("guest started", zap.String("entry", entry.Definition().Name()))
	_, err = entry.Call(ctx)
	var exit *sys.ExitError
	if stderrors.As(err, &exit) && exit.ExitCode() == 0 {
		return nil
	}
	if err != nil && ctx.Err() != nil {
		return errors.Canceled(errors.PhaseBinding, ctx.Err())
	}
	return err
}

func entryPoint(mod api.Module) api.Function {
	for _, name := range entryPoints {
		if fn := mod.ExportedFunction(name); fn != nil {
			return fn
		}
	}
	return nil
}

// Instantiate builds a host module for every namespace h serves, under its
// canonical name.
func Instantiate(ctx context.Context, rt wazero.Runtime, h *host.Host, opts Options) (*Linker, error) {
	l, err := NewLinker(rt, h, opts)
	if err != nil {
		return nil, err
	}
	for _, ns := range l.registry.Namespaces() {
		if rt.Module(ns) != nil {
			continue
		}
		builder := rt.NewHostModuleBuilder(ns)
		for _, f := range l.registry.Funcs(ns) {
			builder.NewFunctionBuilder().
				WithGoModuleFunction(f.Handler, f.ParamTypes, f.ResultTypes).
				Export(f.Name)
		}
		if _, err := builder.Instantiate(ctx); err != nil {
			return nil, errors.Instantiation(err)
		}
	}
	return l, nil
}

// Run links wasm against h and calls its entry point.
func Run(ctx context.Context, rt wazero.Runtime, h *host.Host, wasm []byte, opts Options) error {
	l, err := NewLinker(rt, h, opts)
	if err != nil {
		return err
	}
	return l.Run(ctx, wasm)
}
