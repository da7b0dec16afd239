package scriptvm

import (
	"fmt"
	"path"
	"strings"

	"github.com/dop251/goja"

	"github.com/scriptcore/runtime/bytecode"
	"github.com/scriptcore/runtime/template"
)

// moduleRegistry caches executed modules for one VM so each module runs at
// most once, matching Node's require() memoisation semantics. It also owns
// the set of fixed built-in modules (distinct from built-in *templates*,
// see template.Registry) that every VM can import regardless of VFS
// content — e.g. a "json" or "assert" shim.
type moduleRegistry struct {
	vm       *VM
	cache    map[string]goja.Value
	builtins map[string]func(*goja.Runtime) goja.Value
	loading  map[string]bool
}

func newModuleRegistry(vm *VM, builtins map[string]func(*goja.Runtime) goja.Value) *moduleRegistry {
	return &moduleRegistry{
		vm:       vm,
		cache:    make(map[string]goja.Value),
		builtins: builtins,
		loading:  make(map[string]bool),
	}
}

// require resolves an absolute module path (a built-in name, or a VFS path
// already namespaced under its owning template, e.g. "tmpl/<name>/main"),
// running it at most once per VM.
func (m *moduleRegistry) require(name string) (goja.Value, error) {
	return m.resolve(name)
}

// requireFrom resolves spec as required from within the module at
// fromPath: a relative spec ("./foo", "../lib/foo") is joined against
// fromPath's directory; anything else (a built-in name, or a bare
// cross-template absolute path) is resolved as-is. This mirrors Node's own
// require() resolution closely enough for the single-file-module scripts
// this runtime hosts, without pulling in a full CommonJS resolver.
func (m *moduleRegistry) requireFrom(fromPath, spec string) (goja.Value, error) {
	if strings.HasPrefix(spec, "./") || strings.HasPrefix(spec, "../") {
		spec = path.Join(path.Dir(fromPath), spec)
	}
	return m.resolve(spec)
}

func (m *moduleRegistry) resolve(name string) (goja.Value, error) {
	if exports, ok := m.cache[name]; ok {
		return exports, nil
	}
	if fn, ok := m.builtins[name]; ok {
		exports := fn(m.vm.runtime)
		m.cache[name] = exports
		return exports, nil
	}

	src, ok := m.vm.vfs.Read(name)
	if !ok {
		return nil, fmt.Errorf("scriptvm: module not found: %s", name)
	}
	if m.loading[name] {
		return nil, fmt.Errorf("scriptvm: circular require: %s", name)
	}
	m.loading[name] = true
	defer delete(m.loading, name)

	exports, err := m.runModule(name, src)
	if err != nil {
		return nil, err
	}
	m.cache[name] = exports
	return exports, nil
}

// runAdHoc compiles and executes src fresh every call, without consulting
// or populating the require() cache — used for ad-hoc scripts that bypass
// the VFS entirely (spec.md's internal-tooling RunScript contract). The
// bytecode cache keyed by content fingerprint still applies, so running the
// same ad-hoc source repeatedly costs one compile.
func (m *moduleRegistry) runAdHoc(path, src string) (goja.Value, error) {
	return m.runModule(path, src)
}

// runModule wraps src in a CommonJS-style closure and executes it against a
// fresh module/exports pair, using the VM's bytecode cache so repeated
// compiles across tenants that share a fingerprint cost nothing extra.
func (m *moduleRegistry) runModule(name, src string) (goja.Value, error) {
	fp := template.FingerprintOf(map[string]string{name: src})

	artifact, err := m.vm.cache.Resolve(fp, func(template.Fingerprint) (bytecode.Artifact, error) {
		wrapped := "(function(module, exports, require) {\n" + src + "\n})"
		prog, err := goja.Compile(name, wrapped, true)
		if err != nil {
			return bytecode.Artifact{}, err
		}
		return bytecode.Artifact{Program: prog}, nil
	})
	if err != nil {
		return nil, fmt.Errorf("scriptvm: compile %s: %w", name, err)
	}

	prog, ok := artifact.Program.(*goja.Program)
	if !ok {
		return nil, fmt.Errorf("scriptvm: cached artifact for %s is not a compiled program", name)
	}

	wrapperVal, err := m.vm.runtime.RunProgram(prog)
	if err != nil {
		return nil, fmt.Errorf("scriptvm: run %s: %w", name, err)
	}
	wrapper, ok := goja.AssertFunction(wrapperVal)
	if !ok {
		return nil, fmt.Errorf("scriptvm: %s did not compile to a function", name)
	}

	moduleObj := m.vm.runtime.NewObject()
	exportsObj := m.vm.runtime.NewObject()
	_ = moduleObj.Set("exports", exportsObj)

	requireFn := func(call goja.FunctionCall) goja.Value {
		arg := call.Argument(0).String()
		v, err := m.requireFrom(name, arg)
		if err != nil {
			panic(m.vm.runtime.NewGoError(err))
		}
		return v
	}

	if _, err := wrapper(goja.Undefined(), moduleObj, exportsObj, m.vm.runtime.ToValue(requireFn)); err != nil {
		return nil, fmt.Errorf("scriptvm: execute %s: %w", name, err)
	}

	return moduleObj.Get("exports"), nil
}
