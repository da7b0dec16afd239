package scriptvm

import "strings"

// VFS is the layered virtual filesystem a VM's module resolver reads from:
// (a) every one of the tenant's templates, each under its own "tmpl/<name>/"
// prefix, (b) read-only built-in library sources, (c) optional patches
// layered on top. Layers are searched patches → template → builtins, so a
// patch can shadow either of the others.
type VFS struct {
	template map[string]string
	builtins map[string]string
	patches  map[string]string
}

// NewVFS builds a layered filesystem from the tenant's combined, namespaced
// template content (see TemplateNamespace) plus the process-wide built-in
// module sources. patches may be nil.
func NewVFS(templateContent, builtins, patches map[string]string) *VFS {
	return &VFS{
		template: templateContent,
		builtins: builtins,
		patches:  patches,
	}
}

// TemplateNamespace is the VFS path prefix a template's content is mounted
// under, so distinct templates in the same VM never collide on a bare
// module name like "main".
func TemplateNamespace(templateName string) string {
	return "tmpl/" + templateName + "/"
}

// Read resolves path against the layered filesystem, returning its source
// and whether it was found. A path is tried exactly as given first — the
// entry-point convention stores content keyed by its bare require()
// argument (e.g. "main") — then with a ".js" extension appended, covering
// content keyed with the extension while letting scripts require() either
// form.
func (v *VFS) Read(path string) (string, bool) {
	path = strings.TrimPrefix(path, "./")
	if src, ok := v.readLayers(path); ok {
		return src, true
	}
	if !strings.HasSuffix(path, ".js") {
		if src, ok := v.readLayers(path + ".js"); ok {
			return src, true
		}
	}
	return "", false
}

func (v *VFS) readLayers(path string) (string, bool) {
	if v.patches != nil {
		if src, ok := v.patches[path]; ok {
			return src, true
		}
	}
	if src, ok := v.template[path]; ok {
		return src, true
	}
	if v.builtins != nil {
		if src, ok := v.builtins[path]; ok {
			return src, true
		}
	}
	return "", false
}
