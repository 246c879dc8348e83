package generate

import (
	"context"
	"path"
	"time"

	"github.com/roach88/ezdbgen/internal/naming"
	"github.com/roach88/ezdbgen/internal/project"
	"github.com/roach88/ezdbgen/internal/solution"
)

// API unit file names.
const (
	apiProgramFile  = "Program.cs"
	apiSettingsFile = "appsettings.json"
)

// generateAPI writes and registers the API unit referencing every library
// unit in libs. Failures to write are recorded on the returned work; only
// registration errors are returned.
func (o *Orchestrator) generateAPI(ctx context.Context, libs []*UnitWork) (*UnitWork, error) {
	start := time.Now()
	w := &UnitWork{
		Name:  naming.APIUnitName(o.opts.Prefix),
		Path:  naming.APIUnitPath(o.opts.Prefix),
		State: StateSelected,
	}
	defer func() { w.Duration = time.Since(start) }()

	dir := o.unitDir(w.Path)
	apiDir := path.Dir(w.Path)

	refs := make([]string, 0, len(libs))
	endpoints := make([]project.Endpoint, 0, len(libs))
	conns := make(map[string]string, len(libs))
	for _, lib := range libs {
		refs = append(refs, relativeTo(apiDir, lib.Path))
		endpoints = append(endpoints, project.Endpoint{
			Database:       lib.Database,
			Context:        naming.ModelNamespace(o.opts.Prefix, lib.Database) + "." + naming.ContextName(lib.Database),
			Route:          naming.RouteSegment(lib.Database),
			ConnectionName: lib.Database,
			Provider:       o.provider,
		})
		conns[lib.Database] = o.opts.Connection(lib.Database)
	}

	csproj := project.APIProject(project.API{Name: w.Name, Version: o.opts.Version, References: refs})
	if err := o.prepare(ctx, dir, path.Base(w.Path), csproj); err != nil {
		o.abandon(ctx, w, dir, err)
		return w, nil
	}
	if err := w.advance(); err != nil {
		o.abandon(ctx, w, dir, err)
		return w, nil
	}
	// The API unit is templated locally; the request and write states are
	// passed through without an engine call.
	if err := w.advance(); err != nil {
		o.abandon(ctx, w, dir, err)
		return w, nil
	}

	settings, err := project.NewAppSettings(o.opts.ServerConnection, conns).Render()
	if err != nil {
		o.abandon(ctx, w, dir, err)
		return w, nil
	}
	files := []struct{ name, content string }{
		{apiProgramFile, project.APIProgram(endpoints)},
		{apiSettingsFile, settings},
	}
	for _, f := range files {
		if err := o.write(ctx, dir, f.name, f.content); err != nil {
			o.abandon(ctx, w, dir, err)
			return w, nil
		}
	}
	w.Artifacts = len(files)
	if err := w.advance(); err != nil {
		o.abandon(ctx, w, dir, err)
		return w, nil
	}

	if err := o.register(w, solution.KindAPI); err != nil {
		return w, err
	}
	return w, nil
}

// relativeTo returns target (solution-relative) as seen from dir
// (solution-relative), e.g. API + DAL/Sales/x.csproj -> ../DAL/Sales/x.csproj.
func relativeTo(dir, target string) string {
	if dir == "." || dir == "" {
		return target
	}
	up := ""
	for d := dir; d != "." && d != "/"; d = path.Dir(d) {
		up += "../"
	}
	return up + target
}
