package pipeline

import (
	"cmp"
	"context"
	"slices"

	"github.com/roach88/ezdbgen/internal/generate"
	"github.com/roach88/ezdbgen/internal/inventory"
	"github.com/roach88/ezdbgen/internal/mask"
)

// Plan is the outcome of selection: the databases to generate, in inventory
// order, and the table subset of each database an object-level mask
// narrowed.
type Plan struct {
	Masks     []*mask.CompiledMask
	Selection mask.Selection
	Databases []string
	// Objects maps a narrowed database to its selected quoted table names.
	Objects map[string][]string
}

// ObjectFilter exposes Objects to the generation orchestrator.
func (pl Plan) ObjectFilter() generate.ObjectFilter {
	if len(pl.Objects) == 0 {
		return nil
	}
	return func(_ context.Context, database string) ([]string, error) {
		return pl.Objects[database], nil
	}
}

// Plan compiles the masks, checks the server is reachable, fetches the
// inventory and selects databases. Databases whose object-level masks leave
// no table are moved to the rejected list with mask.RejectEmpty.
func (p *Pipeline) Plan(ctx context.Context) (Plan, error) {
	masks, err := mask.CompileAll(p.opts.Masks)
	if err != nil {
		return Plan{}, err
	}

	if err := p.inventory.Ping(ctx); err != nil {
		return Plan{}, err
	}
	names, err := p.inventory.Databases(ctx)
	if err != nil {
		return Plan{}, err
	}

	sel := mask.SelectDatabases(names, masks)
	plan := Plan{Masks: masks, Objects: make(map[string][]string)}
	var kept []mask.Candidate
	for _, c := range sel.Selected {
		if !mask.NarrowsObjects(masks, c.Database) {
			kept = append(kept, c)
			continue
		}
		tables, err := p.inventory.Tables(ctx, c.Database)
		if err != nil {
			return Plan{}, err
		}
		selected := mask.SelectObjects(tables, masks)
		if len(selected) == 0 {
			sel.Rejected = append(sel.Rejected, mask.Rejection{Candidate: c, Reason: mask.RejectEmpty})
			continue
		}
		quoted := make([]string, 0, len(selected))
		for _, t := range selected {
			quoted = append(quoted, p.opts.Dialect.QuoteTable(t.Schema, t.Table))
		}
		plan.Objects[c.Database] = quoted
		kept = append(kept, c)
	}
	sel.Selected = kept
	sortByInventory(sel.Rejected, names)
	plan.Selection = sel
	plan.Databases = sel.Databases()

	p.logger.Info("databases selected",
		"selected", len(plan.Databases),
		"rejected", len(sel.Rejected),
		"narrowed", len(plan.Objects),
	)
	return plan, nil
}

// sortByInventory restores inventory order after empty databases were
// appended to the rejected list.
func sortByInventory(rejected []mask.Rejection, names []string) {
	pos := make(map[string]int, len(names))
	for i, n := range names {
		pos[n] = i
	}
	slices.SortStableFunc(rejected, func(a, b mask.Rejection) int {
		return cmp.Compare(pos[a.Candidate.Database], pos[b.Candidate.Database])
	})
}

var _ Inventory = (*inventory.Source)(nil)
