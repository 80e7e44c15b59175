package depsolver

import "context"

// fakeClient is a deterministic, in-memory ContentClient used only by
// tests, grounded in the teacher's futures-over-channels shape (content.go)
// but with no network or disk involved.
type fakeClient struct {
	unitsByRepo     map[string][]Unit
	modulemdsByRepo map[string][]ModulemdUnit
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		unitsByRepo:     make(map[string][]Unit),
		modulemdsByRepo: make(map[string][]ModulemdUnit),
	}
}

func (f *fakeClient) insert(repoID string, units ...Unit) {
	f.unitsByRepo[repoID] = append(f.unitsByRepo[repoID], units...)
}

func (f *fakeClient) insertModulemd(repoID string, mds ...ModulemdUnit) {
	f.modulemdsByRepo[repoID] = append(f.modulemdsByRepo[repoID], mds...)
}

func (f *fakeClient) UnitsByName(ctx context.Context, repo Repo, names map[string]struct{}) *Future[[]Unit] {
	return newFuture(ctx, func(context.Context) ([]Unit, error) {
		var out []Unit
		for _, u := range f.unitsByRepo[repo.ID] {
			if _, ok := names[u.Name]; ok {
				out = append(out, u)
				continue
			}
			if _, ok := names[u.Filename]; ok {
				out = append(out, u)
			}
		}
		return out, nil
	})
}

func (f *fakeClient) UnitsProviding(ctx context.Context, repo Repo, atoms []Atom) *Future[[]Unit] {
	return newFuture(ctx, func(context.Context) ([]Unit, error) {
		wanted := make(map[string]struct{}, len(atoms))
		for _, a := range atoms {
			wanted[a.Name] = struct{}{}
		}
		var out []Unit
		for _, u := range f.unitsByRepo[repo.ID] {
			for _, p := range u.Provides {
				if _, ok := wanted[p.Name]; ok {
					out = append(out, u)
					break
				}
			}
		}
		return out, nil
	})
}

func (f *fakeClient) Modulemds(ctx context.Context, repo Repo) *Future[[]ModulemdUnit] {
	return newFuture(ctx, func(context.Context) ([]ModulemdUnit, error) {
		return f.modulemdsByRepo[repo.ID], nil
	})
}
