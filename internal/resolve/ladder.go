package resolve

import (
	"context"
	"strings"
)

// ByName resolves one alias or name to an ID.
type ByName func(ctx context.Context, name string) (string, error)

// ByNames resolves a list of aliases or names, one ID per input.
type ByNames func(ctx context.Context, names []string) ([]string, error)

// Pick applies the ID-or-name ladder shared by every dual-input field:
//   - a canonical-shaped id wins and skips resolution;
//   - a non-canonical id is treated as an alias (older call shapes);
//   - name is consulted only when no id was given;
//   - nothing given resolves to "".
func Pick(ctx context.Context, id, name string, byName ByName) (string, error) {
	id = strings.TrimSpace(id)
	if id != "" {
		if IsCanonical(id) {
			return id, nil
		}
		return byName(ctx, id)
	}
	if strings.TrimSpace(name) == "" {
		return "", nil
	}
	return byName(ctx, name)
}

// PickMany is Pick for list fields. Canonical entries of ids pass through in
// place; the rest are resolved together so the output keeps input positions.
func PickMany(ctx context.Context, ids, names []string, byNames ByNames) ([]string, error) {
	if len(ids) > 0 {
		out := make([]string, len(ids))
		var aliases []string
		var slots []int
		for i, id := range ids {
			id = strings.TrimSpace(id)
			if IsCanonical(id) {
				out[i] = id
				continue
			}
			aliases = append(aliases, id)
			slots = append(slots, i)
		}
		if len(aliases) == 0 {
			return out, nil
		}
		resolved, err := byNames(ctx, aliases)
		if err != nil {
			return nil, err
		}
		for j, slot := range slots {
			out[slot] = resolved[j]
		}
		return out, nil
	}
	if len(names) == 0 {
		return nil, nil
	}
	return byNames(ctx, names)
}
