package render

import (
	"context"
	"fmt"
	"sort"
)

// Renderer walks a generic manifest (maps, slices and scalars as produced by
// a json or yaml unmarshal into any) and hands every string leaf to the
// string function. Maps are visited in key order.
type Renderer interface {
	Render(ctx context.Context, x any) (any, error)
}

// RenderFn is called for every map value and slice element, it normally
// recurses into Render.
type RenderFn func(ctx context.Context, x any) (any, error)

// StringFn renders a single string leaf.
type StringFn func(ctx context.Context, s string) (any, error)

func New(renderFn RenderFn, stringFn StringFn) Renderer {
	return &renderer{
		renderFn: renderFn,
		stringFn: stringFn,
	}
}

type renderer struct {
	renderFn RenderFn
	stringFn StringFn
}

func (r *renderer) Render(ctx context.Context, x any) (any, error) {
	switch x := x.(type) {
	case map[string]any:
		if r.renderFn == nil {
			return x, nil
		}
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			v, err := r.renderFn(ctx, x[k])
			if err != nil {
				return nil, fmt.Errorf("%s: %w", k, err)
			}
			x[k] = v
		}
		return x, nil
	case []any:
		if r.renderFn == nil {
			return x, nil
		}
		out := make([]any, len(x))
		for i, v := range x {
			v, err := r.renderFn(ctx, v)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			out[i] = v
		}
		return out, nil
	case string:
		if r.stringFn == nil {
			return x, nil
		}
		return r.stringFn(ctx, x)
	default:
		return x, nil
	}
}
