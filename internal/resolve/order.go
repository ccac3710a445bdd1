package resolve

import (
	"slices"

	"luadox/internal/diag"
	"luadox/internal/model"
)

// Reorder applies @order directives to a sibling list. The base order is
// source order; directives splice in list order, so chained
// "@order after X" declarations stack predictably. A missing anchor keeps
// the element where it is, with a warning.
func (r *Resolver) Reorder(refs []*model.Ref) []*model.Ref {
	out := slices.Clone(refs)
	for _, ref := range refs {
		od := ref.Flags.Order
		if od == nil {
			continue
		}
		idx := slices.Index(out, ref)
		if idx < 0 {
			continue
		}
		switch od.Whence {
		case "first":
			out = slices.Insert(slices.Delete(out, idx, idx+1), 0, ref)
		case "last":
			out = append(slices.Delete(out, idx, idx+1), ref)
		case "before", "after":
			rest := slices.Delete(out, idx, idx+1)
			pos := anchorIndex(rest, od.Anchor)
			if pos < 0 {
				r.sink.Warnf(diag.Order, ref.File, ref.Line,
					"@order anchor %q not found among siblings of %q, keeping source order",
					od.Anchor, ref.Name())
				out = slices.Insert(rest, idx, ref)
				continue
			}
			if od.Whence == "after" {
				pos++
			}
			out = slices.Insert(rest, pos, ref)
		}
	}
	return out
}

func anchorIndex(refs []*model.Ref, anchor string) int {
	for i, o := range refs {
		if o.Symbol == anchor || o.Name() == anchor {
			return i
		}
	}
	return -1
}
