package trials

import (
	"context"
	"strings"
	"unicode"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/user/trialchat/internal/logging"
)

// FieldInfo is the aggregated result of a field lookup. Keys are nct_ids,
// field, then one key per identifier in input order.
type FieldInfo = orderedmap.OrderedMap[string, interface{}]

// SplitIDs turns a comma separated identifier list into identifiers. All
// whitespace is removed and empty segments are dropped. Repeats are kept.
func SplitIDs(raw string) []string {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, raw)

	ids := []string{}
	for _, id := range strings.Split(cleaned, ",") {
		if id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

// GetFieldInfo fetches every identifier in nctIDs and extracts field from
// each record. Failures are reported per identifier and never abort the
// batch. A repeated identifier keeps its first key and is fetched once. An
// unrecognized field makes no request at all.
func (c *Client) GetFieldInfo(ctx context.Context, nctIDs, field string) *FieldInfo {
	ids := SplitIDs(nctIDs)

	out := orderedmap.New[string, interface{}]()
	out.Set("nct_ids", ids)
	out.Set("field", field)

	f, ok := LookupField(field)
	if !ok {
		msg := InvalidFieldMessage(field)
		for _, id := range ids {
			out.Set(id, msg)
		}
		return out
	}

	fetched := make(map[string]bool, len(ids))
	for _, id := range ids {
		if fetched[id] {
			continue
		}
		fetched[id] = true
		out.Set(id, c.fieldValue(ctx, id, f))
	}
	return out
}

func (c *Client) fieldValue(ctx context.Context, id string, f Field) interface{} {
	record, err := c.GetStudy(ctx, id)
	if err != nil {
		return FailureMessage(err)
	}
	value, err := f.Extract(record)
	if err != nil {
		c.logger.Warn("could not extract field",
			logging.String("nct_id", id),
			logging.String("field", f.Name),
			logging.Error(err),
		)
		return FailureMessage(err)
	}
	return value
}
