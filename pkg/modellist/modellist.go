// Package modellist reshapes the set of models a channel exposes into
// whichever family's model-list response shape the caller asked for.
package modellist

import (
	"sort"

	"github.com/digitallysavvy/llm-gateway-proxy/pkg/channel"
	"github.com/digitallysavvy/llm-gateway-proxy/pkg/family"
)

// ModelsFor returns the model IDs a channel exposes to callers: the keys of
// its configured model map, which are the IDs clients are expected to
// request (the values are the upstream IDs those requests get remapped to,
// and are not meaningful to a client choosing a model).
func ModelsFor(ch *channel.Channel) []string {
	ids := make([]string, 0, len(ch.ModelMap))
	for id := range ch.ModelMap {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Encode reshapes a channel's model list into tr's family-specific body.
func Encode(ch *channel.Channel, tr family.Translator) ([]byte, error) {
	return tr.EncodeModelList(ModelsFor(ch))
}
