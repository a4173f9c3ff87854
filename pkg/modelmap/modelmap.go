// Package modelmap applies a channel's configured model-ID remapping to a
// neutral request before it is dispatched upstream.
package modelmap

// Apply returns the upstream model ID for requestedModel given a channel's
// configured mapping. A channel with no entry for requestedModel, or no
// mapping at all, passes the requested ID through unchanged, which keeps
// the mapping idempotent: re-applying it to its own output is a no-op.
func Apply(mapping map[string]string, requestedModel string) string {
	if mapped, ok := mapping[requestedModel]; ok && mapped != "" {
		return mapped
	}
	return requestedModel
}
