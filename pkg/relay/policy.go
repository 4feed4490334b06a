package relay

import "strings"

// Fixed extension policy, not user data. Direct-post links cover anything
// shareable; relay forwarding is narrowed to addon archives.
var (
	directLinkExtensions = []string{".zip", ".mcaddon", ".json", ".js", ".png"}
	relayExtensions      = []string{".mcaddon", ".zip"}
)

func hasExtension(name string, exts []string) bool {
	lower := strings.ToLower(name)
	for _, ext := range exts {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

// EligibleForLink reports whether a filename qualifies for a direct share
// link (storage-channel posts).
func EligibleForLink(name string) bool {
	return hasExtension(name, directLinkExtensions)
}

// EligibleForRelay reports whether a filename triggers forwarding.
func EligibleForRelay(name string) bool {
	return hasExtension(name, relayExtensions)
}
