package bus

import "github.com/purpleshop/filebridge/pkg/platform"

// InboundPost is one new-message event from the platform.
type InboundPost struct {
	Message *platform.Message

	// FromAutomated marks bot and webhook authors; the relay ignores
	// these so it never reprocesses its own replacement posts.
	FromAutomated bool
}
