package relay

// Outcome names the pipeline state a run terminated in.
type Outcome string

const (
	// OutcomeIgnored: automated author or outside the watched guild.
	OutcomeIgnored Outcome = "ignored"
	// OutcomeFiltered: no attachment carried an eligible extension.
	OutcomeFiltered Outcome = "filtered"
	// OutcomeReplied: storage-channel direct post, link reply appended.
	OutcomeReplied Outcome = "replied"
	// OutcomeAborted: forwarding yielded zero stored files; the original
	// post was left untouched.
	OutcomeAborted Outcome = "aborted"
	// OutcomeRelayed: replacement post published.
	OutcomeRelayed Outcome = "relayed"
)

// DropReason explains why one attachment fell out of a run.
type DropReason string

const (
	DropIneligible   DropReason = "ineligible"
	DropUploadFailed DropReason = "upload_failed"
)

// Drop is one attachment excluded from the result set.
type Drop struct {
	Name   string
	Reason DropReason
	Err    error
}

// Entry is one forwarded file in the replacement listing.
type Entry struct {
	Link        string
	DisplayName string
	SizeKB      int64
}

// RunResult is the full, typed outcome of processing one inbound post.
type RunResult struct {
	RunID   string
	Outcome Outcome

	// Link is the share path embedded in the replacement post: a /f/
	// path when exactly one file was forwarded, a /fb/ path otherwise.
	Link string

	Entries []Entry
	Drops   []Drop

	// IconAttached reports whether an archive icon thumbnail was found
	// and attached to the replacement post.
	IconAttached bool

	// DeletedOriginal is false when deletion was refused (insufficient
	// rights); the replacement is still published in that case.
	DeletedOriginal bool

	Err error
}
