// Package autorebase keeps GitHub pull requests that carry an automation
// label rebased onto their base branch and merges them when they became
// mergeable.
//
// Every webhook event is decoded into an Event, classified and processed by
// the Engine which returns exactly one Action for it:
//
// - A "/rebase" or "/<label>" comment by a collaborator with sufficient
// permissions rebases the pull request once.
//
// - A finished check run or a changed commit status merges the oldest
// labeled pull request with the commit as head when it is clean. When the
// pull request is blocked, the oldest pull request that is behind the same
// base branch is rebased instead.
//
// - Opening, labeling or pushing to a labeled pull request rebases it when
// it is behind its base branch or contains fixup commits, otherwise it is
// merged when it is clean.
//
// - Merging a pull request rebases the oldest pull request that is behind
// the same base branch.
//
// - Submitting a review merges a labeled mergeable pull request.
//
// All state is retrieved from GitHub for every event. Multiple events for the
// same pull request can be processed concurrently, the automation label is
// used as lock to prevent concurrent rebases of the same pull request (see
// LabelLock). When a rebase fails, the label is not added again and the pull
// request is not processed anymore until a user adds the label again.
package autorebase
