// Package azdo implements the Azure DevOps Artifacts feed protocol.
//
// URLs are org/feed-scoped: the configured URL is the organization's feeds
// endpoint (https://feeds.dev.azure.com/{org}) and every call targets
// _apis/packaging/feeds/{feed}/... Credentials attach as basic auth, with an
// empty username when a personal access token is used.
//
// Azure DevOps feeds can mirror packages from upstream sources (nuget.org)
// next to natively published ones. A version's provenance is reported in its
// sourceChain; an empty chain means the version was published directly to
// the feed. The native-only filter relies on exactly that signal; its
// semantics are load-bearing for existing configurations and must not be
// extended.
package azdo
