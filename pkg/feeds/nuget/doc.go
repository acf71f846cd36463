// Package nuget implements the standard NuGet v3 feed protocol.
//
// The configured URL is the feed's service index (for nuget.org,
// https://api.nuget.org/v3/index.json). Resource endpoints are discovered
// from the index and memoized per client:
//   - PackageBaseAddress: version listing and package content (flat container)
//   - SearchQueryService: package search
//
// Credentials attach as an X-NuGet-ApiKey header (API key) or a basic-auth
// header (username/password); header construction happens where the client
// is built, this package only forwards them.
package nuget
