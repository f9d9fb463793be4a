package fetcher

import "context"

// Fetcher defines the interface for retrieving remote markup.
type Fetcher interface {
	// Fetch performs a single GET of the URL and returns the response body
	// as text. One attempt per invocation; no retry.
	Fetch(ctx context.Context, url string) (string, error)
}
