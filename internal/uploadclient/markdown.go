package uploadclient

import "fmt"

const defaultAltText = "paraFlux inc. Image"

// MarkdownSnippet renders the copy-ready markdown embed for a hosted image.
func MarkdownSnippet(url string) string {
	return fmt.Sprintf("![%s](%s)", defaultAltText, url)
}
