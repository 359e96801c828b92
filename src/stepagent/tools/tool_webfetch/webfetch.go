package tool_webfetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"github.com/elee1766/stepwise/src/agent"
	"github.com/elee1766/stepwise/src/stepagent/toolsutil"
)

// Tool name constant
const Name = "web_fetch"

const (
	defaultTimeout = 30 * time.Second
	maxTimeout     = 120 * time.Second
	maxSize        = 5 * 1024 * 1024
	userAgent      = "stepwise/1.0"
)

const webFetchPrompt = `Fetches content from a URL and returns it in the specified format.

HOW TO USE:
- Provide the URL to fetch content from
- Specify the desired output format (text, markdown, or html)
- Optionally set a timeout in seconds (max 120, default 30)

LIMITATIONS:
- Maximum response size is 5MB
- Only supports HTTP and HTTPS protocols
- Cannot handle authentication or cookies

TIPS:
- Use text format for plain text content or simple API responses
- Use markdown format for pages whose structure matters
- Use html format when you need the raw HTML`

// WebFetchInput represents the parameters for web_fetch
type WebFetchInput struct {
	URL     string `json:"url" required:"true" validate:"required,http_url" description:"The URL to fetch content from"`
	Format  string `json:"format" required:"true" validate:"required,oneof=text markdown html" description:"The format to return the content in (text, markdown, or html)"`
	Timeout int    `json:"timeout,omitempty" validate:"omitempty,min=1,max=120" description:"Optional timeout in seconds (max 120, default 30)"`
}

// Options configures the web_fetch tool.
type Options struct {
	// Transport replaces the default HTTP transport, mostly for tests.
	Transport http.RoundTripper
}

// Tool returns the web_fetch tool definition using GenericTool
func Tool(opts Options) (agent.Tool, error) {
	return agent.NewGenericTool(Name, webFetchPrompt, makeWebFetchHandler(opts), agent.WithStrict())
}

func makeWebFetchHandler(opts Options) agent.GenericToolHandler[WebFetchInput] {
	return func(ctx context.Context, input WebFetchInput) (string, error) {
		timeout := defaultTimeout
		if input.Timeout > 0 {
			timeout = min(time.Duration(input.Timeout)*time.Second, maxTimeout)
		}

		client := &http.Client{
			Timeout:   timeout,
			Transport: opts.Transport,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return fmt.Errorf("too many redirects")
				}
				return nil
			},
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, input.URL, nil)
		if err != nil {
			return "", fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("User-Agent", userAgent)
		req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
		req.Header.Set("Accept-Language", "en-US,en;q=0.9")

		resp, err := client.Do(req)
		if err != nil {
			return "", fmt.Errorf("failed to fetch URL: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return "", fmt.Errorf("request failed with status code: %d", resp.StatusCode)
		}

		body, err := io.ReadAll(io.LimitReader(resp.Body, maxSize))
		if err != nil {
			return "", fmt.Errorf("failed to read response: %w", err)
		}

		content := string(body)
		contentType := resp.Header.Get("Content-Type")
		isHTML := strings.Contains(contentType, "text/html")

		var out string
		switch input.Format {
		case "text":
			out = content
			if isHTML {
				text, err := extractTextFromHTML(content)
				if err != nil {
					toolsutil.GetLogger().Warn("failed to extract text from HTML, returning raw content", "error", err)
				} else {
					out = text
				}
			}
		case "markdown":
			switch {
			case isHTML:
				markdown, err := convertHTMLToMarkdown(content)
				if err != nil {
					toolsutil.GetLogger().Warn("failed to convert HTML to Markdown, wrapping in code block", "error", err)
					out = "```html\n" + content + "\n```"
				} else {
					out = markdown
				}
			case strings.Contains(contentType, "application/json"):
				out = "```json\n" + content + "\n```"
			default:
				out = "```\n" + content + "\n```"
			}
		default:
			out = content
		}

		toolsutil.GetLogger().Info("fetched web content",
			"url", resp.Request.URL.String(),
			"status", resp.StatusCode,
			"size", toolsutil.FormatBytes(int64(len(body))),
			"format", input.Format,
		)
		return out, nil
	}
}

// extractTextFromHTML extracts plain text from HTML content
func extractTextFromHTML(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}

	doc.Find("script, style, noscript").Each(func(i int, s *goquery.Selection) {
		s.Remove()
	})

	var lines []string
	for _, line := range strings.Split(doc.Text(), "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			lines = append(lines, trimmed)
		}
	}
	return strings.Join(lines, "\n"), nil
}

// convertHTMLToMarkdown converts HTML content to Markdown
func convertHTMLToMarkdown(html string) (string, error) {
	converter := md.NewConverter("", true, nil)

	markdown, err := converter.ConvertString(html)
	if err != nil {
		return "", fmt.Errorf("failed to convert HTML to Markdown: %w", err)
	}

	markdown = strings.TrimSpace(markdown)
	markdown = strings.ReplaceAll(markdown, "\n\n\n", "\n\n")
	return markdown, nil
}
