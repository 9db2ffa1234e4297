package gateway

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// maxHTMLBytes bounds how much of an HTML error page is parsed.
const maxHTMLBytes = 1 << 16

// serverMessage extracts a message field from a JSON error body, or the
// title of an HTML error page. JSON bodies are decoded whole.
func serverMessage(body []byte) string {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return ""
	}

	if body[0] == '{' {
		var payload struct {
			Message any `json:"message"`
		}
		if err := json.NewDecoder(bytes.NewReader(body)).Decode(&payload); err != nil {
			return ""
		}
		if msg, ok := payload.Message.(string); ok {
			return strings.TrimSpace(msg)
		}
		return ""
	}

	if len(body) > maxHTMLBytes {
		body = body[:maxHTMLBytes]
	}
	if looksLikeHTML(body) {
		return htmlTitle(body)
	}
	return ""
}

func looksLikeHTML(body []byte) bool {
	head := bytes.ToLower(body[:min(len(body), 512)])
	return bytes.HasPrefix(head, []byte("<!doctype html")) ||
		bytes.Contains(head, []byte("<html")) ||
		bytes.Contains(head, []byte("<title"))
}

func htmlTitle(body []byte) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return ""
	}
	title := strings.TrimSpace(doc.Find("title").First().Text())
	if title == "" {
		title = strings.TrimSpace(doc.Find("h1").First().Text())
	}
	return strings.Join(strings.Fields(title), " ")
}
