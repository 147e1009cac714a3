package notify

import (
	"fmt"
	"html"
	"strconv"
)

// Content is a rendered email.
type Content struct {
	Subject string
	HTML    string
	Text    string
}

// Composer renders a message into email content.
type Composer interface {
	Compose(msg Message) (Content, error)
}

// PlainComposer renders a minimal email with a link to the listing.
type PlainComposer struct {
	// ListingURL is a format string receiving the listing id, e.g. "https://example.com/listings/%s".
	ListingURL string
}

func (c PlainComposer) Compose(msg Message) (Content, error) {
	l := msg.Listing
	budget := strconv.FormatFloat(l.Budget, 'f', -1, 64)

	subject := fmt.Sprintf("New listing for %q: %s", msg.AlertLabel, l.Title)
	text := fmt.Sprintf("Hi %s,\n\nA new listing matches your alert %q.\n\n%s\nCategory: %s\nLocation: %s\nBudget: %s\n",
		greeting(msg.Recipient.DisplayName), msg.AlertLabel, l.Title, l.Category, l.Location, budget)
	body := fmt.Sprintf("<p>Hi %s,</p><p>A new listing matches your alert <strong>%s</strong>.</p><p><strong>%s</strong><br>Category: %s<br>Location: %s<br>Budget: %s</p>",
		html.EscapeString(greeting(msg.Recipient.DisplayName)), html.EscapeString(msg.AlertLabel),
		html.EscapeString(l.Title), html.EscapeString(l.Category), html.EscapeString(l.Location), budget)

	if c.ListingURL != "" {
		link := fmt.Sprintf(c.ListingURL, l.ID)
		text += "\n" + link + "\n"
		body += fmt.Sprintf(`<p><a href="%s">View listing</a></p>`, html.EscapeString(link))
	}

	return Content{Subject: subject, HTML: body, Text: text}, nil
}

func greeting(name string) string {
	if name == "" {
		return "there"
	}
	return name
}
