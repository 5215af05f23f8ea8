package publisher

import (
	"context"
	"fmt"
	"html"
	"net/smtp"
	"strings"

	"github.com/ryosukesatoh/news-curator/internal/digest"
)

type sendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// EmailPublisher sends the digest as an HTML email via SMTP.
type EmailPublisher struct {
	host     string
	port     int
	username string
	password string
	from     string
	to       []string
	send     sendMailFunc
}

func NewEmailPublisher(host string, port int, username, password, from string, to []string) *EmailPublisher {
	return &EmailPublisher{
		host:     host,
		port:     port,
		username: username,
		password: password,
		from:     from,
		to:       to,
		send:     smtp.SendMail,
	}
}

func (p *EmailPublisher) Publish(_ context.Context, edition *Edition) error {
	d := edition.Digest
	subject := fmt.Sprintf("%s - %s", d.Title, d.Date.Format("2006-01-02"))
	body := buildHTMLBody(d)

	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/html; charset=\"UTF-8\"\r\n\r\n%s",
		p.from,
		strings.Join(p.to, ","),
		subject,
		body,
	)

	addr := fmt.Sprintf("%s:%d", p.host, p.port)
	var auth smtp.Auth
	if p.username != "" {
		auth = smtp.PlainAuth("", p.username, p.password, p.host)
	}

	if err := p.send(addr, auth, p.from, p.to, []byte(msg)); err != nil {
		return fmt.Errorf("email: failed to send: %w", err)
	}

	return nil
}

func buildHTMLBody(d *digest.Digest) string {
	var sb strings.Builder
	esc := html.EscapeString

	sb.WriteString(`<!DOCTYPE html><html><head><style>
body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; max-width: 700px; margin: 0 auto; padding: 20px; color: #333; }
h1 { color: #1a1a2e; border-bottom: 2px solid #e94560; padding-bottom: 10px; }
h2 { color: #16213e; }
.article { border: 1px solid #ddd; border-radius: 8px; padding: 15px; margin-bottom: 15px; }
.article h3 { margin-top: 0; color: #0f3460; }
.meta { color: #666; font-size: 0.9em; margin-bottom: 10px; }
.tags { color: #888; font-size: 0.85em; }
</style></head><body>`)

	sb.WriteString(fmt.Sprintf("<h1>%s</h1>", esc(d.Title)))
	sb.WriteString(fmt.Sprintf("<p><em>%s</em> &middot; %d articles</p>", d.Date.Format("January 2, 2006"), d.Total))

	if len(d.Sections) == 0 {
		sb.WriteString("<p>No articles in this edition.</p>")
	}

	for _, s := range d.Sections {
		sb.WriteString(fmt.Sprintf("<h2>%s (%d)</h2>", esc(s.Label), s.Count))
		for _, a := range s.Articles {
			sb.WriteString(`<div class="article">`)
			sb.WriteString(fmt.Sprintf(`<h3><a href="%s">%s</a></h3>`, esc(a.URL), esc(a.Title)))
			sb.WriteString(fmt.Sprintf(`<div class="meta">%s | %s | %s</div>`, esc(a.Source), esc(a.Author), a.PublishDate.Format("Jan 2, 15:04")))
			if a.Summary != "" {
				sb.WriteString(fmt.Sprintf("<p>%s</p>", esc(a.Summary)))
			}
			if len(a.Tags) > 0 {
				sb.WriteString(fmt.Sprintf(`<div class="tags">%s</div>`, esc(strings.Join(a.Tags, ", "))))
			}
			sb.WriteString("</div>")
		}
	}

	sb.WriteString("</body></html>")
	return sb.String()
}
