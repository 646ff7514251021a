package services

import (
	"costest/models"
	"fmt"
	"net/smtp"
	"os"
	"strings"

	"golang.org/x/net/html"
)

// EmailService sends forecast-run summaries. SMTP settings come from the
// environment (SMTP_HOST, SMTP_PORT, SMTP_USER, SMTP_PASSWORD, SMTP_FROM);
// with no host configured sending is a no-op so local runs stay quiet.
type EmailService struct {
	host     string
	port     string
	user     string
	password string
	from     string
}

func NewEmailService() *EmailService {
	return &EmailService{
		host:     os.Getenv("SMTP_HOST"),
		port:     os.Getenv("SMTP_PORT"),
		user:     os.Getenv("SMTP_USER"),
		password: os.Getenv("SMTP_PASSWORD"),
		from:     os.Getenv("SMTP_FROM"),
	}
}

// convertHTMLToText flattens an HTML body into a plain-text alternative for
// mail clients that do not render HTML.
func convertHTMLToText(htmlContent string) string {
	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return htmlContent
	}

	var text strings.Builder
	var extractText func(*html.Node)
	extractText = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			text.WriteString(n.Data)
		case html.ElementNode:
			switch n.Data {
			case "p", "div", "br", "h1", "h2", "h3", "tr":
				text.WriteString("\n")
			case "li":
				text.WriteString("- ")
			case "td", "th":
				text.WriteString(" | ")
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			extractText(child)
		}
	}

	extractText(doc)

	result := text.String()
	result = strings.ReplaceAll(result, "\n\n\n", "\n\n")
	return strings.TrimSpace(result)
}

func forecastSummaryHTML(projectName string, period models.PricePeriod, stats *ForecastStats) string {
	return fmt.Sprintf(`<html><body>
<h2>Forecast run complete</h2>
<p>Project: %s</p>
<p>Target quarter: %s</p>
<ul>
<li>Items processed: %d</li>
<li>Items matched: %d</li>
<li>Items skipped (no usable history): %d</li>
<li>Forecast records written: %d</li>
</ul>
</body></html>`, projectName, period, stats.Items, stats.Matched, stats.Skipped, stats.RecordsWritten)
}

// SendForecastSummary mails a run summary to the user who triggered it.
func (es *EmailService) SendForecastSummary(to, projectName string, period models.PricePeriod, stats *ForecastStats) error {
	if es.host == "" || to == "" {
		return nil
	}

	body := convertHTMLToText(forecastSummaryHTML(projectName, period, stats))
	msg := strings.Join([]string{
		"From: " + es.from,
		"To: " + to,
		fmt.Sprintf("Subject: Forecast ready for %s (%s)", projectName, period),
		"",
		body,
	}, "\r\n")

	addr := es.host + ":" + es.port
	auth := smtp.PlainAuth("", es.user, es.password, es.host)
	if err := smtp.SendMail(addr, auth, es.from, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("failed to send forecast summary: %v", err)
	}
	return nil
}
