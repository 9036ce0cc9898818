package models

// ParseMode selects how the sink interprets message text.
type ParseMode string

const (
	ParsePlain    ParseMode = ""
	ParseMarkdown ParseMode = "Markdown"
	ParseHTML     ParseMode = "HTML"
)

// Message is one formatted report ready for delivery.
type Message struct {
	Text string
	Mode ParseMode
}
