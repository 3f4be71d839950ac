package discord

import "time"

// Channel is a guild text channel the bot can post to.
type Channel struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	GuildID   string `json:"guild_id"`
	GuildName string `json:"guild_name"`
}

// Attachment is a file attached to a channel message.
type Attachment struct {
	URL      string `json:"url"`
	Filename string `json:"filename"`
}

// Message is one entry of a channel's history, newest first as Discord
// returns them.
type Message struct {
	ID          string       `json:"id"`
	Author      string       `json:"author"`
	Content     string       `json:"content"`
	Timestamp   time.Time    `json:"timestamp"`
	Attachments []Attachment `json:"attachments"`
}
