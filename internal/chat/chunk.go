package chat

import (
	"regexp"
	"sort"
	"strings"
)

// MaxMessageLen is the storage limit for a single message body.
const MaxMessageLen = 2000

var paragraphBreak = regexp.MustCompile(`\n\n+`)

// SplitTextIntoChunks splits text into pieces no longer than maxLen,
// preferring paragraph breaks, then sentence boundaries, then hard
// splits. Empty input yields no chunks.
func SplitTextIntoChunks(text string, maxLen int, sentences *regexp.Regexp) []string {
	if text == "" {
		return nil
	}
	var chunks []string
	for _, para := range paragraphBreak.Split(text, -1) {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		if len(para) <= maxLen {
			chunks = append(chunks, para)
			continue
		}
		parts := sentences.FindAllString(para, -1)
		if parts == nil {
			parts = []string{para}
		}
		buffer := ""
		for _, s := range parts {
			joined := strings.TrimSpace(buffer + " " + s)
			if len(joined) <= maxLen {
				buffer = joined
				continue
			}
			if buffer != "" {
				chunks = append(chunks, buffer)
			}
			if len(s) > maxLen {
				for i := 0; i < len(s); i += maxLen {
					end := i + maxLen
					if end > len(s) {
						end = len(s)
					}
					chunks = append(chunks, s[i:end])
				}
				buffer = ""
			} else {
				buffer = strings.TrimSpace(s)
			}
		}
		if buffer != "" {
			chunks = append(chunks, buffer)
		}
	}
	if len(chunks) == 0 {
		for i := 0; i < len(text); i += maxLen {
			end := i + maxLen
			if end > len(text) {
				end = len(text)
			}
			chunks = append(chunks, text[i:end])
		}
	}
	return chunks
}

// CoalesceMessages merges stored multipart bot messages back into
// single messages for presentation. Non-multipart messages pass
// through unchanged.
func CoalesceMessages(messages []Message) []Message {
	out := make([]Message, 0, len(messages))
	i := 0
	for i < len(messages) {
		msg := messages[i]
		if msg.Sender != SenderBot || msg.Metadata == nil || msg.Metadata.TotalParts <= 1 {
			out = append(out, msg)
			i++
			continue
		}

		total := msg.Metadata.TotalParts
		parts := []Message{msg}
		j := i + 1
		for j < len(messages) && len(parts) < total {
			next := messages[j]
			if next.Sender != SenderBot || next.Metadata == nil || next.Metadata.Part == 0 {
				break
			}
			parts = append(parts, next)
			j++
		}

		sort.SliceStable(parts, func(a, b int) bool {
			return parts[a].Metadata.Part < parts[b].Metadata.Part
		})

		texts := make([]string, len(parts))
		ids := make([]string, len(parts))
		for k, p := range parts {
			texts[k] = p.Text
			ids[k] = p.ID
		}

		meta := *parts[0].Metadata
		meta.Merged = true
		meta.Parts = ids

		out = append(out, Message{
			ID:        parts[0].ID,
			Text:      strings.Join(texts, "\n\n"),
			Sender:    SenderBot,
			Timestamp: parts[len(parts)-1].Timestamp,
			Metadata:  &meta,
		})
		i = j
	}
	return out
}
