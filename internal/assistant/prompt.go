package assistant

import (
	"bytes"
	"encoding/json"
	"text/template"

	"github.com/MarcoPoloResearchLab/anisensei/internal/anime"
)

const promptTemplateText = `You are AniSensei, an assistant that helps a viewer manage their anime watchlist.

This is the viewer's current anime list:
{{.Context}}

The viewer asks: "{{.Query}}"

Answer using their list. You can:
- Recommend anime based on what they have watched and rated highly
- Answer questions about their watch history
- Summarize statistics about their viewing habits
- Suggest what to watch next based on their preferences
- Help them organize their watchlist

Be conversational and knowledgeable about anime, and refer to their own watch history when it is relevant.`

var promptTemplate = template.Must(template.New("prompt").Parse(promptTemplateText))

// contextEntry is the projection of a record that is shared with the model.
type contextEntry struct {
	Title    string       `json:"title"`
	Status   anime.Status `json:"status"`
	Rating   int          `json:"rating"`
	Episodes int          `json:"episodes"`
	Notes    *string      `json:"notes"`
	Favorite bool         `json:"favorite"`
}

type promptData struct {
	Context string
	Query   string
}

// BuildPrompt embeds the records as indented JSON alongside the viewer's query.
func BuildPrompt(records []anime.Anime, query string) (string, error) {
	entries := make([]contextEntry, 0, len(records))
	for _, record := range records {
		entries = append(entries, contextEntry{
			Title:    record.Title,
			Status:   record.Status,
			Rating:   record.Rating,
			Episodes: record.Episodes,
			Notes:    record.Notes,
			Favorite: record.Favorite,
		})
	}

	var encoded bytes.Buffer
	encoder := json.NewEncoder(&encoded)
	encoder.SetEscapeHTML(false)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(entries); err != nil {
		return "", err
	}

	var prompt bytes.Buffer
	data := promptData{
		Context: string(bytes.TrimRight(encoded.Bytes(), "\n")),
		Query:   query,
	}
	if err := promptTemplate.Execute(&prompt, data); err != nil {
		return "", err
	}
	return prompt.String(), nil
}
