package aiassist

import (
	"context"
	"fmt"
	"strings"

	"github.com/jonassync/licensing_backend/models"
)

const (
	pitchSystemPrompt = "You are a music supervisor's assistant. Judge how well a song fits a sync brief. " +
		"Answer with a fit score from 1 to 10, the strongest reasons, and any risks."
	lyricsSystemPrompt = "You analyse song lyrics for sync licensing. Summarise the themes and mood, " +
		"list scene types the song suits, and flag explicit or brand-sensitive content."
	contractSystemPrompt = "You draft sync licence agreements. Complete and tidy the draft you are given " +
		"using the deal terms. Keep every figure exactly as provided."
)

// Assistant builds prompts from catalogue data. A nil client answers every
// call with ErrNotConfigured.
type Assistant struct {
	client *Client
}

func NewAssistant(client *Client) *Assistant {
	return &Assistant{client: client}
}

func (a *Assistant) Configured() bool {
	return a != nil && a.client != nil
}

func (a *Assistant) complete(ctx context.Context, operation string, system string, user string) (string, error) {
	if !a.Configured() {
		return "", ErrNotConfigured
	}
	return a.client.Complete(ctx, operation, system, user)
}

func describeSong(song *models.Song) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Title: %s\n", song.Title)
	line := func(label string, value string) {
		if strings.TrimSpace(value) != "" {
			fmt.Fprintf(&b, "%s: %s\n", label, value)
		}
	}
	line("Artist", song.Artist)
	line("Album", song.Album)
	line("Composers", song.Composers)
	line("Genre", song.Genre)
	line("Mood", song.Mood)
	if song.Bpm != nil {
		fmt.Fprintf(&b, "BPM: %d\n", *song.Bpm)
	}
	line("Key", song.MusicalKey)
	return b.String()
}

// AnalyzePitch scores a catalogue song against a brief.
func (a *Assistant) AnalyzePitch(ctx context.Context, songId int, brief string) (string, error) {
	if !a.Configured() {
		return "", ErrNotConfigured
	}
	song, err := models.GetSong(ctx, songId)
	if err != nil {
		return "", err
	}
	prompt := "Brief:\n" + strings.TrimSpace(brief) + "\n\nSong:\n" + describeSong(song)
	if song.Lyrics != "" {
		prompt += "\nLyrics:\n" + song.Lyrics
	}
	return a.complete(ctx, "smart_pitch_analyze", pitchSystemPrompt, prompt)
}

// AnalyzeLyrics analyses lyrics given directly, or those of songId when
// lyrics is empty.
func (a *Assistant) AnalyzeLyrics(ctx context.Context, lyrics string, songId *int) (string, error) {
	if !a.Configured() {
		return "", ErrNotConfigured
	}
	prompt := strings.TrimSpace(lyrics)
	if prompt == "" && songId != nil {
		song, err := models.GetSong(ctx, *songId)
		if err != nil {
			return "", err
		}
		prompt = strings.TrimSpace(song.Lyrics)
		if prompt != "" {
			prompt = describeSong(song) + "\nLyrics:\n" + prompt
		}
	}
	if prompt == "" {
		return "", &models.ValidationError{Fields: []models.FieldError{{Field: "lyrics", Message: "is required"}}}
	}
	return a.complete(ctx, "analyze_lyrics", lyricsSystemPrompt, prompt)
}

// GenerateContract renders the chosen contract template (or the first
// contract template) for a deal and asks the model to finish it.
func (a *Assistant) GenerateContract(ctx context.Context, dealId int, templateId *int) (string, error) {
	if !a.Configured() {
		return "", ErrNotConfigured
	}
	draft, err := RenderContractDraft(ctx, dealId, templateId)
	if err != nil {
		return "", err
	}
	return a.complete(ctx, "generate_contract", contractSystemPrompt, draft)
}

// RenderContractDraft executes the template against the deal's data.
func RenderContractDraft(ctx context.Context, dealId int, templateId *int) (string, error) {
	data, err := models.LoadTemplateData(ctx, dealId)
	if err != nil {
		return "", err
	}
	var tmpl *models.Template
	if templateId != nil {
		tmpl, err = models.GetTemplate(ctx, *templateId)
	} else {
		tmpl, err = models.GetDefaultTemplate(ctx, models.TemplateTypeContract)
	}
	if err != nil {
		return "", err
	}
	return tmpl.Render(data)
}
