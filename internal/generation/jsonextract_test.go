package generation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const outlineJSON = `{
  "titolo": "Corso di prova",
  "descrizione": "Una descrizione",
  "durata_stimata": "10 ore",
  "capitoli": [
    {
      "id": "cap1",
      "titolo": "Introduzione",
      "descrizione": "Panoramica",
      "sottoargomenti": [
        {"titolo": "Obiettivi", "punti_chiave": ["uno", "due"]}
      ]
    },
    {
      "id": "cap2",
      "titolo": "Approfondimento",
      "descrizione": "Dettagli, vedi https://example.com/guida",
      "sottoargomenti": []
    }
  ]
}`

func TestParseOutlineFencedAndBareAreEquivalent(t *testing.T) {
	t.Parallel()

	fenced, err := ParseOutline("Ecco la scaletta:\n```json\n" + outlineJSON + "\n```\nBuon lavoro!")
	require.NoError(t, err)

	bare, err := ParseOutline("Ecco la scaletta: " + outlineJSON + " Fine.")
	require.NoError(t, err)

	assert.Equal(t, fenced, bare)
	assert.Equal(t, "Corso di prova", bare.Title)
	require.Len(t, bare.Chapters, 2)
	assert.Equal(t, "cap1-sub-1", bare.Chapters[0].Subtopics[0].ID)
	assert.Equal(t, "Dettagli, vedi https://example.com/guida", bare.Chapters[1].Description,
		"// inside strings is not a comment")
}

func TestParseOutlineRepairsComments(t *testing.T) {
	t.Parallel()

	reply := `{
  "titolo": "T",
  "descrizione": "D",
  "capitoli": [
    {"id": "cap1", "titolo": "Uno", "sottoargomenti": [
      {"titolo": "A", "punti_chiave": ["x"]}, // altri sottoargomenti
    ]},
    // altri capitoli
  ]
}`

	outline, err := ParseOutline(reply)
	require.NoError(t, err)
	require.Len(t, outline.Chapters, 1)
	assert.Equal(t, "Uno", outline.Chapters[0].Title)
	require.Len(t, outline.Chapters[0].Subtopics, 1)
}

func TestParseOutlineErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		reply string
	}{
		{"no json", "Mi dispiace, non posso aiutarti."},
		{"missing capitoli", `{"titolo": "T", "descrizione": "D"}`},
		{"missing titolo", `{"descrizione": "D", "capitoli": []}`},
		{"broken json", `{"titolo": "T", "descrizione": "D", "capitoli": [}`},
		{"no chapters", `{"titolo": "T", "descrizione": "D", "capitoli": []}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseOutline(tt.reply)
			assert.ErrorIs(t, err, ErrInvalidResponse)
		})
	}
}

func TestStripLineComments(t *testing.T) {
	t.Parallel()

	in := "{\"a\": \"x // y\", // comment\n\"b\": \"q\\\"//\"}"
	assert.Equal(t, "{\"a\": \"x // y\", \n\"b\": \"q\\\"//\"}", stripLineComments(in))
}
