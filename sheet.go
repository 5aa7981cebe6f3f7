package beatr

import (
	"fmt"
	"io"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig"
)

const sheetTemplate = `{{ .Name | default "untitled" | upper }}  {{ printf "%.1f" .Tempo }} BPM
{{ repeat 10 " " }} {{ .Ruler }}
{{- range .Tracks }}
{{ .Title | trunc 10 | printf "%-10s" }} {{ .Grid }}{{ if .Accents }}  accents {{ join "," .Accents }}{{ end }}
{{- end }}
`

var sheet = template.Must(template.New("sheet").Funcs(sprig.TxtFuncMap()).Parse(sheetTemplate))

type (
	sheetData struct {
		Name   string
		Tempo  float64
		Ruler  string
		Tracks []sheetTrack
	}

	sheetTrack struct {
		Title   string
		Grid    string
		Accents []string
	}
)

// WriteSheet prints a pattern as a step sheet: one line per track with the
// steps drawn as a grid. Steps with a velocity below one are listed as
// accents after the grid. Tracks with no active steps are omitted unless
// every track is empty.
func WriteSheet(w io.Writer, p Pattern, tempo float64) error {
	data := sheetData{Name: p.Name, Tempo: tempo}
	var ruler strings.Builder
	for beat := 0; beat < PatternLength/StepsPerBeat; beat++ {
		fmt.Fprintf(&ruler, "|%-*d", StepsPerBeat, beat+1)
	}
	ruler.WriteByte('|')
	data.Ruler = ruler.String()
	empty := p.IsEmpty()
	for i := range p.Tracks {
		t := &p.Tracks[i]
		st := sheetTrack{Title: t.Voice.Title(), Grid: t.Grid()}
		active := false
		for j, s := range t.Steps {
			if !s.Active {
				continue
			}
			active = true
			if s.Velocity < 1 {
				st.Accents = append(st.Accents, fmt.Sprintf("%d:%.2f", j+1, s.Velocity))
			}
		}
		if active || empty {
			data.Tracks = append(data.Tracks, st)
		}
	}
	if err := sheet.Execute(w, data); err != nil {
		return fmt.Errorf("could not execute sheet template: %w", err)
	}
	return nil
}
