package mixplan

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	gojsonschema "github.com/xeipuuv/gojsonschema"
)

//go:embed mixplan.schema.json
var schemaJSON []byte

// Schema returns the JSON schema exported plans conform to.
func Schema() []byte {
	return append([]byte(nil), schemaJSON...)
}

type wirePlan struct {
	Version    int           `json:"version"`
	LengthS    float64       `json:"length_s"`
	SampleRate int           `json:"sample_rate"`
	Narration  wireNarration `json:"narration"`
	Beds       []wireBed     `json:"beds"`
	Sfx        []wireSfx     `json:"sfx"`
	TargetLUFS float64       `json:"target_lufs"`
	TruePeakDB float64       `json:"truepeak_db"`
}

type wireNarration struct {
	GainDB  float64     `json:"gain_db"`
	Entries []wireEntry `json:"entries"`
}

type wireEntry struct {
	Ref       string  `json:"ref,omitempty"`
	Clip      string  `json:"clip,omitempty"`
	StartS    float64 `json:"start_s"`
	DurationS float64 `json:"duration_s"`
	Silence   bool    `json:"silence,omitempty"`
}

type wireBed struct {
	Kind          string       `json:"kind"`
	ID            string       `json:"id"`
	Clip          string       `json:"clip"`
	StartS        float64      `json:"start_s"`
	EndS          float64      `json:"end_s"`
	Loop          bool         `json:"loop"`
	ClipDurationS float64      `json:"clip_duration_s,omitempty"`
	Tiles         int          `json:"tiles,omitempty"`
	FadeInS       float64      `json:"fade_in_s"`
	FadeOutS      float64      `json:"fade_out_s"`
	GainDB        float64      `json:"gain_db"`
	DuckDB        float64      `json:"duck_db"`
	Ducks         []wireWindow `json:"ducks"`
}

type wireWindow struct {
	StartS float64 `json:"start_s"`
	EndS   float64 `json:"end_s"`
}

type wireSfx struct {
	ID     string  `json:"id"`
	Clip   string  `json:"clip"`
	OnsetS float64 `json:"onset_s"`
	GainDB float64 `json:"gain_db"`
}

func seconds(d time.Duration) float64 { return d.Seconds() }

// JSON renders the plan for external consumers. Times are in seconds.
func (p *MixPlan) JSON() ([]byte, error) {
	w := wirePlan{
		Version:    p.Version,
		LengthS:    seconds(p.Length),
		SampleRate: p.SampleRate,
		Narration:  wireNarration{GainDB: p.Narration.GainDB, Entries: []wireEntry{}},
		Beds:       []wireBed{},
		Sfx:        []wireSfx{},
		TargetLUFS: p.TargetLUFS,
		TruePeakDB: p.TruePeakDB,
	}
	for _, e := range p.Narration.Entries {
		w.Narration.Entries = append(w.Narration.Entries, wireEntry{
			Ref:       e.Ref,
			Clip:      e.Clip,
			StartS:    seconds(e.Start),
			DurationS: seconds(e.Duration),
			Silence:   e.Silence,
		})
	}
	for _, b := range p.Beds {
		wb := wireBed{
			Kind:          string(b.Kind),
			ID:            b.ID,
			Clip:          b.Clip,
			StartS:        seconds(b.Start),
			EndS:          seconds(b.End),
			Loop:          b.Loop,
			ClipDurationS: seconds(b.ClipDuration),
			Tiles:         b.Tiles,
			FadeInS:       seconds(b.FadeIn),
			FadeOutS:      seconds(b.FadeOut),
			GainDB:        b.GainDB,
			DuckDB:        b.DuckDB,
			Ducks:         []wireWindow{},
		}
		for _, d := range b.Ducks {
			wb.Ducks = append(wb.Ducks, wireWindow{StartS: seconds(d.Start), EndS: seconds(d.End)})
		}
		w.Beds = append(w.Beds, wb)
	}
	for _, s := range p.Sfx {
		w.Sfx = append(w.Sfx, wireSfx{ID: s.ID, Clip: s.Clip, OnsetS: seconds(s.Onset), GainDB: s.GainDB})
	}
	return json.MarshalIndent(w, "", "  ")
}

// ValidateJSON checks an exported plan against the embedded schema.
func ValidateJSON(data []byte) error {
	result, err := gojsonschema.Validate(gojsonschema.NewBytesLoader(schemaJSON), gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("mixplan: schema validate: %w", err)
	}
	if result.Valid() {
		return nil
	}
	reasons := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		reasons = append(reasons, e.String())
	}
	return &MixPlanError{Reason: "exported plan does not match schema: " + strings.Join(reasons, "; ")}
}
