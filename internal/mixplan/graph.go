package mixplan

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// OutputLabel is the filter graph pad carrying the final mix.
const OutputLabel = "out"

// Input is one ffmpeg input file. Looping inputs are read with
// -stream_loop -1 and trimmed in the graph.
type Input struct {
	Path string
	Loop bool
}

// Graph is a declarative ffmpeg filter graph for a plan.
type Graph struct {
	Inputs []Input
	Filter string
}

// InputArgs returns the ffmpeg arguments declaring the inputs in order.
func (g Graph) InputArgs() []string {
	args := make([]string, 0, len(g.Inputs)*4)
	for _, in := range g.Inputs {
		if in.Loop {
			args = append(args, "-stream_loop", "-1")
		}
		args = append(args, "-i", in.Path)
	}
	return args
}

type graphBuilder struct {
	inputs  []Input
	chains  []string
	streams []string
	rate    int
}

func (b *graphBuilder) input(path string, loop bool) int {
	b.inputs = append(b.inputs, Input{Path: path, Loop: loop})
	return len(b.inputs) - 1
}

func (b *graphBuilder) chain(format string, args ...any) {
	b.chains = append(b.chains, fmt.Sprintf(format, args...))
}

// normalize is the common prefix resampling every stream to the plan format.
func (b *graphBuilder) normalize() string {
	return fmt.Sprintf("aresample=%d,aformat=sample_fmts=fltp:channel_layouts=stereo", b.rate)
}

// BuildGraph renders plan as an ffmpeg filter_complex. Narration entries are
// padded or trimmed to their scheduled length and concatenated; beds are
// trimmed, faded, gained, ducked, then delayed to their start; effects are
// gained and delayed. Everything is summed without normalization and passed
// through loudnorm.
func BuildGraph(plan *MixPlan) (Graph, error) {
	if err := plan.Validate(); err != nil {
		return Graph{}, err
	}
	b := &graphBuilder{rate: plan.SampleRate}

	if len(plan.Narration.Entries) > 0 {
		labels := make([]string, 0, len(plan.Narration.Entries))
		for i, e := range plan.Narration.Entries {
			label := fmt.Sprintf("n%d", i)
			dur := secs(e.Duration)
			if e.Silence {
				b.chain("anullsrc=r=%d:cl=stereo,atrim=duration=%s[%s]", b.rate, dur, label)
			} else {
				idx := b.input(e.Clip, false)
				b.chain("[%d:a]%s,apad=whole_dur=%s,atrim=duration=%s[%s]", idx, b.normalize(), dur, dur, label)
			}
			labels = append(labels, "["+label+"]")
		}
		b.chain("%sconcat=n=%d:v=0:a=1,volume=%s[narr]", strings.Join(labels, ""), len(labels), db(plan.Narration.GainDB))
		b.streams = append(b.streams, "[narr]")
	}

	for i, bed := range plan.Beds {
		idx := b.input(bed.Clip, bed.Loop)
		length := bed.Length()
		filters := []string{b.normalize(), "atrim=duration=" + secs(length), "asetpts=PTS-STARTPTS"}
		if bed.FadeIn > 0 {
			filters = append(filters, fmt.Sprintf("afade=t=in:st=0:d=%s", secs(bed.FadeIn)))
		}
		if bed.FadeOut > 0 {
			filters = append(filters, fmt.Sprintf("afade=t=out:st=%s:d=%s", secs(length-bed.FadeOut), secs(bed.FadeOut)))
		}
		filters = append(filters, "volume="+db(bed.GainDB))
		if expr := duckExpr(bed); expr != "" {
			filters = append(filters, expr)
		}
		filters = append(filters, delay(bed.Start))
		label := fmt.Sprintf("b%d", i)
		b.chain("[%d:a]%s[%s]", idx, strings.Join(filters, ","), label)
		b.streams = append(b.streams, "["+label+"]")
	}

	for i, fx := range plan.Sfx {
		idx := b.input(fx.Clip, false)
		label := fmt.Sprintf("s%d", i)
		b.chain("[%d:a]%s,volume=%s,%s[%s]", idx, b.normalize(), db(fx.GainDB), delay(fx.Onset), label)
		b.streams = append(b.streams, "["+label+"]")
	}

	if len(b.streams) == 0 {
		return Graph{}, planErrorf("", "plan has no audio")
	}
	loudnorm := fmt.Sprintf("loudnorm=I=%s:TP=%s:LRA=11", num(plan.TargetLUFS), num(plan.TruePeakDB))
	if len(b.streams) == 1 {
		b.chain("%s%s[%s]", b.streams[0], loudnorm, OutputLabel)
	} else {
		b.chain("%samix=inputs=%d:normalize=0:duration=longest,%s[%s]", strings.Join(b.streams, ""), len(b.streams), loudnorm, OutputLabel)
	}
	return Graph{Inputs: b.inputs, Filter: strings.Join(b.chains, ";")}, nil
}

// duckExpr lowers the bed by DuckDB inside its duck windows. Times in the
// expression are relative to the bed start because it runs before adelay.
func duckExpr(bed BedTrack) string {
	if bed.DuckDB <= 0 || len(bed.Ducks) == 0 {
		return ""
	}
	terms := make([]string, 0, len(bed.Ducks))
	for _, w := range bed.Ducks {
		terms = append(terms, fmt.Sprintf("between(t,%s,%s)", secs(w.Start-bed.Start), secs(w.End-bed.Start)))
	}
	factor := math.Pow(10, -bed.DuckDB/20)
	return fmt.Sprintf("volume='if(%s,%s,1)':eval=frame", strings.Join(terms, "+"), strconv.FormatFloat(factor, 'f', 4, 64))
}

func delay(d time.Duration) string {
	return fmt.Sprintf("adelay=delays=%d:all=1", d.Milliseconds())
}

func secs(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', 3, 64)
}

func db(v float64) string {
	return num(v) + "dB"
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
