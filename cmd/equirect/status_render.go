package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"

	"equirect/internal/status"
)

// renderer turns the job's event stream into terminal output. Interactive
// terminals get a live progress bar, everything else gets one line per
// event. Error events always land on stderr.
type renderer struct {
	out     io.Writer
	errOut  io.Writer
	asJSON  bool
	bar     *progressbar.ProgressBar
	encoder *json.Encoder
}

func newRenderer(out, errOut io.Writer, asJSON bool) *renderer {
	r := &renderer{out: out, errOut: errOut, asJSON: asJSON}
	if asJSON {
		r.encoder = json.NewEncoder(out)
		return r
	}
	if isTerminal(out) {
		r.bar = progressbar.NewOptions(100,
			progressbar.OptionSetWriter(out),
			progressbar.OptionSetWidth(30),
			progressbar.OptionSetDescription("starting"),
		)
	}
	return r
}

// consume drains the event stream until it closes.
func (r *renderer) consume(events <-chan status.Event) {
	for event := range events {
		r.render(event)
	}
	if r.bar != nil {
		fmt.Fprintln(r.out)
	}
}

func (r *renderer) render(event status.Event) {
	if r.asJSON {
		_ = r.encoder.Encode(event)
		return
	}

	if event.Type == status.TypeError {
		if r.bar != nil {
			fmt.Fprintln(r.out)
		}
		fmt.Fprintf(r.errOut, "ERROR %s: %s: %s\n", event.CurrentProcess, event.Message, event.Error)
		return
	}

	if r.bar != nil {
		r.bar.Describe(event.Message)
		_ = r.bar.Set(event.CompletionPercentage)
		return
	}
	fmt.Fprintf(r.out, "%3d%% %-17s %s\n", event.CompletionPercentage, event.CurrentProcess, event.Message)
}

func isTerminal(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
