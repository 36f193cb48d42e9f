package main

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/layr8/hyperate-go"
)

// printer writes one coloured line per event.
type printer struct {
	mu  sync.Mutex
	out io.Writer
	now func() time.Time

	stamp  *color.Color
	device *color.Color
	bpm    *color.Color
	clip   *color.Color
	status *color.Color
}

func newPrinter(out io.Writer) *printer {
	return &printer{
		out:    out,
		now:    time.Now,
		stamp:  color.New(color.FgHiBlack),
		device: color.New(color.FgCyan),
		bpm:    color.New(color.FgRed, color.Bold),
		clip:   color.New(color.FgMagenta),
		status: color.New(color.FgYellow),
	}
}

func (p *printer) line(format string, args ...any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.out, "%s %s\n", p.stamp.Sprint(p.now().Format(time.TimeOnly)), fmt.Sprintf(format, args...))
}

func (p *printer) heartbeat(hb hyperate.Heartbeat) {
	p.line("%s %s", p.device.Sprint(hb.DeviceID), p.bpm.Sprintf("%d bpm", hb.BPM))
}

func (p *printer) clipCreated(c hyperate.Clip) {
	p.line("%s clip %s", p.device.Sprint(c.DeviceID), p.clip.Sprint(c.Slug))
}

func (p *printer) channel(topic, what string) {
	p.line("%s %s", p.status.Sprint(what), topic)
}
