package stitch

import (
	"fmt"
	"io"

	pb "github.com/schollz/progressbar/v3"
	"github.com/zyedidia/stitch/inject"
	"github.com/zyedidia/stitch/logger"
)

// BasicPrinter logs each data file as it is embedded.
type BasicPrinter struct {
	log logger.Logger
}

func (p *BasicPrinter) Start(b inject.Binding, size int64) {
	p.log.Info("embedding", "id", inject.ID(b.Key), "type", b.Type, "path", b.Path, "size", size)
}

func (p *BasicPrinter) Writer(w io.Writer) io.Writer { return w }
func (p *BasicPrinter) Done(b inject.Binding)        {}

// ProgressPrinter shows a byte progress bar for each data file.
type ProgressPrinter struct {
	w   io.Writer
	bar *pb.ProgressBar
}

func (p *ProgressPrinter) Start(b inject.Binding, size int64) {
	p.bar = pb.NewOptions64(size,
		pb.OptionSetWriter(p.w),
		pb.OptionSetWidth(10),
		pb.OptionShowBytes(true),
		pb.OptionSpinnerType(14),
		pb.OptionFullWidth(),
		pb.OptionSetPredictTime(false),
		pb.OptionSetDescription(fmt.Sprintf("%-40s", inject.ID(b.Key))),
		pb.OptionOnCompletion(func() {
			fmt.Fprint(p.w, "\n")
		}),
		pb.OptionSetTheme(pb.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}))
}

func (p *ProgressPrinter) Writer(w io.Writer) io.Writer {
	if p.bar == nil {
		return w
	}
	return io.MultiWriter(w, p.bar)
}

func (p *ProgressPrinter) Done(b inject.Binding) {
	if p.bar == nil {
		return
	}
	p.bar.Finish()
	p.bar = nil
}

func newPrinter(style string, w io.Writer, log logger.Logger) (inject.Printer, error) {
	switch style {
	case "", "basic":
		return &BasicPrinter{log: log}, nil
	case "progress":
		return &ProgressPrinter{w: w}, nil
	}
	return nil, fmt.Errorf("unknown style: %s", style)
}
