package dashboard

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/shirou/gopsutil/v3/process"

	"stagerun/config"
	"stagerun/helper"
	"stagerun/interfaces"
	"stagerun/model"
)

const defaultRefresh = 200 * time.Millisecond

var (
	labelColor  = color.New(color.FgCyan, color.Bold)
	valueColor  = color.New(color.FgWhite)
	noticeColor = color.New(color.FgYellow)
)

// Renderer is the terminal dashboard. It owns stdout and operator input for
// the duration of a run; it never touches the database, only snapshots.
type Renderer struct {
	out     io.Writer
	in      io.Reader
	refresh time.Duration
	tty     bool
	proc    *process.Process

	lines     int
	stopping  bool
	lastPlain uint64
	havePlain bool
}

func New(cfg config.DashboardConfig) *Renderer {
	refresh := cfg.Refresh
	if refresh <= 0 {
		refresh = defaultRefresh
	}
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		slog.Warn("process metrics unavailable", "error", err)
		proc = nil
	}
	return &Renderer{
		out:     os.Stdout,
		in:      os.Stdin,
		refresh: refresh,
		tty:     !cfg.Plain && isatty.IsTerminal(os.Stdout.Fd()),
		proc:    proc,
	}
}

var _ interfaces.Renderer = (*Renderer)(nil)

// Render drives the dashboard until the progress channel closes, then draws
// one final frame so the operator sees the settled state. Interrupt (SIGINT
// or q+Enter) requests cancellation; rendering continues until the loop has
// committed its last batch.
func (r *Renderer) Render(updates <-chan model.ProgressSnapshot, cancel context.CancelFunc) {
	ticker := time.NewTicker(r.refresh)
	defer ticker.Stop()

	interrupts := make(chan os.Signal, 1)
	signal.Notify(interrupts, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(interrupts)

	keys := make(chan struct{}, 1)
	done := make(chan struct{})
	defer close(done)
	go r.watchKeys(keys, done)

	var (
		last model.ProgressSnapshot
		have bool
	)
	for {
		select {
		case snap, ok := <-updates:
			if !ok {
				r.draw(last, have, true)
				return
			}
			last, have = snap, true
		case <-ticker.C:
			r.draw(last, have, false)
		case <-interrupts:
			r.interrupt(cancel)
		case <-keys:
			r.interrupt(cancel)
		}
	}
}

func (r *Renderer) interrupt(cancel context.CancelFunc) {
	if !r.stopping {
		slog.Info("interrupt received, stopping at next batch boundary")
		r.stopping = true
	}
	cancel()
}

// watchKeys stops once Render has returned. A read blocked on stdin cannot
// be interrupted, so the goroutine may park on Scan until one more line
// arrives, but it never acts on input after done closes.
func (r *Renderer) watchKeys(keys chan<- struct{}, done <-chan struct{}) {
	scanner := bufio.NewScanner(r.in)
	for scanner.Scan() {
		select {
		case <-done:
			return
		default:
		}
		if strings.TrimSpace(scanner.Text()) == "q" {
			select {
			case keys <- struct{}{}:
			case <-done:
				return
			default:
			}
		}
	}
}

// draw never fails the run; a frame that cannot be written is skipped.
func (r *Renderer) draw(snap model.ProgressSnapshot, have, final bool) {
	if !have {
		return
	}
	var err error
	if r.tty {
		err = r.drawFrame(snap, final)
	} else {
		err = r.drawPlain(snap, final)
	}
	if err != nil {
		slog.Warn("skipping frame", "error", err)
	}
}

func (r *Renderer) drawFrame(snap model.ProgressSnapshot, final bool) error {
	lines := r.frameLines(snap, final)

	var sb strings.Builder
	if r.lines > 0 {
		fmt.Fprintf(&sb, "\033[%dA", r.lines)
	}
	for _, line := range lines {
		sb.WriteString("\033[2K")
		sb.WriteString(line)
		sb.WriteString("\n")
	}
	if _, err := io.WriteString(r.out, sb.String()); err != nil {
		return err
	}
	r.lines = len(lines)
	return nil
}

func (r *Renderer) frameLines(snap model.ProgressSnapshot, final bool) []string {
	total := span(snap.StartHeight, snap.Target)
	done := span(snap.StartHeight, snap.Height)
	percent := 0.0
	if total > 0 {
		percent = float64(done) / float64(total) * 100
	}

	lines := []string{
		fmt.Sprintf("%s  %s (%s)",
			labelColor.Sprint("stage    "),
			valueColor.Sprint(snap.Stage),
			snap.Direction),
		fmt.Sprintf("%s  %d -> %d / %d  %s  %.1f%%",
			labelColor.Sprint("height   "),
			snap.StartHeight, snap.Height, snap.Target,
			progressBar(percent), percent),
		fmt.Sprintf("%s  %s entities  %s  batch %d",
			labelColor.Sprint("progress "),
			helper.FormatCount(snap.Entities),
			helper.FormatThroughput(snap.PerSecond),
			snap.Batches),
		fmt.Sprintf("%s  %s elapsed  eta %s",
			labelColor.Sprint("time     "),
			helper.FormatDuration(snap.Elapsed),
			r.eta(snap)),
	}
	if line, ok := r.processLine(); ok {
		lines = append(lines, line)
	}
	switch {
	case final:
		lines = append(lines, noticeColor.Sprint("run finished"))
	case r.stopping:
		lines = append(lines, noticeColor.Sprint("stopping at batch boundary..."))
	default:
		lines = append(lines, "press q+Enter or ctrl-c to stop")
	}
	return lines
}

func (r *Renderer) drawPlain(snap model.ProgressSnapshot, final bool) error {
	if r.havePlain && snap.Height == r.lastPlain && !final {
		return nil
	}
	r.lastPlain = snap.Height
	r.havePlain = true
	_, err := fmt.Fprintf(r.out, "stage=%s direction=%s height=%d target=%d entities=%d rate=%s elapsed=%s\n",
		snap.Stage, snap.Direction, snap.Height, snap.Target, snap.Entities,
		helper.FormatThroughput(snap.PerSecond), helper.FormatDuration(snap.Elapsed))
	return err
}

func (r *Renderer) processLine() (string, bool) {
	if r.proc == nil {
		return "", false
	}
	cpu, err := r.proc.CPUPercent()
	if err != nil {
		return "", false
	}
	mem, err := r.proc.MemoryInfo()
	if err != nil || mem == nil {
		return "", false
	}
	return fmt.Sprintf("%s  cpu %.1f%%  rss %s",
		labelColor.Sprint("process  "), cpu, helper.FormatBytes(mem.RSS)), true
}

func (r *Renderer) eta(snap model.ProgressSnapshot) string {
	done := span(snap.StartHeight, snap.Height)
	remaining := span(snap.Height, snap.Target)
	if done == 0 || remaining == 0 || snap.Elapsed <= 0 {
		return "-"
	}
	perHeight := snap.Elapsed / time.Duration(done)
	return helper.FormatDuration(perHeight * time.Duration(remaining))
}

func progressBar(percent float64) string {
	const width = 20
	filled := int(percent / 100 * width)
	if filled > width {
		filled = width
	}
	return "[" + strings.Repeat("=", filled) + strings.Repeat(" ", width-filled) + "]"
}

// span is the distance between two heights regardless of direction.
func span(a, b uint64) uint64 {
	if a > b {
		return a - b
	}
	return b - a
}
