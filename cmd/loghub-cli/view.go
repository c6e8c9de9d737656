package main

import (
	"context"
	"fmt"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
	"github.com/spf13/cobra"

	"github.com/rmacdonaldsmith/loghub-go/pkg/httpclient"
)

const viewerHelp = "[q] quit  [p] pause  [c] clear  [↑/↓] scroll"

func newViewCommand() *cobra.Command {
	var replay bool

	cmd := &cobra.Command{
		Use:   "view",
		Short: "Open the terminal log viewer",
		Long:  "Open a full-screen viewer that follows the live stream and shows server health.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := requestContext()
			err := requireAuthentication(ctx)
			cancel()
			if err != nil {
				return err
			}
			return newViewer().run(cmd.Context(), replay)
		},
	}
	cmd.Flags().BoolVar(&replay, "replay", true, "Load the retained history first")
	return cmd
}

// viewer is the tview UI. Every field below app is touched only on the UI goroutine.
type viewer struct {
	app *tview.Application

	indicator *tview.TextView
	logs      *tview.TextView
	footer    *tview.TextView

	paused  bool
	pending []httpclient.StreamMessage
	lines   int
	health  string
}

func newViewer() *viewer {
	v := &viewer{
		app:    tview.NewApplication(),
		health: "connecting",
	}

	v.indicator = tview.NewTextView().SetDynamicColors(true)
	v.logs = tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true)
	v.logs.SetBorder(true).SetTitle(" " + serverURL + " ")
	v.footer = tview.NewTextView().SetTextAlign(tview.AlignCenter).SetText(viewerHelp)

	layout := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(v.indicator, 1, 0, false).
		AddItem(v.logs, 0, 1, true).
		AddItem(v.footer, 1, 0, false)

	v.app.SetInputCapture(v.handleKey)
	v.app.SetRoot(layout, true)
	v.refreshIndicator()
	return v
}

func (v *viewer) handleKey(ev *tcell.EventKey) *tcell.EventKey {
	switch {
	case ev.Key() == tcell.KeyEscape, ev.Key() == tcell.KeyRune && ev.Rune() == 'q':
		v.app.Stop()
		return nil
	case ev.Key() == tcell.KeyRune && ev.Rune() == 'p':
		v.setPaused(!v.paused)
		return nil
	case ev.Key() == tcell.KeyRune && ev.Rune() == 'c':
		v.logs.Clear()
		v.lines = 0
		v.refreshIndicator()
		return nil
	}
	return ev
}

func (v *viewer) setPaused(paused bool) {
	v.paused = paused
	if !paused {
		for _, msg := range v.pending {
			v.write(msg)
		}
		v.pending = nil
		v.logs.ScrollToEnd()
	}
	v.refreshIndicator()
}

func (v *viewer) appendMessage(msg httpclient.StreamMessage) {
	if v.paused {
		v.pending = append(v.pending, msg)
		v.refreshIndicator()
		return
	}
	v.write(msg)
}

func (v *viewer) write(msg httpclient.StreamMessage) {
	fmt.Fprintln(v.logs, formatLine(msg))
	v.lines++
	v.refreshIndicator()
}

func (v *viewer) setHealth(text string) {
	v.health = text
	v.refreshIndicator()
}

func (v *viewer) refreshIndicator() {
	state := "[green]live[-]"
	if v.paused {
		state = fmt.Sprintf("[yellow]paused (%d waiting)[-]", len(v.pending))
	}
	v.indicator.SetText(fmt.Sprintf(" loghub  %s  lines: %d  health: %s", state, v.lines, v.health))
}

// formatLine renders one stream frame with color tags; message text is escaped
func formatLine(msg httpclient.StreamMessage) string {
	text := tview.Escape(msg.Message)
	if !msg.Replayed {
		return text
	}
	return fmt.Sprintf("[%s]%-5s[-] [gray]%s[-]", levelColor(msg.Level), msg.Level, text)
}

func levelColor(level string) string {
	switch level {
	case "ERROR":
		return "red"
	case "WARN":
		return "yellow"
	case "INFO":
		return "green"
	case "DEBUG":
		return "blue"
	default:
		return "gray"
	}
}

func (v *viewer) run(parent context.Context, replay bool) error {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	stream, err := client.Stream(ctx, httpclient.StreamConfig{Replay: replay, BufferSize: 1000})
	if err != nil {
		return err
	}
	defer stream.Close()

	go v.pump(ctx, stream)
	go v.pollHealth(ctx)
	go func() {
		<-ctx.Done()
		v.app.Stop()
	}()

	return v.app.Run()
}

func (v *viewer) pump(ctx context.Context, stream *httpclient.StreamClient) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-stream.Events():
			if !ok {
				return
			}
			v.app.QueueUpdateDraw(func() { v.appendMessage(msg) })
		case err, ok := <-stream.Errors():
			if ok {
				text := "[red]" + tview.Escape(err.Error()) + "[-]"
				v.app.QueueUpdateDraw(func() { v.setHealth(text) })
			}
		}
	}
}

func (v *viewer) pollHealth(ctx context.Context) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		text := "[red]unreachable[-]"
		reqCtx, cancel := context.WithTimeout(ctx, timeout)
		health, err := client.GetHealth(reqCtx)
		cancel()
		if err == nil {
			if health.Healthy {
				text = fmt.Sprintf("[green]ok[-] (%d retained, %d subscribers)", health.HistoryLength, health.Subscribers)
			} else {
				text = "[red]poisoned[-]"
			}
		}
		v.app.QueueUpdateDraw(func() { v.setHealth(text) })

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
