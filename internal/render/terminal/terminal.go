// Package terminal is the tcell-based reference host shell: it drives
// an internal/system.System at 60Hz and renders each frame as block
// characters, mapping keyboard events onto the joypad bit layout
// documented in pkg/host.
package terminal

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/dmg-core/sharpboy/internal/disasm"
	"github.com/dmg-core/sharpboy/internal/system"
	"github.com/dmg-core/sharpboy/internal/video"
)

const (
	scaleX    = 2
	scaleY    = 1
	frameTime = time.Second / 60

	// keyHoldTime is how long a keypress is latched before auto-releasing;
	// terminals report key-down events but not key-up, so a real button
	// hold has to be simulated by re-pressing before the hold expires.
	keyHoldTime = 120 * time.Millisecond
)

var shadeChars = []rune{'█', '▓', '▒', '░'}

// Renderer drives sys at 60Hz, rendering into a tcell.Screen and
// latching keyboard input into the joypad bitmasks System.SetInput
// expects.
type Renderer struct {
	screen tcell.Screen
	sys    *system.System

	mu            sync.Mutex
	actionMask    uint8
	directionMask uint8
	debugPane     bool

	running bool
}

// New initializes the terminal screen and wraps sys.
func New(sys *system.System) (*Renderer, error) {
	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, fmt.Errorf("terminal: failed to initialize: %w", err)
	}
	if err := screen.Init(); err != nil {
		return nil, fmt.Errorf("terminal: failed to initialize: %w", err)
	}

	return &Renderer{screen: screen, sys: sys, running: true}, nil
}

// Run drives the emulator until interrupted (Ctrl-C/SIGTERM) or Escape
// is pressed, rendering one frame every 60th of a second.
func (r *Renderer) Run() error {
	defer func() {
		slog.Info("terminal: shutting down")
		r.screen.Fini()
	}()

	r.screen.SetStyle(tcell.StyleDefault.Background(tcell.ColorBlack).Foreground(tcell.ColorWhite))
	r.screen.Clear()

	go r.handleInput()

	ticker := time.NewTicker(frameTime)
	defer ticker.Stop()

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)

	for r.running {
		select {
		case <-ticker.C:
			action, direction := r.snapshotInput()
			r.sys.SetInput(action, direction)
			r.sys.RunFrame()
			r.render(r.sys.Frame())
			r.renderDebugPane()
			r.screen.Show()
		case <-signals:
			r.running = false
		}
	}

	return nil
}

func (r *Renderer) snapshotInput() (actionMask, directionMask uint8) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.actionMask, r.directionMask
}

func (r *Renderer) press(actionBit, directionBit uint8) {
	r.mu.Lock()
	r.actionMask |= actionBit
	r.directionMask |= directionBit
	r.mu.Unlock()

	time.AfterFunc(keyHoldTime, func() {
		r.mu.Lock()
		r.actionMask &^= actionBit
		r.directionMask &^= directionBit
		r.mu.Unlock()
	})
}

func (r *Renderer) handleInput() {
	for r.running {
		ev := r.screen.PollEvent()
		switch ev := ev.(type) {
		case *tcell.EventKey:
			switch ev.Key() {
			case tcell.KeyEscape:
				r.running = false
				r.screen.PostEvent(tcell.NewEventInterrupt(nil))
			case tcell.KeyEnter:
				r.press(0x08, 0)
			case tcell.KeyRight:
				r.press(0, 0x01)
			case tcell.KeyLeft:
				r.press(0, 0x02)
			case tcell.KeyUp:
				r.press(0, 0x04)
			case tcell.KeyDown:
				r.press(0, 0x08)
			case tcell.KeyRune:
				switch ev.Rune() {
				case 'a':
					r.press(0x01, 0)
				case 's':
					r.press(0x02, 0)
				case 'q':
					r.press(0x04, 0)
				case 'i':
					r.mu.Lock()
					r.debugPane = !r.debugPane
					r.mu.Unlock()
				}
			}
		case *tcell.EventResize:
			r.screen.Sync()
		}
	}
}

// renderDebugPane overlays the disassembly of the instruction at the
// current PC on the top row, toggled with 'i'. It reads memory through
// System.Read, which never mutates emulator state.
func (r *Renderer) renderDebugPane() {
	r.mu.Lock()
	enabled := r.debugPane
	r.mu.Unlock()
	if !enabled {
		return
	}

	pc := r.sys.PC()
	line := disasm.DisassembleAt(pc, r.sys)
	text := fmt.Sprintf("PC=%04X  %s", pc, line.Text)
	style := tcell.StyleDefault.Foreground(tcell.ColorYellow).Background(tcell.ColorBlack)
	for i, ch := range text {
		r.screen.SetContent(i, 0, ch, nil, style)
	}
}

func (r *Renderer) render(fb *video.FrameBuffer) {
	r.screen.Clear()

	for y := 0; y < video.Height; y++ {
		for x := 0; x < video.Width; x++ {
			pixel := fb.At(x, y)
			shade := 3 - (uint8(pixel>>16&0xFF) / 64)
			if shade > 3 {
				shade = 3
			}
			style := tcell.StyleDefault.Foreground(tcell.ColorWhite)
			char := shadeChars[shade]

			screenX, screenY := x*scaleX, y*scaleY
			for sx := 0; sx < scaleX; sx++ {
				r.screen.SetContent(screenX+sx, screenY, char, nil, style)
			}
		}
	}
}
