package components

import (
	"image/color"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
)

const holdTick = 50 * time.Millisecond

// HoldButton is a button that requires the user to hold it down until the
// progress bar fills. It ignores input while disabled.
type HoldButton struct {
	widget.DisableableWidget
	Text         string
	HoldDuration time.Duration
	OnCompleted  func()

	holding  bool
	hovered  bool
	progress float64
	release  chan struct{}
}

// NewHoldButton creates a new HoldButton
func NewHoldButton(text string, hold time.Duration, onCompleted func()) *HoldButton {
	b := &HoldButton{
		Text:         text,
		HoldDuration: hold,
		OnCompleted:  onCompleted,
	}
	b.ExtendBaseWidget(b)
	return b
}

// CreateRenderer implements fyne.Widget
func (b *HoldButton) CreateRenderer() fyne.WidgetRenderer {
	text := canvas.NewText(b.Text, theme.Color(theme.ColorNameForeground))
	text.Alignment = fyne.TextAlignCenter

	bg := canvas.NewRectangle(theme.Color(theme.ColorNameButton))
	progressBar := canvas.NewRectangle(theme.Color(theme.ColorNamePrimary))

	return &holdButtonRenderer{
		button:      b,
		text:        text,
		bg:          bg,
		progressBar: progressBar,
	}
}

// Progress returns how far the current hold has filled, 0..1.
func (b *HoldButton) Progress() float64 {
	return b.progress
}

// SetText changes the label.
func (b *HoldButton) SetText(text string) {
	b.Text = text
	b.Refresh()
}

// Disable stops any hold in progress and ignores input until enabled.
func (b *HoldButton) Disable() {
	b.cancelHold()
	b.DisableableWidget.Disable()
}

// Tapped implements fyne.Tappable
func (b *HoldButton) Tapped(*fyne.PointEvent) {}

// TappedSecondary implements fyne.SecondaryTappable
func (b *HoldButton) TappedSecondary(*fyne.PointEvent) {}

// MouseIn implements desktop.Hoverable
func (b *HoldButton) MouseIn(*desktop.MouseEvent) {
	b.hovered = true
	b.Refresh()
}

// MouseMoved implements desktop.Hoverable
func (b *HoldButton) MouseMoved(*desktop.MouseEvent) {}

// MouseOut implements desktop.Hoverable
func (b *HoldButton) MouseOut() {
	b.hovered = false
	b.cancelHold()
	b.Refresh()
}

// MouseDown implements desktop.Mouseable
func (b *HoldButton) MouseDown(*desktop.MouseEvent) {
	if b.Disabled() || b.holding {
		return
	}
	b.holding = true
	b.progress = 0
	b.release = make(chan struct{})
	b.Refresh()

	hold := b.HoldDuration
	if hold <= 0 {
		hold = holdTick
	}
	increment := float64(holdTick) / float64(hold)
	go b.fill(b.release, increment)
}

// MouseUp implements desktop.Mouseable
func (b *HoldButton) MouseUp(*desktop.MouseEvent) {
	b.cancelHold()
}

// fill advances the progress on the UI thread until released or complete.
func (b *HoldButton) fill(release chan struct{}, increment float64) {
	ticker := time.NewTicker(holdTick)
	defer ticker.Stop()

	for {
		select {
		case <-release:
			return
		case <-ticker.C:
			done := false
			fyne.DoAndWait(func() {
				if !b.holding || b.release != release {
					done = true
					return
				}
				b.progress += increment
				if b.progress >= 1 {
					b.progress = 1
					b.holding = false
					done = true
					if b.OnCompleted != nil {
						b.OnCompleted()
					}
				}
				b.Refresh()
			})
			if done {
				return
			}
		}
	}
}

func (b *HoldButton) cancelHold() {
	if !b.holding {
		return
	}
	b.holding = false
	b.progress = 0
	close(b.release)
	b.Refresh()
}

type holdButtonRenderer struct {
	button      *HoldButton
	text        *canvas.Text
	bg          *canvas.Rectangle
	progressBar *canvas.Rectangle
}

func (r *holdButtonRenderer) Layout(size fyne.Size) {
	r.bg.Resize(size)
	r.text.Resize(size)

	// Progress bar fills from left to right
	progressWidth := size.Width * float32(r.button.progress)
	r.progressBar.Resize(fyne.NewSize(progressWidth, size.Height))
	r.progressBar.Move(fyne.NewPos(0, 0))
}

func (r *holdButtonRenderer) MinSize() fyne.Size {
	textSize := r.text.MinSize()
	minWidth := textSize.Width + theme.Padding()*4
	minHeight := textSize.Height + theme.Padding()*2

	// Large target for a just-woken user
	if minWidth < 300 {
		minWidth = 300
	}
	if minHeight < 80 {
		minHeight = 80
	}

	return fyne.NewSize(minWidth, minHeight)
}

func (r *holdButtonRenderer) Refresh() {
	r.text.Text = r.button.Text

	switch {
	case r.button.Disabled():
		r.text.Color = theme.Color(theme.ColorNameDisabled)
		r.bg.FillColor = theme.Color(theme.ColorNameDisabledButton)
	case r.button.hovered:
		r.text.Color = theme.Color(theme.ColorNameForeground)
		r.bg.FillColor = theme.Color(theme.ColorNameHover)
	default:
		r.text.Color = theme.Color(theme.ColorNameForeground)
		r.bg.FillColor = theme.Color(theme.ColorNameButton)
	}

	size := r.bg.Size()
	progressWidth := size.Width * float32(r.button.progress)
	r.progressBar.Resize(fyne.NewSize(progressWidth, size.Height))

	r.bg.Refresh()
	r.progressBar.Refresh()
	r.text.Refresh()
}

func (r *holdButtonRenderer) Objects() []fyne.CanvasObject {
	return []fyne.CanvasObject{r.bg, r.progressBar, r.text}
}

func (r *holdButtonRenderer) Destroy() {}

func (r *holdButtonRenderer) BackgroundColor() color.Color {
	return theme.Color(theme.ColorNameButton)
}
