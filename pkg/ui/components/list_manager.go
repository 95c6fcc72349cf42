package components

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
)

// ListManager is a selectable list with add, edit and remove controls.
// The caller owns the data; the callbacks receive the selected index.
type ListManager struct {
	list        *widget.List
	data        []string
	selectedIdx int

	addButton    *widget.Button
	editButton   *widget.Button
	removeButton *widget.Button

	onAdd    func()
	onEdit   func(int)
	onRemove func(int)
}

// ListManagerConfig configures the list manager
type ListManagerConfig struct {
	OnAdd         func()    // Opens the caller's input UI
	OnEdit        func(int) // Called with the selected index
	OnRemove      func(int) // Called with the selected index
	ExtraControls []fyne.CanvasObject
}

// NewListManager creates a new list manager component
func NewListManager(data []string, config ListManagerConfig) (*ListManager, *fyne.Container) {
	lm := &ListManager{
		data:        data,
		selectedIdx: -1,
		onAdd:       config.OnAdd,
		onEdit:      config.OnEdit,
		onRemove:    config.OnRemove,
	}

	lm.list = widget.NewList(
		func() int {
			return len(lm.data)
		},
		func() fyne.CanvasObject {
			return widget.NewLabel("template")
		},
		func(i widget.ListItemID, o fyne.CanvasObject) {
			if i < len(lm.data) {
				o.(*widget.Label).SetText(lm.data[i])
			}
		})

	lm.list.OnSelected = func(id widget.ListItemID) {
		lm.selectedIdx = id
		lm.updateButtons()
	}
	lm.list.OnUnselected = func(widget.ListItemID) {
		lm.selectedIdx = -1
		lm.updateButtons()
	}

	lm.addButton = widget.NewButtonWithIcon("", theme.ContentAddIcon(), func() {
		if lm.onAdd != nil {
			lm.onAdd()
		}
	})
	lm.editButton = widget.NewButtonWithIcon("", theme.DocumentCreateIcon(), func() {
		if lm.onEdit != nil && lm.validSelection() {
			lm.onEdit(lm.selectedIdx)
		}
	})
	lm.removeButton = widget.NewButtonWithIcon("", theme.ContentRemoveIcon(), func() {
		lm.RemoveSelected()
	})
	lm.updateButtons()

	controls := container.NewHBox(lm.addButton, lm.editButton, lm.removeButton)
	for _, extra := range config.ExtraControls {
		controls.Add(extra)
	}

	listScroll := container.NewScroll(lm.list)
	listScroll.SetMinSize(fyne.NewSize(0, 250))

	listWithBorder := container.NewBorder(
		widget.NewSeparator(),
		widget.NewSeparator(),
		widget.NewSeparator(),
		widget.NewSeparator(),
		listScroll,
	)

	return lm, container.NewBorder(nil, controls, nil, nil, listWithBorder)
}

// Selected returns the selected index or -1.
func (lm *ListManager) Selected() int {
	return lm.selectedIdx
}

// Select highlights index i.
func (lm *ListManager) Select(i int) {
	lm.list.Select(i)
}

// SetData updates the data and refreshes, clearing the selection
func (lm *ListManager) SetData(data []string) {
	lm.data = data
	lm.list.UnselectAll()
	lm.selectedIdx = -1
	lm.updateButtons()
	lm.list.Refresh()
}

// RemoveSelected hands the selected index to OnRemove and clears the selection.
// The caller refreshes the data once the removal is applied.
func (lm *ListManager) RemoveSelected() {
	if !lm.validSelection() {
		return
	}
	idx := lm.selectedIdx
	lm.list.UnselectAll()
	lm.selectedIdx = -1
	lm.updateButtons()
	if lm.onRemove != nil {
		lm.onRemove(idx)
	}
}

func (lm *ListManager) validSelection() bool {
	return lm.selectedIdx >= 0 && lm.selectedIdx < len(lm.data)
}

func (lm *ListManager) updateButtons() {
	if lm.editButton == nil {
		return
	}
	if lm.validSelection() {
		lm.editButton.Enable()
		lm.removeButton.Enable()
	} else {
		lm.editButton.Disable()
		lm.removeButton.Disable()
	}
}
