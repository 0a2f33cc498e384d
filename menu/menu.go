// Package menu implements popup menus that keep themselves inside the
// viewport.
package menu

import (
	"fmt"

	"github.com/meikuraledutech/canvas"
)

// Clamp flips a popup of the given size anchored at `at` so it does not
// overflow the right or bottom edge of the viewport.
func Clamp(at canvas.Point, size, viewport canvas.Size) canvas.Point {
	p := at
	if at.X+size.Width > viewport.Width {
		p.X = at.X - size.Width
	}
	if at.Y+size.Height > viewport.Height {
		p.Y = at.Y - size.Height
	}
	return p
}

// Placement is the open/positioned state shared by every popup variant.
type Placement struct {
	anchor   canvas.Point
	position canvas.Point
	open     bool
	mounted  bool
	onClose  func()
}

// Open shows the popup anchored at a screen point. Until Mount reports its
// size, the popup sits exactly at the anchor.
func (p *Placement) Open(at canvas.Point) {
	p.anchor = at
	p.position = at
	p.open = true
	p.mounted = false
}

// Mount records the measured size of the popup and repositions it.
func (p *Placement) Mount(size, viewport canvas.Size) canvas.Point {
	if !p.open {
		return p.position
	}
	p.position = Clamp(p.anchor, size, viewport)
	p.mounted = true
	return p.position
}

// PointerDown closes the popup when the pointer went down outside it.
// It reports whether the popup closed.
func (p *Placement) PointerDown(inside bool) bool {
	if !p.open || inside {
		return false
	}
	p.Close()
	return true
}

// Close hides the popup.
func (p *Placement) Close() {
	if !p.open {
		return
	}
	p.open = false
	p.mounted = false
	if p.onClose != nil {
		p.onClose()
	}
}

// OnClose registers fn to run whenever the popup closes.
func (p *Placement) OnClose(fn func()) { p.onClose = fn }

func (p *Placement) IsOpen() bool           { return p.open }
func (p *Placement) Mounted() bool          { return p.mounted }
func (p *Placement) Position() canvas.Point { return p.position }
func (p *Placement) Anchor() canvas.Point   { return p.anchor }

// Entry is one row of a context menu.
type Entry struct {
	Content string
	Tooltip string
	OnClick func() error
}

// Menu is the generic context menu.
type Menu struct {
	Placement
	entries []Entry
}

// New creates a closed menu with entries.
func New(entries ...Entry) *Menu {
	return &Menu{entries: entries}
}

// SetEntries replaces the entries, e.g. when reopening for another node.
func (m *Menu) SetEntries(entries ...Entry) { m.entries = entries }

// Entries returns the menu rows.
func (m *Menu) Entries() []Entry { return m.entries }

// Select runs entry i and closes the menu. The menu closes even when the
// entry fails.
func (m *Menu) Select(i int) error {
	if !m.open {
		return fmt.Errorf("menu: select %d: menu is closed", i)
	}
	if i < 0 || i >= len(m.entries) {
		return fmt.Errorf("menu: select %d: out of range (%d entries)", i, len(m.entries))
	}
	defer m.Close()
	if m.entries[i].OnClick == nil {
		return nil
	}
	return m.entries[i].OnClick()
}

// IconItem is one button of an IconMenu.
type IconItem struct {
	Icon    string
	Tooltip string
	OnClick func() error
}

// IconMenu is the compact tooltip-icon variant used for per-edge actions.
type IconMenu struct {
	Placement
	items []IconItem
}

func NewIconMenu(items ...IconItem) *IconMenu {
	return &IconMenu{items: items}
}

func (m *IconMenu) Items() []IconItem { return m.items }

// Select runs item i and closes the menu.
func (m *IconMenu) Select(i int) error {
	if !m.open {
		return fmt.Errorf("menu: select %d: menu is closed", i)
	}
	if i < 0 || i >= len(m.items) {
		return fmt.Errorf("menu: select %d: out of range (%d items)", i, len(m.items))
	}
	defer m.Close()
	if m.items[i].OnClick == nil {
		return nil
	}
	return m.items[i].OnClick()
}

// EntryView is the serializable form of an Entry or IconItem.
type EntryView struct {
	Content string `json:"content,omitempty"`
	Icon    string `json:"icon,omitempty"`
	Tooltip string `json:"tooltip,omitempty"`
}

// View is the serializable state of a popup.
type View struct {
	Open     bool         `json:"open"`
	Mounted  bool         `json:"mounted"`
	Position canvas.Point `json:"position"`
	Entries  []EntryView  `json:"entries"`
}

func (m *Menu) View() View {
	v := View{Open: m.open, Mounted: m.mounted, Position: m.position}
	for _, e := range m.entries {
		v.Entries = append(v.Entries, EntryView{Content: e.Content, Tooltip: e.Tooltip})
	}
	return v
}

func (m *IconMenu) View() View {
	v := View{Open: m.open, Mounted: m.mounted, Position: m.position}
	for _, it := range m.items {
		v.Entries = append(v.Entries, EntryView{Icon: it.Icon, Tooltip: it.Tooltip})
	}
	return v
}
