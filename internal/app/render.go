package app

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/daxxac/talk-tile-buddy/internal/audio"
	"github.com/daxxac/talk-tile-buddy/internal/board"
	"github.com/daxxac/talk-tile-buddy/internal/cli"
	"github.com/daxxac/talk-tile-buddy/internal/ipc"
	"github.com/daxxac/talk-tile-buddy/internal/session"
)

// render prints a successful board response for people.
func (r Runner) render(command cli.Command, resp ipc.Response) {
	v := newView(r.Stdout)

	var err error
	switch string(command) {
	case "status":
		var status session.Status
		if err = resp.Decode(&status); err == nil {
			v.status(status)
		}
	case "categories":
		var categories []session.CategoryView
		if err = resp.Decode(&categories); err == nil {
			v.categories(categories)
		}
	case "tiles", "search":
		var tiles []session.TileView
		if err = resp.Decode(&tiles); err == nil {
			v.tiles(tiles)
		}
	case "sentence", "sentence.add", "sentence.remove", "sentence.clear", "sentence.move":
		var sentence session.SentenceView
		if err = resp.Decode(&sentence); err == nil {
			v.sentence(sentence)
		}
	case "prefs", "prefs.update":
		var prefs session.PreferenceView
		if err = resp.Decode(&prefs); err == nil {
			v.message(resp.Message)
			v.preferences(prefs)
		}
	case "category.add":
		var created board.Category
		if err = resp.Decode(&created); err == nil {
			fmt.Fprintf(v.out, "%s: %s\n", resp.Message, created.ID)
		}
	case "tile.add":
		var created session.TileView
		if err = resp.Decode(&created); err == nil {
			fmt.Fprintf(v.out, "%s: %s\n", resp.Message, created.ID)
		}
	case "state":
		v.raw(resp.Data)
	default:
		v.message(resp.Message)
		if resp.Message == "" {
			v.raw(resp.Data)
		}
	}

	if err != nil {
		v.message(resp.Message)
		v.raw(resp.Data)
	}
}

type view struct {
	out      io.Writer
	renderer *lipgloss.Renderer
	key      lipgloss.Style
	faint    lipgloss.Style
}

func newView(out io.Writer) view {
	renderer := lipgloss.NewRenderer(out)
	return view{
		out:      out,
		renderer: renderer,
		key:      renderer.NewStyle().Bold(true),
		faint:    renderer.NewStyle().Faint(true),
	}
}

func (v view) message(message string) {
	if message != "" {
		fmt.Fprintln(v.out, message)
	}
}

func (v view) raw(data json.RawMessage) {
	if len(data) == 0 {
		return
	}
	var pretty strings.Builder
	var decoded any
	if err := json.Unmarshal(data, &decoded); err != nil {
		fmt.Fprintln(v.out, string(data))
		return
	}
	enc := json.NewEncoder(&pretty)
	enc.SetIndent("", "  ")
	_ = enc.Encode(decoded)
	fmt.Fprint(v.out, pretty.String())
}

func (v view) pairs(rows [][2]string) {
	width := 0
	for _, row := range rows {
		width = max(width, len(row[0]))
	}
	keyStyle := v.key.Width(width + 2)
	for _, row := range rows {
		fmt.Fprintln(v.out, keyStyle.Render(row[0]+":")+row[1])
	}
}

func (v view) status(s session.Status) {
	state := string(s.State)
	if s.Decision != "" {
		state = fmt.Sprintf("%s (%s)", s.State, s.Decision)
	}
	rows := [][2]string{
		{"state", state},
		{"language", fmt.Sprintf("%s (%s)", s.Language, s.Direction)},
		{"board", fmt.Sprintf("%d categories, %d tiles, %d orphans", s.Categories, s.Tiles, s.Orphans)},
		{"sentence", fmt.Sprintf("%d items", s.Sentence)},
		{"caregiver", onOff(s.CaregiverMode)},
		{"contrast", onOff(s.HighContrast)},
	}
	if s.IsLoading {
		rows = append(rows, [2]string{"loading", "yes"})
	}
	if s.Error != "" {
		rows = append(rows, [2]string{"error", s.Error})
	}
	v.pairs(rows)
}

func (v view) categories(categories []session.CategoryView) {
	if len(categories) == 0 {
		fmt.Fprintln(v.out, v.faint.Render("no categories"))
		return
	}
	t := v.table("ORDER", "ID", "ICON", "NAME", "TILES")
	for _, c := range categories {
		t.Row(strconv.Itoa(c.Order), c.ID, c.Icon, c.DisplayName, strconv.Itoa(c.TileCount))
	}
	fmt.Fprintln(v.out, t.Render())
}

func (v view) tiles(tiles []session.TileView) {
	if len(tiles) == 0 {
		fmt.Fprintln(v.out, v.faint.Render("no tiles"))
		return
	}
	t := v.table("ORDER", "ID", "IMAGE", "TEXT", "TYPE", "FAV")
	for _, tile := range tiles {
		image := tile.ImageURI
		if tile.ImageKind == board.ImageReference.String() {
			image = "[" + tile.ImageKind + "]"
		}
		fav := ""
		if tile.IsFavorite {
			fav = "*"
		}
		t.Row(strconv.Itoa(tile.Order), tile.ID, image, tile.Text, string(tile.Type), fav)
	}
	fmt.Fprintln(v.out, t.Render())
}

func (v view) sentence(s session.SentenceView) {
	if len(s.Items) == 0 {
		fmt.Fprintln(v.out, v.faint.Render(s.Placeholder))
		return
	}
	fmt.Fprintln(v.out, s.Transcript)
	for i, word := range s.Words {
		line := fmt.Sprintf("%d. %s", i, word.Text)
		if !word.Live {
			line += v.faint.Render(" (tile removed)")
		}
		fmt.Fprintln(v.out, line)
	}
}

func (v view) preferences(p session.PreferenceView) {
	voice := p.TTSVoice
	if voice == "" {
		voice = "default"
	}
	v.pairs([][2]string{
		{"language", fmt.Sprintf("%s %s (%s)", p.Language, p.LanguageName, p.Direction)},
		{"voice", voice},
		{"grid columns", strconv.Itoa(p.GridCols)},
		{"high contrast", onOff(p.HighContrast)},
		{"show text", onOff(p.ShowText)},
		{"vibration", onOff(p.Vibration)},
		{"caregiver", onOff(p.CaregiverMode)},
		{"pin", map[bool]string{true: "set", false: "not set"}[p.PinSet]},
	})
}

// devices lists cue sinks; the default sink is starred.
func (v view) devices(devices []audio.Device) {
	t := v.table("", "ID", "DESCRIPTION", "STATE", "AVAILABLE", "MUTED")
	for _, d := range devices {
		mark := ""
		if d.Default {
			mark = "*"
		}
		t.Row(mark, d.ID, d.Description, d.State, yesNo(d.Available), yesNo(d.Muted))
	}
	fmt.Fprintln(v.out, t.Render())
}

func (v view) table(headers ...string) *table.Table {
	header := v.renderer.NewStyle().Bold(true).Padding(0, 1)
	cell := v.renderer.NewStyle().Padding(0, 1)
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(v.faint).
		Headers(headers...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return header
			}
			return cell
		})
}

func onOff(enabled bool) string {
	if enabled {
		return "on"
	}
	return "off"
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
