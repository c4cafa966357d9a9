package cli

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/daxxac/talk-tile-buddy/internal/board"
	"github.com/daxxac/talk-tile-buddy/internal/locale"
	"github.com/spf13/cobra"
)

const binaryName = "tilebuddy"

type Command string

const (
	CommandServe   Command = "serve"
	CommandWatch   Command = "watch"
	CommandDevices Command = "devices"
	CommandDoctor  Command = "doctor"
	CommandVersion Command = "version"
	CommandHelp    Command = "help"
)

var localCommands = map[Command]struct{}{
	CommandServe:   {},
	CommandWatch:   {},
	CommandDevices: {},
	CommandDoctor:  {},
	CommandVersion: {},
	CommandHelp:    {},
}

// Local reports whether c runs in this process rather than against the board.
func (c Command) Local() bool {
	_, ok := localCommands[c]
	return ok
}

// Parsed is one resolved invocation. Board commands carry the session command
// name in Command plus its Args and Payload.
type Parsed struct {
	Command    Command
	Args       []string
	Payload    map[string]any
	ConfigPath string
	JSON       bool
	ShowHelp   bool
	Help       string

	// File is the export destination or import source; "-" or empty means stdio.
	File string
	// Yes skips the reset confirmation prompt.
	Yes bool
	// PIN and CurrentPIN are set only when given as flags.
	PIN        string
	PINGiven   bool
	CurrentPIN string
	// CaregiverPIN authorizes one board edit without entering caregiver mode.
	CaregiverPIN      string
	CaregiverPINGiven bool
}

// RequestPayload returns the payload to encode, or nil when nothing was set.
func (p Parsed) RequestPayload() any {
	if len(p.Payload) == 0 {
		return nil
	}
	return p.Payload
}

func Parse(args []string) (Parsed, error) {
	parsed := Parsed{}
	root := newRoot(&parsed)
	root.SetArgs(args)

	var sink bytes.Buffer
	root.SetOut(&sink)
	root.SetErr(&sink)

	cmd, err := root.ExecuteC()
	if err != nil {
		return Parsed{}, err
	}
	parsed.CaregiverPINGiven = cmd.Flags().Changed("caregiver-pin")
	if parsed.Command == "" {
		return Parsed{}, errors.New("no command selected")
	}
	return parsed, nil
}

func HelpText() string {
	var parsed Parsed
	return newRoot(&parsed).UsageString()
}

func newRoot(parsed *Parsed) *cobra.Command {
	var showVersion bool

	root := &cobra.Command{
		Use:           binaryName,
		Short:         "AAC communication board daemon and CLI",
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if showVersion {
				parsed.Command = CommandVersion
				return nil
			}
			return cmd.Help()
		},
	}
	root.CompletionOptions.DisableDefaultCmd = true
	root.PersistentFlags().StringVar(&parsed.ConfigPath, "config", "", "path to config.jsonc")
	root.PersistentFlags().BoolVar(&parsed.JSON, "json", false, "print machine-readable JSON")
	root.PersistentFlags().StringVar(&parsed.CaregiverPIN, "caregiver-pin", "", "caregiver PIN for one board edit")
	root.Flags().BoolVar(&showVersion, "version", false, "print version")
	root.SetHelpFunc(func(cmd *cobra.Command, _ []string) {
		parsed.Command = CommandHelp
		parsed.ShowHelp = true
		parsed.Help = cmd.UsageString()
	})

	root.AddCommand(
		local(parsed, CommandServe, "Run the board daemon in the foreground"),
		local(parsed, CommandWatch, "Stream board changes from the running daemon"),
		local(parsed, CommandDoctor, "Check configuration and runtime dependencies"),
		local(parsed, CommandDevices, "List audio output devices"),
		local(parsed, CommandVersion, "Print version"),

		board0(parsed, "status", "status", "Show board session status"),
		board0(parsed, "state", "state", "Print the full board state"),
		board0(parsed, "categories", "categories", "List categories in display order"),
		tilesCmd(parsed),
		searchCmd(parsed),
		categoryCmd(parsed),
		tileCmd(parsed),
		sentenceCmd(parsed),
		board0(parsed, "speak", "speak", "Speak the current sentence"),
		prefsCmd(parsed),
		caregiverCmd(parsed),
		pinCmd(parsed),
		contrastCmd(parsed),
		exportCmd(parsed),
		importCmd(parsed),
		resetCmd(parsed),
		loadingCmd(parsed),
		errorCmd(parsed),
	)
	return root
}

func local(parsed *Parsed, command Command, short string) *cobra.Command {
	return &cobra.Command{
		Use:   string(command),
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			parsed.Command = command
			return nil
		},
	}
}

// board0 builds an argument-less board command.
func board0(parsed *Parsed, use string, command string, short string) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			parsed.Command = Command(command)
			return nil
		},
	}
}

// boardArgs builds a board command that forwards its positional arguments.
func boardArgs(parsed *Parsed, use string, command string, short string, args cobra.PositionalArgs) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  args,
		RunE: func(_ *cobra.Command, args []string) error {
			parsed.Command = Command(command)
			parsed.Args = args
			return nil
		},
	}
}

func tilesCmd(parsed *Parsed) *cobra.Command {
	return boardArgs(parsed, "tiles [CATEGORY_ID]", "tiles", "List tiles, optionally for one category", cobra.MaximumNArgs(1))
}

func searchCmd(parsed *Parsed) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search [QUERY...]",
		Short: "Search tiles by label, translation, or variant",
		RunE: func(cmd *cobra.Command, args []string) error {
			f := newFields(cmd)
			f.tileType("type", "type")
			f.str("category", "categoryId")
			f.boolean("favorites", "favoritesOnly")
			if f.err != nil {
				return f.err
			}
			parsed.Command = "search"
			parsed.Args = args
			parsed.Payload = f.out
			return nil
		},
	}
	cmd.Flags().String("type", "", "only tiles of this type")
	cmd.Flags().String("category", "", "only tiles in this category")
	cmd.Flags().Bool("favorites", false, "only favorite tiles")
	return cmd
}

func categoryCmd(parsed *Parsed) *cobra.Command {
	cmd := &cobra.Command{Use: "category", Short: "Manage categories"}

	add := &cobra.Command{
		Use:   "add NAME",
		Short: "Add a category at the end of the list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f := newFields(cmd)
			f.out["name"] = args[0]
			f.str("icon", "icon")
			f.str("color", "color")
			f.translations("translation", "nameTranslations")
			return f.finish(parsed, "category.add", nil)
		},
	}
	categoryFlags(add)

	update := &cobra.Command{
		Use:   "update ID",
		Short: "Change category fields",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f := newFields(cmd)
			f.str("name", "name")
			f.str("icon", "icon")
			f.str("color", "color")
			f.translations("translation", "nameTranslations")
			if f.err == nil && len(f.out) == 0 {
				return errors.New("category update: nothing to change")
			}
			return f.finish(parsed, "category.update", args)
		},
	}
	update.Flags().String("name", "", "new name")
	categoryFlags(update)

	cmd.AddCommand(
		add,
		update,
		boardArgs(parsed, "delete ID", "category.delete", "Delete a category and its tiles", cobra.ExactArgs(1)),
		boardArgs(parsed, "reorder ID...", "category.reorder", "Set the category display order", cobra.MinimumNArgs(1)),
	)
	return cmd
}

func categoryFlags(cmd *cobra.Command) {
	cmd.Flags().String("icon", "", "icon glyph")
	cmd.Flags().String("color", "", "color tag")
	cmd.Flags().StringToString("translation", nil, "localized name as LANG=TEXT (repeatable)")
}

func tileCmd(parsed *Parsed) *cobra.Command {
	cmd := &cobra.Command{Use: "tile", Short: "Manage tiles"}

	add := &cobra.Command{
		Use:   "add LABEL",
		Short: "Add a tile at the end of its category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f := newFields(cmd)
			f.out["label"] = args[0]
			f.str("category", "categoryId")
			f.tileType("type", "type")
			tileFields(f)
			if _, ok := f.out["type"]; !ok && f.err == nil {
				f.out["type"] = string(board.TileNoun)
			}
			return f.finish(parsed, "tile.add", nil)
		},
	}
	add.Flags().String("category", "", "category id")
	add.Flags().String("type", string(board.TileNoun), "tile type")
	tileFlags(add)
	_ = add.MarkFlagRequired("category")

	update := &cobra.Command{
		Use:   "update ID",
		Short: "Change tile fields",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f := newFields(cmd)
			f.str("label", "label")
			f.str("category", "categoryId")
			f.tileType("type", "type")
			tileFields(f)
			if f.err == nil && len(f.out) == 0 {
				return errors.New("tile update: nothing to change")
			}
			return f.finish(parsed, "tile.update", args)
		},
	}
	update.Flags().String("label", "", "new label")
	update.Flags().String("category", "", "move to this category")
	update.Flags().String("type", "", "tile type")
	tileFlags(update)

	cmd.AddCommand(
		add,
		update,
		boardArgs(parsed, "delete ID", "tile.delete", "Delete a tile", cobra.ExactArgs(1)),
		boardArgs(parsed, "reorder CATEGORY_ID TILE_ID...", "tile.reorder", "Set the tile order within a category", cobra.MinimumNArgs(2)),
		boardArgs(parsed, "favorite ID", "tile.favorite", "Toggle a tile's favorite flag", cobra.ExactArgs(1)),
	)
	return cmd
}

func tileFlags(cmd *cobra.Command) {
	cmd.Flags().String("image", "", "emoji glyph, image URL, or asset path")
	cmd.Flags().String("tts", "", "text to speak instead of the label")
	cmd.Flags().StringSlice("variant", nil, "alternate word forms (repeatable)")
	cmd.Flags().Bool("favorite", false, "mark as favorite")
	cmd.Flags().StringToString("translation", nil, "localized label as LANG=TEXT (repeatable)")
}

func tileFields(f *fields) {
	f.str("image", "imageUri")
	f.str("tts", "ttsOverride")
	f.strings("variant", "variants")
	f.boolean("favorite", "isFavorite")
	f.translations("translation", "translations")
}

func sentenceCmd(parsed *Parsed) *cobra.Command {
	cmd := board0(parsed, "sentence", "sentence", "Show or edit the sentence being built")

	add := boardArgs(parsed, "add TILE_ID...", "sentence.add", "Append tiles to the sentence", cobra.MinimumNArgs(1))
	add.Aliases = []string{"select"}

	cmd.AddCommand(
		add,
		boardArgs(parsed, "remove INDEX", "sentence.remove", "Remove the item at INDEX", cobra.ExactArgs(1)),
		board0(parsed, "clear", "sentence.clear", "Empty the sentence"),
		boardArgs(parsed, "move FROM TO", "sentence.move", "Move an item within the sentence", cobra.ExactArgs(2)),
	)
	return cmd
}

func prefsCmd(parsed *Parsed) *cobra.Command {
	cmd := board0(parsed, "prefs", "prefs", "Show preferences")

	set := &cobra.Command{
		Use:   "set",
		Short: "Change preferences",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f := newFields(cmd)
			f.language("language", "language")
			f.str("voice", "ttsVoice")
			f.integer("grid-cols", "gridCols")
			f.boolean("high-contrast", "highContrast")
			f.boolean("show-text", "showText")
			f.boolean("vibration", "vibration")
			if f.err == nil && len(f.out) == 0 {
				return errors.New("prefs set: nothing to change")
			}
			return f.finish(parsed, "prefs.update", nil)
		},
	}
	set.Flags().String("language", "", "interface and speech language (en, ru, he)")
	set.Flags().String("voice", "", "speech voice name")
	set.Flags().Int("grid-cols", 0, fmt.Sprintf("grid columns (%d-%d)", board.MinGridCols, board.MaxGridCols))
	set.Flags().Bool("high-contrast", false, "high-contrast display")
	set.Flags().Bool("show-text", true, "show labels under tiles")
	set.Flags().Bool("vibration", true, "haptic feedback")

	cmd.AddCommand(set)
	return cmd
}

func caregiverCmd(parsed *Parsed) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "caregiver",
		Short: "Toggle caregiver mode (PIN required to enter when set)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			parsed.Command = "caregiver.toggle"
			parsed.PINGiven = cmd.Flags().Changed("pin")
			return nil
		},
	}
	cmd.Flags().StringVar(&parsed.PIN, "pin", "", "caregiver PIN")
	return cmd
}

func pinCmd(parsed *Parsed) *cobra.Command {
	cmd := &cobra.Command{Use: "pin", Short: "Manage the caregiver PIN"}

	set := &cobra.Command{
		Use:   "set",
		Short: "Set or replace the caregiver PIN",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			parsed.Command = "pin.set"
			parsed.PINGiven = cmd.Flags().Changed("pin")
			if parsed.PINGiven && strings.TrimSpace(parsed.PIN) == "" {
				return errors.New("pin set: --pin must not be empty; use pin clear")
			}
			return nil
		},
	}
	set.Flags().StringVar(&parsed.PIN, "pin", "", "new PIN")
	set.Flags().StringVar(&parsed.CurrentPIN, "current", "", "current PIN")

	clearPIN := &cobra.Command{
		Use:   "clear",
		Short: "Remove the caregiver PIN",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			parsed.Command = "pin.set"
			parsed.PIN = ""
			parsed.PINGiven = true
			return nil
		},
	}
	clearPIN.Flags().StringVar(&parsed.CurrentPIN, "current", "", "current PIN")

	cmd.AddCommand(set, clearPIN)
	return cmd
}

func contrastCmd(parsed *Parsed) *cobra.Command {
	cmd := boardArgs(parsed, "contrast on|off", "contrast", "Switch high-contrast display", cobra.ExactArgs(1))
	cmd.ValidArgs = []string{"on", "off"}
	return cmd
}

func exportCmd(parsed *Parsed) *cobra.Command {
	return &cobra.Command{
		Use:   "export [FILE]",
		Short: "Write the board as a JSON document (.xz compresses)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			parsed.Command = "export"
			if len(args) == 1 {
				parsed.File = args[0]
			}
			return nil
		},
	}
}

func importCmd(parsed *Parsed) *cobra.Command {
	return &cobra.Command{
		Use:   "import FILE",
		Short: "Replace the board from an exported document (- reads stdin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			parsed.Command = "import"
			parsed.File = args[0]
			return nil
		},
	}
}

func resetCmd(parsed *Parsed) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Replace the board with the built-in vocabulary",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			parsed.Command = "reset"
			return nil
		},
	}
	cmd.Flags().BoolVarP(&parsed.Yes, "yes", "y", false, "skip confirmation")
	return cmd
}

func loadingCmd(parsed *Parsed) *cobra.Command {
	cmd := boardArgs(parsed, "loading true|false", "loading", "Set the loading flag", cobra.ExactArgs(1))
	cmd.Hidden = true
	return cmd
}

func errorCmd(parsed *Parsed) *cobra.Command {
	cmd := boardArgs(parsed, "error [MESSAGE...]", "error", "Set or clear the board error message", cobra.ArbitraryArgs)
	cmd.Hidden = true
	return cmd
}

// fields collects only the flags the user actually set into a JSON patch.
type fields struct {
	cmd *cobra.Command
	out map[string]any
	err error
}

func newFields(cmd *cobra.Command) *fields {
	return &fields{cmd: cmd, out: map[string]any{}}
}

func (f *fields) changed(flag string) bool {
	return f.err == nil && f.cmd.Flags().Changed(flag)
}

func (f *fields) str(flag, key string) {
	if !f.changed(flag) {
		return
	}
	v, err := f.cmd.Flags().GetString(flag)
	f.set(key, v, err)
}

func (f *fields) strings(flag, key string) {
	if !f.changed(flag) {
		return
	}
	v, err := f.cmd.Flags().GetStringSlice(flag)
	f.set(key, v, err)
}

func (f *fields) boolean(flag, key string) {
	if !f.changed(flag) {
		return
	}
	v, err := f.cmd.Flags().GetBool(flag)
	f.set(key, v, err)
}

func (f *fields) integer(flag, key string) {
	if !f.changed(flag) {
		return
	}
	v, err := f.cmd.Flags().GetInt(flag)
	f.set(key, v, err)
}

func (f *fields) tileType(flag, key string) {
	if !f.changed(flag) {
		return
	}
	raw, err := f.cmd.Flags().GetString(flag)
	if err != nil {
		f.err = err
		return
	}
	t, err := board.ParseTileType(raw)
	f.set(key, string(t), err)
}

func (f *fields) language(flag, key string) {
	if !f.changed(flag) {
		return
	}
	raw, err := f.cmd.Flags().GetString(flag)
	if err != nil {
		f.err = err
		return
	}
	lang, ok := locale.Normalize(raw)
	if !ok {
		f.err = fmt.Errorf("--%s: unsupported language %q", flag, raw)
		return
	}
	f.out[key] = string(lang)
}

func (f *fields) translations(flag, key string) {
	if !f.changed(flag) {
		return
	}
	raw, err := f.cmd.Flags().GetStringToString(flag)
	if err != nil {
		f.err = err
		return
	}
	out := make(map[string]string, len(raw))
	for lang, text := range raw {
		if !board.Language(lang).Supported() {
			f.err = fmt.Errorf("--%s: unsupported language %q", flag, lang)
			return
		}
		out[lang] = text
	}
	f.out[key] = out
}

func (f *fields) set(key string, value any, err error) {
	if err != nil {
		f.err = err
		return
	}
	f.out[key] = value
}

func (f *fields) finish(parsed *Parsed, command string, args []string) error {
	if f.err != nil {
		return f.err
	}
	parsed.Command = Command(command)
	parsed.Args = args
	parsed.Payload = f.out
	return nil
}
